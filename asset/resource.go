package asset

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// HTTPClient is used for fetching http/https resources.
var HTTPClient = &http.Client{Timeout: 30 * time.Second}

// A Resource is a readable stream backed by a local file, a remote http(s)
// URL or an in-memory reader. Mesh files and accelerator configs are loaded
// through resources so that both can live next to each other on disk or on
// a web server.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Returns the path to this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Return the base name of the URL path for remote resources or the full
// path otherwise.
func (r *Resource) RemotePath() string {
	if r.IsRemote() {
		return path.Base(r.url.Path)
	}
	return r.Path()
}

// Returns true if the resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Resolve the location of a resource. Relative locations are resolved
// against the directory containing relTo; if relTo is nil or the location
// is absolute it is returned as-is.
func Resolve(pathToResource string, relTo *Resource) (*url.URL, error) {
	target, err := url.Parse(strings.ReplaceAll(pathToResource, `\`, `/`))
	if err != nil {
		return nil, err
	}

	if target.Scheme != "" || relTo == nil {
		return target, nil
	}

	if relTo.IsRemote() {
		return relTo.url.ResolveReference(&url.URL{Path: target.Path}), nil
	}

	if filepath.IsAbs(target.Path) {
		return target, nil
	}

	base, err := filepath.Abs(relTo.url.Path)
	if err != nil {
		return nil, fmt.Errorf("resource: could not detect abs path for %s; %s", relTo.Path(), err.Error())
	}
	return &url.URL{Path: filepath.Join(filepath.Dir(base), target.Path)}, nil
}

// Create a new resource stream. See Resolve for the handling of relative
// paths. The caller must close the returned resource.
func NewResource(pathToResource string, relTo *Resource) (*Resource, error) {
	target, err := Resolve(pathToResource, relTo)
	if err != nil {
		return nil, err
	}

	var reader io.ReadCloser
	switch target.Scheme {
	case "":
		reader, err = os.Open(filepath.Clean(target.Path))
	case "http", "https":
		reader, err = fetch(target)
	default:
		err = fmt.Errorf("resource: unsupported scheme '%s'", target.Scheme)
	}
	if err != nil {
		return nil, err
	}

	return &Resource{
		ReadCloser: reader,
		url:        target,
	}, nil
}

func fetch(target *url.URL) (io.ReadCloser, error) {
	resp, err := HTTPClient.Get(target.String())
	if err != nil {
		return nil, fmt.Errorf("resource: could not fetch '%s': %s", target.String(), err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("resource: could not fetch '%s': status %d", target.String(), resp.StatusCode)
	}
	return resp.Body, nil
}

// Create a resource from a reader.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	target, err := url.Parse(name)
	if err != nil {
		target = &url.URL{Path: name}
	}
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        target,
	}
}
