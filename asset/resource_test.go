package asset

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestLocalResource(t *testing.T) {
	dir := t.TempDir()
	meshFile := filepath.Join(dir, "quad.obj")
	if err := os.WriteFile(meshFile, []byte("v 0 0 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewResource(meshFile, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.IsRemote() {
		t.Fatal("expected local resource")
	}
	data, err := io.ReadAll(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v 0 0 0\n" {
		t.Fatalf("unexpected resource contents %q", data)
	}

	if _, err = NewResource(filepath.Join(dir, "missing.obj"), nil); !os.IsNotExist(err) {
		t.Fatalf("expected a not-exist error; got %v", err)
	}
}

func TestHttpResource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/quad.obj" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	res, err := NewResource(server.URL+"/models/quad.obj", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if !res.IsRemote() {
		t.Fatal("expected resource to be remote")
	}
	if res.RemotePath() != "quad.obj" {
		t.Fatalf("expected remote path quad.obj; got %q", res.RemotePath())
	}

	fetchUrl := server.URL + "/file-not-found.foo"
	expError := fmt.Sprintf("resource: could not fetch '%s': status %d", fetchUrl, 404)
	_, err = NewResource(fetchUrl, nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestRelativeResources(t *testing.T) {
	var serverHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHits.Add(1)
		switch r.URL.Path {
		case "/foo/file1.obj", "/foo/file2.obj":
			w.Write([]byte("OK"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	res1, err := NewResource(server.URL+"/foo/file1.obj", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res1.Close()
	res2, err := NewResource("file2.obj", res1)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.Close()

	if got := serverHits.Load(); got != 2 {
		t.Fatalf("expected server to receive 2 requests; got %d", got)
	}
}

func TestResolve(t *testing.T) {
	remote := &Resource{url: &url.URL{Scheme: "https", Host: "example.com", Path: "/models/scene.obj"}}
	local := &Resource{url: &url.URL{Path: "/data/models/scene.obj"}}

	specs := []struct {
		path  string
		relTo *Resource
		exp   string
	}{
		{"part.obj", nil, "part.obj"},
		{"part.obj", remote, "https://example.com/models/part.obj"},
		{"../shared/part.obj", remote, "https://example.com/shared/part.obj"},
		{"/other/part.obj", remote, "https://example.com/other/part.obj"},
		{"http://cdn.example.com/part.obj", remote, "http://cdn.example.com/part.obj"},
		{"part.obj", local, "/data/models/part.obj"},
		{`sub\part.obj`, local, "/data/models/sub/part.obj"},
		{"/abs/part.obj", local, "/abs/part.obj"},
	}

	for specIndex, spec := range specs {
		got, err := Resolve(spec.path, spec.relTo)
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if got.String() != spec.exp {
			t.Fatalf("[spec %d] expected %q; got %q", specIndex, spec.exp, got.String())
		}
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	expError := "resource: unsupported scheme 'gopher'"
	_, err := NewResource("gopher://digging.go", nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestResourceConnectionRefusedError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := NewResource(addr+"/foo.obj", nil)
	if err == nil || !strings.Contains(err.Error(), "could not fetch") {
		t.Fatalf("expected a fetch error; got %v", err)
	}
}

func TestStreamResource(t *testing.T) {
	res := NewResourceFromStream("embedded", strings.NewReader("OK"))
	defer res.Close()

	if res.IsRemote() {
		t.Fatal("expected stream resource not to be remote")
	}
	if res.Path() != "embedded" || res.RemotePath() != "embedded" {
		t.Fatalf("expected path embedded; got %q and %q", res.Path(), res.RemotePath())
	}
	data, err := io.ReadAll(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "OK" {
		t.Fatalf("expected to read OK; got %q", data)
	}
}
