package reader

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/polaris-accel/asset"
	"github.com/achilleasa/polaris-accel/log"
	"github.com/achilleasa/polaris-accel/scene"
	"github.com/achilleasa/polaris-accel/types"
)

// A face corner: indices into the vertex, uv and normal lists. Missing
// attributes are set to -1.
type vertexKey struct {
	pos, uv, normal int
}

// A mesh under construction. Identical face corners share a single vertex.
type meshBuilder struct {
	mesh      *scene.Mesh
	vertexMap map[vertexKey]uint32

	uvCount     int
	normalCount int
}

func newMeshBuilder(name string) *meshBuilder {
	return &meshBuilder{
		mesh:      &scene.Mesh{Name: name},
		vertexMap: make(map[vertexKey]uint32),
	}
}

type wavefrontReader struct {
	logger log.Logger

	xform *Transform

	meshes []*meshBuilder

	// List of vertices, normals and uv coords.
	vertexList []types.Vec3
	normalList []types.Vec3
	uvList     []types.Vec2

	// An error stack that provides additional error information when
	// files include other files.
	errStack []string
}

// Create a new wavefront mesh reader.
func newWavefrontReader(xform *Transform) *wavefrontReader {
	return &wavefrontReader{
		logger: log.New("wavefront reader"),
		xform:  xform,
	}
}

// Read mesh definitions.
func (r *wavefrontReader) Read(res *asset.Resource) ([]*scene.Mesh, error) {
	r.logger.Noticef(`parsing meshes from "%s"`, res.Path())
	start := time.Now()

	if err := r.parse(res); err != nil {
		return nil, err
	}

	meshes := make([]*scene.Mesh, 0, len(r.meshes))
	var triCount uint32
	for _, mb := range r.meshes {
		mesh := r.finalize(mb)
		triCount += mesh.TriangleCount()
		meshes = append(meshes, mesh)
	}

	r.logger.Noticef("parsed %d meshes with %d triangles in %d ms", len(meshes), triCount, time.Since(start).Nanoseconds()/1e6)
	return meshes, nil
}

// Drop partial attribute lists and apply the transform.
func (r *wavefrontReader) finalize(mb *meshBuilder) *scene.Mesh {
	mesh := mb.mesh
	if mb.normalCount != len(mesh.V) {
		if mb.normalCount > 0 {
			r.logger.Warningf(`dropping normals of mesh "%s" as only %d of %d vertices define one`, mesh.Name, mb.normalCount, len(mesh.V))
		}
		mesh.N = nil
	}
	if mb.uvCount == 0 {
		mesh.UV = nil
	}

	if r.xform != nil {
		for i, v := range mesh.V {
			mesh.V[i] = r.xform.Point(v)
		}
		for i, n := range mesh.N {
			mesh.N[i] = r.xform.Normal(n)
		}
	}
	return mesh
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n"))
	} else {
		errMsg = fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n"))
	}

	return errors.New(strings.Trim(errMsg, "\n"))
}

// Push a frame to the error stack.
func (r *wavefrontReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Parse wavefront object format.
func (r *wavefrontReader) parse(res *asset.Resource) error {
	var lineNum int

	// Included files use 1-based indices relative to their own coordinate
	// lists. Track the list lengths when the file was entered so that
	// positive indices can be adjusted.
	relVertexOffset := len(r.vertexList)
	relUvOffset := len(r.uvList)
	relNormalOffset := len(r.normalList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))
			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			err = r.parse(incRes)
			incRes.Close()
			if err != nil {
				return err
			}
			r.popFrame()
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.normalList = append(r.normalList, v)
		case "vt":
			v, err := parseVec2(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.uvList = append(r.uvList, v)
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.verifyLastParsedMesh()
			r.meshes = append(r.meshes, newMeshBuilder(lineTokens[1]))
		case "f":
			// If no object has been defined create a default one
			if len(r.meshes) == 0 {
				r.meshes = append(r.meshes, newMeshBuilder("default"))
			}
			err := r.parseFace(r.meshes[len(r.meshes)-1], lineTokens, relVertexOffset, relUvOffset, relNormalOffset)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "mtllib", "usemtl", "s", "l", "p":
			// Materials, smoothing groups and non-triangle elements carry
			// nothing an acceleration structure can use.
		default:
			r.logger.Debugf("%s:%d: ignoring unsupported statement %q", res.Path(), lineNum, lineTokens[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err.Error())
	}

	r.verifyLastParsedMesh()
	return nil
}

// Drop the last parsed mesh if it contains no triangles.
func (r *wavefrontReader) verifyLastParsedMesh() {
	lastMeshIndex := len(r.meshes) - 1
	if lastMeshIndex >= 0 && len(r.meshes[lastMeshIndex].mesh.F) == 0 {
		r.logger.Warningf(`dropping mesh "%s" as it contains no polygons`, r.meshes[lastMeshIndex].mesh.Name)
		r.meshes = r.meshes[:lastMeshIndex]
	}
}

// Parse face definition. Each face definition consists of 3 or 4
// arguments, one for each vertex. Each one of the vertex arguments is
// comprised of 1, 2 or 3 indices separated by a slash character. The
// following formats are supported:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to indicate an offset off the
// end of the vertex/uv/normal list. Quads are split into two triangles.
func (r *wavefrontReader) parseFace(mb *meshBuilder, lineTokens []string, relVertexOffset, relUvOffset, relNormalOffset int) error {
	if len(lineTokens) < 4 || len(lineTokens) > 5 {
		return fmt.Errorf(`unsupported syntax for "f"; expected 3 arguments for triangular face or 4 arguments for a quad face; got %d. Select the triangulation option in your exporter`, len(lineTokens)-1)
	}

	var corners [4]uint32
	expIndices := 0
	for arg := 0; arg < len(lineTokens)-1; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}
		if expIndices > 3 {
			return fmt.Errorf("face argument %d contains %d indices; expected at most 3", arg, expIndices)
		}

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		key := vertexKey{pos: -1, uv: -1, normal: -1}
		var err error
		key.pos, err = selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}

		if expIndices > 1 && vTokens[1] != "" {
			key.uv, err = selectFaceCoordIndex(vTokens[1], len(r.uvList), relUvOffset)
			if err != nil {
				return fmt.Errorf("could not parse tex coord for face argument %d: %s", arg, err.Error())
			}
		}

		if expIndices > 2 && vTokens[2] != "" {
			key.normal, err = selectFaceCoordIndex(vTokens[2], len(r.normalList), relNormalOffset)
			if err != nil {
				return fmt.Errorf("could not parse normal coord for face argument %d: %s", arg, err.Error())
			}
		}

		corners[arg] = r.addVertex(mb, key)
	}

	mb.mesh.F = append(mb.mesh.F, [3]uint32{corners[0], corners[1], corners[2]})
	if len(lineTokens) == 5 {
		mb.mesh.F = append(mb.mesh.F, [3]uint32{corners[0], corners[2], corners[3]})
	}
	return nil
}

// Look up or create the mesh vertex for a face corner.
func (r *wavefrontReader) addVertex(mb *meshBuilder, key vertexKey) uint32 {
	if index, exists := mb.vertexMap[key]; exists {
		return index
	}

	mesh := mb.mesh
	index := uint32(len(mesh.V))
	mesh.V = append(mesh.V, r.vertexList[key.pos])

	var uv types.Vec2
	if key.uv >= 0 {
		uv = r.uvList[key.uv]
		mb.uvCount++
	}
	mesh.UV = append(mesh.UV, uv)

	var normal types.Vec3
	if key.normal >= 0 {
		normal = r.normalList[key.normal]
		mb.normalCount++
	}
	mesh.N = append(mesh.N, normal)

	mb.vertexMap[key] = index
	return index
}

// Given an index for a face coord type (vertex, normal, tex) calculate the
// proper offset into the coord list. Wavefront format can also use negative
// indices to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = relOffset + int(index-1)
	}
	if index == 0 || vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

// Parse a Vec2 row.
func parseVec2(lineTokens []string) (types.Vec2, error) {
	if len(lineTokens) < 3 {
		return types.Vec2{}, fmt.Errorf(`unsupported syntax for "%s"; expected 2 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec2{}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
