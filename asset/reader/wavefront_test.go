package reader

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/achilleasa/polaris-accel/asset"
	"github.com/achilleasa/polaris-accel/scene"
	"github.com/achilleasa/polaris-accel/types"
	"github.com/chewxy/math32"
)

func readString(t *testing.T, payload string, xform *Transform) ([]*scene.Mesh, error) {
	t.Helper()
	res := asset.NewResourceFromStream("embedded", strings.NewReader(payload))
	return newWavefrontReader(xform).Read(res)
}

func approxEqual(a, b types.Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if math32.Abs(a[axis]-b[axis]) > 1e-4 {
			return false
		}
	}
	return true
}

func TestReadQuad(t *testing.T) {
	payload := `
# unit quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`
	meshes, err := readString(t, payload, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh; got %d", len(meshes))
	}

	mesh := meshes[0]
	if mesh.Name != "default" {
		t.Fatalf("expected mesh name to be default; got %q", mesh.Name)
	}
	if len(mesh.V) != 4 {
		t.Fatalf("expected 4 vertices; got %d", len(mesh.V))
	}
	expFaces := [][3]uint32{{0, 1, 2}, {0, 2, 3}}
	if len(mesh.F) != len(expFaces) || mesh.F[0] != expFaces[0] || mesh.F[1] != expFaces[1] {
		t.Fatalf("expected faces %v; got %v", expFaces, mesh.F)
	}
	if mesh.N != nil || mesh.UV != nil {
		t.Fatalf("expected mesh without normals and uvs; got %d normals and %d uvs", len(mesh.N), len(mesh.UV))
	}
}

func TestReadGroupsAndNegativeIndices(t *testing.T) {
	payload := `
v 0 0 0
v 1 0 0
v 0 1 0
g empty
g first
f 1 2 3
o second
v 0 0 1
v 1 0 1
v 0 1 1
f -3 -2 -1
`
	meshes, err := readString(t, payload, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes after dropping the empty group; got %d", len(meshes))
	}
	if meshes[0].Name != "first" || meshes[1].Name != "second" {
		t.Fatalf("expected meshes first and second; got %q and %q", meshes[0].Name, meshes[1].Name)
	}

	second := meshes[1]
	for i, exp := range []types.Vec3{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}} {
		if second.V[i] != exp {
			t.Fatalf("[vertex %d] expected %v; got %v", i, exp, second.V[i])
		}
	}
}

func TestReadSharesIdenticalCorners(t *testing.T) {
	payload := `
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
vt 0 0
vt 1 0
vt 0 1
vn 0 0 1
vn 0 0 -1
f 1/1/1 2/2/1 3/3/1
f 2/2/1 4/1/1 3/3/1
f 1/1/2 3/3/2 2/2/2
`
	meshes, err := readString(t, payload, nil)
	if err != nil {
		t.Fatal(err)
	}

	mesh := meshes[0]
	// 4 unique corners for the first two faces plus 3 corners with a
	// different normal.
	if len(mesh.V) != 7 {
		t.Fatalf("expected 7 vertices; got %d", len(mesh.V))
	}
	if len(mesh.N) != 7 || len(mesh.UV) != 7 {
		t.Fatalf("expected per-vertex normals and uvs; got %d and %d", len(mesh.N), len(mesh.UV))
	}
	if mesh.F[1][0] != mesh.F[0][1] || mesh.F[1][2] != mesh.F[0][2] {
		t.Fatalf("expected faces to share corners; got %v", mesh.F)
	}
	if mesh.N[mesh.F[2][0]] != (types.Vec3{0, 0, -1}) {
		t.Fatalf("expected the last face to use the flipped normal; got %v", mesh.N[mesh.F[2][0]])
	}
}

func TestReadDropsPartialNormals(t *testing.T) {
	payload := `
v 0 0 0
v 1 0 0
v 0 1 0
vn 0 0 1
f 1//1 2//1 3
`
	_, err := readString(t, payload, nil)
	if err == nil || !strings.Contains(err.Error(), "expected each face argument to contain 3 indices") {
		t.Fatalf("expected a face format error; got %v", err)
	}

	payload = `
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
vn 0 0 1
f 1//1 2//1 3//1
f 2 4 3
`
	meshes, err := readString(t, payload, nil)
	if err != nil {
		t.Fatal(err)
	}
	if meshes[0].N != nil {
		t.Fatalf("expected normals to be dropped; got %v", meshes[0].N)
	}
}

func TestReadErrors(t *testing.T) {
	specs := []struct {
		payload string
		expErr  string
	}{
		{"v 0 0\n", `[embedded: 1] error: unsupported syntax for "v"; expected 3 arguments; got 2`},
		{"v 0 0 0\nf 1 1\n", `[embedded: 2] error: unsupported syntax for "f"; expected 3 arguments`},
		{"v 0 0 0\nf 1 2 3\n", `[embedded: 2] error: could not parse vertex coord for face argument 1: index out of bounds`},
		{"v 0 0 0\nf 0 1 1\n", `[embedded: 2] error: could not parse vertex coord for face argument 0: index out of bounds`},
		{"vt 0\n", `[embedded: 1] error: unsupported syntax for "vt"; expected 2 arguments; got 1`},
		{"g\n", `[embedded: 1] error: unsupported syntax for "g"; expected 1 argument for object name; got 0`},
	}

	for specIndex, spec := range specs {
		_, err := readString(t, spec.payload, nil)
		if err == nil || !strings.HasPrefix(err.Error(), spec.expErr) {
			t.Fatalf("[spec %d] expected error starting with %q; got %v", specIndex, spec.expErr, err)
		}
	}
}

func TestReadAppliesTransform(t *testing.T) {
	payload := `
v 1 0 0
v 0 1 0
v 0 0 1
vn 1 0 0
f 1//1 2//1 3//1
`
	xform := IdentityTransform()
	xform.Scale = types.Vec3{2, 2, 2}
	xform.Rotation = types.QuatFromAxisAngle(types.Vec3{0, 0, 1}, math32.Pi/2)
	xform.Translation = types.Vec3{0, 0, 10}

	meshes, err := readString(t, payload, &xform)
	if err != nil {
		t.Fatal(err)
	}

	mesh := meshes[0]
	expV := []types.Vec3{{0, 2, 10}, {-2, 0, 10}, {0, 0, 12}}
	for i, exp := range expV {
		if !approxEqual(mesh.V[i], exp) {
			t.Fatalf("[vertex %d] expected %v; got %v", i, exp, mesh.V[i])
		}
	}
	if !approxEqual(mesh.N[0], types.Vec3{0, 1, 0}) {
		t.Fatalf("expected rotated unit normal (0, 1, 0); got %v", mesh.N[0])
	}
}

func TestReadMeshesValidation(t *testing.T) {
	xform := IdentityTransform()
	xform.Scale[1] = 0
	if _, err := ReadMeshes("model.obj", &xform); err == nil || !strings.Contains(err.Error(), "scale must be non-zero") {
		t.Fatalf("expected a scale error; got %v", err)
	}

	expError := "readMeshes: unsupported file format"
	if _, err := ReadMeshes("reader_test.go", nil); err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestReadRemoteWithInclude(t *testing.T) {
	files := map[string]string{
		"/models/main.obj":   "v 0 0 0\nv 1 0 0\nv 0 1 0\ng base\nf 1 2 3\ncall part.obj\n",
		"/models/part.obj":   "g part\nv 0 0 1\nv 1 0 1\nv 0 1 1\nf 1 2 3\n",
		"/models/broken.obj": "call missing.obj\n",
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(payload))
	}))
	defer server.Close()

	meshes, err := ReadMeshes(server.URL+"/models/main.obj", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes; got %d", len(meshes))
	}
	// Positive indices in the included file are relative to its own vertices.
	if meshes[1].V[0] != (types.Vec3{0, 0, 1}) {
		t.Fatalf("expected included mesh to use its own vertices; got %v", meshes[1].V)
	}

	_, err = ReadMeshes(server.URL+"/models/broken.obj", nil)
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected a 404 error for the missing include; got %v", err)
	}
}
