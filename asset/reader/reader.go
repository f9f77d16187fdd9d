package reader

import (
	"fmt"
	"strings"

	"github.com/achilleasa/polaris-accel/asset"
	"github.com/achilleasa/polaris-accel/scene"
	"github.com/achilleasa/polaris-accel/types"
)

// The Reader interface is implemented by all mesh readers.
type Reader interface {
	// Read mesh definitions from a resource.
	Read(*asset.Resource) ([]*scene.Mesh, error)
}

// Transform maps mesh positions from object to world space. Positions are
// scaled, then rotated and finally translated.
type Transform struct {
	Scale       types.Vec3
	Rotation    types.Quat
	Translation types.Vec3
}

// Get a transform that leaves meshes unchanged.
func IdentityTransform() Transform {
	return Transform{
		Scale:    types.Vec3{1, 1, 1},
		Rotation: types.QuatIdent(),
	}
}

// Apply the transform to a position.
func (xf Transform) Point(p types.Vec3) types.Vec3 {
	return xf.Rotation.Rotate(p.MulVec(xf.Scale)).Add(xf.Translation)
}

// Apply the transform to a normal. Normals are scaled by the inverse scale
// so they stay perpendicular to the transformed surface.
func (xf Transform) Normal(n types.Vec3) types.Vec3 {
	return xf.Rotation.Rotate(n.Div(xf.Scale)).Normalize()
}

func (xf Transform) validate() error {
	for axis := 0; axis < 3; axis++ {
		if xf.Scale[axis] == 0 {
			return fmt.Errorf("reader: transform scale must be non-zero on all axes; got %v", xf.Scale)
		}
	}
	return nil
}

// Read meshes from a local file or an http(s) URL. If xform is not nil it
// is applied to all vertex positions and normals.
func ReadMeshes(filename string, xform *Transform) ([]*scene.Mesh, error) {
	if xform != nil {
		if err := xform.validate(); err != nil {
			return nil, err
		}
	}

	// Select reader based on file extension
	var reader Reader
	if strings.HasSuffix(strings.ToLower(filename), ".obj") {
		reader = newWavefrontReader(xform)
	} else {
		return nil, fmt.Errorf("readMeshes: unsupported file format")
	}

	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return reader.Read(res)
}
