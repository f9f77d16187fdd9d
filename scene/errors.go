package scene

import "errors"

var (
	ErrAlreadyBuilt   = errors.New("accel: cannot add meshes after the acceleration structure has been built")
	ErrMultipleMeshes = errors.New("accel: only a single mesh is supported")
	ErrNilMesh        = errors.New("accel: mesh is nil")
)
