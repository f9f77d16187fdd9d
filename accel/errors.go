package accel

import (
	"errors"

	"github.com/achilleasa/polaris-accel/scene"
)

var (
	ErrUnknownKind    = errors.New("accel: unknown acceleration structure")
	ErrInvalidConfig  = errors.New("accel: invalid configuration")
	ErrAlreadyBuilt   = scene.ErrAlreadyBuilt
	ErrMultipleMeshes = scene.ErrMultipleMeshes
	ErrNilMesh        = scene.ErrNilMesh
)
