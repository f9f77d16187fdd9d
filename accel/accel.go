// Package accel exposes the acceleration structures behind a common
// interface and builds them from a Config.
package accel

import (
	"fmt"
	"strings"

	"github.com/achilleasa/polaris-accel/accel/brute"
	"github.com/achilleasa/polaris-accel/accel/bvh"
	"github.com/achilleasa/polaris-accel/accel/hlbvh"
	"github.com/achilleasa/polaris-accel/accel/octree"
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/scene"
)

// Accel is a ray intersection index over a set of triangle meshes. Meshes
// are registered with AddMesh and the index is constructed once by Build.
//
// After Build returns, RayIntersect may be called concurrently.
type Accel interface {
	// Register a mesh. Fails with ErrAlreadyBuilt after Build.
	AddMesh(mesh *scene.Mesh) error

	// Construct the index. A second call fails with ErrAlreadyBuilt.
	Build() error

	// Get the bounds of all registered meshes.
	BBox() geometry.BBox

	// Find the closest hit along the ray and fill its. If shadow is true
	// the query stops at the first hit and its is left untouched.
	RayIntersect(ray geometry.Ray, its *scene.Intersection, shadow bool) bool

	// Get the number of bytes reserved for primitive data.
	UsedMemory() uint64

	// Get statistics collected by Build.
	Stats() scene.BuildStats

	// Install a hook that observes every ray-triangle test.
	SetIntersectHook(hook scene.IntersectHook)
}

// Kind identifies an acceleration structure implementation.
type Kind int

// The supported acceleration structures.
const (
	BruteForce Kind = iota
	BVH
	HLBVH
	Octree
)

// Kinds lists all supported acceleration structures.
var Kinds = []Kind{BruteForce, BVH, HLBVH, Octree}

var kindNames = map[Kind]string{
	BruteForce: "brute",
	BVH:        "bvh",
	HLBVH:      "hlbvh",
	Octree:     "octree",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Parse a case-insensitive acceleration structure name.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, nil
		}
	}
	return BruteForce, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Create an empty acceleration structure as described by cfg.
func New(cfg Config) (Accel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case BruteForce:
		return brute.New(brute.Options{SingleMesh: cfg.SingleMesh}), nil
	case BVH:
		method, err := bvh.ParseSplitMethod(cfg.SplitMethod)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
		}
		return bvh.New(bvh.Options{SplitMethod: method, LeafSize: cfg.LeafSize}), nil
	case HLBVH:
		return hlbvh.New(hlbvh.Options{LeafSize: cfg.LeafSize}), nil
	case Octree:
		return octree.New(octree.Options{MaxPrimitives: cfg.MaxPrimitives, MaxDepth: cfg.MaxDepth}), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, cfg.Kind)
}
