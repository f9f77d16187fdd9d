package scene

import (
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/types"
)

// Intersection describes a ray-surface hit. T, UV, Mesh, MeshIndex and
// Primitive are set as soon as a hit is confirmed; P and the two frames are
// filled in by PrimitiveSet.HitAttributes.
type Intersection struct {
	// Hit distance along the ray.
	T float32

	// Barycentric coordinates of the hit, replaced by the interpolated
	// texture coordinates if the mesh defines them.
	UV types.Vec2

	// World-space hit position.
	P types.Vec3

	// Geometric and shading frames at the hit point.
	GeoFrame geometry.Frame
	ShFrame  geometry.Frame

	// The mesh that was hit and its index in the primitive set.
	Mesh      *Mesh
	MeshIndex uint32

	// Global primitive index and triangle index local to Mesh.
	Primitive uint32
	Triangle  uint32
}
