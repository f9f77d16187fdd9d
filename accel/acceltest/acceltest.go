// Package acceltest provides scenes, rays and checks shared by the tests of
// the acceleration structures.
package acceltest

import (
	"fmt"

	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/scene"
	"github.com/achilleasa/polaris-accel/types"
	"github.com/chewxy/math32"
)

// Tolerance when comparing hit distances reported by different structures.
const HitTolerance = 1e-4

// Index is implemented by all acceleration structures.
type Index interface {
	RayIntersect(ray geometry.Ray, its *scene.Intersection, shadow bool) bool
}

// Get a mesh with a single unit right triangle in the z=0 plane.
func UnitTriangle() *scene.Mesh {
	return &scene.Mesh{
		Name: "unit-triangle",
		V:    []types.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		F:    [][3]uint32{{0, 1, 2}},
	}
}

// Get the bounds used by RandomMeshes.
func SceneBounds() geometry.BBox {
	return geometry.BBoxOf(types.Vec3{-10, -10, -10}, types.Vec3{10, 10, 10})
}

// Generate meshCount meshes with trisPerMesh random triangles each.
func RandomMeshes(meshCount, trisPerMesh int, seed int64) []*scene.Mesh {
	meshes := make([]*scene.Mesh, meshCount)
	for i := range meshes {
		meshes[i] = scene.RandomMesh(trisPerMesh, SceneBounds(), 1.5, seed+int64(i))
	}
	return meshes
}

// Generate a grid of axis aligned quads stacked along z. Many triangles
// share identical centroid coordinates along x and y which exercises the
// degenerate split paths of the builders.
func StackedQuads(count int) *scene.Mesh {
	mesh := &scene.Mesh{Name: "stacked-quads"}
	for i := 0; i < count; i++ {
		z := float32(i) * 0.25
		base := uint32(len(mesh.V))
		mesh.V = append(mesh.V,
			types.Vec3{0, 0, z}, types.Vec3{1, 0, z}, types.Vec3{1, 1, z}, types.Vec3{0, 1, z},
		)
		mesh.F = append(mesh.F, [3]uint32{base, base + 1, base + 2}, [3]uint32{base, base + 2, base + 3})
	}
	return mesh
}

// Generate count seeded random rays around bounds. See scene.RandomRays.
func RandomRays(bounds geometry.BBox, count int, seed int64) []geometry.Ray {
	return scene.RandomRays(bounds, count, seed)
}

// Find the closest hit by testing every primitive of the set.
func Scan(set *scene.PrimitiveSet, ray geometry.Ray) (bool, float32) {
	found := false
	for prim := uint32(0); prim < set.Count(); prim++ {
		if hit, _, _, t := set.Intersect(prim, &ray); hit {
			found = true
			ray.MaxT = t
		}
	}
	return found, ray.MaxT
}

// Check that idx agrees with an exhaustive scan of set for every ray, both
// for closest hit and for shadow queries.
func CompareWithScan(set *scene.PrimitiveSet, idx Index, rays []geometry.Ray) error {
	for rayIndex, ray := range rays {
		expHit, expT := Scan(set, ray)

		var its scene.Intersection
		hit := idx.RayIntersect(ray, &its, false)
		if hit != expHit {
			return fmt.Errorf("ray %d: expected closest hit to be %t; got %t", rayIndex, expHit, hit)
		}
		if hit && math32.Abs(its.T-expT) > HitTolerance {
			return fmt.Errorf("ray %d: expected hit distance %f; got %f", rayIndex, expT, its.T)
		}

		if shadowHit := idx.RayIntersect(ray, &scene.Intersection{}, true); shadowHit != expHit {
			return fmt.Errorf("ray %d: expected shadow query to return %t; got %t", rayIndex, expHit, shadowHit)
		}
	}
	return nil
}

// Counter is an intersection hook that records primitive tests.
type Counter struct {
	Tests int

	// Set when a test observed a larger MaxT than the previous test of the
	// same query.
	MaxTIncreased bool

	lastMaxT float32
}

// Start a new query.
func (c *Counter) Reset() {
	c.Tests = 0
	c.MaxTIncreased = false
	c.lastMaxT = math32.Inf(1)
}

// Hook is an IntersectHook.
func (c *Counter) Hook(_ uint32, maxT float32) {
	if c.Tests > 0 && maxT > c.lastMaxT {
		c.MaxTIncreased = true
	}
	c.lastMaxT = maxT
	c.Tests++
}
