package scene

import (
	"fmt"
	"math/rand"

	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/types"
)

// Generate a mesh with count randomly oriented triangles whose centroids
// are uniformly distributed inside bounds. Each triangle has an edge length
// of roughly size. The output only depends on seed.
func RandomMesh(count int, bounds geometry.BBox, size float32, seed int64) *Mesh {
	rng := rand.New(rand.NewSource(seed))
	mesh := &Mesh{
		Name: fmt.Sprintf("random-%d", seed),
		V:    make([]types.Vec3, 0, 3*count),
		F:    make([][3]uint32, 0, count),
	}

	// Canonical equilateral-ish triangle centered at the origin
	template := [3]types.Vec3{
		{-0.5 * size, -0.289 * size, 0},
		{0.5 * size, -0.289 * size, 0},
		{0, 0.577 * size, 0},
	}

	extents := bounds.Extents()
	for i := 0; i < count; i++ {
		center := types.Vec3{
			bounds.Min[0] + rng.Float32()*extents[0],
			bounds.Min[1] + rng.Float32()*extents[1],
			bounds.Min[2] + rng.Float32()*extents[2],
		}
		rot := types.QuatFromEuler(rng.Float32()*360, rng.Float32()*360, rng.Float32()*360)

		base := uint32(len(mesh.V))
		for _, v := range template {
			mesh.V = append(mesh.V, rot.Rotate(v).Add(center))
		}
		mesh.F = append(mesh.F, [3]uint32{base, base + 1, base + 2})
	}

	return mesh
}

// Generate count rays. Origins are scattered over a box twice the size of
// bounds and most rays aim at a random point inside bounds; every fourth ray
// picks a random direction and usually misses. The output only depends on
// seed.
func RandomRays(bounds geometry.BBox, count int, seed int64) []geometry.Ray {
	rng := rand.New(rand.NewSource(seed))
	center := bounds.Center()
	extents := bounds.Extents()

	randomPoint := func(scale float32) types.Vec3 {
		var p types.Vec3
		for axis := 0; axis < 3; axis++ {
			p[axis] = center[axis] + (rng.Float32()-0.5)*extents[axis]*scale
		}
		return p
	}

	rays := make([]geometry.Ray, count)
	for i := range rays {
		origin := randomPoint(2)
		var dir types.Vec3
		if i%4 == 3 {
			dir = types.Vec3{rng.Float32() - 0.5, rng.Float32() - 0.5, rng.Float32() - 0.5}
		} else {
			dir = randomPoint(1).Sub(origin)
		}
		if dir.Len() == 0 {
			dir = types.Vec3{0, 0, 1}
		}
		rays[i] = geometry.NewRay(origin, dir.Normalize())
	}
	return rays
}
