// Package brute implements the reference index that tests every primitive
// against every ray.
package brute

import (
	"time"

	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/log"
	"github.com/achilleasa/polaris-accel/scene"
)

// Options configures the brute force index.
type Options struct {
	// Reject any mesh after the first one with scene.ErrMultipleMeshes.
	SingleMesh bool
}

// Index is a flat list of primitives without any spatial structure.
type Index struct {
	*scene.PrimitiveSet

	logger log.Logger
	stats  scene.BuildStats
}

// Create an empty brute force index.
func New(opts Options) *Index {
	return &Index{
		PrimitiveSet: scene.NewPrimitiveSet(opts.SingleMesh),
		logger:       log.New("brute"),
	}
}

// Seal the index. There is nothing to build.
func (idx *Index) Build() error {
	if idx.Sealed() {
		return scene.ErrAlreadyBuilt
	}
	start := time.Now()
	idx.Seal()

	idx.stats = scene.BuildStats{
		Meshes:         len(idx.Meshes()),
		Primitives:     idx.Count(),
		LeafPrimitives: idx.Count(),
		SAHCost:        float32(idx.Count()),
		BuildTime:      time.Since(start),
		PrimitiveBytes: idx.UsedMemory(),
	}
	idx.logger.Debugf("brute force index over %d primitives from %d meshes", idx.stats.Primitives, idx.stats.Meshes)
	return nil
}

// Find the closest intersection of the ray with the scene or, if shadow is
// true, check whether anything blocks the ray.
func (idx *Index) RayIntersect(ray geometry.Ray, its *scene.Intersection, shadow bool) bool {
	if !idx.Sealed() {
		return false
	}

	var (
		found   bool
		closest uint32
		u, v, t float32
	)
	for prim := uint32(0); prim < idx.Count(); prim++ {
		hit, hu, hv, ht := idx.Intersect(prim, &ray)
		if !hit {
			continue
		}
		if shadow {
			return true
		}
		found = true
		closest, u, v, t = prim, hu, hv, ht
		ray.MaxT = ht
	}

	if found {
		idx.SetHit(its, closest, u, v, t)
		idx.HitAttributes(its)
	}
	return found
}

// Get statistics collected by Build.
func (idx *Index) Stats() scene.BuildStats {
	return idx.stats
}
