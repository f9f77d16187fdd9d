// Package hlbvh implements a hierarchical linear BVH. Primitives are sorted
// along a Morton curve and grouped into treelets that are built in parallel;
// the treelet roots are then merged with a bucketed surface area heuristic.
package hlbvh

import (
	"time"

	"github.com/achilleasa/polaris-accel/accel/linear"
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/log"
	"github.com/achilleasa/polaris-accel/scene"
)

// DefaultLeafSize is the leaf threshold used when Options.LeafSize is not set.
const DefaultLeafSize = 10

// Options configures the HLBVH builder.
type Options struct {
	// Morton runs with at most LeafSize primitives become leaves.
	LeafSize int
}

// HLBVH is a linear bounding volume hierarchy over the primitives of all
// registered meshes.
type HLBVH struct {
	*scene.PrimitiveSet

	logger log.Logger
	opts   Options

	tree  linear.Tree
	stats scene.BuildStats
}

// Create an empty HLBVH.
func New(opts Options) *HLBVH {
	if opts.LeafSize <= 0 {
		opts.LeafSize = DefaultLeafSize
	}

	return &HLBVH{
		PrimitiveSet: scene.NewPrimitiveSet(false),
		logger:       log.New("hlbvh"),
		opts:         opts,
	}
}

// Build the hierarchy over the registered meshes. No meshes can be added
// afterwards.
func (h *HLBVH) Build() error {
	if h.Sealed() {
		return scene.ErrAlreadyBuilt
	}
	h.Seal()
	linear.MustCheckLayout()

	start := time.Now()
	count := h.Count()
	var arenaBytes uint64
	if count > 0 {
		bld := newBuilder(uint32(h.opts.LeafSize))
		h.tree = bld.build(h.PrimitiveSet)
		arenaBytes = bld.arena.TotalAllocated()
		bld.arena.Release()
	}

	treeStats := h.tree.Stats()
	h.stats = scene.BuildStats{
		Meshes:         len(h.Meshes()),
		Primitives:     count,
		Nodes:          treeStats.Nodes,
		Leaves:         treeStats.Leaves,
		MaxDepth:       treeStats.MaxDepth,
		LeafPrimitives: treeStats.LeafPrimitives,
		SAHCost:        treeStats.SAHCost,
		BuildTime:      time.Since(start),
		NodeBytes:      uint64(len(h.tree.Nodes))*linear.NodeSize + uint64(len(h.tree.Indices))*4,
		PrimitiveBytes: h.UsedMemory(),
	}

	h.logger.Debugf(
		"HLBVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d, SAH cost: %.2f, build arena: %d bytes",
		h.stats.BuildTime.Nanoseconds()/1e6, h.stats.MaxDepth, h.stats.Nodes, h.stats.Leaves, h.stats.SAHCost, arenaBytes,
	)
	return nil
}

// Find the closest intersection of the ray with the scene or, if shadow is
// true, check whether anything blocks the ray.
func (h *HLBVH) RayIntersect(ray geometry.Ray, its *scene.Intersection, shadow bool) bool {
	found, hit := h.tree.Intersect(h.PrimitiveSet, ray, shadow, true)
	if !found {
		return false
	}
	if shadow {
		return true
	}

	h.SetHit(its, hit.Primitive, hit.U, hit.V, hit.T)
	h.HitAttributes(its)
	return true
}

// Get the flattened tree.
func (h *HLBVH) Tree() *linear.Tree {
	return &h.tree
}

// Get statistics collected by Build.
func (h *HLBVH) Stats() scene.BuildStats {
	return h.stats
}
