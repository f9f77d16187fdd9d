// Package bvh implements a bounding volume hierarchy built top-down with a
// binned surface area heuristic.
package bvh

import (
	"fmt"
	"time"

	"github.com/achilleasa/polaris-accel/accel/linear"
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/log"
	"github.com/achilleasa/polaris-accel/scene"
)

// SplitMethod selects how interior nodes are partitioned.
type SplitMethod int

// The supported split methods.
const (
	// Choose the split with the lowest surface area heuristic cost.
	SplitSAH SplitMethod = iota

	// Split at the center of the centroid bounds.
	SplitCenter
)

func (m SplitMethod) String() string {
	switch m {
	case SplitSAH:
		return "sah"
	case SplitCenter:
		return "center"
	}
	return fmt.Sprintf("SplitMethod(%d)", int(m))
}

// Parse a split method name as returned by SplitMethod.String.
func ParseSplitMethod(name string) (SplitMethod, error) {
	switch name {
	case "sah", "":
		return SplitSAH, nil
	case "center":
		return SplitCenter, nil
	}
	return SplitSAH, fmt.Errorf("bvh: unknown split method %q", name)
}

// DefaultLeafSize is the leaf threshold used when Options.LeafSize is not set.
const DefaultLeafSize = 1

// Options configures the BVH builder.
type Options struct {
	SplitMethod SplitMethod

	// Ranges with at most LeafSize primitives always become leaves.
	LeafSize int
}

// BVH is a binary tree of bounding boxes over the primitives of all
// registered meshes.
type BVH struct {
	*scene.PrimitiveSet

	logger log.Logger
	opts   Options

	tree  linear.Tree
	stats scene.BuildStats
}

// Create an empty BVH.
func New(opts Options) *BVH {
	if opts.LeafSize <= 0 {
		opts.LeafSize = DefaultLeafSize
	}

	return &BVH{
		PrimitiveSet: scene.NewPrimitiveSet(false),
		logger:       log.New("bvh"),
		opts:         opts,
	}
}

// Build the hierarchy over the registered meshes. No meshes can be added
// afterwards.
func (b *BVH) Build() error {
	if b.Sealed() {
		return scene.ErrAlreadyBuilt
	}
	b.Seal()
	linear.MustCheckLayout()

	start := time.Now()
	count := b.Count()
	if count > 0 {
		bld := newBuilder(b.PrimitiveSet, b.opts)
		b.tree = bld.build()
	}

	treeStats := b.tree.Stats()
	b.stats = scene.BuildStats{
		Meshes:         len(b.Meshes()),
		Primitives:     count,
		Nodes:          treeStats.Nodes,
		Leaves:         treeStats.Leaves,
		MaxDepth:       treeStats.MaxDepth,
		LeafPrimitives: treeStats.LeafPrimitives,
		SAHCost:        treeStats.SAHCost,
		BuildTime:      time.Since(start),
		NodeBytes:      uint64(len(b.tree.Nodes))*linear.NodeSize + uint64(len(b.tree.Indices))*4,
		PrimitiveBytes: b.UsedMemory(),
	}

	b.logger.Debugf(
		"BVH tree build time: %d ms, split: %s, maxDepth: %d, nodes: %d, leafs: %d, SAH cost: %.2f",
		b.stats.BuildTime.Nanoseconds()/1e6, b.opts.SplitMethod, b.stats.MaxDepth, b.stats.Nodes, b.stats.Leaves, b.stats.SAHCost,
	)
	return nil
}

// Find the closest intersection of the ray with the scene or, if shadow is
// true, check whether anything blocks the ray. On a closest hit its is
// populated with the hit attributes.
func (b *BVH) RayIntersect(ray geometry.Ray, its *scene.Intersection, shadow bool) bool {
	found, hit := b.tree.Intersect(b.PrimitiveSet, ray, shadow, false)
	if !found {
		return false
	}
	if shadow {
		return true
	}

	b.SetHit(its, hit.Primitive, hit.U, hit.V, hit.T)
	b.HitAttributes(its)
	return true
}

// Get the flattened tree.
func (b *BVH) Tree() *linear.Tree {
	return &b.tree
}

// Get statistics collected by Build.
func (b *BVH) Stats() scene.BuildStats {
	return b.stats
}
