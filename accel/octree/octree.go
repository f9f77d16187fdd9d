// Package octree implements a loose octree over triangle bounding boxes.
//
// Primitives are inserted one at a time into every leaf whose box overlaps
// them, so a primitive may be referenced by several leaves.
package octree

import (
	"slices"
	"time"

	"github.com/achilleasa/polaris-accel/accel/arena"
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/log"
	"github.com/achilleasa/polaris-accel/scene"
)

const (
	// Default split thresholds used when the Options fields are not set.
	DefaultMaxPrimitives = 16
	DefaultMaxDepth      = 8

	// Number of children of an interior node.
	ChildCount = 8

	// Costs used when estimating the SAH cost of the tree.
	traversalCost    = 1.0
	intersectionCost = 1.0
)

// Options configures the octree builder.
type Options struct {
	// A leaf holding MaxPrimitives primitives is split unless it lies at
	// MaxDepth.
	//
	// Primitives overlapping every octant, such as many coincident
	// triangles, are copied into every child on each split. With more than
	// MaxPrimitives of them the tree is subdivided down to MaxDepth and
	// may hold up to 8^MaxDepth nodes, each referencing all of them.
	MaxPrimitives int
	MaxDepth      int
}

type node struct {
	box geometry.BBox

	// Ref of the first of ChildCount consecutive children.
	children arena.Ref
	leaf     bool

	prims []uint32
}

// Octree is a spatial subdivision of the scene bounds into nested octants.
type Octree struct {
	*scene.PrimitiveSet

	logger log.Logger
	opts   Options

	nodes *arena.Arena[node]
	root  arena.Ref
	built bool

	stats scene.BuildStats
}

// Create an empty octree.
func New(opts Options) *Octree {
	if opts.MaxPrimitives <= 0 {
		opts.MaxPrimitives = DefaultMaxPrimitives
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	return &Octree{
		PrimitiveSet: scene.NewPrimitiveSet(false),
		logger:       log.New("octree"),
		opts:         opts,
		nodes:        arena.New[node](0),
	}
}

// Build the octree over the registered meshes. No meshes can be added
// afterwards.
func (o *Octree) Build() error {
	if o.Sealed() {
		return scene.ErrAlreadyBuilt
	}
	o.Seal()

	start := time.Now()
	count := o.Count()

	// The first node is an unused sentinel so that a zero child Ref never
	// addresses a real node.
	o.nodes.Alloc(1, true)
	o.root = o.nodes.Alloc(1, true)
	*o.nodes.At(o.root) = node{box: o.BBox(), leaf: true}

	var maxDepth uint32
	for prim := uint32(0); prim < count; prim++ {
		if depth := o.insert(prim); depth > maxDepth {
			maxDepth = depth
		}
	}
	o.built = count > 0

	o.stats = o.collectStats()
	o.stats.MaxDepth = maxDepth
	o.stats.BuildTime = time.Since(start)

	o.logger.Debugf(
		"Octree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d, primitive refs: %d",
		o.stats.BuildTime.Nanoseconds()/1e6, o.stats.MaxDepth, o.stats.Nodes, o.stats.Leaves, o.stats.LeafPrimitives,
	)
	return nil
}

// Insert a primitive into all overlapping leaves, splitting leaves that
// become full. Returns the deepest level visited.
func (o *Octree) insert(prim uint32) uint32 {
	type entry struct {
		ref   arena.Ref
		depth int
	}

	primBox := o.PrimBBox(prim)
	var maxDepth uint32
	queue := []entry{{o.root, 1}}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		n := o.nodes.At(e.ref)
		if !n.box.Overlaps(primBox) {
			continue
		}
		if uint32(e.depth) > maxDepth {
			maxDepth = uint32(e.depth)
		}

		if !n.leaf {
			for i := 0; i < ChildCount; i++ {
				queue = append(queue, entry{n.children.Add(i), e.depth + 1})
			}
			continue
		}

		n.prims = append(n.prims, prim)
		if len(n.prims) >= o.opts.MaxPrimitives && e.depth < o.opts.MaxDepth {
			o.split(e.ref)
		}
	}
	return maxDepth
}

// Turn a leaf into an interior node and move its primitives to the
// overlapping children.
func (o *Octree) split(ref arena.Ref) {
	children := o.nodes.Alloc(ChildCount, true)
	n := o.nodes.At(ref)

	center := n.box.Center()
	for i := 0; i < ChildCount; i++ {
		corner := n.box.Corner(i)
		child := o.nodes.At(children.Add(i))
		*child = node{
			box:  geometry.BBoxOf(center, corner),
			leaf: true,
		}
		for _, prim := range n.prims {
			if child.box.Overlaps(o.PrimBBox(prim)) {
				child.prims = append(child.prims, prim)
			}
		}
	}

	n.children = children
	n.leaf = false
	n.prims = nil
}

// Find the closest intersection of the ray with the scene or, if shadow is
// true, check whether anything blocks the ray.
func (o *Octree) RayIntersect(ray geometry.Ray, its *scene.Intersection, shadow bool) bool {
	if !o.built {
		return false
	}

	var hit hitRecord
	if !o.traverse(o.root, &ray, shadow, &hit) {
		return false
	}
	if shadow {
		return true
	}

	o.SetHit(its, hit.prim, hit.u, hit.v, hit.t)
	o.HitAttributes(its)
	return true
}

type hitRecord struct {
	prim    uint32
	u, v, t float32
}

type childDistance struct {
	ref  arena.Ref
	dist float32
}

func (o *Octree) traverse(ref arena.Ref, ray *geometry.Ray, shadow bool, hit *hitRecord) bool {
	n := o.nodes.At(ref)
	if boxHit, _, _ := n.box.RayIntersect(ray); !boxHit {
		return false
	}

	found := false
	if n.leaf {
		for _, prim := range n.prims {
			// Hits at exactly MaxT are accepted like in the other indices. A
			// primitive shared by several leaves may be recorded again at the
			// same distance.
			primHit, u, v, t := o.Intersect(prim, ray)
			if !primHit {
				continue
			}
			if shadow {
				return true
			}
			ray.MaxT = t
			*hit = hitRecord{prim: prim, u: u, v: v, t: t}
			found = true
		}
		return found
	}

	var order [ChildCount]childDistance
	for i := range order {
		childRef := n.children.Add(i)
		order[i] = childDistance{ref: childRef, dist: o.nodes.At(childRef).box.DistanceTo(ray.O)}
	}
	slices.SortStableFunc(order[:], func(a, b childDistance) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		}
		return 0
	})

	for _, child := range order {
		if o.traverse(child.ref, ray, shadow, hit) {
			found = true
			if shadow {
				return true
			}
		}
	}
	return found
}

// Walk the tree and collect node, leaf and cost statistics.
func (o *Octree) collectStats() scene.BuildStats {
	stats := scene.BuildStats{
		Meshes:         len(o.Meshes()),
		Primitives:     o.Count(),
		PrimitiveBytes: o.UsedMemory(),
	}
	if o.Count() == 0 {
		return stats
	}

	rootArea := o.nodes.At(o.root).box.SurfaceArea()
	stack := []arena.Ref{o.root}
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := o.nodes.At(ref)
		stats.Nodes++

		var weight float32 = 1
		if rootArea > 0 {
			weight = n.box.SurfaceArea() / rootArea
		}

		if n.leaf {
			stats.Leaves++
			stats.LeafPrimitives += uint32(len(n.prims))
			stats.NodeBytes += uint64(len(n.prims)) * 4
			stats.SAHCost += intersectionCost * float32(len(n.prims)) * weight
			continue
		}

		stats.SAHCost += traversalCost * weight
		for i := 0; i < ChildCount; i++ {
			stack = append(stack, n.children.Add(i))
		}
	}
	stats.NodeBytes += o.nodes.TotalAllocated()
	return stats
}

// Visit every leaf as a (box, primitives) pair.
func (o *Octree) walkLeaves(fn func(box geometry.BBox, prims []uint32)) {
	if !o.built {
		return
	}
	stack := []arena.Ref{o.root}
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := o.nodes.At(ref)
		if n.leaf {
			fn(n.box, n.prims)
			continue
		}
		for i := 0; i < ChildCount; i++ {
			stack = append(stack, n.children.Add(i))
		}
	}
}

// Get statistics collected by Build.
func (o *Octree) Stats() scene.BuildStats {
	return o.stats
}
