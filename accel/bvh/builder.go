package bvh

import (
	"cmp"
	"slices"
	"sync/atomic"

	"github.com/achilleasa/polaris-accel/accel/linear"
	"github.com/achilleasa/polaris-accel/accel/parallel"
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/scene"
	"github.com/achilleasa/polaris-accel/types"
	"golang.org/x/exp/constraints"
)

const (
	// Number of bins used by the binned SAH split search.
	binCount = 16

	// Ranges smaller than this are split with the exact sweep.
	serialThreshold = 32

	// Number of primitives processed by each parallel work item.
	grainSize = 1000

	traversalCost    = linear.TraversalCost
	intersectionCost = linear.IntersectionCost
)

// A node of the scratch tree. The scratch tree reserves 2*N slots; a node
// covering k primitives at slot i keeps its left child at i+1 and its right
// child at i+2*leftCount, so slots are handed out in preorder and some are
// never used.
type scratchNode struct {
	box   geometry.BBox
	start uint32
	size  uint32
	right uint32
	axis  uint8
	leaf  bool
	live  bool
}

type bin struct {
	count uint32
	box   geometry.BBox
}

type split struct {
	axis      int
	leftCount uint32
	leftBox   geometry.BBox
	rightBox  geometry.BBox
}

type builder struct {
	opts Options

	centroids []types.Vec3
	boxes     []geometry.BBox
	sceneBox  geometry.BBox

	// The primitive permutation and a buffer for partitioning it.
	indices []uint32
	temp    []uint32

	nodes     []scratchNode
	liveNodes atomic.Uint32

	tasks *parallel.Tasks

	// Number of subtrees handed to other tasks.
	spawned atomic.Uint32
}

func newBuilder(set *scene.PrimitiveSet, opts Options) *builder {
	count := int(set.Count())
	b := &builder{
		opts:      opts,
		centroids: make([]types.Vec3, count),
		boxes:     make([]geometry.BBox, count),
		sceneBox:  set.BBox(),
		indices:   make([]uint32, count),
		temp:      make([]uint32, count),
		nodes:     make([]scratchNode, 2*count),
	}

	parallel.For(count, grainSize, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			b.centroids[i] = set.Centroid(uint32(i))
			b.boxes[i] = set.PrimBBox(uint32(i))
			b.indices[i] = uint32(i)
		}
	})

	return b
}

// Build the scratch tree in parallel and compact it.
func (b *builder) build() linear.Tree {
	b.tasks = parallel.NewTasks(0)
	b.subdivide(0, 0, uint32(len(b.indices)), b.sceneBox)
	b.tasks.Wait()
	return b.compact()
}

// Build the subtree rooted at nodeIndex. The right child of every split is
// handed to another task while this goroutine keeps descending left. Ranges
// below serialThreshold are finished on the current goroutine.
func (b *builder) subdivide(nodeIndex, start, size uint32, box geometry.BBox) {
	for size >= serialThreshold {
		s, ok := b.findSplit(start, size, box)
		if !ok {
			b.setLeaf(nodeIndex, start, size, box)
			return
		}
		rightIndex := b.setInterior(nodeIndex, start, box, s)

		rightStart, rightSize, rightBox := start+s.leftCount, size-s.leftCount, s.rightBox
		b.spawned.Add(1)
		b.tasks.Spawn(func() {
			b.subdivide(rightIndex, rightStart, rightSize, rightBox)
		})

		nodeIndex, size, box = nodeIndex+1, s.leftCount, s.leftBox
	}
	b.subdivideSerial(nodeIndex, start, size, box)
}

func (b *builder) subdivideSerial(nodeIndex, start, size uint32, box geometry.BBox) {
	s, ok := b.findSplit(start, size, box)
	if !ok {
		b.setLeaf(nodeIndex, start, size, box)
		return
	}
	rightIndex := b.setInterior(nodeIndex, start, box, s)
	b.subdivideSerial(nodeIndex+1, start, s.leftCount, s.leftBox)
	b.subdivideSerial(rightIndex, start+s.leftCount, size-s.leftCount, s.rightBox)
}

func (b *builder) setLeaf(nodeIndex, start, size uint32, box geometry.BBox) {
	b.nodes[nodeIndex] = scratchNode{box: box, start: start, size: size, leaf: true, live: true}
	b.liveNodes.Add(1)
}

// Store an interior node and return the slot of its right child.
func (b *builder) setInterior(nodeIndex, start uint32, box geometry.BBox, s split) uint32 {
	rightIndex := nodeIndex + 2*s.leftCount
	b.nodes[nodeIndex] = scratchNode{box: box, start: start, right: rightIndex, axis: uint8(s.axis), live: true}
	b.liveNodes.Add(1)
	return rightIndex
}

// Select a split for the range or report that it should become a leaf.
func (b *builder) findSplit(start, size uint32, box geometry.BBox) (split, bool) {
	if size <= uint32(b.opts.LeafSize) {
		return split{}, false
	}

	if b.opts.SplitMethod == SplitCenter {
		return b.splitCenter(start, size), true
	}

	if size >= serialThreshold {
		if s, ok := b.splitBinned(start, size, box); ok {
			return s, true
		}
	}
	return b.splitSerial(start, size, box)
}

// Evaluate the SAH cost over binCount bins along the largest axis of the
// node box. Binning and partitioning run in parallel.
func (b *builder) splitBinned(start, size uint32, box geometry.BBox) (split, bool) {
	axis := box.MajorAxis()
	minV := box.Min[axis]
	extent := box.Max[axis] - minV
	if !(extent > 0) {
		return split{}, false
	}

	scale := binCount / extent
	binOf := func(prim uint32) int {
		return clamp(int((b.centroids[prim][axis]-minV)*scale), 0, binCount-1)
	}

	prims := b.indices[start : start+size]
	bins := parallel.Reduce(int(size), grainSize, emptyBins(),
		func(lo, hi int) [binCount]bin {
			local := emptyBins()
			for _, prim := range prims[lo:hi] {
				k := binOf(prim)
				local[k].count++
				local[k].box = local[k].box.ExpandBox(b.boxes[prim])
			}
			return local
		},
		mergeBins,
	)

	// Accumulate left side counts and boxes for every bin boundary.
	var leftBoxes [binCount]geometry.BBox
	var leftCounts [binCount]uint32
	acc := geometry.EmptyBBox()
	var accCount uint32
	for i := 0; i < binCount-1; i++ {
		acc = acc.ExpandBox(bins[i].box)
		accCount += bins[i].count
		leftBoxes[i] = acc
		leftCounts[i] = accCount
	}

	// Sweep from the right evaluating the cost at each boundary; boundary i
	// sends bins [0, i) to the left child.
	invArea := inverseArea(box)
	bestCost := intersectionCost * float32(size)
	bestBoundary := -1
	var rightBoxes [binCount]geometry.BBox
	acc = geometry.EmptyBBox()
	accCount = 0
	for i := binCount - 1; i >= 1; i-- {
		acc = acc.ExpandBox(bins[i].box)
		accCount += bins[i].count
		rightBoxes[i] = acc

		leftCount := leftCounts[i-1]
		if leftCount == 0 || accCount == 0 {
			continue
		}

		cost := 2*traversalCost +
			(leftBoxes[i-1].SurfaceArea()*float32(leftCount)+acc.SurfaceArea()*float32(accCount))*invArea*intersectionCost
		if cost < bestCost {
			bestCost = cost
			bestBoundary = i
		}
	}

	if bestBoundary < 0 {
		return split{}, false
	}

	leftCount := leftCounts[bestBoundary-1]
	b.partition(start, size, leftCount, func(prim uint32) bool {
		return binOf(prim) < bestBoundary
	})

	return split{
		axis:      axis,
		leftCount: leftCount,
		leftBox:   leftBoxes[bestBoundary-1],
		rightBox:  rightBoxes[bestBoundary],
	}, true
}

// Find the exact best SAH split by sorting the range along each axis and
// sweeping over every split position.
func (b *builder) splitSerial(start, size uint32, box geometry.BBox) (split, bool) {
	prims := b.indices[start : start+size]
	invArea := inverseArea(box)

	bestCost := intersectionCost * float32(size)
	bestAxis := -1
	var bestIndex uint32

	leftAreas := make([]float32, size)
	for axis := 0; axis < 3; axis++ {
		b.sortByCentroid(prims, axis)

		acc := geometry.EmptyBBox()
		for i, prim := range prims {
			acc = acc.ExpandBox(b.boxes[prim])
			leftAreas[i] = acc.SurfaceArea()
		}

		acc = geometry.EmptyBBox()
		for i := size - 1; i >= 1; i-- {
			acc = acc.ExpandBox(b.boxes[prims[i]])
			cost := 2*traversalCost +
				(leftAreas[i-1]*float32(i)+acc.SurfaceArea()*float32(size-i))*invArea*intersectionCost
			if cost < bestCost {
				bestCost = cost
				bestAxis = axis
				bestIndex = i
			}
		}
	}

	if bestAxis < 0 {
		return split{}, false
	}

	// The range is currently sorted along the last axis.
	if bestAxis != 2 {
		b.sortByCentroid(prims, bestAxis)
	}

	return split{
		axis:      bestAxis,
		leftCount: bestIndex,
		leftBox:   b.rangeBox(prims[:bestIndex]),
		rightBox:  b.rangeBox(prims[bestIndex:]),
	}, true
}

// Split at the midpoint of the centroid bounds along their largest axis.
// Ranges whose centroids cannot be separated are split in half.
func (b *builder) splitCenter(start, size uint32) split {
	prims := b.indices[start : start+size]
	cbox := parallel.Reduce(int(size), grainSize, geometry.EmptyBBox(),
		func(lo, hi int) geometry.BBox {
			out := geometry.EmptyBBox()
			for _, prim := range prims[lo:hi] {
				out = out.ExpandPoint(b.centroids[prim])
			}
			return out
		},
		geometry.Union,
	)

	axis := cbox.MajorAxis()
	mid := cbox.Center()[axis]
	goesLeft := func(prim uint32) bool {
		return b.centroids[prim][axis] < mid
	}

	leftCount := parallel.Reduce(int(size), grainSize, uint32(0),
		func(lo, hi int) uint32 {
			var n uint32
			for _, prim := range prims[lo:hi] {
				if goesLeft(prim) {
					n++
				}
			}
			return n
		},
		func(a, c uint32) uint32 { return a + c },
	)

	if leftCount == 0 || leftCount == size {
		leftCount = size / 2
	} else {
		b.partition(start, size, leftCount, goesLeft)
	}

	return split{
		axis:      axis,
		leftCount: leftCount,
		leftBox:   b.rangeBox(prims[:leftCount]),
		rightBox:  b.rangeBox(prims[leftCount:]),
	}
}

// Reorder the range so that the leftCount primitives for which goesLeft
// returns true come first. Work items claim their output slots through
// atomic cursors.
func (b *builder) partition(start, size, leftCount uint32, goesLeft func(uint32) bool) {
	src := b.indices[start : start+size]
	dst := b.temp[start : start+size]

	var leftCursor, rightCursor atomic.Uint32
	rightCursor.Store(leftCount)
	parallel.For(int(size), grainSize, func(_, lo, hi int) {
		var nLeft uint32
		for _, prim := range src[lo:hi] {
			if goesLeft(prim) {
				nLeft++
			}
		}
		nRight := uint32(hi-lo) - nLeft

		l := leftCursor.Add(nLeft) - nLeft
		r := rightCursor.Add(nRight) - nRight
		for _, prim := range src[lo:hi] {
			if goesLeft(prim) {
				dst[l] = prim
				l++
			} else {
				dst[r] = prim
				r++
			}
		}
	})

	copy(src, dst)
}

// Sort primitives by centroid along axis. Ties are broken by primitive index
// so the result does not depend on the input order.
func (b *builder) sortByCentroid(prims []uint32, axis int) {
	slices.SortFunc(prims, func(p1, p2 uint32) int {
		if c := cmp.Compare(b.centroids[p1][axis], b.centroids[p2][axis]); c != 0 {
			return c
		}
		return cmp.Compare(p1, p2)
	})
}

// Get the union of the bounding boxes of prims.
func (b *builder) rangeBox(prims []uint32) geometry.BBox {
	return parallel.Reduce(len(prims), grainSize, geometry.EmptyBBox(),
		func(lo, hi int) geometry.BBox {
			out := geometry.EmptyBBox()
			for _, prim := range prims[lo:hi] {
				out = out.ExpandBox(b.boxes[prim])
			}
			return out
		},
		geometry.Union,
	)
}

// Copy the live scratch nodes into a tightly packed array, remapping right
// child indices through a prefix count of live slots.
func (b *builder) compact() linear.Tree {
	newIndex := make([]uint32, len(b.nodes))
	var live uint32
	for i := range b.nodes {
		newIndex[i] = live
		if b.nodes[i].live {
			live++
		}
	}
	if live != b.liveNodes.Load() {
		panic("bvh: live node count does not match the scratch tree")
	}

	nodes := make([]linear.Node, 0, live)
	for i := range b.nodes {
		n := &b.nodes[i]
		if !n.live {
			continue
		}
		if n.leaf {
			nodes = append(nodes, linear.NewLeaf(n.box, n.start, n.size))
		} else {
			nodes = append(nodes, linear.NewInterior(n.box, int(n.axis), newIndex[n.right]))
		}
	}

	return linear.Tree{Nodes: nodes, Indices: b.indices}
}

func emptyBins() [binCount]bin {
	var bins [binCount]bin
	for i := range bins {
		bins[i].box = geometry.EmptyBBox()
	}
	return bins
}

func mergeBins(a, c [binCount]bin) [binCount]bin {
	for i := range a {
		a[i].count += c[i].count
		a[i].box = a[i].box.ExpandBox(c[i].box)
	}
	return a
}

// Get the reciprocal surface area of box. Flat boxes yield 0 so that only
// the traversal term of the split cost remains.
func inverseArea(box geometry.BBox) float32 {
	if area := box.SurfaceArea(); area > 0 {
		return 1.0 / area
	}
	return 0
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
