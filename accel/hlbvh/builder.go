package hlbvh

import (
	"fmt"
	"sync/atomic"

	"github.com/achilleasa/polaris-accel/accel/arena"
	"github.com/achilleasa/polaris-accel/accel/linear"
	"github.com/achilleasa/polaris-accel/accel/parallel"
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/scene"
	"github.com/achilleasa/polaris-accel/types"
)

const (
	grainSize = 1000

	// Number of buckets used by the SAH split of the upper tree.
	bucketCount = 12
)

// A node of the intermediate tree. Leaves have count > 0 and reference
// count entries of the ordered primitive list starting at first.
type buildNode struct {
	box      geometry.BBox
	children [2]arena.Ref
	axis     uint8
	first    uint32
	count    uint32
}

// A run of Morton sorted primitives sharing the same high order code bits.
type treelet struct {
	start uint32
	count uint32
	nodes arena.Ref
	root  arena.Ref
}

type builder struct {
	leafSize uint32

	boxes []geometry.BBox
	arena *arena.Arena[buildNode]

	ordered       []uint32
	orderedCursor atomic.Uint32

	totalNodes atomic.Uint32
}

func newBuilder(leafSize uint32) *builder {
	return &builder{
		leafSize: leafSize,
		arena:    arena.New[buildNode](0),
	}
}

// Build the tree over all primitives of set.
func (b *builder) build(set *scene.PrimitiveSet) linear.Tree {
	count := int(set.Count())
	centroids := make([]types.Vec3, count)
	b.boxes = make([]geometry.BBox, count)
	b.ordered = make([]uint32, count)

	parallel.For(count, grainSize, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			centroids[i] = set.Centroid(uint32(i))
			b.boxes[i] = set.PrimBBox(uint32(i))
		}
	})

	centroidBounds := parallel.Reduce(count, grainSize, geometry.EmptyBBox(),
		func(lo, hi int) geometry.BBox {
			out := geometry.EmptyBBox()
			for _, c := range centroids[lo:hi] {
				out = out.ExpandPoint(c)
			}
			return out
		},
		geometry.Union,
	)

	prims := make([]mortonPrim, count)
	parallel.For(count, grainSize, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			prims[i] = mortonPrim{prim: uint32(i), code: mortonCode(centroids[i], centroidBounds)}
		}
	})
	radixSort(prims)

	// Reserve node storage for every treelet up front so the parallel
	// emit phase never touches the allocator.
	treelets := b.findTreelets(prims)
	for i := range treelets {
		treelets[i].nodes = b.arena.Alloc(int(2*treelets[i].count), false)
	}

	parallel.For(len(treelets), 1, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			tl := &treelets[i]
			nodes := b.arena.Slice(tl.nodes, int(2*tl.count))
			var used uint32
			rootIndex := b.emit(tl.nodes, nodes, &used, prims[tl.start:tl.start+tl.count], treeletFirstBit)
			tl.root = tl.nodes.Add(int(rootIndex))
			b.totalNodes.Add(used)
		}
	})

	roots := make([]arena.Ref, len(treelets))
	for i, tl := range treelets {
		roots[i] = tl.root
	}
	root := b.buildUpperSAH(roots)

	nodes := make([]linear.Node, 0, b.totalNodes.Load())
	nodes = b.flatten(root, nodes)
	if uint32(len(nodes)) != b.totalNodes.Load() {
		panic(fmt.Sprintf("hlbvh: flattened %d nodes; expected %d", len(nodes), b.totalNodes.Load()))
	}

	return linear.Tree{Nodes: nodes, Indices: b.ordered}
}

// Split the Morton sorted primitives into runs sharing the bits selected by
// treeletMask.
func (b *builder) findTreelets(prims []mortonPrim) []treelet {
	var treelets []treelet
	start := 0
	for end := 1; end <= len(prims); end++ {
		if end == len(prims) || prims[start].code&treeletMask != prims[end].code&treeletMask {
			treelets = append(treelets, treelet{start: uint32(start), count: uint32(end - start)})
			start = end
		}
	}
	return treelets
}

// Recursively build the subtree for a Morton sorted run by splitting on
// successive code bits starting at bit. Nodes are claimed sequentially from
// nodes, the arena run starting at base; used tracks the claimed count.
// Returns the index of the subtree root inside nodes.
func (b *builder) emit(base arena.Ref, nodes []buildNode, used *uint32, prims []mortonPrim, bit int) uint32 {
	count := uint32(len(prims))
	if count == 0 {
		panic("hlbvh: emit called with an empty primitive run")
	}

	if bit == -1 || count <= b.leafSize {
		first := b.orderedCursor.Add(count) - count
		box := geometry.EmptyBBox()
		for i, mp := range prims {
			b.ordered[first+uint32(i)] = mp.prim
			box = box.ExpandBox(b.boxes[mp.prim])
		}

		index := *used
		*used++
		nodes[index] = buildNode{box: box, first: first, count: count}
		return index
	}

	// Skip bits that do not separate the run.
	mask := uint32(1) << uint(bit)
	if prims[0].code&mask == prims[count-1].code&mask {
		return b.emit(base, nodes, used, prims, bit-1)
	}

	// Binary search for the first primitive with the bit set.
	lo, hi := uint32(0), count-1
	for lo+1 != hi {
		mid := (lo + hi) / 2
		if prims[lo].code&mask == prims[mid].code&mask {
			lo = mid
		} else {
			if prims[mid].code&mask != prims[hi].code&mask {
				panic("hlbvh: morton codes are not sorted")
			}
			hi = mid
		}
	}
	splitOffset := hi
	if prims[splitOffset-1].code&mask == prims[splitOffset].code&mask {
		panic("hlbvh: failed to find a split for a discriminating bit")
	}

	index := *used
	*used++
	left := b.emit(base, nodes, used, prims[:splitOffset], bit-1)
	right := b.emit(base, nodes, used, prims[splitOffset:], bit-1)

	nodes[index] = buildNode{
		box:      geometry.Union(nodes[left].box, nodes[right].box),
		children: [2]arena.Ref{base.Add(int(left)), base.Add(int(right))},
		axis:     uint8(bit % 3),
	}
	return index
}

// Merge treelet roots top-down, splitting them with a bucketed SAH along the
// major axis of their centroid bounds. Upper nodes are allocated from the
// arena after the parallel treelet phase has finished.
func (b *builder) buildUpperSAH(roots []arena.Ref) arena.Ref {
	if len(roots) == 1 {
		return roots[0]
	}

	box := geometry.EmptyBBox()
	centroidBox := geometry.EmptyBBox()
	for _, ref := range roots {
		nodeBox := b.arena.At(ref).box
		box = box.ExpandBox(nodeBox)
		centroidBox = centroidBox.ExpandPoint(nodeBox.Center())
	}

	axis := centroidBox.MajorAxis()
	mid := len(roots) / 2
	if minC, maxC := centroidBox.Min[axis], centroidBox.Max[axis]; maxC != minC {
		invNorm := 1.0 / (maxC - minC)
		bucketOf := func(ref arena.Ref) int {
			c := b.arena.At(ref).box.Center()[axis]
			k := int((bucketCount - 1) * (c - minC) * invNorm)
			if k < 0 {
				return 0
			}
			if k >= bucketCount {
				return bucketCount - 1
			}
			return k
		}

		var counts [bucketCount]uint32
		var boxes [bucketCount]geometry.BBox
		for i := range boxes {
			boxes[i] = geometry.EmptyBBox()
		}
		for _, ref := range roots {
			k := bucketOf(ref)
			counts[k]++
			boxes[k] = boxes[k].ExpandBox(b.arena.At(ref).box)
		}

		// Evaluate splitting after each bucket and keep the first minimum.
		var invArea float32
		if area := box.SurfaceArea(); area > 0 {
			invArea = 1.0 / area
		}
		bestBucket := 0
		var bestCost float32
		for i := 0; i < bucketCount-1; i++ {
			leftBox, rightBox := geometry.EmptyBBox(), geometry.EmptyBBox()
			var nLeft, nRight uint32
			for j := 0; j <= i; j++ {
				leftBox = leftBox.ExpandBox(boxes[j])
				nLeft += counts[j]
			}
			for j := i + 1; j < bucketCount; j++ {
				rightBox = rightBox.ExpandBox(boxes[j])
				nRight += counts[j]
			}

			cost := 0.125 + (leftBox.SurfaceArea()*float32(nLeft)+rightBox.SurfaceArea()*float32(nRight))*invArea
			if i == 0 || cost < bestCost {
				bestCost = cost
				bestBucket = i
			}
		}

		split := partitionRefs(roots, func(ref arena.Ref) bool {
			return bucketOf(ref) <= bestBucket
		})
		if split > 0 && split < len(roots) {
			mid = split
		}
	}

	ref := b.arena.Alloc(1, true)
	left := b.buildUpperSAH(roots[:mid])
	right := b.buildUpperSAH(roots[mid:])

	*b.arena.At(ref) = buildNode{
		box:      geometry.Union(b.arena.At(left).box, b.arena.At(right).box),
		children: [2]arena.Ref{left, right},
		axis:     uint8(axis),
	}
	b.totalNodes.Add(1)
	return ref
}

// Flatten the subtree at ref depth-first, appending its nodes to out. The
// left child of every interior node directly follows its parent.
func (b *builder) flatten(ref arena.Ref, out []linear.Node) []linear.Node {
	n := b.arena.At(ref)
	if n.count > 0 {
		return append(out, linear.NewLeaf(n.box, n.first, n.count))
	}

	offset := len(out)
	out = append(out, linear.NewInterior(n.box, int(n.axis), 0))
	out = b.flatten(n.children[0], out)
	rightOffset := len(out)
	out = b.flatten(n.children[1], out)
	out[offset].SetRightChild(uint32(rightOffset))
	return out
}

// Reorder refs so that entries satisfying pred come first and return their
// count.
func partitionRefs(refs []arena.Ref, pred func(arena.Ref) bool) int {
	first := 0
	for first < len(refs) && pred(refs[first]) {
		first++
	}
	for i := first + 1; i < len(refs); i++ {
		if pred(refs[i]) {
			refs[first], refs[i] = refs[i], refs[first]
			first++
		}
	}
	return first
}
