package linear

import (
	"fmt"

	"github.com/achilleasa/polaris-accel/geometry"
)

const (
	// Estimated cost of visiting an interior node and of intersecting a
	// primitive, used for reporting tree quality.
	TraversalCost    = 1.0
	IntersectionCost = 1.0

	// Initial capacity of the traversal stack; deeper trees grow it.
	stackSize = 64
)

// Intersector tests a ray against a primitive referenced by its global index.
type Intersector interface {
	Intersect(index uint32, ray *geometry.Ray) (hit bool, u, v, t float32)
}

// Hit describes the primitive found by a tree query.
type Hit struct {
	Primitive uint32
	U, V, T   float32
}

// Tree is a flattened binary tree. Leaves address primitives indirectly
// through Indices.
type Tree struct {
	Nodes   []Node
	Indices []uint32
}

// Get the bounding box of the tree root.
func (t *Tree) BBox() geometry.BBox {
	if len(t.Nodes) == 0 {
		return geometry.EmptyBBox()
	}
	return t.Nodes[0].Box
}

// Find the closest primitive hit by the ray. If shadow is true, the search
// stops at the first hit. When ordered is true, interior nodes visit first
// the child on the near side of the split axis according to the ray
// direction sign; otherwise the left child is always visited first.
//
// The ray is passed by value; the closest hit search only tightens its local
// copy of MaxT.
func (t *Tree) Intersect(prims Intersector, ray geometry.Ray, shadow, ordered bool) (bool, Hit) {
	var hit Hit
	found := false
	if len(t.Nodes) == 0 {
		return false, hit
	}

	var dirIsNeg [3]bool
	for axis := 0; axis < 3; axis++ {
		dirIsNeg[axis] = ray.DRcp[axis] < 0
	}

	var buf [stackSize]uint32
	stack := buf[:0]
	cur := uint32(0)
	for {
		node := &t.Nodes[cur]
		if boxHit, _, _ := node.Box.RayIntersect(&ray); boxHit {
			if !node.IsLeaf() {
				if ordered && dirIsNeg[node.Axis()] {
					stack = append(stack, cur+1)
					cur = node.RightChild()
				} else {
					stack = append(stack, node.RightChild())
					cur++
				}
				continue
			}

			start, end := node.Start(), node.Start()+node.Size()
			for i := start; i < end; i++ {
				prim := t.Indices[i]
				primHit, u, v, tHit := prims.Intersect(prim, &ray)
				if !primHit {
					continue
				}
				found = true
				hit = Hit{Primitive: prim, U: u, V: v, T: tHit}
				if shadow {
					return true, hit
				}
				ray.MaxT = tHit
			}
		}

		if len(stack) == 0 {
			break
		}
		cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
	}

	return found, hit
}

// Stats describes the shape of a tree.
type Stats struct {
	Nodes          uint32
	Leaves         uint32
	MaxDepth       uint32
	LeafPrimitives uint32
	SAHCost        float32
}

// Walk the tree and collect statistics.
func (t *Tree) Stats() Stats {
	var stats Stats
	if len(t.Nodes) == 0 {
		return stats
	}

	rootArea := t.Nodes[0].Box.SurfaceArea()
	type entry struct {
		index uint32
		depth uint32
	}
	stack := []entry{{0, 1}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.Nodes[e.index]
		stats.Nodes++
		if e.depth > stats.MaxDepth {
			stats.MaxDepth = e.depth
		}

		var weight float32 = 1
		if rootArea > 0 {
			weight = node.Box.SurfaceArea() / rootArea
		}

		if node.IsLeaf() {
			stats.Leaves++
			stats.LeafPrimitives += node.Size()
			stats.SAHCost += IntersectionCost * float32(node.Size()) * weight
			continue
		}

		stats.SAHCost += TraversalCost * weight
		stack = append(stack, entry{node.RightChild(), e.depth + 1}, entry{e.index + 1, e.depth + 1})
	}

	return stats
}

// Verify the tree invariants: every node box contains the boxes of its
// children and the primitives of its leaves, and leaves reference each of
// the count primitives exactly once.
func (t *Tree) Check(count uint32, primBBox func(uint32) geometry.BBox) error {
	if len(t.Nodes) == 0 {
		if count != 0 {
			return fmt.Errorf("linear: empty tree for %d primitives", count)
		}
		return nil
	}

	seen := make([]bool, count)
	var visited uint32
	stack := []uint32{0}
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if int(index) >= len(t.Nodes) {
			return fmt.Errorf("linear: node index %d out of range", index)
		}

		node := &t.Nodes[index]
		if node.IsLeaf() {
			end := node.Start() + node.Size()
			if int(end) > len(t.Indices) {
				return fmt.Errorf("linear: leaf %d references indices [%d, %d) out of range", index, node.Start(), end)
			}
			for i := node.Start(); i < end; i++ {
				prim := t.Indices[i]
				if prim >= count {
					return fmt.Errorf("linear: leaf %d references unknown primitive %d", index, prim)
				}
				if seen[prim] {
					return fmt.Errorf("linear: primitive %d referenced more than once", prim)
				}
				seen[prim] = true
				visited++

				if !node.Box.Contains(primBBox(prim)) {
					return fmt.Errorf("linear: leaf %d box %v does not contain primitive %d", index, node.Box, prim)
				}
			}
			continue
		}

		left, right := index+1, node.RightChild()
		for _, child := range []uint32{left, right} {
			if int(child) >= len(t.Nodes) {
				return fmt.Errorf("linear: node %d references child %d out of range", index, child)
			}
			if !node.Box.Contains(t.Nodes[child].Box) {
				return fmt.Errorf("linear: node %d box %v does not contain child %d box %v", index, node.Box, child, t.Nodes[child].Box)
			}
		}
		stack = append(stack, right, left)
	}

	if visited != count {
		return fmt.Errorf("linear: expected leaves to reference %d primitives; got %d", count, visited)
	}
	return nil
}
