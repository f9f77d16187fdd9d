// Package linear implements the flattened binary tree layout shared by the
// BVH variants together with its traversal.
package linear

import (
	"fmt"
	"unsafe"

	"github.com/achilleasa/polaris-accel/geometry"
)

// NodeSize is the expected size of a Node in bytes.
const NodeSize = 32

const (
	leafFlag  = 1 << 31
	valueMask = leafFlag - 1
)

// Node is a 32-byte tree node. The left child of an interior node is stored
// right after its parent; the right child is addressed explicitly.
//
// The two payload words form a tagged union:
//
//	leaf:     data = leafFlag | primitive count, offset = first index
//	interior: data = split axis,                 offset = right child index
type Node struct {
	Box geometry.BBox

	data   uint32
	offset uint32
}

// Create a leaf node referencing count entries of the tree index list
// starting at start.
func NewLeaf(box geometry.BBox, start, count uint32) Node {
	if count > valueMask {
		panic(fmt.Sprintf("linear: leaf primitive count %d exceeds the node capacity", count))
	}
	return Node{Box: box, data: leafFlag | count, offset: start}
}

// Create an interior node split along axis whose right child lives at
// index rightChild.
func NewInterior(box geometry.BBox, axis int, rightChild uint32) Node {
	return Node{Box: box, data: uint32(axis), offset: rightChild}
}

// Returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.data&leafFlag != 0
}

// Get the first index list entry of a leaf.
func (n *Node) Start() uint32 {
	return n.offset
}

// Get the number of primitives in a leaf.
func (n *Node) Size() uint32 {
	return n.data & valueMask
}

// Get the split axis of an interior node.
func (n *Node) Axis() int {
	return int(n.data & valueMask)
}

// Get the index of the right child of an interior node.
func (n *Node) RightChild() uint32 {
	return n.offset
}

// Point an interior node to a new right child index.
func (n *Node) SetRightChild(index uint32) {
	n.offset = index
}

// Panic if the node layout does not match NodeSize. A mismatch means the
// package was built for a platform with unexpected struct packing.
func MustCheckLayout() {
	if size := unsafe.Sizeof(Node{}); size != NodeSize {
		panic(fmt.Sprintf("linear: expected node size to be %d bytes; got %d", NodeSize, size))
	}
}
