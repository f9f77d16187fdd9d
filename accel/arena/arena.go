// Package arena provides a growable block allocator for build-time records.
//
// Allocations are addressed by Ref handles (block index plus offset) instead
// of pointers. Blocks are never resized so a Ref stays valid until the arena
// is reset or released.
package arena

import "unsafe"

// The default size of each arena block in bytes.
const DefaultBlockBytes = 256 * 1024

// Ref addresses an element inside an arena.
type Ref struct {
	Block  uint32
	Offset uint32
}

// Get a reference to the k-th element after r. Only valid within the run
// returned by a single Alloc call.
func (r Ref) Add(k int) Ref {
	return Ref{Block: r.Block, Offset: r.Offset + uint32(k)}
}

// Arena hands out contiguous runs of T from a list of blocks. Calls to Alloc,
// Reset and Release must not run concurrently with any other method; At and
// Slice may be called concurrently once allocation has stopped.
type Arena[T any] struct {
	blockLen int
	blocks   [][]T

	// Index of the block we are currently filling and the fill position.
	cur int
	pos int

	// Indices of blocks that are full and blocks that may be reused.
	used      []int
	available []int
}

// Create a new arena whose blocks hold blockLen elements. If blockLen <= 0,
// blocks are sized to DefaultBlockBytes.
func New[T any](blockLen int) *Arena[T] {
	if blockLen <= 0 {
		var zero T
		elemSize := int(unsafe.Sizeof(zero))
		if elemSize == 0 {
			elemSize = 1
		}
		blockLen = DefaultBlockBytes / elemSize
		if blockLen < 1 {
			blockLen = 1
		}
	}

	return &Arena[T]{
		blockLen: blockLen,
		cur:      -1,
	}
}

// Allocate a contiguous run of n elements. If construct is true the run is
// reset to the zero value of T; otherwise elements recycled after a Reset
// keep their previous contents.
func (a *Arena[T]) Alloc(n int, construct bool) Ref {
	if n < 0 {
		panic("arena: negative allocation size")
	}

	if a.cur < 0 || a.pos+n > len(a.blocks[a.cur]) {
		a.nextBlock(n)
	}

	ref := Ref{Block: uint32(a.cur), Offset: uint32(a.pos)}
	if construct {
		var zero T
		run := a.blocks[a.cur][a.pos : a.pos+n]
		for i := range run {
			run[i] = zero
		}
	}
	a.pos += n
	return ref
}

// Select a block with room for at least n elements, reusing an available
// block when possible.
func (a *Arena[T]) nextBlock(n int) {
	if a.cur >= 0 {
		a.used = append(a.used, a.cur)
	}

	for i, blockIndex := range a.available {
		if len(a.blocks[blockIndex]) >= n {
			a.available = append(a.available[:i], a.available[i+1:]...)
			a.cur, a.pos = blockIndex, 0
			return
		}
	}

	blockLen := a.blockLen
	if n > blockLen {
		blockLen = n
	}
	a.blocks = append(a.blocks, make([]T, blockLen))
	a.cur, a.pos = len(a.blocks)-1, 0
}

// Get a pointer to the element addressed by ref.
func (a *Arena[T]) At(ref Ref) *T {
	return &a.blocks[ref.Block][ref.Offset]
}

// Get the run of n elements starting at ref.
func (a *Arena[T]) Slice(ref Ref, n int) []T {
	return a.blocks[ref.Block][ref.Offset : int(ref.Offset)+n : int(ref.Offset)+n]
}

// Mark every block as available. Previously returned refs become invalid
// but the backing memory is retained for reuse.
func (a *Arena[T]) Reset() {
	if a.cur >= 0 {
		a.used = append(a.used, a.cur)
	}
	a.available = append(a.available, a.used...)
	a.used = a.used[:0]
	a.cur, a.pos = -1, 0
}

// Release all blocks.
func (a *Arena[T]) Release() {
	a.blocks = nil
	a.used = nil
	a.available = nil
	a.cur, a.pos = -1, 0
}

// Get the number of blocks owned by the arena.
func (a *Arena[T]) BlockCount() int {
	return len(a.blocks)
}

// Get the total number of bytes reserved by the arena blocks, including
// blocks that are available for reuse.
func (a *Arena[T]) TotalAllocated() uint64 {
	var zero T
	elemSize := uint64(unsafe.Sizeof(zero))

	var total uint64
	for _, block := range a.blocks {
		total += uint64(len(block)) * elemSize
	}
	return total
}
