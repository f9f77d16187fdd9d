// Package parallel implements the data-parallel loops used by the tree
// builders.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Get the number of grain sized chunks needed to cover n items.
func ChunkCount(n, grain int) int {
	if n <= 0 {
		return 0
	}
	if grain <= 0 {
		grain = 1
	}
	return (n + grain - 1) / grain
}

// Split [0, n) into chunks of at most grain items and invoke fn for each
// chunk, running chunks concurrently on up to GOMAXPROCS goroutines. fn
// receives the chunk index and its [lo, hi) range. A single chunk runs on
// the calling goroutine.
func For(n, grain int, fn func(chunk, lo, hi int)) {
	chunks := ChunkCount(n, grain)
	if chunks == 0 {
		return
	}
	if grain <= 0 {
		grain = 1
	}
	if chunks == 1 {
		fn(0, 0, n)
		return
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for chunk := 0; chunk < chunks; chunk++ {
		chunk := chunk
		lo := chunk * grain
		hi := lo + grain
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			fn(chunk, lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

// Reduce runs fn over grain sized chunks of [0, n) in parallel and folds the
// per-chunk results with merge in chunk order, starting from identity.
func Reduce[T any](n, grain int, identity T, fn func(lo, hi int) T, merge func(a, b T) T) T {
	partials := make([]T, ChunkCount(n, grain))
	For(n, grain, func(chunk, lo, hi int) {
		partials[chunk] = fn(lo, hi)
	})

	out := identity
	for _, p := range partials {
		out = merge(out, p)
	}
	return out
}

// Tasks runs a fork-join computation. Spawn hands work to another goroutine
// when one of the limit slots is free and runs it inline otherwise.
type Tasks struct {
	g errgroup.Group
}

// Create a task group running at most limit spawned tasks at once. A limit
// <= 0 selects GOMAXPROCS.
func NewTasks(limit int) *Tasks {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	t := &Tasks{}
	t.g.SetLimit(limit)
	return t
}

// Run fn on a separate goroutine if possible or on the caller otherwise.
func (t *Tasks) Spawn(fn func()) {
	if t.g.TryGo(func() error {
		fn()
		return nil
	}) {
		return
	}
	fn()
}

// Wait for all spawned tasks to complete.
func (t *Tasks) Wait() {
	_ = t.g.Wait()
}
