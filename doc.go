// Package arena implements a concurrent bump allocator for short-lived
// allocations that are produced on one goroutine and may be freed from any
// goroutine.
//
// # Overview
//
// Memory is handed out from fixed-size blocks obtained from a backing
// allocator. Each goroutine allocating from an arena owns a Producer, which
// fills one block at a time by advancing a cursor. Every allocation is
// preceded by a small header recording where its block starts and how large
// it is, so any goroutine can free it with a single atomic decrement of the
// block's live counter. When the counter of a finished block reaches zero the
// block goes back to the backing allocator; when the producer itself finds
// its block empty while sealing it, the block is reused in place.
//
// Typical uses are per-task scratch buffers in a pipeline: one stage
// allocates, a later stage on another goroutine frees.
//
// # Basic Usage
//
//	a, err := arena.New(arena.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	p := a.NewProducer() // one per goroutine
//	defer p.Close()
//
//	buf := p.AllocBytes(1024)
//	v := arena.Alloc[Point](p)
//	s := arena.AllocSlice[int64](p, 100)
//
//	// Any goroutine may free.
//	a.FreeBytes(buf)
//	arena.FreeObject(a, v)
//	arena.FreeSlice(a, s)
//
// # Thread Safety
//
// A Producer must only be used by one goroutine at a time. Share one through
// SafeProducer, or pass it along with a task through NewContext. Free,
// FreeBytes, AllocationSize and the Free helpers are safe from any goroutine.
//
// # Memory Layout
//
// Block memory is never scanned by the garbage collector, so values stored in
// the arena must not contain Go pointers (including strings, slices, maps and
// interfaces). The generic helpers check this and panic otherwise.
//
// # Bulk Deletion
//
// A Bulk tracks objects created through it so they can all be destroyed and
// freed together:
//
//	b := arena.NewBulk(a)
//	arena.Create(b, p, Point{X: 1})
//	arena.CreateArray(b, p, 16, Sample{})
//	b.DeleteAll()
//
// # Errors
//
// Misuse such as bad alignment, oversized requests with oversized blocks
// disabled, or pointerful types is a precondition violation and panics with
// one of the Err values wrapped. Double frees are not detected.
package arena
