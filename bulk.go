package arena

import (
	"unsafe"

	"go.uber.org/atomic"
)

// Bulk tracks heterogeneous arena objects so they can all be destroyed and
// freed with one DeleteAll call.
//
// Create and CreateArray may be called concurrently from any goroutine, each
// with its own producer. DeleteAll must not run concurrently with itself or
// with creations on the same Bulk; the caller sequences the harvest.
type Bulk struct {
	arena *Arena
	head  atomic.Pointer[bulkNode]
}

type bulkNode struct {
	next    *bulkNode
	payload unsafe.Pointer
	destroy func(payload unsafe.Pointer)
}

// NewBulk returns an empty Bulk whose objects live in a.
func NewBulk(a *Arena) *Bulk {
	return &Bulk{arena: a}
}

// Create stores a copy of v in the arena and tracks it. If *T implements
// Destroyer, DeleteAll calls Destroy on it before freeing.
func Create[T any](b *Bulk, p *Producer, v T) *T {
	b.checkProducer(p)
	ptr := AllocUninitialized[T](p)
	*ptr = v

	n := &bulkNode{payload: unsafe.Pointer(ptr)}
	if _, ok := any(ptr).(Destroyer); ok {
		n.destroy = func(payload unsafe.Pointer) {
			any((*T)(payload)).(Destroyer).Destroy()
		}
	}
	b.push(n)
	return ptr
}

// CreateArray stores count copies of v contiguously in the arena and tracks
// them as one node. Destroy runs on every element in index order. Returns nil
// if count <= 0.
func CreateArray[T any](b *Bulk, p *Producer, count int, v T) []T {
	b.checkProducer(p)
	s := AllocSlice[T](p, count)
	if s == nil {
		return nil
	}
	for i := range s {
		s[i] = v
	}

	n := &bulkNode{payload: unsafe.Pointer(unsafe.SliceData(s))}
	if _, ok := any((*T)(nil)).(Destroyer); ok {
		n.destroy = func(payload unsafe.Pointer) {
			destroyAll(unsafe.Slice((*T)(payload), count))
		}
	}
	b.push(n)
	return s
}

func (b *Bulk) push(n *bulkNode) {
	for {
		head := b.head.Load()
		n.next = head
		if b.head.CompareAndSwap(head, n) {
			return
		}
	}
}

func (b *Bulk) checkProducer(p *Producer) {
	if p.arena != b.arena {
		violation(ErrForeignProducer, "bulk on arena %q, producer on arena %q", b.arena.cfg.Tag, p.arena.cfg.Tag)
	}
}

// DeleteAll detaches every tracked object, destroys them newest first and
// frees their memory. Calling it on an empty Bulk is a no-op.
func (b *Bulk) DeleteAll() {
	n := b.head.Swap(nil)
	for n != nil {
		next := n.next
		if n.destroy != nil {
			n.destroy(n.payload)
		}
		b.arena.Free(n.payload)
		n = next
	}
}

// Close deletes everything still tracked.
func (b *Bulk) Close() {
	b.DeleteAll()
}
