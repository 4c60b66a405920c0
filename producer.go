package arena

import (
	"math"
	"unsafe"
)

// Producer is the allocation state of one goroutine: the block it is
// currently filling. Only one goroutine may use a Producer at a time; that
// goroutine is the only writer of the block cursor. Use SafeProducer when a
// producer must be shared.
type Producer struct {
	arena  *Arena
	block  *blockHeader
	closed bool
}

// Arena returns the arena the producer allocates from.
func (p *Producer) Arena() *Arena {
	return p.arena
}

// Allocate returns size bytes aligned to align. An align of 0 means
// MinAlignment; any other value must be a power of two. The memory is not
// zeroed and must not hold Go pointers.
func (p *Producer) Allocate(size, align uintptr) unsafe.Pointer {
	align = p.arena.alignment(align)
	if b := p.block; b != nil {
		if ptr := b.carve(size, align); ptr != nil {
			p.handOut(b, ptr, size)
			return ptr
		}
	}
	return p.allocateSlow(size, align)
}

func (p *Producer) allocateSlow(size, align uintptr) unsafe.Pointer {
	a := p.arena
	if p.closed {
		violation(ErrProducerClosed, "arena %q: allocating %d bytes", a.cfg.Tag, size)
	}

	overhead := blockHeaderSize + allocHeaderSize + align
	if size > math.MaxInt-overhead {
		violation(ErrSizeOverflow, "arena %q: %d bytes aligned to %d", a.cfg.Tag, size, align)
	}
	if need := overhead + size; need > a.blockSize {
		if !a.cfg.AllowOversized {
			violation(ErrOversizedDisabled, "arena %q: %d bytes aligned to %d, block size %d", a.cfg.Tag, size, align, a.blockSize)
		}
		// The only reference to a dedicated block is its one allocation.
		b := a.newBlock(need, 1, true)
		ptr := b.carve(size, align)
		p.handOut(b, ptr, size)
		return ptr
	}

	for {
		if b := p.block; b != nil {
			if ptr := b.carve(size, align); ptr != nil {
				p.handOut(b, ptr, size)
				return ptr
			}
			p.block = nil
			if b.seal() {
				a.recycle(b)
				p.block = b
				continue
			}
		}
		p.block = a.newBlock(a.blockSize, sentinelBias, false)
	}
}

func (p *Producer) handOut(b *blockHeader, ptr unsafe.Pointer, size uintptr) {
	p.arena.hooks.Unpoison(unsafe.Add(ptr, -int(allocHeaderSize)), allocHeaderSize+size)
	b.stamp(ptr, size)
}

// AllocBytes returns n bytes from the arena, or nil if n <= 0. Release them
// with Arena.FreeBytes.
func (p *Producer) AllocBytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p.Allocate(uintptr(n), 0)), n)
}

// Reallocate moves the allocation at ptr to a fresh region of size bytes,
// copying what fits, and frees ptr. A nil ptr behaves like Allocate. A zero
// size frees ptr and returns nil.
func (p *Producer) Reallocate(ptr unsafe.Pointer, size, align uintptr) unsafe.Pointer {
	if size == 0 {
		p.arena.Free(ptr)
		return nil
	}
	moved := p.Allocate(size, align)
	if ptr != nil {
		n := min(p.arena.AllocationSize(ptr), size)
		copy(unsafe.Slice((*byte)(moved), n), unsafe.Slice((*byte)(ptr), n))
		p.arena.Free(ptr)
	}
	return moved
}

// Close seals the block being filled. It is returned to the backing
// allocator once every allocation carved from it has been freed. A closed
// producer must not allocate again; closing twice is a no-op.
func (p *Producer) Close() {
	if p.closed {
		return
	}
	p.closed = true
	if b := p.block; b != nil {
		p.block = nil
		if b.seal() {
			p.arena.reclaim(b)
		}
	}
}

// StaticAlignment is implemented by the alignment marker types accepted by
// AllocateAligned.
type StaticAlignment interface {
	Bytes() uintptr
}

// Alignment markers for AllocateAligned.
type (
	Align8         struct{}
	Align16        struct{}
	Align32        struct{}
	Align64        struct{}
	AlignCacheLine = Align64
)

// Bytes implements StaticAlignment.
func (Align8) Bytes() uintptr { return 8 }

// Bytes implements StaticAlignment.
func (Align16) Bytes() uintptr { return 16 }

// Bytes implements StaticAlignment.
func (Align32) Bytes() uintptr { return 32 }

// Bytes implements StaticAlignment.
func (Align64) Bytes() uintptr { return 64 }

// AllocateAligned is Allocate with the alignment fixed by the type parameter.
func AllocateAligned[A StaticAlignment](p *Producer, size uintptr) unsafe.Pointer {
	var align A
	return p.Allocate(size, align.Bytes())
}
