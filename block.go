package arena

import (
	"sync/atomic"
	"unsafe"
)

// sentinelBias seeds the live counter of a filling block. It is far above the
// number of allocations a block can ever hold, so frees that race with the
// producer cannot drive the counter to zero before the block is sealed.
const sentinelBias int64 = 1 << 62

const (
	blockHeaderSize = unsafe.Sizeof(blockHeader{})
	allocHeaderSize = unsafe.Sizeof(allocHeader{})

	// MinAlignment is the smallest alignment handed out by the arena. Every
	// requested alignment is raised to it.
	MinAlignment = unsafe.Alignof(allocHeader{})
)

// blockHeader lives in the first bytes of every block.
//
// live is the only field touched by more than one goroutine, always
// atomically. cursor and fills belong to the producer filling the block.
type blockHeader struct {
	live      int64
	cursor    uintptr
	fills     int64
	size      uintptr // usable bytes, header included
	capacity  uintptr // cap of the backing slice
	oversized bool
}

// allocHeader immediately precedes every payload.
type allocHeader struct {
	offset uintptr // from block base to payload
	size   uintptr
}

func headerOf(p unsafe.Pointer) *allocHeader {
	return (*allocHeader)(unsafe.Add(p, -int(allocHeaderSize)))
}

func blockOf(p unsafe.Pointer) *blockHeader {
	return (*blockHeader)(unsafe.Add(p, -int(headerOf(p).offset)))
}

func (b *blockHeader) init(size, capacity uintptr, live int64, oversized bool) {
	atomic.StoreInt64(&b.live, live)
	b.cursor = blockHeaderSize
	b.fills = 0
	b.size = size
	b.capacity = capacity
	b.oversized = oversized
}

// carve bumps the cursor past an allocation header and size payload bytes
// aligned to align, and returns the payload address. The header is left for
// the caller to stamp. carve returns nil when the block cannot hold the
// request. The payload address always lies inside the block, even for a zero
// size, so it keeps the block reachable for the garbage collector.
func (b *blockHeader) carve(size, align uintptr) unsafe.Pointer {
	base := uintptr(unsafe.Pointer(b))
	off := alignUp(base+b.cursor+allocHeaderSize, align) - base
	if off >= b.size || size > b.size-off {
		return nil
	}
	b.cursor = off + size
	b.fills++
	return unsafe.Add(unsafe.Pointer(b), off)
}

// stamp writes the allocation header in front of payload p carved from b.
func (b *blockHeader) stamp(p unsafe.Pointer, size uintptr) {
	h := headerOf(p)
	h.offset = uintptr(p) - uintptr(unsafe.Pointer(b))
	h.size = size
}

// release drops n references and reports the remaining count.
func (b *blockHeader) release(n int64) int64 {
	return atomic.AddInt64(&b.live, -n)
}

// seal pins the cursor at the block end and gives back the producer's bias
// in one subtract. It reports true when no allocation is outstanding, in
// which case the caller is the block's only observer of the zero.
func (b *blockHeader) seal() bool {
	b.cursor = b.size
	return b.release(sentinelBias-b.fills) == 0
}

// usable returns the region after the block header.
func (b *blockHeader) usable() (unsafe.Pointer, uintptr) {
	return unsafe.Add(unsafe.Pointer(b), blockHeaderSize), b.size - blockHeaderSize
}

// backing rebuilds the slice originally handed out by the backing allocator.
func (b *blockHeader) backing() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(b)), b.capacity)[:b.size]
}

func alignUp(off, align uintptr) uintptr {
	mask := align - 1
	return (off + mask) & ^mask
}
