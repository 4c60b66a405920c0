package arena

import (
	"math"
	"unsafe"
)

// ElementAllocator is the storage contract of resizable containers such as
// dynamic arrays, sparse arrays and sets. The container owns the element
// count; the allocator owns the memory and the capacity heuristics.
type ElementAllocator interface {
	// Allocation returns the current element storage, or nil.
	Allocation() unsafe.Pointer
	// ResizeAllocation resizes the storage from prevNum to num elements.
	ResizeAllocation(prevNum, num int, elemSize uintptr)
	CalculateSlackReserve(num int, elemSize uintptr) int
	CalculateSlackShrink(num, numAllocated int, elemSize uintptr) int
	CalculateSlackGrow(num, numAllocated int, elemSize uintptr) int
	// AllocatedSize returns the bytes held for numAllocated elements.
	AllocatedSize(numAllocated int, elemSize uintptr) int
	HasAllocation() bool
	InitialCapacity() int
}

var _ ElementAllocator = (*ContainerAllocator)(nil)

// ContainerAllocator backs a container's element storage with arena memory.
// Resizing allocates through the producer, so only the goroutine owning the
// producer may resize; the storage itself may be released from anywhere.
type ContainerAllocator struct {
	producer *Producer
	align    uintptr
	data     unsafe.Pointer
}

// NewContainerAllocator returns an empty allocator resizing through p with
// elements aligned to align.
func NewContainerAllocator(p *Producer, align uintptr) *ContainerAllocator {
	return &ContainerAllocator{producer: p, align: p.arena.alignment(align)}
}

// Allocation implements ElementAllocator.
func (c *ContainerAllocator) Allocation() unsafe.Pointer {
	return c.data
}

// ResizeAllocation reallocates the storage. Elements up to the smaller of
// the old and new sizes are preserved.
func (c *ContainerAllocator) ResizeAllocation(prevNum, num int, elemSize uintptr) {
	if c.data == nil && num == 0 {
		return
	}
	if num < 0 || (elemSize != 0 && uint64(num) > math.MaxInt/uint64(elemSize)) {
		violation(ErrSizeOverflow, "arena %q: resizing to %d elements of %d bytes", c.producer.arena.cfg.Tag, num, elemSize)
	}
	c.data = c.producer.Reallocate(c.data, uintptr(num)*elemSize, c.align)
}

// CalculateSlackReserve implements ElementAllocator with DefaultCalculateSlackReserve.
func (c *ContainerAllocator) CalculateSlackReserve(num int, elemSize uintptr) int {
	return DefaultCalculateSlackReserve(num, elemSize)
}

// CalculateSlackShrink implements ElementAllocator with DefaultCalculateSlackShrink.
func (c *ContainerAllocator) CalculateSlackShrink(num, numAllocated int, elemSize uintptr) int {
	return DefaultCalculateSlackShrink(num, numAllocated, elemSize)
}

// CalculateSlackGrow implements ElementAllocator with DefaultCalculateSlackGrow.
func (c *ContainerAllocator) CalculateSlackGrow(num, numAllocated int, elemSize uintptr) int {
	return DefaultCalculateSlackGrow(num, numAllocated, elemSize)
}

// AllocatedSize implements ElementAllocator.
func (c *ContainerAllocator) AllocatedSize(numAllocated int, elemSize uintptr) int {
	return numAllocated * int(elemSize)
}

// HasAllocation implements ElementAllocator.
func (c *ContainerAllocator) HasAllocation() bool {
	return c.data != nil
}

// InitialCapacity implements ElementAllocator. Containers start empty.
func (c *ContainerAllocator) InitialCapacity() int {
	return 0
}

// MoveToEmpty takes over the storage of other, leaving other empty. Any
// storage c held is freed first. Nothing is copied. Both allocators must
// draw from the same arena.
func (c *ContainerAllocator) MoveToEmpty(other *ContainerAllocator) {
	if c == other {
		return
	}
	if c.producer.arena != other.producer.arena {
		violation(ErrForeignProducer, "arena %q: moving storage from arena %q", c.producer.arena.cfg.Tag, other.producer.arena.cfg.Tag)
	}
	c.Release()
	c.data, other.data = other.data, nil
}

// Release frees the storage.
func (c *ContainerAllocator) Release() {
	c.producer.arena.Free(c.data)
	c.data = nil
}

// Elements views the first n elements of c's storage as a slice. T must match
// the element size the storage was resized with, and the view must fit in the
// storage.
func Elements[T any](c *ContainerAllocator, n int) []T {
	if c.data == nil || n <= 0 {
		return nil
	}
	mustBePointerFree[T]()
	var zero T
	size, held := unsafe.Sizeof(zero), c.producer.arena.AllocationSize(c.data)
	if size != 0 && uint64(n) > uint64(held/size) {
		violation(ErrSizeOverflow, "arena %q: viewing %d elements of %d bytes in %d bytes of storage", c.producer.arena.cfg.Tag, n, size, held)
	}
	return unsafe.Slice((*T)(c.data), n)
}
