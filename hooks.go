package arena

import (
	"unsafe"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"
)

// Hooks receives diagnostics call-outs from the arena. Every call is fire and
// forget: the arena never consumes a result, so hooks must not panic and must
// not retain the pointers they are handed.
type Hooks interface {
	// BlockAllocated is called after a block is obtained from the backing allocator.
	BlockAllocated(tag string, size int)
	// BlockFreed is called before a block is handed back to the backing allocator.
	BlockFreed(tag string, size int)
	// Poison marks n bytes at p as inaccessible.
	Poison(p unsafe.Pointer, n uintptr)
	// Unpoison marks n bytes at p as handed out to a caller.
	Unpoison(p unsafe.Pointer, n uintptr)
}

// NopHooks ignores every call-out.
type NopHooks struct{}

// BlockAllocated implements Hooks.
func (NopHooks) BlockAllocated(string, int) {}

// BlockFreed implements Hooks.
func (NopHooks) BlockFreed(string, int) {}

// Poison implements Hooks.
func (NopHooks) Poison(unsafe.Pointer, uintptr) {}

// Unpoison implements Hooks.
func (NopHooks) Unpoison(unsafe.Pointer, uintptr) {}

// PoisonByte fills every region PoisonHooks poisons.
const PoisonByte = 0xDD

// PoisonHooks fills poisoned regions with PoisonByte and checks the pattern
// is intact when the region is handed out again. A mismatch means something
// wrote to memory it no longer owned; it is logged and counted.
type PoisonHooks struct {
	logger     log.Logger
	corrupted  atomic.Int64
	liveBlocks atomic.Int64
}

// NewPoisonHooks returns PoisonHooks reporting corruption to logger.
func NewPoisonHooks(logger log.Logger) *PoisonHooks {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &PoisonHooks{logger: logger}
}

// BlockAllocated implements Hooks.
func (h *PoisonHooks) BlockAllocated(string, int) { h.liveBlocks.Inc() }

// BlockFreed implements Hooks.
func (h *PoisonHooks) BlockFreed(string, int) { h.liveBlocks.Dec() }

// Poison implements Hooks by filling the region with PoisonByte.
func (h *PoisonHooks) Poison(p unsafe.Pointer, n uintptr) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = PoisonByte
	}
}

// Unpoison implements Hooks by checking the region still holds PoisonByte.
func (h *PoisonHooks) Unpoison(p unsafe.Pointer, n uintptr) {
	b := unsafe.Slice((*byte)(p), n)
	for i, c := range b {
		if c != PoisonByte {
			h.corrupted.Inc()
			level.Warn(h.logger).Log("msg", "write to poisoned arena memory", "addr", uintptr(p), "offset", i, "len", n)
			return
		}
	}
}

// Corrupted returns how many unpoisoned regions were found modified.
func (h *PoisonHooks) Corrupted() int64 {
	return h.corrupted.Load()
}

// LiveBlocks returns the number of blocks allocated and not yet freed.
func (h *PoisonHooks) LiveBlocks() int64 {
	return h.liveBlocks.Load()
}
