package arena

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHooks struct {
	mu        sync.Mutex
	allocated []int
	freed     []int
	poisoned  uintptr
	unpoison  uintptr
}

func (h *recordingHooks) BlockAllocated(tag string, size int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.allocated = append(h.allocated, size)
}

func (h *recordingHooks) BlockFreed(tag string, size int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.freed = append(h.freed, size)
}

func (h *recordingHooks) Poison(_ unsafe.Pointer, n uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.poisoned += n
}

func (h *recordingHooks) Unpoison(_ unsafe.Pointer, n uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unpoison += n
}

func TestHooksCalled(t *testing.T) {
	hooks := &recordingHooks{}
	a := newTestArena(t, 1024, WithHooks(hooks))
	p := a.NewProducer()

	small := p.Allocate(100, 8)
	big := p.Allocate(2000, 8)
	assert.Equal(t, []int{1024, 2000 + int(blockHeaderSize+allocHeaderSize+MinAlignment)}, hooks.allocated)

	unpoisonedBeforeFree := hooks.unpoison
	assert.Equal(t, 2*allocHeaderSize+2100, unpoisonedBeforeFree)

	poisonedBeforeFree := hooks.poisoned
	a.Free(small)
	assert.Equal(t, poisonedBeforeFree+allocHeaderSize+100, hooks.poisoned)

	a.Free(big)
	assert.Len(t, hooks.freed, 1)

	p.Close()
	assert.Len(t, hooks.freed, 2)
}

func TestPoisonHooksDetectWriteAfterFree(t *testing.T) {
	hooks := NewPoisonHooks(log.NewNopLogger())
	a := newTestArena(t, 1024, WithHooks(hooks))
	p := a.NewProducer()

	stale := p.AllocBytes(64)
	a.FreeBytes(stale)
	assert.Equal(t, byte(PoisonByte), stale[0], "freed memory is poisoned")

	stale[0] = 1 // write through a dangling slice

	var reused []byte
	for a.Stats().BlocksRecycled == 0 {
		reused = p.AllocBytes(64)
		a.FreeBytes(reused)
	}
	require.Same(t, unsafe.SliceData(stale), unsafe.SliceData(reused), "recycled block hands out the same slot first")
	assert.Equal(t, int64(1), hooks.Corrupted())
	assert.Equal(t, int64(1), hooks.LiveBlocks())

	p.Close()
	assert.Zero(t, hooks.LiveBlocks())
}

func TestPoisonHooksCleanRun(t *testing.T) {
	hooks := NewPoisonHooks(nil)
	a := newTestArena(t, 1024, WithHooks(hooks))
	p := a.NewProducer()

	for i := 0; i < 1000; i++ {
		b := p.AllocBytes(1 + i%300)
		for j := range b {
			b[j] = byte(i)
		}
		a.FreeBytes(b)
	}
	p.Close()

	assert.Zero(t, hooks.Corrupted())
	assert.Zero(t, hooks.LiveBlocks())
}
