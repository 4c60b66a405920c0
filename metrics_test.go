package arena

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	a := newTestArena(t, 1024)
	p := a.NewProducer()

	var ptrs []unsafe.Pointer
	for i := 0; i < 8; i++ {
		ptrs = append(ptrs, p.Allocate(200, 8))
	}
	assert.Equal(t, Stats{
		BlocksAllocated: 2,
		LiveBlocks:      2,
		BytesReserved:   2048,
	}, a.Stats())

	for _, ptr := range ptrs {
		a.Free(ptr)
	}
	assert.Equal(t, Stats{
		BlocksAllocated: 2,
		BlocksFreed:     1,
		LiveBlocks:      1,
		BytesReserved:   1024,
	}, a.Stats())

	p.Close()
	st := a.Stats()
	assert.Equal(t, int64(2), st.BlocksFreed)
	assert.Zero(t, st.LiveBlocks)
	assert.Zero(t, st.BytesReserved)
}

func TestMetricsRegistered(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	a := newTestArena(t, 1024, WithRegisterer(reg))
	p := a.NewProducer()

	var ptrs []unsafe.Pointer
	for i := 0; i < 8; i++ {
		ptrs = append(ptrs, p.Allocate(200, 8))
	}
	ptrs = append(ptrs, p.Allocate(4000, 8))

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP arena_blocks_allocated_total Total number of blocks obtained from the backing allocator.
# TYPE arena_blocks_allocated_total counter
arena_blocks_allocated_total{arena="test"} 3
# HELP arena_blocks_freed_total Total number of blocks returned to the backing allocator.
# TYPE arena_blocks_freed_total counter
arena_blocks_freed_total{arena="test"} 0
# HELP arena_oversized_blocks_total Total number of dedicated blocks obtained for oversized requests.
# TYPE arena_oversized_blocks_total counter
arena_oversized_blocks_total{arena="test"} 1
`), "arena_blocks_allocated_total", "arena_blocks_freed_total", "arena_oversized_blocks_total"))

	for _, ptr := range ptrs {
		a.Free(ptr)
	}
	p.Close()

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP arena_blocks_freed_total Total number of blocks returned to the backing allocator.
# TYPE arena_blocks_freed_total counter
arena_blocks_freed_total{arena="test"} 3
# HELP arena_reserved_bytes Bytes currently held from the backing allocator.
# TYPE arena_reserved_bytes gauge
arena_reserved_bytes{arena="test"} 0
`), "arena_blocks_freed_total", "arena_reserved_bytes"))
}

func TestMetricsDuplicateTagPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	newTestArena(t, 1024, WithRegisterer(reg))
	assert.Panics(t, func() { newTestArena(t, 1024, WithRegisterer(reg)) })
}
