package arena

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"
)

// Stats is a snapshot of arena block accounting.
type Stats struct {
	BlocksAllocated int64 // Blocks obtained from the backing allocator
	BlocksFreed     int64 // Blocks handed back to the backing allocator
	BlocksRecycled  int64 // Sealed blocks reinitialized in place
	OversizedBlocks int64 // Dedicated single-allocation blocks obtained
	LiveBlocks      int64 // Blocks currently held from the backing allocator
	BytesReserved   int64 // Bytes currently held from the backing allocator
}

type stats struct {
	blocksAllocated atomic.Int64
	blocksFreed     atomic.Int64
	blocksRecycled  atomic.Int64
	oversizedBlocks atomic.Int64
	bytesReserved   atomic.Int64
}

func (s *stats) snapshot() Stats {
	allocated := s.blocksAllocated.Load()
	freed := s.blocksFreed.Load()
	return Stats{
		BlocksAllocated: allocated,
		BlocksFreed:     freed,
		BlocksRecycled:  s.blocksRecycled.Load(),
		OversizedBlocks: s.oversizedBlocks.Load(),
		LiveBlocks:      allocated - freed,
		BytesReserved:   s.bytesReserved.Load(),
	}
}

// registerMetrics exposes s on reg. A nil reg registers nothing.
func registerMetrics(reg prometheus.Registerer, tag string, s *stats) {
	labels := prometheus.Labels{"arena": tag}
	counter := func(name, help string, v *atomic.Int64) {
		promauto.With(reg).NewCounterFunc(prometheus.CounterOpts{
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(v.Load()) })
	}

	counter("arena_blocks_allocated_total", "Total number of blocks obtained from the backing allocator.", &s.blocksAllocated)
	counter("arena_blocks_freed_total", "Total number of blocks returned to the backing allocator.", &s.blocksFreed)
	counter("arena_blocks_recycled_total", "Total number of sealed blocks reinitialized in place.", &s.blocksRecycled)
	counter("arena_oversized_blocks_total", "Total number of dedicated blocks obtained for oversized requests.", &s.oversizedBlocks)

	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "arena_reserved_bytes",
		Help:        "Bytes currently held from the backing allocator.",
		ConstLabels: labels,
	}, func() float64 { return float64(s.bytesReserved.Load()) })
}
