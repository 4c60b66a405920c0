package arena

import (
	"unsafe"

	"github.com/prometheus/prometheus/util/pool"
)

// Backing is the raw allocator blocks are carved from. Implementations must be
// safe for concurrent use and return memory aligned to at least 8 bytes.
type Backing interface {
	Get(size int) ([]byte, error)
	Put(b []byte) bool
}

// HeapBacking allocates a new slice for every block and leaves reclamation
// to the garbage collector.
type HeapBacking struct{}

// Get implements Backing.
func (HeapBacking) Get(size int) ([]byte, error) {
	return makeWords(size), nil
}

// Put implements Backing.
func (HeapBacking) Put([]byte) bool {
	return true
}

// PoolBacking recycles block memory through size-bucketed sync.Pools.
type PoolBacking struct {
	pool *pool.Pool
}

// NewPoolBacking creates a pooled backing allocator with buckets growing by
// factor from minSize to maxSize. Larger requests bypass the pool.
func NewPoolBacking(minSize, maxSize int, factor float64) *PoolBacking {
	return &PoolBacking{
		pool: pool.New(minSize, maxSize, factor, func(size int) interface{} {
			return makeWords(size)
		}),
	}
}

// Get implements Backing.
func (p *PoolBacking) Get(size int) ([]byte, error) {
	return p.pool.Get(size).([]byte)[:size], nil
}

// Put implements Backing.
func (p *PoolBacking) Put(b []byte) bool {
	p.pool.Put(b)
	return true
}

// makeWords returns size bytes backed by a []uint64, which guarantees the
// 8-byte alignment the block header needs for its atomic counter.
func makeWords(size int) []byte {
	words := make([]uint64, (size+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), len(words)*8)[:size]
}
