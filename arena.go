package arena

import (
	"unsafe"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Arena hands out short-lived allocations from blocks filled by producers.
// Allocating goes through a Producer owned by a single goroutine; freeing
// and size queries go through the Arena and are safe from any goroutine.
type Arena struct {
	cfg       Config
	blockSize uintptr

	backing Backing
	hooks   Hooks
	logger  log.Logger
	reg     prometheus.Registerer

	stats stats
}

// Option configures the collaborators of an Arena.
type Option func(*Arena)

// WithBacking sets the allocator blocks are obtained from. Defaults to HeapBacking.
func WithBacking(b Backing) Option {
	return func(a *Arena) { a.backing = b }
}

// WithHooks sets the diagnostics hooks. Defaults to NopHooks.
func WithHooks(h Hooks) Option {
	return func(a *Arena) { a.hooks = h }
}

// WithLogger sets the logger used on cold paths.
func WithLogger(l log.Logger) Option {
	return func(a *Arena) { a.logger = l }
}

// WithRegisterer registers the arena metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *Arena) { a.reg = reg }
}

// New creates an Arena from cfg.
func New(cfg Config, opts ...Option) (*Arena, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid arena config")
	}

	a := &Arena{
		cfg:       cfg,
		blockSize: uintptr(cfg.BlockSize),
		backing:   HeapBacking{},
		hooks:     NopHooks{},
		logger:    log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = log.With(a.logger, "arena", cfg.Tag)
	registerMetrics(a.reg, cfg.Tag, &a.stats)
	return a, nil
}

// Tag returns the tag the arena was configured with.
func (a *Arena) Tag() string {
	return a.cfg.Tag
}

// BlockSize returns the size of a standard block.
func (a *Arena) BlockSize() int {
	return int(a.blockSize)
}

// Stats returns a snapshot of the arena block accounting.
func (a *Arena) Stats() Stats {
	return a.stats.snapshot()
}

// NewProducer returns fresh allocation state for one goroutine. The first
// block is obtained lazily on the first allocation.
func (a *Arena) NewProducer() *Producer {
	return &Producer{arena: a}
}

// Free releases an allocation returned by a Producer of this arena. It may be
// called from any goroutine. Freeing nil is a no-op; freeing the same pointer
// twice or a pointer from elsewhere is undefined.
func (a *Arena) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	h := headerOf(p)
	b := blockOf(p)
	a.hooks.Poison(unsafe.Pointer(h), allocHeaderSize+h.size)
	if b.release(1) == 0 {
		a.reclaim(b)
	}
}

// FreeBytes releases a slice returned by AllocBytes.
func (a *Arena) FreeBytes(b []byte) {
	a.Free(unsafe.Pointer(unsafe.SliceData(b)))
}

// AllocationSize returns the size originally requested for p, or 0 for nil.
func (a *Arena) AllocationSize(p unsafe.Pointer) uintptr {
	if p == nil {
		return 0
	}
	return headerOf(p).size
}

// newBlock obtains size bytes from the backing allocator and lays a block
// header over them with its live counter seeded to live.
func (a *Arena) newBlock(size uintptr, live int64, oversized bool) *blockHeader {
	buf, err := a.backing.Get(int(size))
	if err != nil {
		level.Error(a.logger).Log("msg", "backing allocator failed", "size", size, "err", err)
		panic(errors.Wrapf(err, "arena %q: allocating %d byte block", a.cfg.Tag, size))
	}
	if uintptr(len(buf)) < size || uintptr(unsafe.Pointer(unsafe.SliceData(buf)))%8 != 0 {
		panic(errors.Errorf("arena %q: backing allocator returned %d bytes at %p, want %d bytes 8-byte aligned",
			a.cfg.Tag, len(buf), unsafe.SliceData(buf), size))
	}

	b := (*blockHeader)(unsafe.Pointer(unsafe.SliceData(buf)))
	b.init(size, uintptr(cap(buf)), live, oversized)

	a.stats.blocksAllocated.Inc()
	a.stats.bytesReserved.Add(int64(size))
	if oversized {
		a.stats.oversizedBlocks.Inc()
		level.Debug(a.logger).Log("msg", "allocated oversized block", "size", size)
	}
	a.hooks.BlockAllocated(a.cfg.Tag, int(size))
	a.hooks.Poison(b.usable())
	return b
}

// recycle turns a sealed block nobody references back into a filling one.
func (a *Arena) recycle(b *blockHeader) {
	b.init(b.size, b.capacity, sentinelBias, false)
	a.stats.blocksRecycled.Inc()
}

// reclaim hands a block whose live counter reached zero back to the backing
// allocator. Only the goroutine that observed the zero gets here.
func (a *Arena) reclaim(b *blockHeader) {
	size := b.size
	buf := b.backing()
	if b.oversized {
		level.Debug(a.logger).Log("msg", "freed oversized block", "size", size)
	}
	a.hooks.BlockFreed(a.cfg.Tag, int(size))
	a.stats.blocksFreed.Inc()
	a.stats.bytesReserved.Sub(int64(size))
	a.backing.Put(buf)
}

// alignment raises align to MinAlignment and checks it is a power of two.
func (a *Arena) alignment(align uintptr) uintptr {
	if align&(align-1) != 0 {
		violation(ErrBadAlignment, "arena %q: alignment %d", a.cfg.Tag, align)
	}
	if align < MinAlignment {
		return MinAlignment
	}
	return align
}
