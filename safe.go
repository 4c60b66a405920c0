package arena

import (
	"sync"
	"unsafe"
)

// SafeProducer is a mutex-protected Producer for goroutines that cannot own
// one each. Every allocation takes the lock; freeing goes through the Arena
// and never needs it.
type SafeProducer struct {
	mu sync.Mutex
	p  *Producer
}

// NewSafeProducer creates a shared producer on a.
func NewSafeProducer(a *Arena) *SafeProducer {
	return &SafeProducer{p: a.NewProducer()}
}

// Arena returns the arena the producer allocates from.
func (s *SafeProducer) Arena() *Arena {
	return s.p.arena
}

// Allocate thread-safely allocates size bytes aligned to align.
func (s *SafeProducer) Allocate(size, align uintptr) unsafe.Pointer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Allocate(size, align)
}

// AllocBytes thread-safely allocates n bytes. Returns nil if n <= 0.
func (s *SafeProducer) AllocBytes(n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.AllocBytes(n)
}

// Reallocate thread-safely moves ptr to a region of size bytes.
func (s *SafeProducer) Reallocate(ptr unsafe.Pointer, size, align uintptr) unsafe.Pointer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Reallocate(ptr, size, align)
}

// Do runs fn with exclusive use of the underlying producer, for the generic
// helpers:
//
//	s.Do(func(p *arena.Producer) { v = arena.Alloc[T](p) })
//
// fn must not retain p.
func (s *SafeProducer) Do(fn func(p *Producer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.p)
}

// Close thread-safely closes the underlying producer.
func (s *SafeProducer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Close()
}
