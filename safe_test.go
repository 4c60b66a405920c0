package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNewSafeProducer(t *testing.T) {
	a := newTestArena(t, 1024)
	s := NewSafeProducer(a)
	require.NotNil(t, s.p)
	assert.Same(t, a, s.Arena())
	s.Close()
}

func TestSafeProducerOperations(t *testing.T) {
	a := newTestArena(t, 1024)
	s := NewSafeProducer(a)

	b := s.AllocBytes(100)
	assert.Len(t, b, 100)
	assert.Nil(t, s.AllocBytes(0))

	ptr := s.Allocate(64, 32)
	assert.Zero(t, uintptr(ptr)%32)
	ptr = s.Reallocate(ptr, 128, 32)
	assert.Equal(t, uintptr(128), a.AllocationSize(ptr))

	var v *int64
	s.Do(func(p *Producer) { v = Alloc[int64](p) })
	assert.Zero(t, *v)

	a.FreeBytes(b)
	a.Free(ptr)
	FreeObject(a, v)

	s.Close()
	assert.Zero(t, a.Stats().LiveBlocks)

	requireViolation(t, ErrProducerClosed, func() { s.AllocBytes(100) })
}

func TestSafeProducerConcurrentAccess(t *testing.T) {
	a := newTestArena(t, 4096)
	s := NewSafeProducer(a)

	const goroutines, allocsPerGoroutine = 10, 1000
	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		g.Go(func() error {
			for j := 0; j < allocsPerGoroutine; j++ {
				switch j % 3 {
				case 0:
					b := s.AllocBytes(10)
					b[0] = byte(i)
					a.FreeBytes(b)
				case 1:
					var v *int32
					s.Do(func(p *Producer) { v = Alloc[int32](p) })
					*v = int32(j)
					FreeObject(a, v)
				default:
					ptr := s.Allocate(24, 8)
					*(*int64)(ptr) = int64(j)
					a.Free(ptr)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	s.Close()
	assert.Zero(t, a.Stats().LiveBlocks)
}

func TestSafeProducerSharedAllocationsAreDisjoint(t *testing.T) {
	a := newTestArena(t, 4096)
	s := NewSafeProducer(a)
	defer s.Close()

	const goroutines, perGoroutine = 4, 200
	ptrs := make([][]unsafe.Pointer, goroutines)
	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		g.Go(func() error {
			for j := 0; j < perGoroutine; j++ {
				ptr := s.Allocate(32, 8)
				fill(ptr, 32, byte(i))
				ptrs[i] = append(ptrs[i], ptr)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i, owned := range ptrs {
		for _, ptr := range owned {
			require.True(t, filledWith(ptr, 32, byte(i)))
			a.Free(ptr)
		}
	}
}
