package arena

import (
	"reflect"
	"sync"
	"unsafe"
)

// Destroyer is implemented by arena objects that need to run cleanup before
// their memory is freed.
type Destroyer interface {
	Destroy()
}

// Alloc returns a pointer to a zeroed T stored inside the arena.
// T must not contain Go pointers.
func Alloc[T any](p *Producer) *T {
	v := AllocUninitialized[T](p)
	var zero T
	*v = zero
	return v
}

// AllocUninitialized returns a *T located in the arena without zeroing memory.
// The contents are undefined until written.
func AllocUninitialized[T any](p *Producer) *T {
	mustBePointerFree[T]()
	var zero T
	return (*T)(p.Allocate(unsafe.Sizeof(zero), unsafe.Alignof(zero)))
}

// AllocSlice allocates a slice of n elements of type T inside the arena.
// The elements are not initialized. Returns nil if n <= 0.
func AllocSlice[T any](p *Producer, n int) []T {
	if n <= 0 {
		return nil
	}
	mustBePointerFree[T]()
	var zero T
	size := unsafe.Sizeof(zero)
	if size != 0 && uintptr(n) > ^uintptr(0)/size {
		violation(ErrSizeOverflow, "arena %q: %d elements of %d bytes", p.arena.cfg.Tag, n, size)
	}
	return unsafe.Slice((*T)(p.Allocate(size*uintptr(n), unsafe.Alignof(zero))), n)
}

// AllocSliceZeroed allocates a slice of n zeroed elements of type T.
func AllocSliceZeroed[T any](p *Producer, n int) []T {
	s := AllocSlice[T](p, n)
	clear(s)
	return s
}

// FreeObject destroys v if *T implements Destroyer and frees its memory.
func FreeObject[T any](a *Arena, v *T) {
	if v == nil {
		return
	}
	if d, ok := any(v).(Destroyer); ok {
		d.Destroy()
	}
	a.Free(unsafe.Pointer(v))
}

// FreeSlice destroys every element of s if *T implements Destroyer and frees
// the slice memory. s must be a slice returned by AllocSlice, not a reslice.
func FreeSlice[T any](a *Arena, s []T) {
	if s == nil {
		return
	}
	destroyAll(s)
	a.Free(unsafe.Pointer(unsafe.SliceData(s)))
}

func destroyAll[T any](s []T) {
	if _, ok := any((*T)(nil)).(Destroyer); !ok {
		return
	}
	for i := range s {
		any(&s[i]).(Destroyer).Destroy()
	}
}

var pointerFree sync.Map // reflect.Type -> bool

// mustBePointerFree panics unless T can live in memory the garbage collector
// does not scan.
func mustBePointerFree[T any]() {
	t := reflect.TypeFor[T]()
	ok, cached := pointerFree.Load(t)
	if !cached {
		ok, _ = pointerFree.LoadOrStore(t, !hasPointers(t))
	}
	if !ok.(bool) {
		violation(ErrPointerType, "type %s", t)
	}
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.Slice, reflect.String:
		return true
	default:
		return false
	}
}
