package arena

import "github.com/pkg/errors"

// Precondition violations. The arena panics with one of these, wrapped with
// the details of the offending call; they are caller bugs, not runtime
// conditions, and are never returned.
var (
	ErrBadAlignment      = errors.New("arena: alignment is not a power of two")
	ErrSizeOverflow      = errors.New("arena: request size overflows")
	ErrOversizedDisabled = errors.New("arena: request does not fit a block and oversized blocks are disabled")
	ErrPointerType       = errors.New("arena: type contains Go pointers")
	ErrProducerClosed    = errors.New("arena: use of closed producer")
	ErrForeignProducer   = errors.New("arena: producer belongs to a different arena")
)

func violation(err error, format string, args ...interface{}) {
	panic(errors.Wrapf(err, format, args...))
}
