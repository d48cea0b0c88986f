package reactor

import (
	"context"
	"errors"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("reactor")

// ErrClosed is returned by a reactor that has been closed
var ErrClosed = errors.New("reactor: closed")

// --------------------------------------------------------------------------
// Interest
// --------------------------------------------------------------------------

// Direction is the readiness direction a waker is registered for
type Direction uint8

const (
	DirRead Direction = 1 << iota
	DirWrite
)

func (d Direction) String() string {
	switch d {
	case DirRead:
		return "read"
	case DirWrite:
		return "write"
	case DirRead | DirWrite:
		return "read|write"
	default:
		return "none"
	}
}

// Waker is the resumption token of a suspended operation.
// Wake must not block.
type Waker interface {
	Wake()
}

// --------------------------------------------------------------------------
// Reactor Interfaces
// --------------------------------------------------------------------------

// IRegistrar is the part of a reactor the stream adapter depends on
type IRegistrar interface {
	// AddReadWaker registers w to be woken once fd becomes readable.
	// An earlier read waker for fd is replaced and will never fire.
	AddReadWaker(fd int, w Waker) error
	// AddWriteWaker registers w to be woken once fd becomes writable.
	// An earlier write waker for fd is replaced and will never fire.
	AddWriteWaker(fd int, w Waker) error
	// Deregister removes every interest for fd and wakes the pending wakers.
	// It must be called before fd is closed.
	Deregister(fd int) error
}

// IReactor is a registrar that also owns the polling loop
type IReactor interface {
	IRegistrar
	// Poll waits up to timeoutMs (negative: forever) for readiness and fires
	// the wakers of ready descriptors. It returns the number of fired wakers.
	Poll(timeoutMs int) (int, error)
	// Run polls until ctx is done or the reactor is closed
	Run(ctx context.Context) error
	// Close releases the reactor and wakes every pending waker
	Close() error
}
