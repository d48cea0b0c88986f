package stream

import (
	"errors"
	"fmt"

	"github.com/vmtools/vsh/lib/reactor"
)

var (
	// ErrPending reports that an attempt would block and a waker was registered
	ErrPending = errors.New("stream: operation pending")

	// ErrRegisterWaker is wrapped by every RegisterError
	ErrRegisterWaker = errors.New("stream: failed to add waker")

	// ErrClosed is returned by operations on a closed or split stream handle
	ErrClosed = errors.New("stream: use of closed stream")
)

// SetupError is returned when a descriptor can not be put into non-blocking
// mode. The descriptor has been closed and the adapter must not be used.
type SetupError struct {
	Kind Kind
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("failed to set %s stream nonblocking: %v", e.Kind, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// OpError is a read or write syscall failure other than would-block.
// The connection should be considered broken.
type OpError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s stream: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// RegisterError is returned when the reactor refuses a waker after an attempt
// would have blocked. It matches both ErrRegisterWaker and the reactor's error.
type RegisterError struct {
	Dir reactor.Direction
	Err error
}

func (e *RegisterError) Error() string {
	return fmt.Sprintf("failed to add %s waker: %v", e.Dir, e.Err)
}

func (e *RegisterError) Unwrap() []error {
	return []error{ErrRegisterWaker, e.Err}
}
