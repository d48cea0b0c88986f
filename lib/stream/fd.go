package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/vmtools/vsh/lib/reactor"
	"golang.org/x/sys/unix"
)

// fdRef is the shared, reference counted ownership of one descriptor.
// Syscalls hold the read lock, the final release holds the write lock, so the
// descriptor number can not be reused while an attempt is running.
type fdRef struct {
	mu       sync.RWMutex
	fd       int
	kind     Kind
	registry reactor.IRegistrar
	refs     atomic.Int32
	closed   bool // guarded by mu
}

func newFdRef(fd int, kind Kind, registry reactor.IRegistrar) *fdRef {
	ref := &fdRef{fd: fd, kind: kind, registry: registry}
	ref.refs.Store(1)
	return ref
}

// retain adds an owner
func (f *fdRef) retain() {
	f.refs.Add(1)
}

// release drops an owner and closes the descriptor when it was the last one
func (f *fdRef) release() error {
	if f.refs.Add(-1) > 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	// deregistration wakes parked operations, they observe closed once we unlock
	deregErr := f.registry.Deregister(f.fd)
	closeErr := unix.Close(f.fd)

	Logger.Debugf("released %s stream fd %d", f.kind, f.fd)

	return errors.Join(deregErr, closeErr)
}

// --------------------------------------------------------------------------
// Poll Operations
// --------------------------------------------------------------------------

func (f *fdRef) pollRead(w reactor.Waker, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return 0, ErrClosed
	}

	for {
		n, err := unix.Read(f.fd, p)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			if regErr := f.registry.AddReadWaker(f.fd, w); regErr != nil {
				return 0, &RegisterError{Dir: reactor.DirRead, Err: regErr}
			}
			return 0, ErrPending
		default:
			return 0, &OpError{Op: "read", Kind: f.kind, Err: err}
		}
	}
}

func (f *fdRef) pollWrite(w reactor.Waker, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return 0, ErrClosed
	}

	for {
		n, err := unix.Write(f.fd, p)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			if regErr := f.registry.AddWriteWaker(f.fd, w); regErr != nil {
				return 0, &RegisterError{Dir: reactor.DirWrite, Err: regErr}
			}
			return 0, ErrPending
		default:
			return 0, &OpError{Op: "write", Kind: f.kind, Err: err}
		}
	}
}

// --------------------------------------------------------------------------
// Blocking Helpers (park the calling goroutine, not the thread)
// --------------------------------------------------------------------------

// readContext performs one successful read, parking on w while the socket is empty
func (f *fdRef) readContext(ctx context.Context, w *reactor.ChanWaker, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		n, err := f.pollRead(w, p)
		if errors.Is(err, ErrPending) {
			select {
			case <-w.C():
				continue
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

// writeContext writes all of p, parking on w while the socket buffer is full
func (f *fdRef) writeContext(ctx context.Context, w *reactor.ChanWaker, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, err := f.pollWrite(w, p[written:])
		if errors.Is(err, ErrPending) {
			select {
			case <-w.C():
				continue
			case <-ctx.Done():
				return written, ctx.Err()
			}
		}
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
		written += n
	}
	return written, nil
}
