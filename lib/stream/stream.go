package stream

import (
	"context"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/vmtools/vsh/lib/reactor"
	"golang.org/x/sys/unix"
)

var Logger = logger.GetLogger("stream")

// Kind is the socket family of the adapted descriptor
type Kind uint8

const (
	KindUnix Kind = iota
	KindVsock
)

func (k Kind) String() string {
	switch k {
	case KindUnix:
		return "unix"
	case KindVsock:
		return "vsock"
	default:
		return "unknown"
	}
}

// Stream is the non-blocking adapter for one connected stream socket.
// It owns the descriptor: Close (or Split followed by closing both halves) releases it.
type Stream struct {
	ref *fdRef

	// channel wakers of the blocking helpers, one per direction so a parked
	// reader and a parked writer never consume each other's wakeups
	readWaker  *reactor.ChanWaker
	writeWaker *reactor.ChanWaker

	// set by Close and by Split
	detached atomic.Bool
}

// New takes ownership of fd and switches it to non-blocking mode.
// If that fails the descriptor is closed and a *SetupError is returned.
func New(fd int, kind Kind, r reactor.IRegistrar) (*Stream, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, &SetupError{Kind: kind, Err: err}
	}

	Logger.Debugf("adopted %s stream fd %d", kind, fd)

	return &Stream{
		ref:        newFdRef(fd, kind, r),
		readWaker:  reactor.NewChanWaker(),
		writeWaker: reactor.NewChanWaker(),
	}, nil
}

// Fd returns the owned descriptor number, only for logging and diagnostics
func (s *Stream) Fd() int {
	return s.ref.fd
}

// Kind returns the socket family of the stream
func (s *Stream) Kind() Kind {
	return s.ref.kind
}

// --------------------------------------------------------------------------
// Poll Operations (docu see package doc)
// --------------------------------------------------------------------------

// PollRead attempts one read into p. It returns the byte count on success
// (0 means the peer closed the stream) or ErrPending after registering w.
func (s *Stream) PollRead(w reactor.Waker, p []byte) (int, error) {
	if s.detached.Load() {
		return 0, ErrClosed
	}
	return s.ref.pollRead(w, p)
}

// PollWrite attempts one write of p. It returns the number of bytes accepted
// (possibly fewer than len(p)) or ErrPending after registering w.
func (s *Stream) PollWrite(w reactor.Waker, p []byte) (int, error) {
	if s.detached.Load() {
		return 0, ErrClosed
	}
	return s.ref.pollWrite(w, p)
}

// PollFlush always completes, stream sockets buffer nothing in user space
func (s *Stream) PollFlush(reactor.Waker) error {
	return nil
}

// PollClose completes like PollFlush. The descriptor itself is released by Close.
func (s *Stream) PollClose(w reactor.Waker) error {
	return s.PollFlush(w)
}

// --------------------------------------------------------------------------
// Blocking Helpers
// --------------------------------------------------------------------------

// ReadContext reads at least one byte into p, parking the goroutine until the
// socket is readable or ctx is done. It returns io.EOF when the peer closed.
func (s *Stream) ReadContext(ctx context.Context, p []byte) (int, error) {
	if s.detached.Load() {
		return 0, ErrClosed
	}
	return s.ref.readContext(ctx, s.readWaker, p)
}

// WriteContext writes all of p, parking the goroutine while the socket buffer is full
func (s *Stream) WriteContext(ctx context.Context, p []byte) (int, error) {
	if s.detached.Load() {
		return 0, ErrClosed
	}
	return s.ref.writeContext(ctx, s.writeWaker, p)
}

// Read implements io.Reader
func (s *Stream) Read(p []byte) (int, error) {
	return s.ReadContext(context.Background(), p)
}

// Write implements io.Writer
func (s *Stream) Write(p []byte) (int, error) {
	return s.WriteContext(context.Background(), p)
}

// Close releases the descriptor: it is deregistered from the reactor and closed.
// Calling Close more than once is a no-op.
func (s *Stream) Close() error {
	if s.detached.Swap(true) {
		return nil
	}
	return s.ref.release()
}

// Split divides the stream into independently owned read and write halves.
// The stream itself is no longer usable afterwards; the descriptor is released
// when both halves are closed. Splitting a closed or already split stream
// returns ErrClosed.
func (s *Stream) Split() (*ReadHalf, *WriteHalf, error) {
	if s.detached.Swap(true) {
		return nil, nil, ErrClosed
	}

	// the stream's reference moves to the read half
	s.ref.retain()

	return &ReadHalf{ref: s.ref, waker: s.readWaker},
		&WriteHalf{ref: s.ref, waker: s.writeWaker}, nil
}
