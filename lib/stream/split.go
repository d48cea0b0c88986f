package stream

import (
	"context"
	"sync/atomic"

	"github.com/vmtools/vsh/lib/reactor"
)

// ReadHalf is the read capability of a split stream
type ReadHalf struct {
	ref    *fdRef
	waker  *reactor.ChanWaker
	closed atomic.Bool
}

func (h *ReadHalf) PollRead(w reactor.Waker, p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	return h.ref.pollRead(w, p)
}

func (h *ReadHalf) ReadContext(ctx context.Context, p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	return h.ref.readContext(ctx, h.waker, p)
}

func (h *ReadHalf) Read(p []byte) (int, error) {
	return h.ReadContext(context.Background(), p)
}

func (h *ReadHalf) Kind() Kind {
	return h.ref.kind
}

// Close drops this half's ownership of the descriptor
func (h *ReadHalf) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	return h.ref.release()
}

// WriteHalf is the write capability of a split stream
type WriteHalf struct {
	ref    *fdRef
	waker  *reactor.ChanWaker
	closed atomic.Bool
}

func (h *WriteHalf) PollWrite(w reactor.Waker, p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	return h.ref.pollWrite(w, p)
}

func (h *WriteHalf) PollFlush(reactor.Waker) error {
	return nil
}

func (h *WriteHalf) PollClose(w reactor.Waker) error {
	return h.PollFlush(w)
}

func (h *WriteHalf) WriteContext(ctx context.Context, p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	return h.ref.writeContext(ctx, h.waker, p)
}

func (h *WriteHalf) Write(p []byte) (int, error) {
	return h.WriteContext(context.Background(), p)
}

func (h *WriteHalf) Kind() Kind {
	return h.ref.kind
}

// Close drops this half's ownership of the descriptor
func (h *WriteHalf) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	return h.ref.release()
}
