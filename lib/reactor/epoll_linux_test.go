//go:build linux

package reactor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// socketPair returns a connected non-blocking unix stream pair closed at test end
func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func newTestReactor(t *testing.T) IReactor {
	t.Helper()
	r, err := NewReactor()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// TestReadWakerFiresOnData verifies a read waker fires once data arrives and only once
func TestReadWakerFiresOnData(t *testing.T) {
	r := newTestReactor(t)
	a, b := socketPair(t)

	var fired atomic.Int32
	require.NoError(t, r.AddReadWaker(a, WakerFunc(func() { fired.Add(1) })))

	// nothing to read yet
	n, err := r.Poll(0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = unix.Write(b, []byte("x"))
	require.NoError(t, err)

	n, err = r.Poll(1000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int32(1), fired.Load())

	// the token is forgotten after firing, even though the data is still unread
	n, err = r.Poll(0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int32(1), fired.Load())
}

// TestWriteWakerFiresWhenWritable verifies write interest on an empty socket buffer fires immediately
func TestWriteWakerFiresWhenWritable(t *testing.T) {
	r := newTestReactor(t)
	a, _ := socketPair(t)

	w := NewChanWaker()
	require.NoError(t, r.AddWriteWaker(a, w))

	n, err := r.Poll(1000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	select {
	case <-w.C():
	default:
		t.Fatal("write waker did not fire")
	}
}

// TestRemainingInterestIsRearmed verifies that firing one direction keeps the other armed
func TestRemainingInterestIsRearmed(t *testing.T) {
	r := newTestReactor(t)
	a, b := socketPair(t)

	readWaker := NewChanWaker()
	writeWaker := NewChanWaker()
	require.NoError(t, r.AddReadWaker(a, readWaker))
	require.NoError(t, r.AddWriteWaker(a, writeWaker))

	// only the write side is ready
	_, err := r.Poll(1000)
	require.NoError(t, err)
	<-writeWaker.C()
	select {
	case <-readWaker.C():
		t.Fatal("read waker fired without data")
	default:
	}

	_, err = unix.Write(b, []byte("ping"))
	require.NoError(t, err)

	_, err = r.Poll(1000)
	require.NoError(t, err)
	select {
	case <-readWaker.C():
	default:
		t.Fatal("read waker was not re-armed")
	}
}

// TestReplacedWakerNeverFires verifies only the most recent token per direction is kept
func TestReplacedWakerNeverFires(t *testing.T) {
	r := newTestReactor(t)
	a, b := socketPair(t)

	first := NewChanWaker()
	second := NewChanWaker()
	require.NoError(t, r.AddReadWaker(a, first))
	require.NoError(t, r.AddReadWaker(a, second))

	_, err := unix.Write(b, []byte("x"))
	require.NoError(t, err)

	n, err := r.Poll(1000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	select {
	case <-first.C():
		t.Fatal("replaced waker fired")
	default:
	}
	<-second.C()
}

// TestDeregisterWakesPending verifies deregistration releases parked owners
func TestDeregisterWakesPending(t *testing.T) {
	r := newTestReactor(t)
	a, _ := socketPair(t)

	w := NewChanWaker()
	require.NoError(t, r.AddReadWaker(a, w))
	require.NoError(t, r.Deregister(a))

	select {
	case <-w.C():
	default:
		t.Fatal("deregister did not wake the pending waker")
	}

	// deregistering twice is harmless
	require.NoError(t, r.Deregister(a))
}

// TestHangupWakesBothDirections verifies peer close is delivered to the read side
func TestHangupWakesBothDirections(t *testing.T) {
	r := newTestReactor(t)
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])

	w := NewChanWaker()
	require.NoError(t, r.AddReadWaker(fds[0], w))
	require.NoError(t, unix.Close(fds[1]))

	_, err = r.Poll(1000)
	require.NoError(t, err)
	select {
	case <-w.C():
	default:
		t.Fatal("hang-up did not wake the reader")
	}
}

// TestRunStopsOnContextCancel verifies Run returns after its context is cancelled
func TestRunStopsOnContextCancel(t *testing.T) {
	r := newTestReactor(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// TestCloseWakesAndRejects verifies Close wakes pending wakers and rejects new registrations
func TestCloseWakesAndRejects(t *testing.T) {
	r, err := NewReactor()
	require.NoError(t, err)
	a, _ := socketPair(t)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	w := NewChanWaker()
	require.NoError(t, r.AddReadWaker(a, w))
	require.NoError(t, r.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	<-w.C()

	assert.ErrorIs(t, r.AddReadWaker(a, NewChanWaker()), ErrClosed)
	_, err = r.Poll(0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, r.Close())
}
