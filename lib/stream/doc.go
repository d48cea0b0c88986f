// Package stream implements the non-blocking stream adapter: it takes exclusive
// ownership of one connected Unix-domain or VSOCK stream socket, forces it into
// non-blocking mode and exposes attempt-then-register read and write operations.
//
// The package focuses on:
//   - Poll-style operations that either complete immediately or register a Waker
//     with the reactor and report ErrPending
//   - Blocking-goroutine helpers (ReadContext, WriteContext, io.Reader, io.Writer)
//     that park on a channel waker between attempts
//   - Scoped descriptor ownership: the descriptor is released exactly once, on the
//     last Close of the stream or of both of its split halves
//
// Key Components:
//
//   - Stream: The adapter itself. New takes ownership of a raw descriptor,
//     FromUnixConn and FromVsockConn adopt established net.Conn values, Pair creates
//     a connected unix socket pair.
//
//   - ReadHalf/WriteHalf: Capability-scoped handles created by Stream.Split that
//     share one reference-counted descriptor, so one goroutine can read while
//     another writes.
//
// Poll Contract:
//
//	PollRead and PollWrite perform exactly one syscall attempt (retried only on
//	EINTR). On success they return the transferred byte count, where a zero count
//	from PollRead means the peer closed the stream. On EAGAIN they register the
//	supplied Waker for the matching direction and return ErrPending. A failed
//	registration is returned as *RegisterError and is not retryable; any other
//	failure is returned as *OpError without registering anything. PollFlush and
//	PollClose complete immediately since stream sockets need no flushing.
//
// Thread Safety:
//
//	At most one read and one write operation may be in flight per descriptor.
//	Close may be called concurrently with an operation: the descriptor is only
//	closed once no syscall is using it, and parked operations return ErrClosed.
package stream
