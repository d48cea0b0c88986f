// Package reactor translates descriptor readiness into the resumption of suspended
// operations. It is the collaborator the non-blocking stream adapter registers its
// interest with whenever a read or write attempt would block.
//
// The package focuses on:
//   - A minimal registration contract (IRegistrar) consumed by the stream adapter
//   - A full reactor contract (IReactor) for the component that owns the polling loop
//   - A Linux implementation based on epoll(7) with one-shot re-arming
//
// Key Components:
//
//   - Waker: The resumption token. A suspended operation hands a Waker to the
//     reactor, the reactor calls Wake exactly once when the descriptor becomes
//     ready (or is deregistered) and forgets it afterwards.
//
//   - ChanWaker: A Waker backed by a one-slot channel. A goroutine that parks on
//     C() is resumed by Wake without ever blocking the reactor.
//
//   - IRegistrar: AddReadWaker/AddWriteWaker/Deregister. At most one Waker is kept
//     per (descriptor, direction); registering again replaces the previous token,
//     which is then never fired.
//
//   - IReactor: IRegistrar plus Poll (one pass), Run (loop until the context is
//     done or the reactor is closed) and Close.
//
// Linux Implementation:
//
//	The epoll reactor keeps one combined interest mask per descriptor and arms it
//	with EPOLLONESHOT, so a descriptor never produces events nobody waits for.
//	After an event, wakers for the ready directions are fired and any remaining
//	interest is re-armed. Error and hang-up conditions wake both directions so the
//	owners retry their syscall and observe the failure themselves. An eventfd is
//	registered alongside the sockets to interrupt a blocking Poll on Close or
//	when the Run context is cancelled.
//
// Thread Safety:
//
//	Registration methods are safe for concurrent use. Poll and Run must be driven
//	by a single goroutine at a time; concurrent calls are serialized.
package reactor
