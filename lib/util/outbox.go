// Package util provides a lock-free multi-producer single-consumer outbox.
//
// The outbox decouples the goroutines that decide what to send on a connection
// from the single goroutine that owns the write side of that connection, so a
// direction never has more than one frame operation in flight.
//
// Features and Guarantees:
//
//   - Lock-Free writes: producers append with CAS on the tail. A producer only takes
//     the consumer's mutex to wake it when it is parked on an empty outbox
//   - Unbounded Size: the outbox grows as needed, limited only by available memory
//   - Single Consumer: values are handed out through one channel (Recv)
//   - Drain on Close: values pushed before Close are still delivered, then Recv is closed
//   - Producer Order: values pushed by one producer arrive in the order it pushed them;
//     values of different producers interleave in CAS order
package util

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// entry is a single linked list element
type entry[T any] struct {
	value T
	next  atomic.Pointer[entry[T]]
}

// Outbox is a lock-free multi-producer single-consumer queue
type Outbox[T any] struct {
	head   atomic.Pointer[entry[T]]
	tail   atomic.Pointer[entry[T]]
	out    chan T
	closed atomic.Bool
	done   chan struct{}

	// parks the consumer while the list is empty
	mu     sync.Mutex
	cond   *sync.Cond
	parked atomic.Bool
}

// NewOutbox creates an outbox and starts its delivery goroutine
func NewOutbox[T any]() *Outbox[T] {
	sentinel := &entry[T]{}

	q := &Outbox[T]{
		out:  make(chan T),
		done: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	go q.deliver()

	return q
}

// Push appends value. It returns false once the outbox is closed.
// Safe for concurrent use.
func (q *Outbox[T]) Push(value T) bool {
	if q.closed.Load() {
		return false
	}

	e := &entry[T]{value: value}

	var spins uint8
	for {
		tail := q.tail.Load()
		next := tail.next.Load()

		if next == nil {
			if tail.next.CompareAndSwap(nil, e) {
				// another producer may already have advanced the tail
				q.tail.CompareAndSwap(tail, e)
				if q.parked.Load() {
					q.signal()
				}
				return true
			}
		} else {
			// help a producer that linked its entry but did not move the tail yet
			q.tail.CompareAndSwap(tail, next)
		}

		// spin briefly under contention, then yield
		if spins < 10 {
			spins++
			for i := 0; i < 1<<spins; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// Recv returns the channel the consumer reads from.
// It is closed after Close once every pushed value was delivered.
func (q *Outbox[T]) Recv() <-chan T {
	return q.out
}

// Done is closed when the delivery goroutine has exited
func (q *Outbox[T]) Done() <-chan struct{} {
	return q.done
}

// Close rejects further pushes. Values already pushed are still delivered.
// A Push running concurrently with Close may or may not be accepted.
func (q *Outbox[T]) Close() {
	q.closed.Store(true)
	q.signal()
}

// IsClosed returns true if the outbox is closed
func (q *Outbox[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns an approximate number of undelivered values. O(n), debugging only.
func (q *Outbox[T]) Len() int {
	count := 0
	for e := q.head.Load().next.Load(); e != nil; e = e.next.Load() {
		count++
	}
	return count
}

// signal wakes the consumer. Taking mu orders the signal after the consumer's
// emptiness check, so a wakeup can not slip in between the check and Wait.
// The consumer raises parked before that check and a producer reads it after
// linking its entry, so either the consumer sees the entry or the producer
// sees the flag.
func (q *Outbox[T]) signal() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// deliver moves values from the list to the out channel until closed and empty
func (q *Outbox[T]) deliver() {
	defer close(q.done)
	defer close(q.out)

	var zero T
	for {
		delivered := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			delivered = true

			value := next.value
			q.head.Store(next)
			q.out <- value

			// release the reference held by the new sentinel
			next.value = zero
		}

		if !delivered && q.closed.Load() {
			// a push may have linked its entry right before the close
			if q.head.Load().next.Load() == nil {
				return
			}
			continue
		}

		if !delivered {
			q.mu.Lock()
			q.parked.Store(true)
			if q.head.Load().next.Load() == nil && !q.closed.Load() {
				q.cond.Wait()
			}
			q.parked.Store(false)
			q.mu.Unlock()
		}
	}
}
