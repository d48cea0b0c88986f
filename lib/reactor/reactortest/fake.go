// Package reactortest provides an in-memory registrar for tests that need to
// observe and trigger readiness registrations by hand.
package reactortest

import (
	"sync"

	"github.com/vmtools/vsh/lib/reactor"
)

type key struct {
	fd  int
	dir reactor.Direction
}

// Registration is one recorded AddReadWaker/AddWriteWaker call
type Registration struct {
	Fd  int
	Dir reactor.Direction
}

// FakeReactor implements reactor.IRegistrar without touching the kernel.
// Wakers only fire when the test calls Fire or Deregister.
type FakeReactor struct {
	mu            sync.Mutex
	pending       map[key]reactor.Waker
	registrations []Registration
	deregistered  []int

	// Err is returned by every registration while set
	Err error
}

// NewFakeReactor creates an empty fake reactor
func NewFakeReactor() *FakeReactor {
	return &FakeReactor{pending: make(map[key]reactor.Waker)}
}

func (f *FakeReactor) AddReadWaker(fd int, w reactor.Waker) error {
	return f.add(fd, reactor.DirRead, w)
}

func (f *FakeReactor) AddWriteWaker(fd int, w reactor.Waker) error {
	return f.add(fd, reactor.DirWrite, w)
}

func (f *FakeReactor) Deregister(fd int) error {
	f.mu.Lock()
	var wakers []reactor.Waker
	for k, w := range f.pending {
		if k.fd == fd {
			wakers = append(wakers, w)
			delete(f.pending, k)
		}
	}
	f.deregistered = append(f.deregistered, fd)
	f.mu.Unlock()

	for _, w := range wakers {
		w.Wake()
	}
	return nil
}

// Fire wakes and forgets the waker registered for (fd, dir).
// It reports whether a waker was pending.
func (f *FakeReactor) Fire(fd int, dir reactor.Direction) bool {
	f.mu.Lock()
	w, ok := f.pending[key{fd, dir}]
	delete(f.pending, key{fd, dir})
	f.mu.Unlock()

	if ok {
		w.Wake()
	}
	return ok
}

// Pending reports whether a waker is registered for (fd, dir)
func (f *FakeReactor) Pending(fd int, dir reactor.Direction) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[key{fd, dir}]
	return ok
}

// PendingCount returns the number of outstanding wakers
func (f *FakeReactor) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Registrations returns a copy of every successful registration in call order
func (f *FakeReactor) Registrations() []Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Registration(nil), f.registrations...)
}

// Deregistered returns the descriptors passed to Deregister in call order
func (f *FakeReactor) Deregistered() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.deregistered...)
}

func (f *FakeReactor) add(fd int, dir reactor.Direction, w reactor.Waker) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return f.Err
	}
	f.pending[key{fd, dir}] = w
	f.registrations = append(f.registrations, Registration{Fd: fd, Dir: dir})
	return nil
}
