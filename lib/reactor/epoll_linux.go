//go:build linux

package reactor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sys/unix"
)

const (
	defaultMaxEvents = 128

	readEvents  = unix.EPOLLIN | unix.EPOLLRDHUP
	writeEvents = unix.EPOLLOUT
	errEvents   = unix.EPOLLERR | unix.EPOLLHUP
)

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// interest holds the pending wakers of one descriptor
type interest struct {
	read  Waker
	write Waker
	added bool // descriptor is part of the epoll set
}

func (i interest) empty() bool {
	return i.read == nil && i.write == nil
}

func (i interest) mask() uint32 {
	var events uint32 = unix.EPOLLONESHOT
	if i.read != nil {
		events |= readEvents
	}
	if i.write != nil {
		events |= writeEvents
	}
	return events
}

// epollReactor implements IReactor using Linux epoll
type epollReactor struct {
	epfd      int
	evfd      int // eventfd used to interrupt EpollWait
	interests *xsync.MapOf[int, interest]
	events    []unix.EpollEvent
	ready     *queue.Queue // wakers collected during one pass, only touched under pollMu
	pollMu    sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// -----------------------------------------------------------
// Reactor Factory Method
// -----------------------------------------------------------

// NewReactor creates the epoll based reactor
func NewReactor() (IReactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}

	evfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd create: %w", err)
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(evfd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, evfd, &ev); err != nil {
		_ = unix.Close(evfd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add eventfd: %w", err)
	}

	Logger.Debugf("created epoll reactor (epfd=%d, evfd=%d)", epfd, evfd)

	return &epollReactor{
		epfd:      epfd,
		evfd:      evfd,
		interests: xsync.NewMapOf[int, interest](),
		events:    make([]unix.EpollEvent, defaultMaxEvents),
		ready:     queue.New(),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see reactor.IReactor)
// --------------------------------------------------------------------------

func (r *epollReactor) AddReadWaker(fd int, w Waker) error {
	return r.add(fd, DirRead, w)
}

func (r *epollReactor) AddWriteWaker(fd int, w Waker) error {
	return r.add(fd, DirWrite, w)
}

func (r *epollReactor) Deregister(fd int) error {
	old, loaded := r.interests.LoadAndDelete(fd)
	if !loaded {
		return nil
	}

	var err error
	if old.added && !r.closed.Load() {
		if ctlErr := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); ctlErr != nil &&
			!errors.Is(ctlErr, unix.ENOENT) && !errors.Is(ctlErr, unix.EBADF) {
			err = fmt.Errorf("epoll ctl del: %w", ctlErr)
		}
	}

	// parked owners must retry and notice the descriptor is gone
	if old.read != nil {
		old.read.Wake()
	}
	if old.write != nil {
		old.write.Wake()
	}
	return err
}

func (r *epollReactor) Poll(timeoutMs int) (int, error) {
	r.pollMu.Lock()
	defer r.pollMu.Unlock()

	if r.closed.Load() {
		return 0, ErrClosed
	}

	if timeoutMs < 0 {
		timeoutMs = -1
	}

	n, err := unix.EpollWait(r.epfd, r.events, timeoutMs)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil // interrupted by signal
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	for i := 0; i < n; i++ {
		ev := r.events[i]
		fd := int(ev.Fd)

		if fd == r.evfd {
			r.drainEventfd()
			continue
		}

		r.collect(fd, readiness(ev.Events))
	}

	fired := 0
	for r.ready.Length() > 0 {
		r.ready.Remove().(Waker).Wake()
		fired++
	}
	return fired, nil
}

func (r *epollReactor) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, r.interrupt)
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.Poll(-1); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (r *epollReactor) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		r.interrupt()

		// wait for a running Poll to return before the descriptors go away
		r.pollMu.Lock()
		defer r.pollMu.Unlock()

		r.interests.Range(func(fd int, i interest) bool {
			r.interests.Delete(fd)
			if i.read != nil {
				i.read.Wake()
			}
			if i.write != nil {
				i.write.Wake()
			}
			return true
		})

		err = errors.Join(unix.Close(r.evfd), unix.Close(r.epfd))
		Logger.Debugf("closed epoll reactor (epfd=%d)", r.epfd)
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// add stores w for (fd, dir) and (re-)arms the descriptor with the combined mask
func (r *epollReactor) add(fd int, dir Direction, w Waker) error {
	if r.closed.Load() {
		return ErrClosed
	}

	var ctlErr error
	r.interests.Compute(fd, func(old interest, loaded bool) (interest, bool) {
		next := old
		if dir == DirRead {
			next.read = w
		} else {
			next.write = w
		}

		ev := unix.EpollEvent{Events: next.mask(), Fd: int32(fd)}
		if old.added {
			ctlErr = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
		} else {
			ctlErr = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
			if errors.Is(ctlErr, unix.EEXIST) {
				// left behind by a descriptor that was closed without Deregister
				ctlErr = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
			}
		}

		if ctlErr != nil {
			return old, !loaded
		}
		next.added = true
		return next, false
	})

	if ctlErr != nil {
		return fmt.Errorf("epoll ctl fd %d (%s): %w", fd, dir, ctlErr)
	}
	return nil
}

// collect moves the wakers of the ready directions of fd to the ready queue
// and re-arms whatever interest is left
func (r *epollReactor) collect(fd int, ready Direction) {
	r.interests.Compute(fd, func(old interest, loaded bool) (interest, bool) {
		if !loaded {
			return old, true
		}

		next := old
		if ready&DirRead != 0 && next.read != nil {
			r.ready.Add(next.read)
			next.read = nil
		}
		if ready&DirWrite != 0 && next.write != nil {
			r.ready.Add(next.write)
			next.write = nil
		}

		// one-shot disarmed the descriptor
		if !next.empty() {
			ev := unix.EpollEvent{Events: next.mask(), Fd: int32(fd)}
			if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
				Logger.Warningf("failed to re-arm fd %d: %v", fd, err)
				if next.read != nil {
					r.ready.Add(next.read)
				}
				if next.write != nil {
					r.ready.Add(next.write)
				}
				next.read, next.write = nil, nil
			}
		}
		return next, false
	})
}

// interrupt makes a blocking EpollWait return
func (r *epollReactor) interrupt() {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(r.evfd, buf[:])
}

func (r *epollReactor) drainEventfd() {
	var buf [8]byte
	_, _ = unix.Read(r.evfd, buf[:])
}

// readiness converts epoll events to directions, errors wake both sides
func readiness(events uint32) Direction {
	var d Direction
	if events&(readEvents) != 0 {
		d |= DirRead
	}
	if events&writeEvents != 0 {
		d |= DirWrite
	}
	if events&errEvents != 0 {
		d |= DirRead | DirWrite
	}
	return d
}
