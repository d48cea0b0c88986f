package reactor

// ChanWaker is a Waker backed by a channel with a single slot.
// Multiple wakes before the owner receives collapse into one.
type ChanWaker struct {
	c chan struct{}
}

// NewChanWaker creates a new channel waker
func NewChanWaker() *ChanWaker {
	return &ChanWaker{c: make(chan struct{}, 1)}
}

func (w *ChanWaker) Wake() {
	select {
	case w.c <- struct{}{}:
	default:
	}
}

// C returns the channel that receives a value once the waker fired
func (w *ChanWaker) C() <-chan struct{} {
	return w.c
}

// Reset drops a wakeup that was delivered but not yet consumed
func (w *ChanWaker) Reset() {
	select {
	case <-w.c:
	default:
	}
}

// WakerFunc adapts a plain function to the Waker interface
type WakerFunc func()

func (f WakerFunc) Wake() {
	f()
}
