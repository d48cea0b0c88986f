package util

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOutboxOrder tests that a single producer's values arrive in push order
func TestOutboxOrder(t *testing.T) {
	q := NewOutbox[int]()
	defer q.Close()

	for i := 0; i < 10; i++ {
		require.True(t, q.Push(i))
	}

	for i := 0; i < 10; i++ {
		select {
		case v := <-q.Recv():
			assert.Equal(t, i, v)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for value %d", i)
		}
	}

	// nothing left
	select {
	case v := <-q.Recv():
		t.Fatalf("outbox should be empty, got %v", v)
	case <-time.After(10 * time.Millisecond):
	}
}

// TestOutboxConcurrentProducers verifies every value of every producer is delivered exactly once
func TestOutboxConcurrentProducers(t *testing.T) {
	q := NewOutbox[int]()
	defer q.Close()

	const producers = 8
	const perProducer = 500
	total := producers * perProducer

	received := make(map[int]bool, total)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for len(received) < total {
			select {
			case v := <-q.Recv():
				if received[v] {
					t.Errorf("duplicate value %d", v)
				}
				received[v] = true
			case <-time.After(5 * time.Second):
				t.Errorf("timeout, received %d of %d", len(received), total)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if !q.Push(base + i) {
					t.Errorf("push %d rejected", base+i)
				}
				if i%100 == 0 {
					runtime.Gosched()
				}
			}
		}(p * perProducer)
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("consumer did not finish")
	}
	assert.Len(t, received, total)
}

// TestOutboxCloseDrains verifies values pushed before Close are delivered and Recv is closed afterwards
func TestOutboxCloseDrains(t *testing.T) {
	q := NewOutbox[string]()

	require.True(t, q.Push("ready"))
	require.True(t, q.Push("exited"))
	q.Close()

	assert.True(t, q.IsClosed())
	assert.False(t, q.Push("late"), "push after close must be rejected")

	var got []string
	for v := range q.Recv() {
		got = append(got, v)
	}
	assert.Equal(t, []string{"ready", "exited"}, got)

	select {
	case <-q.Done():
	case <-time.After(time.Second):
		t.Fatal("delivery goroutine did not exit")
	}
}

// TestOutboxCloseWakesIdleConsumer verifies Close releases a consumer blocked on an empty outbox
func TestOutboxCloseWakesIdleConsumer(t *testing.T) {
	q := NewOutbox[int]()

	finished := make(chan struct{})
	go func() {
		for range q.Recv() {
		}
		close(finished)
	}()

	// let the delivery goroutine park
	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("consumer still blocked after close")
	}
}

// TestOutboxLen checks the debugging length helper
func TestOutboxLen(t *testing.T) {
	q := NewOutbox[int]()
	defer q.Close()
	assert.Equal(t, 0, q.Len())

	// nobody is reading, so at most one value can be held by the delivery goroutine
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	assert.Eventually(t, func() bool { return q.Len() == 4 }, time.Second, time.Millisecond)
}

// TestOutboxWakesParkedConsumer pushes single values into an outbox whose consumer parked in between
func TestOutboxWakesParkedConsumer(t *testing.T) {
	q := NewOutbox[int]()
	defer q.Close()

	for i := 0; i < 200; i++ {
		require.Eventually(t, q.parked.Load, time.Second, 50*time.Microsecond, "consumer never parked")
		require.True(t, q.Push(i))

		select {
		case v := <-q.Recv():
			require.Equal(t, i, v)
		case <-time.After(time.Second):
			t.Fatalf("value %d lost while the consumer was parked", i)
		}
	}
}

// TestOutboxPushWithoutLockWhileBusy checks that pushing to a busy consumer never touches its mutex
func TestOutboxPushWithoutLockWhileBusy(t *testing.T) {
	q := NewOutbox[int]()
	defer q.Close()

	// nobody reads, so the delivery goroutine blocks handing out the first value
	require.True(t, q.Push(0))
	require.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, time.Millisecond)
	require.False(t, q.parked.Load())

	q.mu.Lock()
	pushed := make(chan struct{})
	go func() {
		defer close(pushed)
		for i := 1; i <= 100; i++ {
			q.Push(i)
		}
	}()

	var blocked bool
	select {
	case <-pushed:
	case <-time.After(time.Second):
		blocked = true
	}
	q.mu.Unlock()
	require.False(t, blocked, "push waited for the consumer mutex")

	for i := 0; i <= 100; i++ {
		select {
		case v := <-q.Recv():
			assert.Equal(t, i, v)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for value %d", i)
		}
	}
}
