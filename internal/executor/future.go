package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	futurePending int32 = iota
	futureRunning
	futureDone
)

// Future is the handle returned for a submitted task.
// It completes exactly once with the task's value or error.
type Future struct {
	state atomic.Int32
	done  chan struct{}

	// mu protects value, err and listeners
	mu        sync.Mutex
	value     interface{}
	err       error
	cancelled bool
	listeners []func(*Future)
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// start moves the future to running; false means it was already abandoned
func (f *Future) start() bool {
	return f.state.CompareAndSwap(futurePending, futureRunning)
}

// complete records the outcome of a running task
func (f *Future) complete(value interface{}, err error) {
	if !f.state.CompareAndSwap(futureRunning, futureDone) {
		return
	}
	f.finish(value, err, false)
}

// abandon completes a task that never started
func (f *Future) abandon(err error) bool {
	if !f.state.CompareAndSwap(futurePending, futureDone) {
		return false
	}
	f.finish(nil, err, err == ErrCancelled)
	return true
}

func (f *Future) finish(value interface{}, err error, cancelled bool) {
	f.mu.Lock()
	f.value = value
	f.err = err
	f.cancelled = cancelled
	listeners := f.listeners
	f.listeners = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(f)
	}
}

// Done returns a channel closed when the task has completed
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the task has completed
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get blocks until the task completes or ctx is done
func (f *Future) Get(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.result()
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for task: %w", ctx.Err())
	}
}

// GetTimeout is Get bounded by d
func (f *Future) GetTimeout(d time.Duration) (interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return f.Get(ctx)
}

// Cancel prevents a task that has not started from running.
// It returns false if the task already started or completed.
func (f *Future) Cancel() bool {
	return f.abandon(ErrCancelled)
}

// IsCancelled reports whether Cancel took effect
func (f *Future) IsCancelled() bool {
	if !f.IsDone() {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

func (f *Future) result() (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// addListener runs fn once the future completes, immediately if it already has
func (f *Future) addListener(fn func(*Future)) {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		fn(f)
		return
	default:
	}
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

// ListenableFuture is a Future that accepts completion callbacks
type ListenableFuture struct {
	*Future
}

// AddListener registers fn to run on completion.
// Listeners run on the completing goroutine, or on the caller if already complete.
func (f *ListenableFuture) AddListener(fn func(*Future)) {
	if fn == nil {
		return
	}
	f.addListener(fn)
}

// AddCallback registers success and failure callbacks; either may be nil
func (f *ListenableFuture) AddCallback(onSuccess func(interface{}), onFailure func(error)) {
	f.addListener(func(fut *Future) {
		value, err := fut.result()
		if err != nil {
			if onFailure != nil {
				onFailure(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(value)
		}
	})
}
