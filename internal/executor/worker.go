package executor

import (
	"fmt"
	"sync/atomic"
)

// Runnable is a task that produces no result
type Runnable func()

// Callable is a task that produces a value or an error
type Callable func() (interface{}, error)

// ThreadFactory creates the goroutines a pool runs its workers on.
// Implementations must not call back into the pool.
type ThreadFactory interface {
	NewThread(r Runnable) *Worker
}

// Worker is a goroutine that has been created but not necessarily started
type Worker struct {
	// Name identifies the worker in logs
	Name string

	run     Runnable
	started atomic.Bool
	done    chan struct{}
}

// NewWorker creates a worker that will execute r once started
func NewWorker(name string, r Runnable) *Worker {
	return &Worker{
		Name: name,
		run:  r,
		done: make(chan struct{}),
	}
}

// Start launches the worker goroutine. Calling Start twice is a no-op.
func (w *Worker) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(w.done)
		if w.run != nil {
			w.run()
		}
	}()
}

// Done returns a channel closed when the worker goroutine has returned
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// DefaultThreadFactory names workers with a prefix and a sequence number
type DefaultThreadFactory struct {
	prefix string
	seq    atomic.Int64
}

// NewDefaultThreadFactory creates a factory producing workers named prefix1, prefix2, ...
func NewDefaultThreadFactory(prefix string) *DefaultThreadFactory {
	return &DefaultThreadFactory{prefix: prefix}
}

// NewThread implements ThreadFactory
func (f *DefaultThreadFactory) NewThread(r Runnable) *Worker {
	return NewWorker(fmt.Sprintf("%s%d", f.prefix, f.seq.Add(1)), r)
}
