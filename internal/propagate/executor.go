package propagate

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryankumar/ctxexec/internal/executor"
	"github.com/aryankumar/ctxexec/internal/reqctx"
)

// Executor decorates a ThreadPool so that every task runs with the request
// attributes its submitter had at submission time.
//
// After the task the attributes are cleared from the worker, except when the
// task ran on the submitting goroutine itself (CallerRunsPolicy), whose
// attributes are left alone.
type Executor struct {
	pool     *executor.ThreadPool
	threads  executor.ThreadFactory
	registry reqctx.Registry
	logger   *slog.Logger
}

var (
	_ executor.TaskExecutor  = (*Executor)(nil)
	_ executor.ThreadFactory = (*Executor)(nil)
)

// Option configures an Executor
type Option func(*Executor)

// WithRegistry selects the registry attributes are captured from and installed into
func WithRegistry(r reqctx.Registry) Option {
	return func(e *Executor) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New wraps pool. It installs itself as the pool's ThreadFactory, delegating
// worker creation to the factory that was installed before, and sets the
// pool's task hook so a worker goroutine holds no binding between tasks.
// Tasks submitted directly to the pool therefore still see nothing.
func New(pool *executor.ThreadPool, opts ...Option) *Executor {
	e := &Executor{
		pool:     pool,
		threads:  pool.ThreadFactory(),
		registry: reqctx.Default(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	pool.SetThreadFactory(e)
	pool.SetTaskHook(e.registry.Clear)
	return e
}

func (e *Executor) capture() capture {
	c := captureCurrent(e.registry)
	e.logger.Debug("captured request context",
		"goroutine", c.origin,
		"present", c.attrs != nil)
	return c
}

func (e *Executor) runnable(task executor.Runnable) executor.Runnable {
	if task == nil {
		return nil
	}
	return e.capture().wrapRunnable(task)
}

func (e *Executor) callable(task executor.Callable) executor.Callable {
	if task == nil {
		return nil
	}
	return e.capture().wrapCallable(task)
}

// Execute implements executor.TaskExecutor
func (e *Executor) Execute(task executor.Runnable) error {
	return e.pool.Execute(e.runnable(task))
}

// ExecuteTimeout implements executor.TaskExecutor; startTimeout is passed through unchanged
func (e *Executor) ExecuteTimeout(task executor.Runnable, startTimeout time.Duration) error {
	return e.pool.ExecuteTimeout(e.runnable(task), startTimeout)
}

// Submit implements executor.TaskExecutor
func (e *Executor) Submit(task executor.Runnable) (*executor.Future, error) {
	return e.pool.Submit(e.runnable(task))
}

// SubmitCallable implements executor.TaskExecutor
func (e *Executor) SubmitCallable(task executor.Callable) (*executor.Future, error) {
	return e.pool.SubmitCallable(e.callable(task))
}

// SubmitListenable implements executor.TaskExecutor
func (e *Executor) SubmitListenable(task executor.Runnable) (*executor.ListenableFuture, error) {
	return e.pool.SubmitListenable(e.runnable(task))
}

// SubmitListenableCallable implements executor.TaskExecutor
func (e *Executor) SubmitListenableCallable(task executor.Callable) (*executor.ListenableFuture, error) {
	return e.pool.SubmitListenableCallable(e.callable(task))
}

// NewThread implements executor.ThreadFactory. The pool calls it on the
// goroutine whose submission caused a worker to be created.
func (e *Executor) NewThread(r executor.Runnable) *executor.Worker {
	return e.threads.NewThread(e.runnable(r))
}

// CreateThread builds an unstarted worker running r with the caller's attributes
func (e *Executor) CreateThread(r executor.Runnable) *executor.Worker {
	return e.NewThread(r)
}

// Shutdown stops the underlying pool from accepting tasks
func (e *Executor) Shutdown() error {
	return e.pool.Shutdown()
}

// ShutdownNow stops the underlying pool and cancels queued tasks
func (e *Executor) ShutdownNow() int {
	return e.pool.ShutdownNow()
}

// AwaitTermination waits for the underlying pool's workers to exit
func (e *Executor) AwaitTermination(ctx context.Context) error {
	return e.pool.AwaitTermination(ctx)
}

// Stats returns the underlying pool's counters
func (e *Executor) Stats() executor.Stats {
	return e.pool.Stats()
}

// Unwrap returns the decorated pool
func (e *Executor) Unwrap() *executor.ThreadPool {
	return e.pool
}
