package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/panics"
	"k8s.io/apimachinery/pkg/util/wait"
)

// TaskExecutor is the submission surface shared by ThreadPool and its decorators
type TaskExecutor interface {
	Execute(task Runnable) error
	ExecuteTimeout(task Runnable, startTimeout time.Duration) error
	Submit(task Runnable) (*Future, error)
	SubmitCallable(task Callable) (*Future, error)
	SubmitListenable(task Runnable) (*ListenableFuture, error)
	SubmitListenableCallable(task Callable) (*ListenableFuture, error)
}

// queuedTask is a task waiting in, or handed over by, the pool queue
type queuedTask struct {
	call    Callable
	future  *Future
	startBy time.Time
}

func newQueuedTask(call Callable, startTimeout time.Duration) *queuedTask {
	item := &queuedTask{
		call:   call,
		future: newFuture(),
	}
	if startTimeout > 0 {
		item.startBy = time.Now().Add(startTimeout)
	}
	return item
}

func (t *queuedTask) expired(now time.Time) bool {
	return !t.startBy.IsZero() && now.After(t.startBy)
}

// run executes the task body, turning a panic into the future's error
func (t *queuedTask) run() (interface{}, error) {
	var (
		value interface{}
		err   error
		pc    panics.Catcher
	)
	pc.Try(func() {
		value, err = t.call()
	})
	if r := pc.Recovered(); r != nil {
		return nil, r.AsError()
	}
	return value, err
}

// ThreadPool runs tasks on a bounded set of worker goroutines.
// Admission follows core size, then queue, then max size, then the rejection policy.
type ThreadPool struct {
	cfg    Config
	logger *slog.Logger

	// queue carries tasks to idle workers; unbuffered when QueueCapacity is 0
	queue chan *queuedTask

	// mu protects factory, poolSize, largestPoolSize and the shutdown transition.
	// Sends on queue happen under mu so that Shutdown can close it safely.
	mu              sync.Mutex
	factory         ThreadFactory
	poolSize        int
	largestPoolSize int
	shutdown        bool

	// taskHook runs on worker goroutines around every task they take
	taskHook atomic.Pointer[func()]

	initialized atomic.Bool
	active      atomic.Int32
	completed   atomic.Int64
	failed      atomic.Int64
	rejected    atomic.Int64
	callerRan   atomic.Int64
	expired     atomic.Int64
}

// NewThreadPool creates a pool from cfg. Initialize must be called before submitting.
func NewThreadPool(cfg Config, logger *slog.Logger) (*ThreadPool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	policy, _ := ParseRejectionPolicy(string(cfg.RejectionPolicy))
	cfg.RejectionPolicy = policy

	if logger == nil {
		logger = slog.Default()
	}

	return &ThreadPool{
		cfg:     cfg,
		logger:  logger,
		factory: NewDefaultThreadFactory(cfg.ThreadNamePrefix),
	}, nil
}

// Initialize prepares the queue. Calling it more than once is a no-op.
func (p *ThreadPool) Initialize() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized.Load() {
		return
	}
	p.queue = make(chan *queuedTask, p.cfg.QueueCapacity)
	p.initialized.Store(true)

	p.logger.Debug("pool initialized",
		"core", p.cfg.CorePoolSize,
		"max", p.cfg.MaxPoolSize,
		"queue", p.cfg.QueueCapacity,
		"policy", p.cfg.RejectionPolicy)
}

// Config returns the settings the pool was created with
func (p *ThreadPool) Config() Config {
	return p.cfg
}

// SetThreadFactory replaces the factory used for new workers
func (p *ThreadPool) SetThreadFactory(f ThreadFactory) {
	if f == nil {
		f = NewDefaultThreadFactory(p.cfg.ThreadNamePrefix)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.factory = f
}

// ThreadFactory returns the factory used for new workers
func (p *ThreadPool) ThreadFactory() ThreadFactory {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.factory
}

// SetTaskHook installs fn to run on a worker goroutine before it takes its first
// task and after every task it takes, including tasks skipped because they were
// cancelled or missed their start deadline. It never runs for tasks executed on
// the submitting goroutine. A nil fn removes the hook.
func (p *ThreadPool) SetTaskHook(fn func()) {
	if fn == nil {
		p.taskHook.Store(nil)
		return
	}
	p.taskHook.Store(&fn)
}

func (p *ThreadPool) runTaskHook() {
	if fn := p.taskHook.Load(); fn != nil {
		(*fn)()
	}
}

// CreateThread builds an unstarted worker for r through the installed factory
func (p *ThreadPool) CreateThread(r Runnable) *Worker {
	return p.ThreadFactory().NewThread(r)
}

// Execute runs task at some point in the future
func (p *ThreadPool) Execute(task Runnable) error {
	return p.ExecuteTimeout(task, 0)
}

// ExecuteTimeout is Execute with a start deadline.
// A task still queued when startTimeout elapses is skipped. startTimeout <= 0 means no deadline.
func (p *ThreadPool) ExecuteTimeout(task Runnable, startTimeout time.Duration) error {
	if task == nil {
		return fmt.Errorf("task must not be nil")
	}
	_, err := p.submit(runnableCall(task), startTimeout)
	return err
}

// Submit queues task and returns a future completing with a nil value
func (p *ThreadPool) Submit(task Runnable) (*Future, error) {
	if task == nil {
		return nil, fmt.Errorf("task must not be nil")
	}
	return p.submit(runnableCall(task), 0)
}

// SubmitCallable queues task and returns a future completing with its result
func (p *ThreadPool) SubmitCallable(task Callable) (*Future, error) {
	if task == nil {
		return nil, fmt.Errorf("task must not be nil")
	}
	return p.submit(task, 0)
}

// SubmitListenable is Submit returning a future that accepts callbacks
func (p *ThreadPool) SubmitListenable(task Runnable) (*ListenableFuture, error) {
	f, err := p.Submit(task)
	if err != nil {
		return nil, err
	}
	return &ListenableFuture{Future: f}, nil
}

// SubmitListenableCallable is SubmitCallable returning a future that accepts callbacks
func (p *ThreadPool) SubmitListenableCallable(task Callable) (*ListenableFuture, error) {
	f, err := p.SubmitCallable(task)
	if err != nil {
		return nil, err
	}
	return &ListenableFuture{Future: f}, nil
}

func runnableCall(task Runnable) Callable {
	return func() (interface{}, error) {
		task()
		return nil, nil
	}
}

func (p *ThreadPool) submit(call Callable, startTimeout time.Duration) (*Future, error) {
	item := newQueuedTask(call, startTimeout)
	if err := p.admit(item); err != nil {
		return nil, err
	}
	return item.future, nil
}

// admit hands item to a new worker, the queue, or the rejection policy
func (p *ThreadPool) admit(item *queuedTask) error {
	if !p.initialized.Load() {
		p.rejected.Add(1)
		return &RejectedExecutionError{Pool: p.cfg.ThreadNamePrefix, Reason: ErrNotInitialized}
	}

	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		p.rejected.Add(1)
		return &RejectedExecutionError{Pool: p.cfg.ThreadNamePrefix, Reason: ErrShutdown}
	}

	if p.poolSize < p.cfg.CorePoolSize {
		p.addWorkerLocked(item)
		p.mu.Unlock()
		return nil
	}

	select {
	case p.queue <- item:
		if p.poolSize == 0 {
			p.addWorkerLocked(nil)
		}
		p.mu.Unlock()
		p.logger.Debug("task queued", "queued", len(p.queue))
		return nil
	default:
	}

	if p.poolSize < p.cfg.MaxPoolSize {
		p.addWorkerLocked(item)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return p.reject(item)
}

// reject applies the configured rejection policy
func (p *ThreadPool) reject(item *queuedTask) error {
	if p.cfg.RejectionPolicy == CallerRunsPolicy {
		// Shutdown may have happened since admit released mu
		if p.IsShutdown() {
			p.rejected.Add(1)
			return &RejectedExecutionError{Pool: p.cfg.ThreadNamePrefix, Reason: ErrShutdown}
		}
		p.callerRan.Add(1)
		p.logger.Debug("pool saturated, running task on caller")
		p.runTask(item, "caller")
		return nil
	}

	p.rejected.Add(1)

	switch p.cfg.RejectionPolicy {
	case DiscardPolicy:
		p.logger.Warn("pool saturated, discarding task")
		item.future.abandon(ErrDiscarded)
		return nil

	case DiscardOldestPolicy:
		select {
		case oldest, ok := <-p.queue:
			if ok {
				p.logger.Warn("pool saturated, discarding oldest queued task")
				oldest.future.abandon(ErrDiscarded)
				return p.admit(item)
			}
		default:
		}
		p.logger.Warn("pool saturated and nothing queued, discarding task")
		item.future.abandon(ErrDiscarded)
		return nil

	default:
		p.logger.Warn("pool saturated, rejecting task",
			"pool_size", p.PoolSize(),
			"queued", len(p.queue))
		return &RejectedExecutionError{Pool: p.cfg.ThreadNamePrefix, Reason: ErrRejected}
	}
}

// addWorkerLocked starts a worker whose first task is first (may be nil)
func (p *ThreadPool) addWorkerLocked(first *queuedTask) {
	p.poolSize++
	if p.poolSize > p.largestPoolSize {
		p.largestPoolSize = p.poolSize
	}

	var w *Worker
	w = p.factory.NewThread(func() {
		p.runWorker(w.Name, first)
	})
	w.Start()

	p.logger.Debug("worker started", "worker", w.Name, "pool_size", p.poolSize)
}

// runWorker is the body of every worker goroutine
func (p *ThreadPool) runWorker(name string, first *queuedTask) {
	p.runTaskHook()

	if first != nil {
		p.runTask(first, name)
		p.runTaskHook()
	}

	for {
		item, ok := p.take()
		if !ok {
			p.logger.Debug("worker finished", "worker", name)
			return
		}
		p.runTask(item, name)
		p.runTaskHook()
	}
}

// take waits for the next task. It returns false when the worker should exit,
// in which case the worker has already been removed from poolSize.
func (p *ThreadPool) take() (*queuedTask, bool) {
	for {
		if !p.mayTimeOut() {
			item, ok := <-p.queue
			if !ok {
				p.retire()
			}
			return item, ok
		}

		timer := time.NewTimer(p.cfg.KeepAlive)
		select {
		case item, ok := <-p.queue:
			timer.Stop()
			if !ok {
				p.retire()
			}
			return item, ok
		case <-timer.C:
			if p.tryRetireIdle() {
				return nil, false
			}
		}
	}
}

func (p *ThreadPool) mayTimeOut() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.AllowCoreTimeout || p.poolSize > p.cfg.CorePoolSize
}

// tryRetireIdle removes an idle worker if the pool can spare it
func (p *ThreadPool) tryRetireIdle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	spare := p.cfg.AllowCoreTimeout || p.poolSize > p.cfg.CorePoolSize
	// the last worker stays while anything is queued
	if !spare || (p.poolSize == 1 && len(p.queue) > 0) {
		return false
	}
	p.poolSize--
	p.logger.Debug("idle worker retired", "pool_size", p.poolSize)
	return true
}

func (p *ThreadPool) retire() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.poolSize--
}

// runTask executes a single task and completes its future
func (p *ThreadPool) runTask(item *queuedTask, worker string) {
	if item.expired(time.Now()) {
		if !item.future.abandon(ErrStartTimeout) {
			p.logger.Debug("task cancelled before start", "worker", worker)
			return
		}
		p.expired.Add(1)
		p.logger.Warn("task skipped, start deadline passed",
			"worker", worker,
			"deadline", item.startBy,
			"skipped_total", p.expired.Load())
		return
	}

	if !item.future.start() {
		p.logger.Debug("task cancelled before start", "worker", worker)
		return
	}

	p.active.Add(1)
	defer p.active.Add(-1)

	startTime := time.Now()
	value, err := item.run()
	duration := time.Since(startTime)

	p.completed.Add(1)
	if err != nil {
		p.failed.Add(1)
		p.logger.Warn("task failed",
			"worker", worker,
			"error", err,
			"duration", duration)
	} else {
		p.logger.Debug("task succeeded",
			"worker", worker,
			"duration", duration)
	}

	item.future.complete(value, err)
}

// Shutdown stops admission; queued tasks still run
func (p *ThreadPool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown {
		return fmt.Errorf("pool already shut down")
	}
	p.shutdown = true
	if p.initialized.Load() {
		close(p.queue)
	}

	p.logger.Info("shutting down worker pool",
		"pool_size", p.poolSize,
		"queued", len(p.queue))
	return nil
}

// ShutdownNow stops admission and cancels every queued task.
// It returns the number of tasks that were cancelled.
func (p *ThreadPool) ShutdownNow() int {
	p.mu.Lock()
	if !p.shutdown {
		p.shutdown = true
		if p.initialized.Load() {
			close(p.queue)
		}
	}
	p.mu.Unlock()

	if !p.initialized.Load() {
		return 0
	}

	drained := 0
	for item := range p.queue {
		if item.future.abandon(ErrCancelled) {
			drained++
		}
	}

	p.logger.Info("worker pool stopped", "cancelled_tasks", drained)
	return drained
}

// AwaitTermination blocks until every worker has exited after Shutdown, or ctx is done
func (p *ThreadPool) AwaitTermination(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		p.logger.Debug("waiting for workers to exit", "deadline", deadline)
	}

	err := wait.PollUntilContextCancel(ctx, 10*time.Millisecond, true, func(context.Context) (bool, error) {
		return p.IsTerminated(), nil
	})
	if err != nil {
		return fmt.Errorf("shutdown timeout: %w", err)
	}

	p.logger.Info("worker pool shut down successfully")
	return nil
}

// IsShutdown returns true once Shutdown or ShutdownNow was called
func (p *ThreadPool) IsShutdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown
}

// IsTerminated returns true when the pool is shut down and no worker is left
func (p *ThreadPool) IsTerminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown && p.poolSize == 0
}

// PoolSize returns the current number of workers
func (p *ThreadPool) PoolSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.poolSize
}

// ActiveCount returns the number of workers currently running a task
func (p *ThreadPool) ActiveCount() int {
	return int(p.active.Load())
}

// QueueSize returns the number of queued tasks
func (p *ThreadPool) QueueSize() int {
	if !p.initialized.Load() {
		return 0
	}
	return len(p.queue)
}

// Stats returns a snapshot of the pool counters
func (p *ThreadPool) Stats() Stats {
	p.mu.Lock()
	size, largest := p.poolSize, p.largestPoolSize
	p.mu.Unlock()

	return Stats{
		PoolSize:        size,
		LargestPoolSize: largest,
		Active:          p.ActiveCount(),
		Queued:          p.QueueSize(),
		Completed:       p.completed.Load(),
		Failed:          p.failed.Load(),
		Rejected:        p.rejected.Load(),
		CallerRan:       p.callerRan.Load(),
		Expired:         p.expired.Load(),
	}
}

// Stats is a point-in-time view of pool counters
type Stats struct {
	PoolSize        int   `json:"poolSize" yaml:"poolSize"`
	LargestPoolSize int   `json:"largestPoolSize" yaml:"largestPoolSize"`
	Active          int   `json:"active" yaml:"active"`
	Queued          int   `json:"queued" yaml:"queued"`
	Completed       int64 `json:"completed" yaml:"completed"`
	Failed          int64 `json:"failed" yaml:"failed"`
	Rejected        int64 `json:"rejected" yaml:"rejected"`

	// CallerRan counts saturated submissions run on the submitting goroutine
	CallerRan int64 `json:"callerRan" yaml:"callerRan"`

	// Expired counts tasks skipped because their start deadline passed
	Expired int64 `json:"expired" yaml:"expired"`
}

// String returns a one-line summary of the counters
func (s Stats) String() string {
	return fmt.Sprintf("pool=%d largest=%d active=%d queued=%d completed=%d failed=%d rejected=%d caller_ran=%d expired=%d",
		s.PoolSize, s.LargestPoolSize, s.Active, s.Queued, s.Completed, s.Failed, s.Rejected, s.CallerRan, s.Expired)
}
