// Package executor provides a worker pool with thread-pool-executor semantics.
//
// Tasks are admitted in a fixed order: while fewer than CorePoolSize workers
// exist a new worker is started for the task; otherwise the task is offered to
// the queue; if the queue is full and fewer than MaxPoolSize workers exist a new
// worker is started; otherwise the RejectionPolicy decides.
//
// # Basic Usage
//
//	pool, err := executor.NewThreadPool(executor.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	pool.Initialize()
//
//	future, err := pool.SubmitCallable(func() (interface{}, error) {
//	    return "done", nil
//	})
//	if err != nil {
//	    return err // rejected
//	}
//	value, err := future.Get(ctx)
//
// # Queue Capacity
//
// A QueueCapacity of 0 turns the queue into a direct hand-off: a task is only
// queued if an idle worker is waiting for it right now.
//
// # Rejection Policies
//
//   - AbortPolicy: the submission returns a *RejectedExecutionError
//   - CallerRunsPolicy: the task runs on the submitting goroutine before the call returns
//   - DiscardPolicy: the task is dropped and its future completes with ErrDiscarded
//   - DiscardOldestPolicy: the oldest queued task is dropped and the submission retried
//
// A pool that has been shut down rejects every submission with ErrShutdown.
//
// # Thread Factory
//
// Workers are created through a ThreadFactory. Decorators install their own
// factory with SetThreadFactory to observe or wrap worker bodies.
//
// # Error Handling
//
// Task errors and panics never stop a worker. They are recorded on the task's
// Future and counted in Stats:
//
//	if _, err := future.Get(ctx); err != nil {
//	    log.Printf("task failed: %v", err)
//	}
//
// # Graceful Shutdown
//
//	pool.Shutdown()
//	if err := pool.AwaitTermination(shutdownCtx); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
package executor
