// Package propagate carries request attributes from a submitting goroutine to
// the pool worker that runs its task.
//
//	pool, _ := executor.NewThreadPool(cfg, logger)
//	pool.Initialize()
//	exec := propagate.New(pool)
//
//	reqctx.Set(attrs)
//	future, err := exec.Submit(func() {
//	    attrs := reqctx.Current() // same attrs, on a worker goroutine
//	})
//
// Attributes are captured when the task is submitted, installed on the worker
// right before the task body, and cleared in a deferred call afterwards. The
// clear is skipped when the worker goroutine is the submitting goroutine, which
// happens when CallerRunsPolicy runs a rejected task inline.
package propagate
