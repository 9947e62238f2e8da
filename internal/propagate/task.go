package propagate

import (
	"github.com/aryankumar/ctxexec/internal/executor"
	"github.com/aryankumar/ctxexec/internal/reqctx"
)

// capture is the request state taken from the submitting goroutine
type capture struct {
	attrs    reqctx.Attributes
	origin   reqctx.GoroutineID
	registry reqctx.Registry
}

func captureCurrent(registry reqctx.Registry) capture {
	return capture{
		attrs:    registry.Current(),
		origin:   reqctx.CurrentGoroutineID(),
		registry: registry,
	}
}

// install binds the captured attributes to the running goroutine.
// The returned func clears them again unless this is the submitting goroutine.
func (c capture) install() func() {
	if c.attrs != nil {
		c.registry.Set(c.attrs)
	}
	return func() {
		if reqctx.CurrentGoroutineID() != c.origin {
			c.registry.Clear()
		}
	}
}

func (c capture) wrapRunnable(task executor.Runnable) executor.Runnable {
	return func() {
		defer c.install()()
		task()
	}
}

func (c capture) wrapCallable(task executor.Callable) executor.Callable {
	return func() (interface{}, error) {
		defer c.install()()
		return task()
	}
}
