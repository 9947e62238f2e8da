// Package reqctx binds request-scoped attributes to goroutines.
//
// Go has no thread-local storage, so a Registry keeps one slot per goroutine
// keyed by goroutine id. A binding made on one goroutine is never visible from
// another; carrying it across a hand-off is the job of package propagate.
//
//	attrs := reqctx.NewAttributes("GET /orders")
//	attrs.SetAttribute("tenant", "acme", reqctx.ScopeRequest)
//	reqctx.Set(attrs)
//	defer reqctx.Reset()
//
// Code that already threads a context.Context can use NewContext and
// FromContext instead.
package reqctx
