package reqctx

import (
	"context"
	"errors"
	"sync"

	"github.com/petermattis/goid"
)

// ErrNoRequestContext is returned when a goroutine has no attributes bound
var ErrNoRequestContext = errors.New("no request context bound to current goroutine")

// GoroutineID identifies a goroutine. It is only ever compared for equality.
type GoroutineID int64

// CurrentGoroutineID returns the identity of the calling goroutine
func CurrentGoroutineID() GoroutineID {
	return GoroutineID(goid.Get())
}

// Registry binds Attributes to the calling goroutine.
// Implementations must not make a binding visible to any other goroutine.
type Registry interface {
	// Current returns the attributes bound to the calling goroutine, or nil
	Current() Attributes

	// Set binds attrs to the calling goroutine, replacing any previous binding
	Set(attrs Attributes)

	// Clear removes the binding of the calling goroutine
	Clear()
}

// GoroutineRegistry is a Registry with one slot per goroutine
type GoroutineRegistry struct {
	// mu guards slots; each goroutine only touches its own key
	mu    sync.RWMutex
	slots map[GoroutineID]Attributes
}

// NewGoroutineRegistry creates an empty registry
func NewGoroutineRegistry() *GoroutineRegistry {
	return &GoroutineRegistry{
		slots: make(map[GoroutineID]Attributes),
	}
}

// Current implements Registry
func (r *GoroutineRegistry) Current() Attributes {
	id := CurrentGoroutineID()

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slots[id]
}

// Set implements Registry. Setting nil is the same as Clear.
func (r *GoroutineRegistry) Set(attrs Attributes) {
	if attrs == nil {
		r.Clear()
		return
	}

	id := CurrentGoroutineID()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[id] = attrs
}

// Clear implements Registry
func (r *GoroutineRegistry) Clear() {
	id := CurrentGoroutineID()

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, id)
}

// Len returns the number of goroutines that currently hold a binding
func (r *GoroutineRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

var defaultRegistry = NewGoroutineRegistry()

// Default returns the process-wide registry used by the package-level helpers
func Default() *GoroutineRegistry {
	return defaultRegistry
}

// Current returns the attributes bound to the calling goroutine in the default registry
func Current() Attributes {
	return defaultRegistry.Current()
}

// MustCurrent is like Current but fails when nothing is bound
func MustCurrent() (Attributes, error) {
	attrs := defaultRegistry.Current()
	if attrs == nil {
		return nil, ErrNoRequestContext
	}
	return attrs, nil
}

// Set binds attrs to the calling goroutine in the default registry
func Set(attrs Attributes) {
	defaultRegistry.Set(attrs)
}

// Reset clears the calling goroutine's binding in the default registry
func Reset() {
	defaultRegistry.Clear()
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying attrs
func NewContext(ctx context.Context, attrs Attributes) context.Context {
	return context.WithValue(ctx, contextKey{}, attrs)
}

// FromContext returns the attributes carried by ctx, if any
func FromContext(ctx context.Context) (Attributes, bool) {
	if ctx == nil {
		return nil, false
	}
	attrs, ok := ctx.Value(contextKey{}).(Attributes)
	return attrs, ok && attrs != nil
}
