package reqctx

import (
	"sort"
	"sync"
)

// Scope selects which attribute space a lookup addresses
type Scope int

const (
	// ScopeRequest holds attributes that live for a single request
	ScopeRequest Scope = iota

	// ScopeSession holds attributes shared across requests of one session
	ScopeSession
)

// String returns the scope name
func (s Scope) String() string {
	switch s {
	case ScopeRequest:
		return "request"
	case ScopeSession:
		return "session"
	default:
		return "unknown"
	}
}

// Attributes is the request-scoped state bound to a goroutine.
// The executor layer never looks inside it; it is captured and replayed as-is.
type Attributes interface {
	// Attribute returns the value stored under name in the given scope
	Attribute(name string, scope Scope) (interface{}, bool)

	// SetAttribute stores value under name in the given scope
	SetAttribute(name string, value interface{}, scope Scope)

	// Names lists attribute names of the given scope in sorted order
	Names(scope Scope) []string
}

// MapAttributes is an in-memory Attributes implementation safe for concurrent use
type MapAttributes struct {
	mu          sync.RWMutex
	scopes      map[Scope]map[string]interface{}
	callbacks   []func()
	completed   bool
	requestName string
}

// NewAttributes creates an empty attribute set labelled with requestName
func NewAttributes(requestName string) *MapAttributes {
	return &MapAttributes{
		scopes:      make(map[Scope]map[string]interface{}),
		requestName: requestName,
	}
}

// RequestName returns the label given at construction
func (a *MapAttributes) RequestName() string {
	return a.requestName
}

// Attribute implements Attributes
func (a *MapAttributes) Attribute(name string, scope Scope) (interface{}, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	values, ok := a.scopes[scope]
	if !ok {
		return nil, false
	}
	v, ok := values[name]
	return v, ok
}

// SetAttribute implements Attributes.
// Writes after RequestCompleted are ignored for the request scope.
func (a *MapAttributes) SetAttribute(name string, value interface{}, scope Scope) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.completed && scope == ScopeRequest {
		return
	}

	values, ok := a.scopes[scope]
	if !ok {
		values = make(map[string]interface{})
		a.scopes[scope] = values
	}
	values[name] = value
}

// Names implements Attributes
func (a *MapAttributes) Names(scope Scope) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	values := a.scopes[scope]
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDestructionCallback adds fn to the callbacks run by RequestCompleted
func (a *MapAttributes) RegisterDestructionCallback(fn func()) {
	if fn == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, fn)
}

// RequestCompleted marks the request as finished, runs destruction callbacks
// once, and drops request-scoped attributes. Session attributes survive.
func (a *MapAttributes) RequestCompleted() {
	a.mu.Lock()
	if a.completed {
		a.mu.Unlock()
		return
	}
	a.completed = true
	callbacks := a.callbacks
	a.callbacks = nil
	delete(a.scopes, ScopeRequest)
	a.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
