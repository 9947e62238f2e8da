package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected indicates the pool refused a task
	ErrRejected = errors.New("task rejected")

	// ErrShutdown indicates the pool no longer accepts tasks
	ErrShutdown = errors.New("pool is shut down")

	// ErrNotInitialized indicates Initialize was not called
	ErrNotInitialized = errors.New("pool is not initialized")

	// ErrDiscarded is the outcome of a task dropped by a discard policy
	ErrDiscarded = errors.New("task discarded")

	// ErrStartTimeout is the outcome of a task that did not start before its deadline
	ErrStartTimeout = errors.New("task did not start before its deadline")

	// ErrCancelled is the outcome of a task cancelled before it started
	ErrCancelled = errors.New("task cancelled")
)

// RejectedExecutionError is returned by submission methods when a task cannot be accepted
type RejectedExecutionError struct {
	// Pool is the thread name prefix of the rejecting pool
	Pool string

	// Reason is ErrRejected, ErrShutdown or ErrNotInitialized
	Reason error
}

// Error implements the error interface
func (e *RejectedExecutionError) Error() string {
	return fmt.Sprintf("pool %q rejected task: %v", e.Pool, e.Reason)
}

// Unwrap returns both the generic rejection sentinel and the specific reason
func (e *RejectedExecutionError) Unwrap() []error {
	if errors.Is(e.Reason, ErrRejected) {
		return []error{e.Reason}
	}
	return []error{ErrRejected, e.Reason}
}

// IsRejected reports whether err is a pool rejection
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}
