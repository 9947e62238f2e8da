package executor

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/aryankumar/ctxexec/internal/util"
)

// RejectionPolicy decides what happens to a task the pool cannot accept
type RejectionPolicy string

const (
	// AbortPolicy returns a *RejectedExecutionError to the submitter
	AbortPolicy RejectionPolicy = "abort"

	// CallerRunsPolicy runs the task synchronously on the submitting goroutine
	CallerRunsPolicy RejectionPolicy = "caller-runs"

	// DiscardPolicy drops the task; its future completes with ErrDiscarded
	DiscardPolicy RejectionPolicy = "discard"

	// DiscardOldestPolicy drops the oldest queued task and retries the submission
	DiscardOldestPolicy RejectionPolicy = "discard-oldest"
)

// ParseRejectionPolicy converts a config string into a RejectionPolicy.
// An empty string selects AbortPolicy.
func ParseRejectionPolicy(s string) (RejectionPolicy, error) {
	switch RejectionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", AbortPolicy:
		return AbortPolicy, nil
	case CallerRunsPolicy, "callerruns", "caller_runs":
		return CallerRunsPolicy, nil
	case DiscardPolicy:
		return DiscardPolicy, nil
	case DiscardOldestPolicy, "discardoldest", "discard_oldest":
		return DiscardOldestPolicy, nil
	default:
		return "", util.NewValidationError("rejectionPolicy", s,
			"must be one of abort, caller-runs, discard, discard-oldest")
	}
}

// Config holds the sizing and policy settings of a ThreadPool
type Config struct {
	// CorePoolSize is the number of workers kept alive even when idle
	CorePoolSize int `yaml:"corePoolSize" json:"corePoolSize"`

	// MaxPoolSize caps the number of workers
	MaxPoolSize int `yaml:"maxPoolSize" json:"maxPoolSize"`

	// QueueCapacity bounds the task queue; 0 means direct hand-off to an idle worker
	QueueCapacity int `yaml:"queueCapacity" json:"queueCapacity"`

	// KeepAlive is how long a surplus worker waits for work before exiting
	KeepAlive time.Duration `yaml:"keepAlive" json:"keepAlive"`

	// RejectionPolicy is applied when the queue is full and MaxPoolSize is reached
	RejectionPolicy RejectionPolicy `yaml:"rejectionPolicy" json:"rejectionPolicy"`

	// ThreadNamePrefix prefixes generated worker names
	ThreadNamePrefix string `yaml:"threadNamePrefix" json:"threadNamePrefix"`

	// AllowCoreTimeout lets core workers exit after KeepAlive as well
	AllowCoreTimeout bool `yaml:"allowCoreTimeout" json:"allowCoreTimeout"`
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		CorePoolSize:     1,
		MaxPoolSize:      runtime.NumCPU(),
		QueueCapacity:    100,
		KeepAlive:        60 * time.Second,
		RejectionPolicy:  AbortPolicy,
		ThreadNamePrefix: "ctxexec-worker-",
	}
}

// Validate checks the config for inconsistent values
func (c Config) Validate() error {
	if c.CorePoolSize < 0 {
		return util.NewValidationError("corePoolSize", c.CorePoolSize, "must be >= 0")
	}
	if c.MaxPoolSize <= 0 {
		return util.NewValidationError("maxPoolSize", c.MaxPoolSize, "must be > 0")
	}
	if c.MaxPoolSize < c.CorePoolSize {
		return util.NewValidationError("maxPoolSize", c.MaxPoolSize,
			fmt.Sprintf("must be >= corePoolSize (%d)", c.CorePoolSize))
	}
	if c.QueueCapacity < 0 {
		return util.NewValidationError("queueCapacity", c.QueueCapacity, "must be >= 0")
	}
	if c.KeepAlive < 0 {
		return util.NewValidationError("keepAlive", c.KeepAlive, "must be >= 0")
	}
	if _, err := ParseRejectionPolicy(string(c.RejectionPolicy)); err != nil {
		return err
	}
	return nil
}
