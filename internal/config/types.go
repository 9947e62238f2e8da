package config

import "time"

// FileConfig represents the ctxexec configuration file structure
type FileConfig struct {
	// Pool sizes the worker pool that tasks are submitted to
	Pool PoolConfig `yaml:"pool" json:"pool"`

	// Probe configures the run command
	Probe ProbeConfig `yaml:"probe,omitempty" json:"probe,omitempty"`

	// Defaults contains default settings for output
	Defaults DefaultsConfig `yaml:"defaults,omitempty" json:"defaults,omitempty"`
}

// PoolConfig mirrors executor.Config in file form
type PoolConfig struct {
	CorePoolSize     int           `yaml:"corePoolSize" json:"corePoolSize"`
	MaxPoolSize      int           `yaml:"maxPoolSize" json:"maxPoolSize"`
	QueueCapacity    int           `yaml:"queueCapacity" json:"queueCapacity"`
	KeepAlive        time.Duration `yaml:"keepAlive" json:"keepAlive"`
	RejectionPolicy  string        `yaml:"rejectionPolicy" json:"rejectionPolicy"`
	ThreadNamePrefix string        `yaml:"threadNamePrefix" json:"threadNamePrefix"`
	AllowCoreTimeout bool          `yaml:"allowCoreTimeout" json:"allowCoreTimeout"`

	// Propagate wraps the pool so tasks see the submitter's request attributes
	Propagate bool `yaml:"propagate" json:"propagate"`
}

// ProbeConfig holds defaults for probe runs
type ProbeConfig struct {
	// Tasks is the number of probe tasks submitted per run
	Tasks int `yaml:"tasks,omitempty" json:"tasks,omitempty"`

	// TaskDuration is how long each probe task holds its worker
	TaskDuration time.Duration `yaml:"taskDuration,omitempty" json:"taskDuration,omitempty"`

	// Attributes are bound to the submitting goroutine before a run
	Attributes map[string]string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// DefaultsConfig contains default configuration values
type DefaultsConfig struct {
	// Timeout bounds how long a run waits for its tasks
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// OutputFormat is the default output format (table, json, yaml)
	OutputFormat string `yaml:"outputFormat,omitempty" json:"outputFormat,omitempty"`

	// NoColor disables colored output
	NoColor bool `yaml:"noColor,omitempty" json:"noColor,omitempty"`
}
