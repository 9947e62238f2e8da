package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aryankumar/ctxexec/internal/executor"
)

const (
	defaultConfigName = ".ctxexec"
	defaultConfigDir  = ".ctxexec"
	envPrefix         = "CTXEXEC"
)

// Manager handles ctxexec configuration
type Manager struct {
	configPath string
	config     *FileConfig
	viper      *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     &FileConfig{},
	}
}

// Viper exposes the underlying viper instance so callers can bind flags
func (m *Manager) Viper() *viper.Viper {
	return m.viper
}

// Load loads the configuration from file, environment and defaults
func (m *Manager) Load() (*FileConfig, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		// Check ~/.ctxexec/.ctxexec.yaml, then ~/.ctxexec.yaml
		m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
		m.viper.AddConfigPath(home)
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	// CTXEXEC_POOL_MAXPOOLSIZE overrides pool.maxPoolSize
	m.viper.SetEnvPrefix(envPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()
	m.setDefaults()

	m.config = &FileConfig{}

	if err := m.viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	m.applyDefaults()

	return m.config, nil
}

// setDefaults registers viper defaults for keys where zero is a meaningful value
func (m *Manager) setDefaults() {
	def := executor.DefaultConfig()

	m.viper.SetDefault("pool.corePoolSize", def.CorePoolSize)
	m.viper.SetDefault("pool.maxPoolSize", def.MaxPoolSize)
	m.viper.SetDefault("pool.queueCapacity", def.QueueCapacity)
	m.viper.SetDefault("pool.keepAlive", def.KeepAlive)
	m.viper.SetDefault("pool.rejectionPolicy", string(def.RejectionPolicy))
	m.viper.SetDefault("pool.threadNamePrefix", def.ThreadNamePrefix)
	m.viper.SetDefault("pool.propagate", true)
}

// applyDefaults fills values whose zero value is never meaningful
func (m *Manager) applyDefaults() {
	if m.config == nil {
		return
	}

	if m.config.Defaults.Timeout == 0 {
		m.config.Defaults.Timeout = 30 * time.Second
	}

	if m.config.Defaults.OutputFormat == "" {
		m.config.Defaults.OutputFormat = "table"
	}

	if m.config.Probe.Tasks == 0 {
		m.config.Probe.Tasks = 4
	}

	if m.config.Probe.TaskDuration == 0 {
		m.config.Probe.TaskDuration = 20 * time.Millisecond
	}
}

// Path returns the file Save writes to: the explicit path, the file that was
// loaded, or $HOME/.ctxexec.yaml
func (m *Manager) Path() string {
	if m.configPath != "" {
		return m.configPath
	}
	if used := m.viper.ConfigFileUsed(); used != "" {
		return used
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultConfigName + ".yaml"
	}
	return filepath.Join(home, defaultConfigName+".yaml")
}

// Save writes the current configuration to file as YAML
func (m *Manager) Save() error {
	m.configPath = m.Path()

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *FileConfig {
	return m.config
}

// ConfigFileUsed returns the file the configuration was read from, if any
func (m *Manager) ConfigFileUsed() string {
	return m.viper.ConfigFileUsed()
}

// ExecutorConfig converts the pool section into a validated executor.Config
func (m *Manager) ExecutorConfig() (executor.Config, error) {
	return m.config.Pool.ExecutorConfig()
}

// ExecutorConfig converts the file form into a validated executor.Config
func (p PoolConfig) ExecutorConfig() (executor.Config, error) {
	policy, err := executor.ParseRejectionPolicy(p.RejectionPolicy)
	if err != nil {
		return executor.Config{}, err
	}

	cfg := executor.Config{
		CorePoolSize:     p.CorePoolSize,
		MaxPoolSize:      p.MaxPoolSize,
		QueueCapacity:    p.QueueCapacity,
		KeepAlive:        p.KeepAlive,
		RejectionPolicy:  policy,
		ThreadNamePrefix: p.ThreadNamePrefix,
		AllowCoreTimeout: p.AllowCoreTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return executor.Config{}, err
	}
	return cfg, nil
}
