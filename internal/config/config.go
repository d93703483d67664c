package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration when --config is not set.
const DefaultPath = "padget.yaml"

// Config holds all padget configuration.
type Config struct {
	Name string `yaml:"name"`

	// Record store
	Store StoreConfig `yaml:"store"`

	// Change poller
	Sync SyncConfig `yaml:"sync"`

	// HTTP API
	Server ServerConfig `yaml:"server"`

	// Activity log
	History HistoryConfig `yaml:"history"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the JSON record document.
type StoreConfig struct {
	// Path to the JSON document, relative to the working directory.
	Path string `yaml:"path"`
	// Lock guards saves with an advisory lock file next to the document.
	Lock bool `yaml:"lock"`
}

// SyncConfig configures external-change detection.
type SyncConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval"`
	// Watch adds an fsnotify watch so writes are noticed before the next tick.
	Watch    bool   `yaml:"watch"`
	Debounce string `yaml:"debounce"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	// Heartbeat is the SSE ping period.
	Heartbeat string `yaml:"heartbeat"`
}

// HistoryConfig configures the SQLite activity log.
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
	Limit        int    `yaml:"limit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "padget",

		Store: StoreConfig{
			Path: filepath.Join("data", "slides.json"),
			Lock: true,
		},

		Sync: SyncConfig{
			Enabled:  true,
			Interval: "5s",
			Watch:    true,
			Debounce: "250ms",
		},

		Server: ServerConfig{
			Addr:            ":8501",
			ShutdownTimeout: "5s",
			Heartbeat:       "25s",
		},

		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: filepath.Join("data", "history.db"),
			Limit:        50,
		},

		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join("data", "logs"),
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("PADGET_DATA"); path != "" {
		c.Store.Path = path
	}
	if addr := os.Getenv("PADGET_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("PADGET_HISTORY_DB"); path != "" {
		c.History.DatabasePath = path
	}
	if iv := os.Getenv("PADGET_POLL_INTERVAL"); iv != "" {
		c.Sync.Interval = iv
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetPollInterval returns the poll interval as a duration.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.Sync.Interval, 5*time.Second)
}

// GetDebounce returns the watcher debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	return parseDuration(c.Sync.Debounce, 250*time.Millisecond)
}

// GetShutdownTimeout returns the HTTP shutdown grace period.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 5*time.Second)
}

// GetHeartbeat returns the SSE heartbeat period.
func (c *Config) GetHeartbeat() time.Duration {
	return parseDuration(c.Server.Heartbeat, 25*time.Second)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Sync.Enabled {
		if _, err := time.ParseDuration(c.Sync.Interval); err != nil {
			return fmt.Errorf("invalid sync.interval %q: %w", c.Sync.Interval, err)
		}
	}
	if c.History.Enabled && c.History.DatabasePath == "" {
		return fmt.Errorf("history.database_path must be set when history is enabled")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}
	return nil
}
