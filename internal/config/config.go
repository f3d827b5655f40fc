// Package config loads daemon-level operational settings. Layouts and
// their tuning are not user-configurable (spec.md section 1 Non-goals), so
// this surface is deliberately narrow: logging, IPC, metrics and a debug
// escape hatch for the discovery interval.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tilewm/internal/runtimepath"
)

// Config holds every daemon operational setting. Zero-value fields are
// filled by Default before validation.
type Config struct {
	LogLevel string `yaml:"log_level"`

	IPC struct {
		SocketPath string `yaml:"socket_path"`
	} `yaml:"ipc"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Listen  string `yaml:"listen"`
	} `yaml:"metrics"`

	Discovery struct {
		DebugInterval time.Duration `yaml:"debug_interval"`
	} `yaml:"discovery"`
}

// Default returns the configuration used when no file is present. The IPC
// socket path is left blank; callers resolve it lazily via
// runtimepath.SocketPath since it depends on the environment at run time.
func Default() *Config {
	cfg := &Config{LogLevel: "info"}
	cfg.Metrics.Enabled = true
	cfg.Metrics.Listen = "127.0.0.1:9891"
	return cfg
}

// DefaultConfigPath returns the standard per-user config file location.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", runtimepath.ProductName, "config.yaml"), nil
}

// Load reads the configuration from the standard location, falling back to
// Default when the file does not exist.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads and validates a configuration file at path. A missing
// file is not an error: Default is returned instead.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// ResolveSocketPath returns the configured IPC socket override, or the
// runtime-directory default when none was set.
func (c *Config) ResolveSocketPath() (string, error) {
	if c.IPC.SocketPath != "" {
		return c.IPC.SocketPath, nil
	}
	return runtimepath.SocketPath()
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q: must be debug, info, warn or error", c.LogLevel)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen must be set when metrics.enabled is true")
	}
	if c.Discovery.DebugInterval < 0 {
		return fmt.Errorf("discovery.debug_interval must not be negative")
	}
	return nil
}
