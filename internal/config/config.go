// Package config holds the client settings, stored as YAML under the
// operator's home directory with environment overrides for the
// secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full client configuration.
type Config struct {
	// Backend connection
	BaseURL  string `yaml:"base_url"`
	APIToken string `yaml:"api_token"`

	// RequestTimeout bounds the batched collection call. Duration
	// string, e.g. "5m".
	RequestTimeout string `yaml:"request_timeout"`

	// PacingDelay is the gap between per-unit deliveries in the UI.
	// Duration string; "0" delivers instantly.
	PacingDelay string `yaml:"pacing_delay"`

	// ReportsDir receives exported CSV files.
	ReportsDir string `yaml:"reports_dir"`
}

// DefaultConfig returns the defaults for a fresh install.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:8000",
		RequestTimeout: "5m",
		PacingDelay:    "150ms",
		ReportsDir:     filepath.Join(baseDir(), "reports"),
	}
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	return filepath.Join(baseDir(), "config.yaml")
}

func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".autolav"
	}
	return filepath.Join(home, ".autolav")
}

// Load reads the config at path, falling back to defaults when the
// file does not exist. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AUTOLAV_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("AUTOLAV_API_TOKEN"); v != "" {
		c.APIToken = v
	}
}

// RequestTimeoutDuration parses RequestTimeout, falling back to 5m.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return parseDuration(c.RequestTimeout, 5*time.Minute)
}

// PacingDelayDuration parses PacingDelay, falling back to 150ms.
func (c *Config) PacingDelayDuration() time.Duration {
	return parseDuration(c.PacingDelay, 150*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	if s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
