// Package config loads editor SDK configuration from a YAML file
// (.blocksecops.yaml in the workspace root), environment variables, and
// programmatic options, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	sdkerrors "github.com/blocksecops/editor-sdk/pkg/errors"
	"github.com/blocksecops/editor-sdk/pkg/shared/severity"
)

// DefaultFileName is the per-workspace config file name.
const DefaultFileName = ".blocksecops.yaml"

// Environment variable names consumed by the invoking layer. The
// normalizer itself reads none of these.
const (
	EnvCLIPath           = "BLOCKSECOPS_CLI_PATH"
	EnvSeverityThreshold = "BLOCKSECOPS_SEVERITY_THRESHOLD"
	EnvAPIURL            = "BLOCKSECOPS_API_URL"
	EnvAPIKey            = "BLOCKSECOPS_API_KEY"
)

// Config holds the final SDK configuration.
type Config struct {
	// CLIPath is the scanner binary path or name.
	CLIPath string `yaml:"cli_path"`

	// ScanTimeout bounds a single scan invocation.
	ScanTimeout time.Duration `yaml:"scan_timeout"`

	// ScanOnSave triggers a file scan on every save event.
	ScanOnSave bool `yaml:"scan_on_save"`

	// SeverityThreshold hides findings below this level in adapters that
	// honor it. Default Hint shows everything.
	SeverityThreshold severity.Level `yaml:"severity_threshold"`

	// HistoryPath is the scan-history SQLite database path; empty
	// disables history.
	HistoryPath string `yaml:"history_path"`

	// APIURL is the BlockSecOps results API base URL; empty disables
	// result submission.
	APIURL string `yaml:"api_url"`

	// APIKey authenticates against the results API.
	APIKey string `yaml:"api_key"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// Default returns the default configuration. History defaults to
// ~/.blocksecops/history.db; when the home directory cannot be resolved
// it stays empty and history is disabled.
func Default() *Config {
	cfg := &Config{
		CLIPath:           "blocksecops",
		ScanTimeout:       60 * time.Second,
		SeverityThreshold: severity.Hint,
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.HistoryPath = filepath.Join(home, ".blocksecops", "history.db")
	}
	return cfg
}

// Option is a function that configures the Config.
type Option func(*Config)

// WithCLIPath sets the scanner binary path.
func WithCLIPath(path string) Option {
	return func(c *Config) { c.CLIPath = path }
}

// WithScanTimeout sets the per-scan timeout.
func WithScanTimeout(d time.Duration) Option {
	return func(c *Config) { c.ScanTimeout = d }
}

// WithScanOnSave enables or disables scan-on-save.
func WithScanOnSave(enabled bool) Option {
	return func(c *Config) { c.ScanOnSave = enabled }
}

// WithSeverityThreshold sets the minimum displayed severity.
func WithSeverityThreshold(level severity.Level) Option {
	return func(c *Config) { c.SeverityThreshold = level }
}

// WithAPI sets the results API endpoint and key.
func WithAPI(url, key string) Option {
	return func(c *Config) {
		c.APIURL = url
		c.APIKey = key
	}
}

// WithVerbose enables debug logging.
func WithVerbose(v bool) Option {
	return func(c *Config) { c.Verbose = v }
}

// Load builds a Config: defaults, then the workspace YAML file (if it
// exists), then environment variables, then options.
func Load(workspaceRoot string, opts ...Option) (*Config, error) {
	cfg := Default()

	if workspaceRoot != "" {
		path := filepath.Join(workspaceRoot, DefaultFileName)
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.CLIPath == "" {
		return nil, sdkerrors.E(sdkerrors.KindInvalidInput, "config.Load", "cli_path must not be empty")
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 60 * time.Second
	}
	return cfg, nil
}

// loadFile merges a YAML config file into the config. A missing file is
// not an error; a malformed one is.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return sdkerrors.E(sdkerrors.KindInvalidInput, "config.Load",
			fmt.Sprintf("malformed config file %s", path), err)
	}
	return nil
}

// applyEnv overrides config values from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvCLIPath); v != "" {
		c.CLIPath = v
	}
	if v := os.Getenv(EnvSeverityThreshold); v != "" {
		c.SeverityThreshold = severity.FromString(v)
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
}
