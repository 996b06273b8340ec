// Package config loads notectl configuration from .notectl.yaml and
// resolves the corpus root.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the per-corpus configuration file looked up at the
// corpus root.
const ConfigFileName = ".notectl.yaml"

// CheckConfig configures the fidelity checker.
type CheckConfig struct {
	// Strict promotes warnings to errors
	Strict bool `yaml:"strict"`

	// GoldenDir is where recorded golden outputs live, relative to the corpus root
	GoldenDir string `yaml:"golden_dir"`

	// RunnableLanguages overrides which fence languages require transcripts
	RunnableLanguages []string `yaml:"runnable_languages"`

	// DisabledRules lists rule names to skip
	DisabledRules []string `yaml:"disabled_rules"`
}

// IndexConfig configures the SQLite page index.
type IndexConfig struct {
	// DBPath is the index database path, relative to the corpus root
	DBPath string `yaml:"db_path"`

	// KeepRunsDays is how long check-run history is retained
	KeepRunsDays int `yaml:"keep_runs_days"`
}

// Config holds the notectl configuration options.
type Config struct {
	// CorpusDir is the directory containing the Markdown pages
	CorpusDir string `yaml:"corpus_dir"`

	// LogLevel sets logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is where run logs are written
	LogDir string `yaml:"log_dir"`

	// MaxWorkers bounds concurrent page checking (0 = one per CPU)
	MaxWorkers int `yaml:"max_workers"`

	// WatchDebounce is how long the watcher coalesces change events
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// RegistryStrategy selects the live-page registry locking strategy:
	// "coarse" (default) or "fine"
	RegistryStrategy string `yaml:"registry_strategy"`

	// Check contains fidelity checker configuration
	Check CheckConfig `yaml:"check"`

	// Index contains page index configuration
	Index IndexConfig `yaml:"index"`
}

// DefaultConfig returns a Config with the defaults the CLI runs with when no
// .notectl.yaml is present.
func DefaultConfig() *Config {
	return &Config{
		CorpusDir:        "docs",
		LogLevel:         "info",
		LogDir:           ".notectl/logs",
		MaxWorkers:       0,
		WatchDebounce:    250 * time.Millisecond,
		RegistryStrategy: "coarse",
		Check: CheckConfig{
			Strict:    false,
			GoldenDir: "testdata/golden",
		},
		Index: IndexConfig{
			DBPath:       ".notectl/index.db",
			KeepRunsDays: 90,
		},
	}
}

// LoadConfig loads configuration from path, merging file values over the
// defaults. A missing file is not an error; a malformed one is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Durations arrive as strings in YAML, so unmarshal through an
	// intermediate shape and merge non-zero values over the defaults.
	type yamlConfig struct {
		CorpusDir        string      `yaml:"corpus_dir"`
		LogLevel         string      `yaml:"log_level"`
		LogDir           string      `yaml:"log_dir"`
		MaxWorkers       int         `yaml:"max_workers"`
		WatchDebounce    string      `yaml:"watch_debounce"`
		RegistryStrategy string      `yaml:"registry_strategy"`
		Check            CheckConfig `yaml:"check"`
		Index            IndexConfig `yaml:"index"`
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if yc.CorpusDir != "" {
		cfg.CorpusDir = yc.CorpusDir
	}
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.LogDir != "" {
		cfg.LogDir = yc.LogDir
	}
	if yc.MaxWorkers != 0 {
		cfg.MaxWorkers = yc.MaxWorkers
	}
	if yc.WatchDebounce != "" {
		debounce, err := time.ParseDuration(yc.WatchDebounce)
		if err != nil {
			return nil, fmt.Errorf("invalid watch_debounce %q: %w", yc.WatchDebounce, err)
		}
		cfg.WatchDebounce = debounce
	}
	if yc.RegistryStrategy != "" {
		if yc.RegistryStrategy != "coarse" && yc.RegistryStrategy != "fine" {
			return nil, fmt.Errorf("invalid registry_strategy %q (want coarse or fine)", yc.RegistryStrategy)
		}
		cfg.RegistryStrategy = yc.RegistryStrategy
	}
	if yc.Check.Strict {
		cfg.Check.Strict = true
	}
	if yc.Check.GoldenDir != "" {
		cfg.Check.GoldenDir = yc.Check.GoldenDir
	}
	if len(yc.Check.RunnableLanguages) > 0 {
		cfg.Check.RunnableLanguages = yc.Check.RunnableLanguages
	}
	if len(yc.Check.DisabledRules) > 0 {
		cfg.Check.DisabledRules = yc.Check.DisabledRules
	}
	if yc.Index.DBPath != "" {
		cfg.Index.DBPath = yc.Index.DBPath
	}
	if yc.Index.KeepRunsDays != 0 {
		cfg.Index.KeepRunsDays = yc.Index.KeepRunsDays
	}

	return cfg, nil
}

// Validate checks config values that have constrained domains.
func (c *Config) Validate() error {
	switch c.RegistryStrategy {
	case "coarse", "fine":
	default:
		return fmt.Errorf("invalid registry_strategy %q", c.RegistryStrategy)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("max_workers must be >= 0, got %d", c.MaxWorkers)
	}
	if c.Index.KeepRunsDays < 0 {
		return fmt.Errorf("index.keep_runs_days must be >= 0, got %d", c.Index.KeepRunsDays)
	}
	return nil
}
