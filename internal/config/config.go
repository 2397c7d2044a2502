// Package config loads the continuity engine configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all settings.
type Config struct {
	DBPath    string          `yaml:"db_path"`
	Log       LogConfig       `yaml:"log"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Profile   ProfileConfig   `yaml:"profile"`
	Labeler   LabelerConfig   `yaml:"labeler"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// AnalysisConfig sizes the detector windows.
type AnalysisConfig struct {
	WeekDays          int `yaml:"week_days"`
	MonthDays         int `yaml:"month_days"`
	QuarterDays       int `yaml:"quarter_days"`
	MaxSourceEntries  int `yaml:"max_source_entries"`
	MaxDerivedRecords int `yaml:"max_derived_records"`
	AgencyWindowDays  int `yaml:"agency_window_days"`
}

// ProfileConfig bounds profile computation.
type ProfileConfig struct {
	WindowDays   int    `yaml:"window_days"`
	RowCap       int    `yaml:"row_cap"`
	RefreshAfter string `yaml:"refresh_after"` // empty disables background refresh
}

// LabelerConfig selects the text labeling provider.
type LabelerConfig struct {
	Provider string `yaml:"provider"` // none, openai, gemini
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key,omitempty"`
	Timeout  string `yaml:"timeout"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // none, ollama, openai, gemini
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// WorkerConfig configures the background queue.
type WorkerConfig struct {
	Workers     int    `yaml:"workers"`
	Buffer      int    `yaml:"buffer"`
	MaxAttempts int    `yaml:"max_attempts"`
	Backoff     string `yaml:"backoff"`
	TaskTimeout string `yaml:"task_timeout"`
}

// DefaultPath returns ~/.continuity/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".continuity", "config.yaml")
}

// DefaultDBPath returns ~/.continuity/continuity.db.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".continuity", "continuity.db")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DBPath: DefaultDBPath(),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Analysis: AnalysisConfig{
			WeekDays:          7,
			MonthDays:         30,
			QuarterDays:       90,
			MaxSourceEntries:  500,
			MaxDerivedRecords: 1000,
			AgencyWindowDays:  30,
		},
		Profile: ProfileConfig{
			WindowDays: 365,
			RowCap:     1000,
		},
		Labeler: LabelerConfig{
			Provider: "none",
			Timeout:  "30s",
		},
		Embedding: EmbeddingConfig{
			Provider: "none",
		},
		Worker: WorkerConfig{
			Workers:     2,
			Buffer:      64,
			MaxAttempts: 3,
			Backoff:     "500ms",
			TaskTimeout: "60s",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("CONTINUITY_DB"); path != "" {
		c.DBPath = path
	}
	if level := os.Getenv("CONTINUITY_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if p := os.Getenv("CONTINUITY_LABELER"); p != "" {
		c.Labeler.Provider = p
	}
	if p := os.Getenv("CONTINUITY_EMBEDDER"); p != "" {
		c.Embedding.Provider = p
	}

	keys := map[string]string{
		"openai": os.Getenv("OPENAI_API_KEY"),
		"gemini": os.Getenv("GEMINI_API_KEY"),
	}
	if key := keys[c.Labeler.Provider]; key != "" && c.Labeler.APIKey == "" {
		c.Labeler.APIKey = key
	}
	if key := keys[c.Embedding.Provider]; key != "" && c.Embedding.APIKey == "" {
		c.Embedding.APIKey = key
	}
}

var (
	validLabelers  = []string{"", "none", "openai", "gemini"}
	validEmbedders = []string{"", "none", "ollama", "openai", "gemini"}
	validFormats   = []string{"", "json", "console"}
)

// Validate checks provider names and durations.
func (c *Config) Validate() error {
	if !oneOf(c.Labeler.Provider, validLabelers) {
		return fmt.Errorf("invalid labeler provider: %s (valid: %v)", c.Labeler.Provider, validLabelers[1:])
	}
	if !oneOf(c.Embedding.Provider, validEmbedders) {
		return fmt.Errorf("invalid embedding provider: %s (valid: %v)", c.Embedding.Provider, validEmbedders[1:])
	}
	if !oneOf(c.Log.Format, validFormats) {
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.Log.Format)
	}
	if a := c.Analysis; a.WeekDays > 0 && a.MonthDays > 0 && a.WeekDays >= a.MonthDays {
		return fmt.Errorf("invalid analysis windows: week_days (%d) must be less than month_days (%d)", a.WeekDays, a.MonthDays)
	}
	if a := c.Analysis; a.MonthDays > 0 && a.QuarterDays > 0 && a.MonthDays > a.QuarterDays {
		return fmt.Errorf("invalid analysis windows: month_days (%d) must not exceed quarter_days (%d)", a.MonthDays, a.QuarterDays)
	}
	for name, v := range map[string]string{
		"labeler.timeout":       c.Labeler.Timeout,
		"worker.backoff":        c.Worker.Backoff,
		"worker.task_timeout":   c.Worker.TaskTimeout,
		"profile.refresh_after": c.Profile.RefreshAfter,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// LabelerTimeout returns the per-call labeling timeout.
func (c *Config) LabelerTimeout() time.Duration {
	return duration(c.Labeler.Timeout, 30*time.Second)
}

// WorkerBackoff returns the retry backoff unit.
func (c *Config) WorkerBackoff() time.Duration {
	return duration(c.Worker.Backoff, 500*time.Millisecond)
}

// WorkerTaskTimeout returns the per-attempt task timeout.
func (c *Config) WorkerTaskTimeout() time.Duration {
	return duration(c.Worker.TaskTimeout, 60*time.Second)
}

// ProfileRefreshAfter returns the background refresh age, zero when
// disabled.
func (c *Config) ProfileRefreshAfter() time.Duration {
	return duration(c.Profile.RefreshAfter, 0)
}
