package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/vango-dev/reactor/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "reactor.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "REACTOR_"

	// DefaultDevtoolsAddr is the default devtools listen address.
	DefaultDevtoolsAddr = "localhost:7070"

	// DefaultHistoryLimit is the default number of retained snapshots.
	DefaultHistoryLimit = 100

	// DefaultMetricsNamespace is the default Prometheus namespace.
	DefaultMetricsNamespace = "reactor"

	// DefaultMaxEffectReruns bounds coalesced effect re-runs.
	DefaultMaxEffectReruns = 100
)

// Config represents the complete reactor.json configuration.
type Config struct {
	// Devtools contains the inspector server configuration.
	Devtools DevtoolsConfig `json:"devtools,omitempty" envPrefix:"DEVTOOLS_"`

	// History contains time-travel configuration.
	History HistoryConfig `json:"history,omitempty" envPrefix:"HISTORY_"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty" envPrefix:"METRICS_"`

	// Engine contains reactive engine tuning.
	Engine EngineConfig `json:"engine,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty" envPrefix:"LOG_"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DevtoolsConfig contains devtools server settings.
type DevtoolsConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" env:"ADDR"`

	// AllAtoms mirrors every atom, not only those created with Devtools().
	AllAtoms bool `json:"allAtoms,omitempty" env:"ALL_ATOMS"`
}

// HistoryConfig contains time-travel settings.
type HistoryConfig struct {
	// Limit is the maximum number of snapshots kept per tracked atom.
	Limit int `json:"limit,omitempty" env:"LIMIT"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	// Enabled registers the Prometheus collectors.
	Enabled bool `json:"enabled,omitempty" env:"ENABLED"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty" env:"NAMESPACE"`
}

// EngineConfig contains reactive engine settings.
type EngineConfig struct {
	// RetrackEvery is how many recomputes of a derived value pass between
	// full dependency re-tracking. 1 re-tracks on every recompute.
	RetrackEvery int `json:"retrackEvery,omitempty" env:"RETRACK_EVERY"`

	// MaxEffectReruns bounds how often a notification arriving while an
	// effect runs can re-run it.
	MaxEffectReruns int `json:"maxEffectReruns,omitempty" env:"MAX_EFFECT_RERUNS"`

	// GoroutineCheck reports use of a universe from a foreign goroutine.
	GoroutineCheck bool `json:"goroutineCheck,omitempty" env:"GOROUTINE_CHECK"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" env:"LEVEL"`

	// Format is text or json.
	Format string `json:"format,omitempty" env:"FORMAT"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Devtools: DevtoolsConfig{
			Addr: DefaultDevtoolsAddr,
		},
		History: HistoryConfig{
			Limit: DefaultHistoryLimit,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultMetricsNamespace,
		},
		Engine: EngineConfig{
			RetrackEvery:    1,
			MaxEffectReruns: DefaultMaxEffectReruns,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads reactor.json from dir and applies environment overrides.
// A missing file is not an error: defaults plus overrides are returned.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	cfg, err := LoadFile(configPath)
	if err == nil {
		return cfg, nil
	}
	var re *errors.Error
	if stderrors.As(err, &re) && re.Code == errors.CodeConfigMissing {
		cfg = New()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return nil, err
}

// LoadFile reads configuration from the specified file path and applies
// environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigMissing).
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path))
		}
		return nil, errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeInvalidConfig).
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// ApplyEnv overlays REACTOR_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(fmt.Errorf("parse env: %w", err))
	}
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CodeInvalidConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Devtools.Addr == "" {
		c.Devtools.Addr = DefaultDevtoolsAddr
	}
	if c.History.Limit == 0 {
		c.History.Limit = DefaultHistoryLimit
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
	if c.Engine.RetrackEvery == 0 {
		c.Engine.RetrackEvery = 1
	}
	if c.Engine.MaxEffectReruns == 0 {
		c.Engine.MaxEffectReruns = DefaultMaxEffectReruns
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch {
	case c.History.Limit < 1:
		return errors.New(errors.CodeInvalidConfig).
			WithDetail("history.limit must be at least 1")
	case c.Engine.RetrackEvery < 1:
		return errors.New(errors.CodeInvalidConfig).
			WithDetail("engine.retrackEvery must be at least 1")
	case c.Engine.MaxEffectReruns < 1:
		return errors.New(errors.CodeInvalidConfig).
			WithDetail("engine.maxEffectReruns must be at least 1")
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return errors.New(errors.CodeInvalidConfig).
			WithDetailf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return errors.New(errors.CodeInvalidConfig).
			WithDetailf("log.format %q is not one of text, json", c.Log.Format)
	}
	return nil
}

// LogLevel returns the configured slog level, defaulting to Info.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
