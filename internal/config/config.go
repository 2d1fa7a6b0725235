// Package config loads respec settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"respec/internal/apperr"
	"respec/internal/loop"
)

// Environment variables that override file values.
const (
	EnvDBPath   = "RESPEC_DB_PATH"
	EnvLogLevel = "RESPEC_LOG_LEVEL"
)

// Config is the on-disk configuration.
type Config struct {
	Database   DatabaseConfig         `yaml:"database"`
	Logging    LoggingConfig          `yaml:"logging"`
	Loops      map[string]loop.Limits `yaml:"loops"`
	Stagnation StagnationConfig       `yaml:"stagnation"`
}

type DatabaseConfig struct {
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StagnationConfig struct {
	Window int `yaml:"window"`
	Delta  int `yaml:"delta"`
}

// Default returns the built-in settings.
func Default() *Config {
	engine := loop.DefaultConfig()
	loops := make(map[string]loop.Limits, len(engine.Types))
	for t, l := range engine.Types {
		loops[string(t)] = l
	}
	return &Config{
		Database: DatabaseConfig{Path: "respec.db", CacheSize: 256},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Loops:    loops,
		Stagnation: StagnationConfig{
			Window: engine.StagnationWindow,
			Delta:  engine.StagnationDelta,
		},
	}
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := cfg.merge(data); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge decodes data into a copy so loop entries only override the fields
// they set.
func (c *Config) merge(data []byte) error {
	var file struct {
		Database   DatabaseConfig             `yaml:"database"`
		Logging    LoggingConfig              `yaml:"logging"`
		Loops      map[string]map[string]*int `yaml:"loops"`
		Stagnation map[string]*int            `yaml:"stagnation"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	if file.Database.Path != "" {
		c.Database.Path = file.Database.Path
	}
	if file.Database.CacheSize != 0 {
		c.Database.CacheSize = file.Database.CacheSize
	}
	if file.Logging.Level != "" {
		c.Logging.Level = file.Logging.Level
	}
	if file.Logging.Format != "" {
		c.Logging.Format = file.Logging.Format
	}
	for name, fields := range file.Loops {
		t, err := loop.ParseType(name)
		if err != nil {
			return err
		}
		l := c.Loops[string(t)]
		if v := fields["threshold"]; v != nil {
			l.Threshold = *v
		}
		if v := fields["max_iterations"]; v != nil {
			l.MaxIterations = *v
		}
		c.Loops[string(t)] = l
	}
	if v := file.Stagnation["window"]; v != nil {
		c.Stagnation.Window = *v
	}
	if v := file.Stagnation["delta"]; v != nil {
		c.Stagnation.Delta = *v
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects out-of-range thresholds and limits.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return apperr.Validation("config.Validate", "logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.Database.CacheSize < 0 {
		return apperr.Validation("config.Validate", "database.cache_size must not be negative")
	}
	return c.LoopConfig().Validate()
}

// LoopConfig converts the loop settings for the engine.
func (c *Config) LoopConfig() loop.Config {
	types := make(map[loop.LoopType]loop.Limits, len(c.Loops))
	for name, l := range c.Loops {
		types[loop.LoopType(name)] = l
	}
	return loop.Config{
		Types:            types,
		StagnationWindow: c.Stagnation.Window,
		StagnationDelta:  c.Stagnation.Delta,
	}
}

// ParseLevel maps a level name to slog.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, apperr.Validation("config.ParseLevel", "unknown log level %q", level)
}
