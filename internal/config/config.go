// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package config loads opensas settings from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/iamafool/opensas-sub001/internal/eval"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "OPENSAS_CONFIG"

// Config holds the complete application configuration
type Config struct {
	Catalog CatalogConfig `toml:"catalog"`
	Log     LogConfig     `toml:"log"`
	Engine  EngineConfig  `toml:"engine"`
}

// CatalogConfig selects where datasets live.
type CatalogConfig struct {
	Driver string `toml:"driver"` // memory or sqlite
	Path   string `toml:"path"`   // database file for sqlite
}

// LogConfig controls diagnostics output.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
}

// EngineConfig controls how steps run.
type EngineConfig struct {
	ErrorMode   string   `toml:"error_mode"`
	StepTimeout Duration `toml:"step_timeout"` // 0 means no limit
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.Catalog.Path = os.ExpandEnv(cfg.Catalog.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads the file named by OPENSAS_CONFIG, then the first of the
// default locations that exists. With no file at all it returns Default().
func LoadFromEnv() (*Config, error) {
	if path := os.Getenv(EnvVar); path != "" {
		return Load(path)
	}
	for _, p := range defaultPaths() {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return Default(), nil
}

func defaultPaths() []string {
	paths := []string{"./opensas.toml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "opensas", "config.toml"))
	}
	return paths
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = "memory"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Engine.ErrorMode == "" {
		c.Engine.ErrorMode = eval.SkipRow.String()
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Catalog.Driver {
	case "memory":
	case "sqlite":
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog: sqlite driver needs a path")
		}
	default:
		return fmt.Errorf("catalog: unknown driver %q", c.Catalog.Driver)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	if _, ok := eval.ParseErrorMode(c.Engine.ErrorMode); !ok {
		return fmt.Errorf("engine: unknown error_mode %q", c.Engine.ErrorMode)
	}
	if c.Engine.StepTimeout.Duration < 0 {
		return fmt.Errorf("engine: step_timeout must not be negative")
	}
	return nil
}

// ErrorMode returns the parsed engine error mode.
func (c *Config) ErrorMode() eval.ErrorMode {
	m, _ := eval.ParseErrorMode(c.Engine.ErrorMode)
	return m
}

// LogLevel returns the parsed log level, info if unparseable.
func (c *Config) LogLevel() zerolog.Level {
	l, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}
