// Package config loads the protoforge configuration file and applies
// environment overrides. All fields have working defaults so a missing
// config file is not an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"protoforge/internal/cycles"
	"protoforge/internal/tree"
)

type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Resolver ResolverConfig `yaml:"resolver"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type PathsConfig struct {
	// Root is the directory walked for *.prototype.yaml documents.
	Root string `yaml:"root"`
	// Schema optionally points at a JSON Schema file overriding the
	// embedded document schema.
	Schema string `yaml:"schema"`
}

type ResolverConfig struct {
	// CyclePolicy is one of cancel, ignore, escalate. Empty means cancel.
	CyclePolicy string `yaml:"cycle_policy"`
}

type WatcherConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Paths:    PathsConfig{Root: "prototypes"},
		Resolver: ResolverConfig{CyclePolicy: "cancel"},
		Watcher:  WatcherConfig{Enabled: true, DebounceMS: 250},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Load reads the config file at path, layering it over the defaults and then
// applying environment overrides. An empty path skips the file entirely; a
// missing file at an explicit path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PROTOFORGE_ROOT"); v != "" {
		c.Paths.Root = v
	}
	if v := os.Getenv("PROTOFORGE_SCHEMA"); v != "" {
		c.Paths.Schema = v
	}
	if v := os.Getenv("PROTOFORGE_CYCLE_POLICY"); v != "" {
		c.Resolver.CyclePolicy = v
	}
	if v := os.Getenv("PROTOFORGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PROTOFORGE_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.Watcher.DebounceMS = ms
		}
	}
}

func (c *Config) validate() error {
	if _, err := cycles.ParseResponse(c.Resolver.CyclePolicy); err != nil {
		return err
	}
	if c.Watcher.DebounceMS <= 0 {
		return fmt.Errorf("watcher debounce must be positive, got %d", c.Watcher.DebounceMS)
	}
	return nil
}

// Debounce returns the watcher debounce window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watcher.DebounceMS) * time.Millisecond
}

// TreeConfig maps the resolver section onto the builder's configuration.
func (c *Config) TreeConfig() tree.Config {
	response, err := cycles.ParseResponse(c.Resolver.CyclePolicy)
	if err != nil {
		response = cycles.Cancel
	}
	return tree.Config{
		OnCycle: func(*cycles.Cycle) cycles.Response { return response },
	}
}
