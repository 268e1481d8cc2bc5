// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hookmux Contributors

// Package config loads layered configuration: defaults, then an optional
// YAML file, then command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds the hookmux runtime configuration.
type Config struct {
	PackagesDir  string        `koanf:"packages_dir"`
	PollInterval time.Duration `koanf:"poll_interval"`
	LogFormat    string        `koanf:"log_format"`
	LogLevel     string        `koanf:"log_level"`
	MetricsAddr  string        `koanf:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PackagesDir:  "packages",
		PollInterval: 2 * time.Second,
		LogFormat:    "json",
		LogLevel:     "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty), and flags (if non-nil). Flag names use hyphens and
// map onto underscore config keys; flags left at their default never
// override file-set values.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
			return cfg, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", k,
			func(key, value string) (string, any) {
				return strings.ReplaceAll(key, "-", "_"), value
			})
		if err := k.Load(provider, nil); err != nil {
			return cfg, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks configuration constraints.
func (c Config) Validate() error {
	if c.PackagesDir == "" {
		return fmt.Errorf("packages_dir is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}
