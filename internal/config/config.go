// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads service configuration from defaults, an optional YAML
// file, GATEHOUSE_* environment variables, and command-line flags, in that
// order of increasing precedence.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Addr        string `koanf:"addr"`
	MetricsAddr string `koanf:"metrics_addr"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`
	// Memory swaps the postgres repository for the in-memory one.
	// Development convenience only; state is lost on restart.
	Memory bool `koanf:"memory"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// AuthConfig configures request authentication.
type AuthConfig struct {
	// ExcludedPaths lists path patterns that bypass authentication.
	// A trailing "*" matches any path under the prefix.
	ExcludedPaths []string `koanf:"excluded_paths"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.addr":         "127.0.0.1:8080",
		"server.metrics_addr": "127.0.0.1:9100",
		"database.url":        "",
		"database.memory":     false,
		"log.format":          "json",
		"log.level":           "info",
		"auth.excluded_paths": []string{},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), GATEHOUSE_* environment variables, and flags. Later
// sources win. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_DEFAULTS_FAILED").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
		}
	}

	// GATEHOUSE_DATABASE_URL -> database.url. Only the first underscore
	// splits section from key; nested keys keep their underscores, so
	// GATEHOUSE_SERVER_METRICS_ADDR -> server.metrics_addr.
	envProvider := env.Provider("GATEHOUSE_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "GATEHOUSE_"))
		return strings.Replace(key, "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if !c.Database.Memory && c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database.url is required unless database.memory is set")
	}
	return nil
}
