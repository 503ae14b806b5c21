// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads tscodegraph settings.
//
// Settings come from, in increasing precedence: built-in defaults, the
// project's codegraph.config.yaml, a .env file in the working directory, and
// TSCG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the optional config file at the project root.
const FileName = "codegraph.config.yaml"

// Environment variables that override file settings.
const (
	EnvStorageBackend = "TSCG_STORAGE_BACKEND"
	EnvStorageDir     = "TSCG_STORAGE_DIR"
	EnvLogLevel       = "TSCG_LOG_LEVEL"
	EnvWorkers        = "TSCG_WORKERS"
	EnvHTTPAddr       = "TSCG_HTTP_ADDR"
)

// Config is the complete tscodegraph configuration.
//
// Thread Safety: Immutable after loading; safe for concurrent reads.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Index     IndexConfig     `yaml:"index"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Watch     WatchConfig     `yaml:"watch"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig selects the graph store.
type StorageConfig struct {
	// Backend is "sqlite" or "badger".
	Backend string `yaml:"backend" validate:"oneof=sqlite badger"`

	// Dir is the store directory, relative to the project root unless absolute.
	Dir string `yaml:"dir" validate:"required"`
}

// IndexConfig controls project loading.
type IndexConfig struct {
	// Workers is the number of files parsed and extracted in parallel.
	Workers int `yaml:"workers" validate:"min=1,max=256"`

	// MaxFileSize is the largest source file parsed, in bytes.
	MaxFileSize int64 `yaml:"max_file_size" validate:"min=1"`

	// Exclude lists extra gitignore-style patterns to skip.
	Exclude []string `yaml:"exclude"`

	// RespectGitignore applies the project's .gitignore.
	RespectGitignore bool `yaml:"respect_gitignore"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format is "auto" (text on a terminal, JSON otherwise), "text" or "json".
	Format string `yaml:"format" validate:"oneof=auto text json"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	// Debounce is how long to wait after the last change before rebuilding.
	Debounce time.Duration `yaml:"debounce" validate:"min=0"`

	// MinInterval is the minimum time between two rebuilds.
	MinInterval time.Duration `yaml:"min_interval" validate:"min=0"`
}

// TelemetryConfig selects OpenTelemetry exporters.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none prometheus"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "sqlite",
			Dir:     ".ts-code-graph",
		},
		Index: IndexConfig{
			Workers:          1,
			MaxFileSize:      10 * 1024 * 1024,
			RespectGitignore: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8089",
		},
		Watch: WatchConfig{
			Debounce:    500 * time.Millisecond,
			MinInterval: 2 * time.Second,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
		},
	}
}

var validate = validator.New()

// Load builds the configuration for the project at projectRoot.
//
// Description:
//
//	Starts from Default, overlays <projectRoot>/codegraph.config.yaml when
//	present, loads a .env file from the working directory when present
//	(without overriding variables already set), applies TSCG_* overrides,
//	and validates the result.
//
// Inputs:
//
//	projectRoot - The project directory. May be empty to skip the file.
//
// Outputs:
//
//	*Config - The validated configuration.
//	error - Non-nil if a present file cannot be parsed or validation fails.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()

	if projectRoot != "" {
		if err := cfg.mergeFile(filepath.Join(projectRoot, FileName)); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays a YAML file. A missing file is not an error.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", FileName, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, FileName, err)
	}
	return nil
}

// applyEnv applies TSCG_* environment overrides.
func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvStorageBackend); ok {
		c.Storage.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := os.LookupEnv(EnvStorageDir); ok {
		c.Storage.Dir = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Log.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := os.LookupEnv(EnvWorkers); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, EnvWorkers, v)
		}
		c.Index.Workers = n
	}
	if v, ok := os.LookupEnv(EnvHTTPAddr); ok {
		c.Server.Addr = v
	}
	return nil
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SlogLevel returns the configured level as a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
