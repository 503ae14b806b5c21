// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(content), 0o644))
	return root
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 1, cfg.Index.Workers)
	assert.True(t, cfg.Index.RespectGitignore)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	root := writeConfig(t, `
storage:
  backend: badger
index:
  workers: 4
  exclude:
    - "generated/**"
  respect_gitignore: false
watch:
  debounce: 250ms
log:
  level: debug
`)
	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, ".ts-code-graph", cfg.Storage.Dir, "unset keys keep their defaults")
	assert.Equal(t, 4, cfg.Index.Workers)
	assert.Equal(t, []string{"generated/**"}, cfg.Index.Exclude)
	assert.False(t, cfg.Index.RespectGitignore)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := writeConfig(t, "storage:\n  backend: badger\n")
	t.Setenv(EnvStorageBackend, "SQLite")
	t.Setenv(EnvWorkers, "8")
	t.Setenv(EnvHTTPAddr, "0.0.0.0:9000")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 8, cfg.Index.Workers)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, slog.LevelWarn, cfg.Log.SlogLevel())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "unknown backend", content: "storage:\n  backend: postgres\n"},
		{name: "zero workers", content: "index:\n  workers: 0\n"},
		{name: "bad log level", content: "log:\n  level: verbose\n"},
		{name: "malformed yaml", content: "storage: [\n"},
		{name: "non-integer workers env", env: map[string]string{EnvWorkers: "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSlogLevel_DefaultsToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "info"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LogConfig{Level: "error"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{}.SlogLevel())
}
