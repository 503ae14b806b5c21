// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package codegraph

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/tscodegraph/services/codegraph/config"
	"github.com/AleutianAI/tscodegraph/test/fixtures"
)

type indexOutcome struct {
	result *IndexResult
	err    error
}

func TestWatch_ReindexesOnChange(t *testing.T) {
	svc := newTestService(t, func(cfg *config.Config) {
		cfg.Watch.Debounce = 50 * time.Millisecond
		cfg.Watch.MinInterval = 0
	})
	root := fixtures.SampleProject(t)

	ctx, cancel := context.WithCancel(context.Background())
	outcomes := make(chan indexOutcome, 16)
	done := make(chan error, 1)
	go func() {
		done <- svc.Watch(ctx, root, func(r *IndexResult, err error) {
			outcomes <- indexOutcome{r, err}
		})
	}()

	var first indexOutcome
	select {
	case first = <-outcomes:
	case <-time.After(30 * time.Second):
		t.Fatal("initial index did not run")
	}
	require.NoError(t, first.err)

	added := filepath.Join(root, "src", "added.ts")
	require.NoError(t, os.WriteFile(added, []byte("export function addedLater() {}\n"), 0o644))

	deadline := time.After(30 * time.Second)
	for reindexed := false; !reindexed; {
		select {
		case o := <-outcomes:
			require.NoError(t, o.err)
			reindexed = o.result.Stats.Nodes == first.result.Stats.Nodes+1
		case <-deadline:
			t.Fatal("change did not trigger a reindex")
		}
	}

	nodes, err := svc.Search(context.Background(), "addedLater", root)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Watch did not stop after cancellation")
	}
}

func TestWatch_RejectsInvalidDirectory(t *testing.T) {
	svc := newTestService(t)
	err := svc.Watch(context.Background(), t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrMissingTSConfig)
}

func TestProjectWatcher_Filters(t *testing.T) {
	root := t.TempDir()
	w := &projectWatcher{root: root, storeDir: filepath.Join(root, ".ts-code-graph")}

	assert.True(t, w.skip(filepath.Join(root, "node_modules")))
	assert.True(t, w.skip(filepath.Join(root, "pkg", ".git")))
	assert.True(t, w.skip(filepath.Join(root, ".ts-code-graph")))
	assert.False(t, w.skip(filepath.Join(root, "src")))

	for path, want := range map[string]bool{
		"src/a.ts":            true,
		"src/view.tsx":        true,
		"src/esm.mts":         true,
		"src/cjs.cts":         true,
		"tsconfig.json":       true,
		"src/readme.md":       false,
		"src/index.js":        false,
		"package.json":        false,
		".ts-code-graph/x.db": false,
	} {
		assert.Equal(t, want, isWatchedFile(filepath.Join(root, path)), path)
	}

	chmod := fsnotify.Event{Name: filepath.Join(root, "src", "a.ts"), Op: fsnotify.Chmod}
	assert.False(t, w.handle(chmod))
	write := fsnotify.Event{Name: filepath.Join(root, "src", "a.ts"), Op: fsnotify.Write}
	assert.True(t, w.handle(write))
}

func TestProjectWatcher_CreatedDirectory(t *testing.T) {
	root := t.TempDir()
	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()
	w := &projectWatcher{
		root:     root,
		storeDir: filepath.Join(root, ".ts-code-graph"),
		watcher:  watcher,
		logger:   slog.New(slog.DiscardHandler),
	}

	write := func(rel, content string) {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("moved/deep/util.ts", "export function util() {}\n")
	write("docs/readme.md", "# docs\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	created := func(rel string) fsnotify.Event {
		return fsnotify.Event{Name: filepath.Join(root, rel), Op: fsnotify.Create}
	}
	assert.True(t, w.handle(created("moved")), "a directory moved in with sources must trigger a rebuild")
	assert.False(t, w.handle(created("docs")))
	assert.False(t, w.handle(created("empty")))
	assert.Contains(t, watcher.WatchList(), filepath.Join(root, "moved", "deep"))
}
