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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/tscodegraph/services/codegraph/ast"
)

// skippedWatchDirs are never watched.
var skippedWatchDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// watchedExtensions are the source extensions whose changes trigger a rebuild.
var watchedExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".mts": true,
	".cts": true,
}

// IndexCallback receives the outcome of every indexing run started by Watch.
type IndexCallback func(result *IndexResult, err error)

// Watch indexes the project at dir and reindexes it whenever its sources change.
//
// Description:
//
//	Runs one Index, then watches every directory of the project except
//	node_modules, .git and the store directory. A change to a TypeScript
//	source or tsconfig.json starts a debounce window (watch.debounce); when
//	it elapses without further changes the project is fully reindexed.
//	Rebuilds are spaced at least watch.min_interval apart. Newly created
//	directories are added to the watch set.
//
// Inputs:
//
//	ctx - Watch runs until ctx is cancelled.
//	dir - The project directory.
//	onIndex - Called after every run, including the first. May be nil.
//
// Outputs:
//
//	error - *ValidationError for a rejected directory, or a watcher setup
//	        error. Failed rebuilds are reported to onIndex, not returned.
//	        Cancellation returns nil.
func (s *Service) Watch(ctx context.Context, dir string, onIndex IndexCallback) error {
	root, err := ValidateProjectDir(dir)
	if err != nil {
		return err
	}
	if onIndex == nil {
		onIndex = func(*IndexResult, error) {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	storeDir := s.config.Storage.Dir
	if !filepath.IsAbs(storeDir) {
		storeDir = filepath.Join(root, storeDir)
	}
	w := &projectWatcher{
		root:     root,
		storeDir: filepath.Clean(storeDir),
		watcher:  watcher,
		logger:   s.logger.With(slog.String("directory", root)),
	}
	if _, err := w.addTree(root); err != nil {
		return err
	}

	onIndex(s.Index(ctx, root))

	limit := rate.Inf
	if s.config.Watch.MinInterval > 0 {
		limit = rate.Every(s.config.Watch.MinInterval)
	}
	limiter := rate.NewLimiter(limit, 1)
	// The initial run consumes the first token.
	limiter.Allow()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.handle(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.config.Watch.Debounce)
			} else {
				timer.Reset(s.config.Watch.Debounce)
			}
			pending = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", slog.String("error", err.Error()))

		case <-pending:
			pending = nil
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			w.logger.Info("Sources changed, reindexing")
			onIndex(s.Index(ctx, root))
		}
	}
}

// projectWatcher tracks the watched directories of one project.
type projectWatcher struct {
	root     string
	storeDir string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// addTree watches dir and its subdirectories. It reports whether the tree
// already holds files that affect the graph.
func (w *projectWatcher) addTree(dir string) (bool, error) {
	found := false
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories removed mid-walk are not an error.
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			if isWatchedFile(path) {
				found = true
			}
			return nil
		}
		if path != w.root && w.skip(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
	return found, err
}

func (w *projectWatcher) skip(dir string) bool {
	return skippedWatchDirs[filepath.Base(dir)] || filepath.Clean(dir) == w.storeDir
}

// handle updates the watch set for event and reports whether the event
// should trigger a rebuild.
func (w *projectWatcher) handle(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.skip(event.Name) {
			found, err := w.addTree(event.Name)
			if err != nil {
				w.logger.Warn("Cannot watch new directory",
					slog.String("path", event.Name),
					slog.String("error", err.Error()),
				)
			}
			return found
		}
	}
	if event.Op == fsnotify.Chmod {
		return false
	}
	return isWatchedFile(event.Name)
}

func isWatchedFile(path string) bool {
	if filepath.Base(path) == ast.TSConfigFileName {
		return true
	}
	return watchedExtensions[filepath.Ext(path)]
}
