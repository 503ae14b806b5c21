// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// DefaultDirName is the store directory created inside an indexed project.
const DefaultDirName = ".ts-code-graph"

// Options selects and configures a backend.
type Options struct {
	// Backend is BackendSQLite or BackendBadger. Empty means SQLite.
	Backend string

	// Dir is the store directory. Relative paths are taken relative to the
	// project root passed to Open.
	Dir string

	// InMemory opens a BadgerDB store without disk persistence.
	InMemory bool

	// Logger receives diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Open opens the store of the project at root.
//
// Description:
//
//	Resolves the store directory against root (DefaultDirName when unset)
//	and opens the selected backend inside it: the SQLite file index.db or
//	the BadgerDB directory badger/.
//
// Outputs:
//
//	Store - The opened store. Caller must call Close().
//	error - ErrUnknownBackend, or the backend's open error.
func Open(root string, opts Options) (Store, error) {
	dir := opts.Dir
	if dir == "" {
		dir = DefaultDirName
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}

	switch opts.Backend {
	case "", BackendSQLite:
		s, err := OpenSQLite(filepath.Join(dir, SQLiteFileName), opts.Logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendBadger:
		s, err := OpenBadger(BadgerConfig{
			Dir:      filepath.Join(dir, BadgerDirName),
			InMemory: opts.InMemory,
			Logger:   opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}
