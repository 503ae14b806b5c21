// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxFileSize is the default per-file size limit (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// Project is a parsed TypeScript project.
//
// Thread Safety: Read-only after LoadProject returns, except for the
// per-file local binding caches which are internally synchronized.
type Project struct {
	// Root is the absolute project root.
	Root string

	// Config is the decoded tsconfig.json.
	Config *TSConfig

	// Files lists every parsed file, sorted by path.
	Files []*File

	byPath map[string]*File
}

// LoadOption configures LoadProject.
type LoadOption func(*loadOptions)

type loadOptions struct {
	workers          int
	maxFileSize      int64
	excludes         []string
	respectGitignore bool
	logger           *slog.Logger
}

// WithWorkers sets the number of parallel parse goroutines. Values below 1
// mean 1.
func WithWorkers(n int) LoadOption {
	return func(o *loadOptions) {
		o.workers = n
	}
}

// WithMaxFileSize sets the per-file size limit. Larger files are skipped with
// a warning. Zero or negative disables the limit.
func WithMaxFileSize(bytes int64) LoadOption {
	return func(o *loadOptions) {
		o.maxFileSize = bytes
	}
}

// WithExcludes adds exclude patterns on top of tsconfig's.
func WithExcludes(patterns ...string) LoadOption {
	return func(o *loadOptions) {
		o.excludes = append(o.excludes, patterns...)
	}
}

// WithGitignore controls whether .gitignore at the root is honored.
func WithGitignore(respect bool) LoadOption {
	return func(o *loadOptions) {
		o.respectGitignore = respect
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoadOption {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// LoadProject discovers and parses the TypeScript project rooted at root.
//
// Description:
//
//	Reads tsconfig.json, selects files by its files/include/exclude settings
//	(plus .gitignore when enabled), and parses each one. Declaration files
//	are parsed as ambient and contribute only to module resolution. Parsing
//	fans out across the configured number of workers; results are placed by
//	file index so the output order does not depend on scheduling.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	root - Project root directory containing tsconfig.json.
//	opts - Optional settings.
//
// Outputs:
//
//	*Project - The parsed project. Call Close when done.
//	error - ErrTSConfigNotFound, ErrInvalidTSConfig, or a *ParseError for the
//	        first file that could not be read or parsed.
func LoadProject(ctx context.Context, root string, opts ...LoadOption) (project *Project, err error) {
	o := loadOptions{
		workers:          1,
		maxFileSize:      DefaultMaxFileSize,
		respectGitignore: true,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}

	ctx, span := startLoadSpan(ctx, root)
	defer span.End()
	start := time.Now()
	defer func() {
		files := 0
		if project != nil {
			files = len(project.Files)
		}
		recordLoadMetrics(ctx, time.Since(start), files, err == nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	cfg, err := ReadTSConfig(absRoot)
	if err != nil {
		return nil, err
	}

	discovered, err := discoverFiles(absRoot, cfg, discoveryOptions{
		extraExcludes:    o.excludes,
		respectGitignore: o.respectGitignore,
	}, o.logger)
	if err != nil {
		return nil, fmt.Errorf("discovering source files: %w", err)
	}

	parsed := make([]*File, len(discovered))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, df := range discovered {
		g.Go(func() error {
			f, err := loadFile(gctx, df, o)
			if err != nil {
				return err
			}
			parsed[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, f := range parsed {
			if f != nil {
				f.Close()
			}
		}
		return nil, err
	}

	project = &Project{
		Root:   absRoot,
		Config: cfg,
		byPath: make(map[string]*File, len(parsed)),
	}
	declarations := 0
	for _, f := range parsed {
		if f == nil {
			continue
		}
		if f.Ambient {
			declarations++
		}
		project.Files = append(project.Files, f)
		project.byPath[f.Path] = f
	}

	setLoadSpanResult(span, len(project.Files)-declarations, declarations)
	o.logger.Debug("project loaded",
		slog.String("root", absRoot),
		slog.Int("files", len(project.Files)),
		slog.Int("declaration_files", declarations),
		slog.Duration("duration", time.Since(start)),
	)
	return project, nil
}

// loadFile reads and parses one discovered file. A nil file with a nil error
// means the file was skipped.
func loadFile(ctx context.Context, df discoveredFile, o loadOptions) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if o.maxFileSize > 0 {
		info, err := os.Stat(df.absPath)
		if err != nil {
			return nil, wrapParseError(err, df.relPath, "cannot stat file")
		}
		if info.Size() > o.maxFileSize {
			o.logger.Warn("skipping oversized file",
				slog.String("file", df.relPath),
				slog.Int64("size", info.Size()),
				slog.Int64("limit", o.maxFileSize),
			)
			return nil, nil
		}
	}

	content, err := os.ReadFile(df.absPath)
	if err != nil {
		return nil, wrapParseError(err, df.relPath, "cannot read file")
	}

	f, err := ParseFile(ctx, df.relPath, content)
	if err != nil {
		return nil, err
	}
	f.AbsPath = df.absPath
	f.Ambient = df.declaration
	if f.HasErrors {
		o.logger.Debug("file parsed with syntax errors", slog.String("file", df.relPath))
	}
	return f, nil
}

// File returns the file at a project-relative path.
func (p *Project) File(relPath string) (*File, bool) {
	f, ok := p.byPath[relPath]
	return f, ok
}

// Close releases every file's syntax tree.
func (p *Project) Close() {
	for _, f := range p.Files {
		f.Close()
	}
}
