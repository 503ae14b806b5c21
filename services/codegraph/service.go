// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package codegraph indexes TypeScript projects into a persisted call graph
// and answers caller/callee queries over it.
//
// Service is the boundary used by the CLI, the HTTP API and the MCP server.
// Every Index call is a full rebuild: the project is parsed, the graph is
// assembled in memory, and the store is cleared and refilled.
package codegraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/tscodegraph/services/codegraph/ast"
	"github.com/AleutianAI/tscodegraph/services/codegraph/config"
	"github.com/AleutianAI/tscodegraph/services/codegraph/graph"
	"github.com/AleutianAI/tscodegraph/services/codegraph/store"
)

// ServiceVersion is the tscodegraph service version.
const ServiceVersion = "0.1.0"

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service indexes and queries call graphs.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Index calls for the same project
//	root are serialized; queries run concurrently with each other and
//	with indexing of other projects.
type Service struct {
	config *config.Config
	logger *slog.Logger

	mu     sync.Mutex
	stores map[string]store.Store // projectRoot -> open store

	indexLocks sync.Map // projectRoot -> *sync.Mutex
}

// NewService creates a Service. A nil cfg uses config.Default().
func NewService(cfg *config.Config, opts ...ServiceOption) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Service{
		config: cfg,
		stores: make(map[string]store.Store),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// IndexStats holds the persisted record counts of a project.
type IndexStats struct {
	Nodes         int `json:"nodes"`
	Edges         int `json:"edges"`
	ExternalCalls int `json:"externalCalls"`
}

// IndexResult is the outcome of one indexing run.
type IndexResult struct {
	RunID         string     `json:"runId"`
	Directory     string     `json:"directory"`
	Files         int        `json:"files"`
	Stats         IndexStats `json:"stats"`
	DurationMilli int64      `json:"durationMs"`
}

// Match is one node named by a query together with its one-hop neighbors.
type Match struct {
	Node    graph.Node   `json:"node"`
	Callers []graph.Node `json:"callers"`
	Callees []graph.Node `json:"callees"`
}

// QueryResult is the outcome of Query.
type QueryResult struct {
	Directory string  `json:"directory"`
	Name      string  `json:"name"`
	Matches   []Match `json:"matches"`
}

// StatsResult describes what the store of a project holds.
type StatsResult struct {
	Directory string         `json:"directory"`
	Stats     IndexStats     `json:"stats"`
	LastRun   *store.RunMeta `json:"lastRun,omitempty"`
}

// Index builds and persists the call graph of the project at dir.
//
// Description:
//
//	Validates dir, parses every selected source file, assembles the graph,
//	then replaces the store contents: Clear, nodes, edges, external calls
//	and finally the run record. Counts are read back from the store.
//	Nothing is written unless parsing and assembly both succeed.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing.
//	dir - The project directory. Must contain tsconfig.json.
//
// Outputs:
//
//	*IndexResult - The run id, absolute directory and persisted counts.
//	error - *ValidationError, *ast.ParseError, *store.PersistenceError,
//	        or the context error.
//
// Thread Safety: Concurrent calls for the same root wait for each other.
func (s *Service) Index(ctx context.Context, dir string) (result *IndexResult, err error) {
	ctx, span := startSpan(ctx, "codegraph.Service.Index", dir)
	start := time.Now()
	defer func() {
		recordIndexMetrics(ctx, time.Since(start), err == nil)
		endSpan(span, err)
	}()

	root, err := ValidateProjectDir(dir)
	if err != nil {
		return nil, err
	}

	lock := s.getIndexLock(root)
	lock.Lock()
	defer lock.Unlock()

	project, err := ast.LoadProject(ctx, root,
		ast.WithWorkers(s.config.Index.Workers),
		ast.WithMaxFileSize(s.config.Index.MaxFileSize),
		ast.WithExcludes(s.config.Index.Exclude...),
		ast.WithGitignore(s.config.Index.RespectGitignore),
		ast.WithLogger(s.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	defer project.Close()

	builder := graph.NewBuilder(
		graph.WithWorkers(s.config.Index.Workers),
		graph.WithLogger(s.logger),
	)
	built, err := builder.Build(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}

	st, err := s.storeFor(root)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if err := persist(ctx, st, built, store.RunMeta{
		RunID:     runID,
		Directory: root,
		IndexedAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	stats, err := counts(ctx, st)
	if err != nil {
		return nil, err
	}

	result = &IndexResult{
		RunID:         runID,
		Directory:     root,
		Files:         built.Stats.Files,
		Stats:         stats,
		DurationMilli: time.Since(start).Milliseconds(),
	}
	span.SetAttributes(
		attribute.String("codegraph.run_id", runID),
		attribute.Int("codegraph.nodes", stats.Nodes),
		attribute.Int("codegraph.edges", stats.Edges),
		attribute.Int("codegraph.external_calls", stats.ExternalCalls),
	)
	s.logger.Info("Indexed project",
		slog.String("directory", root),
		slog.String("run_id", runID),
		slog.Int("files", result.Files),
		slog.Int("nodes", stats.Nodes),
		slog.Int("edges", stats.Edges),
		slog.Int("external_calls", stats.ExternalCalls),
		slog.Int("reconciled", built.Stats.Reconciled),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// persist replaces the store contents with a freshly built graph.
func persist(ctx context.Context, st store.Store, built *graph.Result, meta store.RunMeta) error {
	if err := st.Clear(ctx); err != nil {
		return err
	}
	if err := st.InsertNodes(ctx, built.Nodes); err != nil {
		return err
	}
	if err := st.InsertEdges(ctx, built.Edges); err != nil {
		return err
	}
	if err := st.InsertExternalCalls(ctx, built.ExternalCalls); err != nil {
		return err
	}
	return st.SetMeta(ctx, meta)
}

func counts(ctx context.Context, st store.Store) (IndexStats, error) {
	var stats IndexStats
	var err error
	if stats.Nodes, err = st.CountNodes(ctx); err != nil {
		return stats, err
	}
	if stats.Edges, err = st.CountEdges(ctx); err != nil {
		return stats, err
	}
	if stats.ExternalCalls, err = st.CountExternalCalls(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

// Query finds the nodes named name and their direct callers and callees.
//
// Description:
//
//	Name matching is exact and case-sensitive. Matches follow the store's
//	node order (path, line, name). An unindexed project yields no matches.
//
// Outputs:
//
//	*QueryResult - One Match per node. Callers and Callees are never nil.
//	error - ErrEmptyName, *ValidationError, or *store.PersistenceError.
func (s *Service) Query(ctx context.Context, name, dir string) (result *QueryResult, err error) {
	ctx, span := startSpan(ctx, "codegraph.Service.Query", dir)
	start := time.Now()
	defer func() {
		recordQueryMetrics(ctx, "query", time.Since(start), err == nil)
		endSpan(span, err)
	}()

	if name == "" {
		return nil, ErrEmptyName
	}
	root, st, err := s.open(dir)
	if err != nil {
		return nil, err
	}

	nodes, err := st.FindNodesByName(ctx, name)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(nodes))
	for _, n := range nodes {
		callers, err := st.FindCallers(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		callees, err := st.FindCallees(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{
			Node:    n,
			Callers: nonNil(callers),
			Callees: nonNil(callees),
		})
	}
	span.SetAttributes(attribute.Int("codegraph.matches", len(matches)))
	return &QueryResult{Directory: root, Name: name, Matches: matches}, nil
}

// Search returns the nodes named name, without neighbors.
func (s *Service) Search(ctx context.Context, name, dir string) (nodes []graph.Node, err error) {
	ctx, span := startSpan(ctx, "codegraph.Service.Search", dir)
	start := time.Now()
	defer func() {
		recordQueryMetrics(ctx, "search", time.Since(start), err == nil)
		endSpan(span, err)
	}()

	if name == "" {
		return nil, ErrEmptyName
	}
	_, st, err := s.open(dir)
	if err != nil {
		return nil, err
	}
	nodes, err = st.FindNodesByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return nonNil(nodes), nil
}

// Stats reports the persisted counts of a project and its last run.
//
// LastRun is nil when the project has never been indexed.
func (s *Service) Stats(ctx context.Context, dir string) (*StatsResult, error) {
	root, st, err := s.open(dir)
	if err != nil {
		return nil, err
	}
	stats, err := counts(ctx, st)
	if err != nil {
		return nil, err
	}

	result := &StatsResult{Directory: root, Stats: stats}
	meta, err := st.GetMeta(ctx)
	switch {
	case err == nil:
		result.LastRun = &meta
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return result, nil
}

// Close closes every store the service opened.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for root, st := range s.stores {
		if err := st.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store of %s: %w", root, err))
		}
		delete(s.stores, root)
	}
	return errors.Join(errs...)
}

// open validates dir and returns its root and store.
func (s *Service) open(dir string) (string, store.Store, error) {
	root, err := ValidateProjectDir(dir)
	if err != nil {
		return "", nil, err
	}
	st, err := s.storeFor(root)
	if err != nil {
		return "", nil, err
	}
	return root, st, nil
}

// storeFor returns the cached store of root, opening it on first use.
func (s *Service) storeFor(root string) (store.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.stores[root]; ok {
		return st, nil
	}
	st, err := store.Open(root, store.Options{
		Backend: s.config.Storage.Backend,
		Dir:     s.config.Storage.Dir,
		Logger:  s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	s.stores[root] = st
	return st, nil
}

func (s *Service) getIndexLock(root string) *sync.Mutex {
	lock, _ := s.indexLocks.LoadOrStore(root, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func nonNil(nodes []graph.Node) []graph.Node {
	if nodes == nil {
		return []graph.Node{}
	}
	return nodes
}
