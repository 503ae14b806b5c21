// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"log/slog"
	"sort"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/tscodegraph/services/codegraph/ast"
)

// BuilderOptions configures Builder behavior.
type BuilderOptions struct {
	// Workers is the number of files extracted in parallel.
	// Default: 1
	Workers int

	// Logger receives debug output about resolution. Default: slog.Default().
	Logger *slog.Logger
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*BuilderOptions)

// WithWorkers sets the number of parallel extraction workers.
func WithWorkers(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.Workers = n
	}
}

// WithLogger sets the builder logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(o *BuilderOptions) {
		o.Logger = logger
	}
}

// Builder constructs call graphs from parsed projects.
//
// Thread Safety:
//
//	Builder is safe for concurrent use. Each Build() call operates
//	independently with its own internal state.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a new Builder with the given options.
func NewBuilder(opts ...BuilderOption) *Builder {
	options := BuilderOptions{Workers: 1}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Workers < 1 {
		options.Workers = 1
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Builder{options: options}
}

// fileResult is the provisional output of one file.
type fileResult struct {
	nodes     []Node
	edges     []Edge
	externals []ExternalCall
}

// buildState holds the resolvers of a single build.
type buildState struct {
	project *ast.Project
	oracle  *Oracle
	calls   *CallResolver
	imports *ImportResolver
}

// Build constructs the call graph of project.
//
// Description:
//
//	Runs two stages. The collect stage extracts every source file's nodes,
//	call edges, dynamic import edges, heritage edges and external calls into
//	per-file buffers. The reconcile stage merges the buffers, collapses
//	duplicates, rewrites every edge whose target is not a produced node into
//	an external call {from, to, to}, and sorts the output.
//
// Inputs:
//
//	ctx - Context for cancellation, checked between files.
//	project - The parsed project. Must not be nil.
//
// Outputs:
//
//	*Result - The reconciled graph. Every edge target is one of its nodes.
//	error - ErrNilProject, or the context error when cancelled.
func (b *Builder) Build(ctx context.Context, project *ast.Project) (result *Result, err error) {
	if project == nil {
		return nil, ErrNilProject
	}

	sources := project.Files
	ctx, span := startBuildSpan(ctx, len(sources))
	defer span.End()
	start := time.Now()
	defer func() {
		var stats Stats
		if result != nil {
			stats = result.Stats
		}
		recordBuildMetrics(ctx, time.Since(start), stats, err == nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	exports := NewExportResolver(project, b.options.Logger)
	oracle := NewOracle(project, exports, b.options.Logger)
	state := &buildState{
		project: project,
		oracle:  oracle,
		calls:   NewCallResolver(oracle),
		imports: NewImportResolver(project, exports),
	}

	results, err := b.collectStage(ctx, state, sources)
	if err != nil {
		return nil, err
	}

	result = b.reconcileStage(results)
	result.Stats.Files = len(sources)
	result.Stats.DurationMilli = time.Since(start).Milliseconds()

	setBuildSpanResult(span, result.Stats)
	b.options.Logger.Debug("call graph built",
		slog.Int("files", result.Stats.Files),
		slog.Int("nodes", result.Stats.Nodes),
		slog.Int("edges", result.Stats.Edges),
		slog.Int("external_calls", result.Stats.ExternalCalls),
		slog.Int("reconciled", result.Stats.Reconciled),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// collectStage extracts provisional results per file. Results are stored by
// file index so the merge order does not depend on scheduling.
func (b *Builder) collectStage(ctx context.Context, state *buildState, files []*ast.File) ([]fileResult, error) {
	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.options.Workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.extractFile(state, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// extractFile produces the nodes and provisional edges of one file.
func (b *Builder) extractFile(state *buildState, f *ast.File) fileResult {
	var out fileResult
	for _, u := range extractUnits(f) {
		out.nodes = append(out.nodes, u.node)
		from := u.node.ID

		if u.decl.Kind == ast.DeclClass {
			b.extractHeritageEdges(state, f, u, &out)
			continue
		}

		walkCalls(u.body, func(call *sitter.Node) {
			if isDynamicImport(call) {
				site, ok := state.imports.Resolve(f, call)
				if !ok {
					return
				}
				if ext, isExternal := site.ExternalCall(from); isExternal {
					out.externals = append(out.externals, ext)
					return
				}
				for _, target := range site.Targets {
					out.edges = append(out.edges, Edge{From: from, To: target, Kind: EdgeKindImports})
				}
				return
			}

			site := state.calls.Resolve(f, call)
			if site.Class == CallInternal {
				out.edges = append(out.edges, Edge{From: from, To: site.Target, Kind: EdgeKindCalls})
				return
			}
			out.externals = append(out.externals, ExternalCall{From: from, Name: site.Text, Text: site.Text})
		})
	}
	return out
}

// extractHeritageEdges adds extends and implements edges of a class node.
// Only heritage clauses naming a project class produce an edge.
func (b *Builder) extractHeritageEdges(state *buildState, f *ast.File, u unit, out *fileResult) {
	for _, expr := range u.decl.Heritage.Extends {
		if cls := state.oracle.HeritageClass(f, expr); cls != nil {
			out.edges = append(out.edges, Edge{From: u.node.ID, To: DeclID(cls), Kind: EdgeKindExtends})
		}
	}
	for _, typ := range u.decl.Heritage.Implements {
		if cls := state.oracle.HeritageClass(f, typ); cls != nil {
			out.edges = append(out.edges, Edge{From: u.node.ID, To: DeclID(cls), Kind: EdgeKindImplements})
		}
	}
}

// reconcileStage merges file results into a consistent graph.
func (b *Builder) reconcileStage(results []fileResult) *Result {
	result := &Result{
		Nodes:         make([]Node, 0),
		Edges:         make([]Edge, 0),
		ExternalCalls: make([]ExternalCall, 0),
	}

	nodeIDs := make(map[NodeID]bool)
	for _, r := range results {
		for _, n := range r.nodes {
			if nodeIDs[n.ID] {
				b.options.Logger.Debug("duplicate node id", slog.String("id", n.ID.String()))
				continue
			}
			nodeIDs[n.ID] = true
			result.Nodes = append(result.Nodes, n)
		}
	}

	seenEdges := make(map[Edge]bool)
	seenExternal := make(map[ExternalCall]bool)
	addExternal := func(ext ExternalCall) {
		if !seenExternal[ext] {
			seenExternal[ext] = true
			result.ExternalCalls = append(result.ExternalCalls, ext)
		}
	}

	for _, r := range results {
		for _, e := range r.edges {
			if !nodeIDs[e.To] {
				to := e.To.String()
				addExternal(ExternalCall{From: e.From, Name: to, Text: to})
				result.Stats.Reconciled++
				continue
			}
			if !seenEdges[e] {
				seenEdges[e] = true
				result.Edges = append(result.Edges, e)
			}
		}
		for _, ext := range r.externals {
			addExternal(ext)
		}
	}

	sort.Slice(result.Nodes, func(i, j int) bool {
		return compareIDs(result.Nodes[i].ID, result.Nodes[j].ID) < 0
	})
	sort.Slice(result.Edges, func(i, j int) bool {
		a, c := result.Edges[i], result.Edges[j]
		if d := compareIDs(a.From, c.From); d != 0 {
			return d < 0
		}
		if d := compareIDs(a.To, c.To); d != 0 {
			return d < 0
		}
		return a.Kind < c.Kind
	})
	sort.Slice(result.ExternalCalls, func(i, j int) bool {
		a, c := result.ExternalCalls[i], result.ExternalCalls[j]
		if d := compareIDs(a.From, c.From); d != 0 {
			return d < 0
		}
		if a.Name != c.Name {
			return a.Name < c.Name
		}
		return a.Text < c.Text
	})

	result.Stats.Nodes = len(result.Nodes)
	result.Stats.Edges = len(result.Edges)
	result.Stats.ExternalCalls = len(result.ExternalCalls)
	return result
}

// compareIDs orders node ids by path, then line, then name.
func compareIDs(a, b NodeID) int {
	switch {
	case a.Path != b.Path:
		if a.Path < b.Path {
			return -1
		}
		return 1
	case a.Line != b.Line:
		return a.Line - b.Line
	case a.Name != b.Name:
		if a.Name < b.Name {
			return -1
		}
		return 1
	}
	return 0
}
