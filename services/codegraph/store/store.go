// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists call graphs and answers read-side queries.
//
// Two backends implement Store: SQLite (the default, a single index.db file)
// and BadgerDB (an embedded key-value directory). Both run every bulk insert
// in one transaction so a failed batch leaves nothing behind.
package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/AleutianAI/tscodegraph/services/codegraph/graph"
)

// Store is the persistence and query boundary of the call graph.
//
// Thread Safety: Implementations are safe for concurrent readers. Writers
// are serialized by the caller (one indexing run per project at a time).
type Store interface {
	// Clear removes all nodes, edges, external calls and the run record.
	Clear(ctx context.Context) error

	// InsertNodes upserts nodes by id. Empty input is a no-op.
	InsertNodes(ctx context.Context, nodes []graph.Node) error

	// InsertEdges inserts edges, ignoring ones already present.
	InsertEdges(ctx context.Context, edges []graph.Edge) error

	// InsertExternalCalls inserts external calls, ignoring duplicates.
	InsertExternalCalls(ctx context.Context, calls []graph.ExternalCall) error

	// FindNodesByName returns nodes whose name equals name exactly.
	FindNodesByName(ctx context.Context, name string) ([]graph.Node, error)

	// FindNodeByID returns the node with the given id, or ErrNotFound.
	FindNodeByID(ctx context.Context, id graph.NodeID) (graph.Node, error)

	// FindCallers returns the nodes with a calls edge to id.
	FindCallers(ctx context.Context, id graph.NodeID) ([]graph.Node, error)

	// FindCallees returns the nodes id has a calls edge to.
	FindCallees(ctx context.Context, id graph.NodeID) ([]graph.Node, error)

	CountNodes(ctx context.Context) (int, error)
	CountEdges(ctx context.Context) (int, error)
	CountExternalCalls(ctx context.Context) (int, error)

	// SetMeta records the last completed run.
	SetMeta(ctx context.Context, meta RunMeta) error

	// GetMeta returns the last completed run, or ErrNotFound.
	GetMeta(ctx context.Context) (RunMeta, error)

	// Close releases the underlying database.
	Close() error
}

// RunMeta describes the indexing run whose graph the store holds.
type RunMeta struct {
	RunID     string    `json:"runId"`
	Directory string    `json:"directory"`
	IndexedAt time.Time `json:"indexedAt"`
}

func checkNode(n graph.Node) error {
	if n.ID.Path == "" || n.ID.Line < 1 || n.ID.Name == "" || !n.Kind.Valid() {
		return fmt.Errorf("%w: node %s (%s)", ErrInvalidRecord, n.ID, n.Kind)
	}
	return nil
}

func checkEdge(e graph.Edge) error {
	if e.From.IsZero() || e.To.IsZero() || !e.Kind.Valid() {
		return fmt.Errorf("%w: edge %s -> %s (%s)", ErrInvalidRecord, e.From, e.To, e.Kind)
	}
	return nil
}

func checkExternalCall(c graph.ExternalCall) error {
	if c.From.IsZero() {
		return fmt.Errorf("%w: external call %q without caller", ErrInvalidRecord, c.Text)
	}
	return nil
}

// sortNodes orders nodes by path, line, then name.
func sortNodes(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i].ID, nodes[j].ID
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Name < b.Name
	})
}
