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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/tscodegraph/services/codegraph/graph"
)

// BackendBadger is the name of the BadgerDB backend.
const BackendBadger = "badger"

// BadgerDirName is the database directory inside the store directory.
const BadgerDirName = "badger"

// BadgerDB key schema. Ids and names are separated by NUL. The id text in a
// key is never parsed back; index entries carry the node key they point at.
//
//	cg:node:{id}                      → JSON(nodeRecord)
//	cg:name:{name}\x00{id}            → cg:node:{id}
//	cg:out:{from}\x00{kind}\x00{to}    → cg:node:{to}
//	cg:in:{to}\x00{kind}\x00{from}     → cg:node:{from}
//	cg:ext:{from}\x00{name}\x00{text} → JSON(externalRecord)
//	cg:meta                           → JSON(RunMeta)
const (
	keyPrefixRoot = "cg:"
	keyPrefixNode = "cg:node:"
	keyPrefixName = "cg:name:"
	keyPrefixOut  = "cg:out:"
	keyPrefixIn   = "cg:in:"
	keyPrefixExt  = "cg:ext:"
	keyMeta       = "cg:meta"
	keySep        = "\x00"
)

// BadgerConfig configures a BadgerDB store.
type BadgerConfig struct {
	// Dir is the database directory. Ignored when InMemory is true.
	Dir string

	// InMemory keeps everything in memory. Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes. Default: false.
	SyncWrites bool

	// Logger receives store and BadgerDB diagnostics. If nil, BadgerDB's
	// internal logging is disabled and the store logs to slog.Default().
	Logger *slog.Logger
}

// BadgerStore is the BadgerDB-backed Store.
//
// Thread Safety: Safe for concurrent use. BadgerDB provides serializable
// snapshot isolation for each transaction.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// OpenBadger opens a BadgerDB store.
//
// Inputs:
//
//	cfg - Store configuration. Dir is required unless InMemory is true.
//
// Outputs:
//
//	*BadgerStore - The opened store. Caller must call Close().
//	error - Non-nil if the directory is invalid or the database cannot open.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("badger dir is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
		logger = slog.Default()
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// nodeRecord is the stored form of a node. The id is kept as its parts.
type nodeRecord struct {
	Path      string         `json:"path"`
	Line      int            `json:"line"`
	Name      string         `json:"name"`
	Display   string         `json:"display"`
	Kind      graph.NodeKind `json:"kind"`
	FilePath  string         `json:"filePath"`
	LineNo    int            `json:"lineNumber"`
	Signature string         `json:"signature,omitempty"`
}

func newNodeRecord(n graph.Node) nodeRecord {
	return nodeRecord{
		Path:      n.ID.Path,
		Line:      n.ID.Line,
		Name:      n.ID.Name,
		Display:   n.Name,
		Kind:      n.Kind,
		FilePath:  n.FilePath,
		LineNo:    n.Line,
		Signature: n.Signature,
	}
}

func (r nodeRecord) node() graph.Node {
	return graph.Node{
		ID:        graph.NodeID{Path: r.Path, Line: r.Line, Name: r.Name},
		Name:      r.Display,
		Kind:      r.Kind,
		FilePath:  r.FilePath,
		Line:      r.LineNo,
		Signature: r.Signature,
	}
}

// externalRecord is the stored form of an external call.
type externalRecord struct {
	FromPath string `json:"fromPath"`
	FromLine int    `json:"fromLine"`
	FromName string `json:"fromName"`
	Name     string `json:"name"`
	Text     string `json:"text"`
}

func nodeKey(id graph.NodeID) []byte {
	return []byte(keyPrefixNode + id.String())
}

func nameKey(n graph.Node) []byte {
	return []byte(keyPrefixName + n.Name + keySep + n.ID.String())
}

func edgeKeys(e graph.Edge) (out, in []byte) {
	kind := string(e.Kind)
	out = []byte(keyPrefixOut + e.From.String() + keySep + kind + keySep + e.To.String())
	in = []byte(keyPrefixIn + e.To.String() + keySep + kind + keySep + e.From.String())
	return out, in
}

func externalKey(c graph.ExternalCall) []byte {
	return []byte(keyPrefixExt + c.From.String() + keySep + c.Name + keySep + c.Text)
}

func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(fn)
}

func (s *BadgerStore) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

func (s *BadgerStore) Clear(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe(BackendBadger, "clear", start, 0, err) }()

	if err = ctx.Err(); err != nil {
		return persistErr("clear", 0, err)
	}
	if err = s.db.DropPrefix([]byte(keyPrefixRoot)); err != nil {
		return persistErr("clear", 0, err)
	}
	return nil
}

func (s *BadgerStore) InsertNodes(ctx context.Context, nodes []graph.Node) (err error) {
	if len(nodes) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe(BackendBadger, "insert_nodes", start, len(nodes), err) }()

	err = s.update(ctx, func(txn *badger.Txn) error {
		for _, n := range nodes {
			if err := checkNode(n); err != nil {
				return err
			}
			data, err := json.Marshal(newNodeRecord(n))
			if err != nil {
				return fmt.Errorf("marshaling node %s: %w", n.ID, err)
			}
			key := nodeKey(n.ID)
			if err := txn.Set(key, data); err != nil {
				return err
			}
			if err := txn.Set(nameKey(n), key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return persistErr("insert nodes", len(nodes), err)
	}
	return nil
}

func (s *BadgerStore) InsertEdges(ctx context.Context, edges []graph.Edge) (err error) {
	if len(edges) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe(BackendBadger, "insert_edges", start, len(edges), err) }()

	err = s.update(ctx, func(txn *badger.Txn) error {
		for _, e := range edges {
			if err := checkEdge(e); err != nil {
				return err
			}
			out, in := edgeKeys(e)
			if err := txn.Set(out, nodeKey(e.To)); err != nil {
				return err
			}
			if err := txn.Set(in, nodeKey(e.From)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return persistErr("insert edges", len(edges), err)
	}
	return nil
}

func (s *BadgerStore) InsertExternalCalls(ctx context.Context, calls []graph.ExternalCall) (err error) {
	if len(calls) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe(BackendBadger, "insert_external_calls", start, len(calls), err) }()

	err = s.update(ctx, func(txn *badger.Txn) error {
		for _, c := range calls {
			if err := checkExternalCall(c); err != nil {
				return err
			}
			data, err := json.Marshal(externalRecord{
				FromPath: c.From.Path,
				FromLine: c.From.Line,
				FromName: c.From.Name,
				Name:     c.Name,
				Text:     c.Text,
			})
			if err != nil {
				return fmt.Errorf("marshaling external call: %w", err)
			}
			if err := txn.Set(externalKey(c), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return persistErr("insert external calls", len(calls), err)
	}
	return nil
}

// getNode loads the node stored under key inside txn.
func getNode(txn *badger.Txn, key []byte) (graph.Node, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return graph.Node{}, fmt.Errorf("node %s: %w", key[len(keyPrefixNode):], ErrNotFound)
	}
	if err != nil {
		return graph.Node{}, err
	}
	var rec nodeRecord
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return graph.Node{}, err
	}
	return rec.node(), nil
}

// scanTargets returns the node keys stored as values under prefix.
func scanTargets(txn *badger.Txn, prefix string) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	var out [][]byte
	for it.Rewind(); it.ValidForPrefix(opts.Prefix); it.Next() {
		key, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, nil
}

// nodesFor loads the nodes stored under keys, skipping keys without a node
// record.
func (s *BadgerStore) nodesFor(txn *badger.Txn, keys [][]byte) ([]graph.Node, error) {
	nodes := make([]graph.Node, 0, len(keys))
	for _, key := range keys {
		n, err := getNode(txn, key)
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("index entry without node", slog.String("key", string(key)))
			continue
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	sortNodes(nodes)
	return nodes, nil
}

func (s *BadgerStore) FindNodesByName(ctx context.Context, name string) (nodes []graph.Node, err error) {
	start := time.Now()
	defer func() { observe(BackendBadger, "find_by_name", start, 0, err) }()

	err = s.view(ctx, func(txn *badger.Txn) error {
		keys, err := scanTargets(txn, keyPrefixName+name+keySep)
		if err != nil {
			return err
		}
		nodes, err = s.nodesFor(txn, keys)
		return err
	})
	if err != nil {
		return nil, persistErr("find_by_name", 0, err)
	}
	return nodes, nil
}

func (s *BadgerStore) FindNodeByID(ctx context.Context, id graph.NodeID) (n graph.Node, err error) {
	start := time.Now()
	defer func() { observe(BackendBadger, "find_by_id", start, 0, err) }()

	err = s.view(ctx, func(txn *badger.Txn) error {
		var err error
		n, err = getNode(txn, nodeKey(id))
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return graph.Node{}, err
	}
	if err != nil {
		return graph.Node{}, persistErr("find_by_id", 0, err)
	}
	return n, nil
}

func (s *BadgerStore) FindCallers(ctx context.Context, id graph.NodeID) ([]graph.Node, error) {
	return s.neighbors(ctx, "find_callers", keyPrefixIn, id)
}

func (s *BadgerStore) FindCallees(ctx context.Context, id graph.NodeID) ([]graph.Node, error) {
	return s.neighbors(ctx, "find_callees", keyPrefixOut, id)
}

// neighbors follows calls edges one hop from id in the given direction.
func (s *BadgerStore) neighbors(ctx context.Context, op, direction string, id graph.NodeID) (nodes []graph.Node, err error) {
	start := time.Now()
	defer func() { observe(BackendBadger, op, start, 0, err) }()

	prefix := direction + id.String() + keySep + string(graph.EdgeKindCalls) + keySep
	err = s.view(ctx, func(txn *badger.Txn) error {
		keys, err := scanTargets(txn, prefix)
		if err != nil {
			return err
		}
		nodes, err = s.nodesFor(txn, keys)
		return err
	})
	if err != nil {
		return nil, persistErr(op, 0, err)
	}
	return nodes, nil
}

func (s *BadgerStore) CountNodes(ctx context.Context) (int, error) {
	return s.count(ctx, "nodes", keyPrefixNode)
}

func (s *BadgerStore) CountEdges(ctx context.Context) (int, error) {
	return s.count(ctx, "edges", keyPrefixOut)
}

func (s *BadgerStore) CountExternalCalls(ctx context.Context) (int, error) {
	return s.count(ctx, "external_calls", keyPrefixExt)
}

func (s *BadgerStore) count(ctx context.Context, what, prefix string) (n int, err error) {
	start := time.Now()
	defer func() { observe(BackendBadger, "count_"+what, start, 0, err) }()

	err = s.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(opts.Prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, persistErr("count "+what, 0, err)
	}
	return n, nil
}

func (s *BadgerStore) SetMeta(ctx context.Context, meta RunMeta) (err error) {
	start := time.Now()
	defer func() { observe(BackendBadger, "set_meta", start, 0, err) }()

	data, err := json.Marshal(meta)
	if err != nil {
		return persistErr("set meta", 0, err)
	}
	err = s.update(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte(keyMeta), data)
	})
	if err != nil {
		return persistErr("set meta", 0, err)
	}
	return nil
}

func (s *BadgerStore) GetMeta(ctx context.Context) (meta RunMeta, err error) {
	start := time.Now()
	defer func() { observe(BackendBadger, "get_meta", start, 0, err) }()

	err = s.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyMeta))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return RunMeta{}, fmt.Errorf("run metadata: %w", ErrNotFound)
	}
	if err != nil {
		return RunMeta{}, persistErr("get meta", 0, err)
	}
	return meta, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
