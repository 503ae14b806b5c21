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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AleutianAI/tscodegraph/services/codegraph/graph"
)

// BackendSQLite is the name of the SQLite backend.
const BackendSQLite = "sqlite"

// SQLiteFileName is the database file inside the store directory.
const SQLiteFileName = "index.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS nodes (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	file_path   TEXT NOT NULL,
	line_number INTEGER NOT NULL,
	signature   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name);

CREATE TABLE IF NOT EXISTS edges (
	from_id TEXT NOT NULL,
	to_id   TEXT NOT NULL,
	type    TEXT NOT NULL,
	PRIMARY KEY (from_id, to_id, type)
);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id, type);

CREATE TABLE IF NOT EXISTS external_calls (
	from_id TEXT NOT NULL,
	name    TEXT NOT NULL,
	text    TEXT NOT NULL,
	PRIMARY KEY (from_id, name, text)
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// nodeColumns omits the id column. Identity is rebuilt from the file, line
// and name columns; the id text is only a join key.
const nodeColumns = `n.name, n.type, n.file_path, n.line_number, n.signature`

// SQLiteStore is the SQLite-backed Store.
//
// Thread Safety: Safe for concurrent use. The database runs in WAL mode so
// readers do not block the writer.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database file at path.
//
// Description:
//
//	Creates the parent directory, opens the file with WAL journaling and a
//	busy timeout, and applies the schema.
//
// Inputs:
//
//	path - The database file. Must not be empty.
//	logger - Logger for diagnostic output. Nil uses slog.Default().
//
// Outputs:
//
//	*SQLiteStore - The opened store. Caller must call Close().
//	error - Non-nil if the file cannot be opened or migrated.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", filepath.Dir(path), err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite store %s: %w", path, err)
	}

	logger.Debug("sqlite store opened", slog.String("path", path))
	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// withTx runs fn in one transaction, rolling back on error.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// bulkExec prepares query once and executes it for each of n records. An
// error from args aborts the batch and rolls back the rows already written.
func (s *SQLiteStore) bulkExec(ctx context.Context, query string, n int, args func(i int) ([]any, error)) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()
		for i := 0; i < n; i++ {
			values, err := args(i)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, values...); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Clear(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe(BackendSQLite, "clear", start, 0, err) }()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"nodes", "edges", "external_calls", "meta"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return persistErr("clear", 0, err)
	}
	return nil
}

func (s *SQLiteStore) InsertNodes(ctx context.Context, nodes []graph.Node) (err error) {
	if len(nodes) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe(BackendSQLite, "insert_nodes", start, len(nodes), err) }()

	err = s.bulkExec(ctx,
		`INSERT OR REPLACE INTO nodes (id, name, type, file_path, line_number, signature) VALUES (?, ?, ?, ?, ?, ?)`,
		len(nodes), func(i int) ([]any, error) {
			n := nodes[i]
			if err := checkNode(n); err != nil {
				return nil, err
			}
			return []any{n.ID.String(), n.Name, string(n.Kind), n.FilePath, n.Line, n.Signature}, nil
		})
	if err != nil {
		return persistErr("insert nodes", len(nodes), err)
	}
	return nil
}

func (s *SQLiteStore) InsertEdges(ctx context.Context, edges []graph.Edge) (err error) {
	if len(edges) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe(BackendSQLite, "insert_edges", start, len(edges), err) }()

	err = s.bulkExec(ctx,
		`INSERT OR IGNORE INTO edges (from_id, to_id, type) VALUES (?, ?, ?)`,
		len(edges), func(i int) ([]any, error) {
			e := edges[i]
			if err := checkEdge(e); err != nil {
				return nil, err
			}
			return []any{e.From.String(), e.To.String(), string(e.Kind)}, nil
		})
	if err != nil {
		return persistErr("insert edges", len(edges), err)
	}
	return nil
}

func (s *SQLiteStore) InsertExternalCalls(ctx context.Context, calls []graph.ExternalCall) (err error) {
	if len(calls) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe(BackendSQLite, "insert_external_calls", start, len(calls), err) }()

	err = s.bulkExec(ctx,
		`INSERT OR IGNORE INTO external_calls (from_id, name, text) VALUES (?, ?, ?)`,
		len(calls), func(i int) ([]any, error) {
			c := calls[i]
			if err := checkExternalCall(c); err != nil {
				return nil, err
			}
			return []any{c.From.String(), c.Name, c.Text}, nil
		})
	if err != nil {
		return persistErr("insert external calls", len(calls), err)
	}
	return nil
}

func (s *SQLiteStore) FindNodesByName(ctx context.Context, name string) ([]graph.Node, error) {
	return s.queryNodes(ctx, "find_by_name",
		`SELECT `+nodeColumns+` FROM nodes n WHERE n.name = ? ORDER BY n.file_path, n.line_number`, name)
}

func (s *SQLiteStore) FindNodeByID(ctx context.Context, id graph.NodeID) (graph.Node, error) {
	nodes, err := s.queryNodes(ctx, "find_by_id", `SELECT `+nodeColumns+` FROM nodes n WHERE n.id = ?`, id.String())
	if err != nil {
		return graph.Node{}, err
	}
	if len(nodes) == 0 {
		return graph.Node{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return nodes[0], nil
}

func (s *SQLiteStore) FindCallers(ctx context.Context, id graph.NodeID) ([]graph.Node, error) {
	return s.queryNodes(ctx, "find_callers",
		`SELECT `+nodeColumns+` FROM edges e JOIN nodes n ON n.id = e.from_id
		 WHERE e.to_id = ? AND e.type = ?
		 ORDER BY n.file_path, n.line_number, n.name`, id.String(), string(graph.EdgeKindCalls))
}

func (s *SQLiteStore) FindCallees(ctx context.Context, id graph.NodeID) ([]graph.Node, error) {
	return s.queryNodes(ctx, "find_callees",
		`SELECT `+nodeColumns+` FROM edges e JOIN nodes n ON n.id = e.to_id
		 WHERE e.from_id = ? AND e.type = ?
		 ORDER BY n.file_path, n.line_number, n.name`, id.String(), string(graph.EdgeKindCalls))
}

func (s *SQLiteStore) queryNodes(ctx context.Context, op, query string, args ...any) (nodes []graph.Node, err error) {
	start := time.Now()
	defer func() { observe(BackendSQLite, op, start, 0, err) }()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr(op, 0, err)
	}
	defer rows.Close()

	nodes = make([]graph.Node, 0)
	for rows.Next() {
		var (
			n    graph.Node
			kind string
		)
		if err := rows.Scan(&n.Name, &kind, &n.FilePath, &n.Line, &n.Signature); err != nil {
			return nil, persistErr(op, 0, err)
		}
		n.ID = graph.NodeID{Path: n.FilePath, Line: n.Line, Name: n.Name}
		n.Kind = graph.NodeKind(kind)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(op, 0, err)
	}
	return nodes, nil
}

func (s *SQLiteStore) CountNodes(ctx context.Context) (int, error) {
	return s.count(ctx, "nodes")
}

func (s *SQLiteStore) CountEdges(ctx context.Context) (int, error) {
	return s.count(ctx, "edges")
}

func (s *SQLiteStore) CountExternalCalls(ctx context.Context) (int, error) {
	return s.count(ctx, "external_calls")
}

func (s *SQLiteStore) count(ctx context.Context, table string) (n int, err error) {
	start := time.Now()
	defer func() { observe(BackendSQLite, "count_"+table, start, 0, err) }()
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, persistErr("count "+table, 0, err)
	}
	return n, nil
}

func (s *SQLiteStore) SetMeta(ctx context.Context, meta RunMeta) (err error) {
	start := time.Now()
	defer func() { observe(BackendSQLite, "set_meta", start, 0, err) }()
	values := map[string]string{
		"run_id":     meta.RunID,
		"directory":  meta.Directory,
		"indexed_at": meta.IndexedAt.UTC().Format(time.RFC3339Nano),
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return persistErr("set meta", 0, err)
	}
	return nil
}

func (s *SQLiteStore) GetMeta(ctx context.Context) (meta RunMeta, err error) {
	start := time.Now()
	defer func() { observe(BackendSQLite, "get_meta", start, 0, err) }()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return RunMeta{}, persistErr("get meta", 0, err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return RunMeta{}, persistErr("get meta", 0, err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return RunMeta{}, persistErr("get meta", 0, err)
	}

	runID, ok := values["run_id"]
	if !ok {
		return RunMeta{}, fmt.Errorf("run metadata: %w", ErrNotFound)
	}
	meta = RunMeta{RunID: runID, Directory: values["directory"]}
	if raw := values["indexed_at"]; raw != "" {
		if meta.IndexedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return RunMeta{}, persistErr("get meta", 0, err)
		}
	}
	return meta, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
