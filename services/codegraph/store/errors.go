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
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownBackend indicates an unsupported storage backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrInvalidRecord indicates a record that cannot be stored, such as a
	// node without a position or an edge of unknown kind.
	ErrInvalidRecord = errors.New("invalid record")
)

// PersistenceError is a failed store operation.
//
// Count is the number of records the operation attempted to write; zero for
// operations that are not bulk inserts.
type PersistenceError struct {
	Op    string
	Count int
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.Count > 0 {
		return fmt.Sprintf("store %s (%d records): %v", e.Op, e.Count, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, count int, err error) error {
	return &PersistenceError{Op: op, Count: count, Err: err}
}
