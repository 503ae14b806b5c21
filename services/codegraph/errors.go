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
	"errors"
	"fmt"
)

var (
	// ErrDirectoryNotFound indicates the project directory does not exist.
	ErrDirectoryNotFound = errors.New("directory does not exist")

	// ErrNotDirectory indicates the project path is not a directory.
	ErrNotDirectory = errors.New("path is not a directory")

	// ErrMissingTSConfig indicates the project has no tsconfig.json.
	ErrMissingTSConfig = errors.New("tsconfig.json not found")

	// ErrPathTraversal indicates the path contains ".." segments.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrSymlink indicates the project path is a symbolic link.
	ErrSymlink = errors.New("symbolic links are not allowed")

	// ErrEmptyName indicates a query or search without a name.
	ErrEmptyName = errors.New("name must not be empty")
)

// ValidationError is a rejected project directory.
//
// Err is one of the sentinels above, so callers can match with errors.Is.
type ValidationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid project directory %q: %s", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err was caused by bad caller input:
// a rejected directory or an empty name.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrEmptyName)
}
