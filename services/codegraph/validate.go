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
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/tscodegraph/services/codegraph/ast"
)

// ValidateProjectDir checks that dir names an indexable project.
//
// Description:
//
//	Rejects paths with ".." segments before touching the filesystem, then
//	requires an existing, non-symlink directory that contains tsconfig.json.
//
// Inputs:
//
//	dir - The directory as given by the caller. Relative paths resolve
//	      against the working directory.
//
// Outputs:
//
//	string - The cleaned absolute path.
//	error - *ValidationError wrapping one of ErrPathTraversal,
//	        ErrDirectoryNotFound, ErrSymlink, ErrNotDirectory or
//	        ErrMissingTSConfig.
func ValidateProjectDir(dir string) (string, error) {
	if dir == "" {
		return "", &ValidationError{Path: dir, Reason: "directory is required", Err: ErrDirectoryNotFound}
	}
	if hasParentSegment(dir) {
		return "", &ValidationError{Path: dir, Reason: "path must not contain '..'", Err: ErrPathTraversal}
	}

	abs, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", dir, err)
	}

	info, err := os.Lstat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", &ValidationError{Path: dir, Reason: "directory does not exist", Err: ErrDirectoryNotFound}
	}
	if err != nil {
		return "", fmt.Errorf("stat %q: %w", abs, err)
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return "", &ValidationError{Path: dir, Reason: "symbolic links are not allowed", Err: ErrSymlink}
	}
	if !info.IsDir() {
		return "", &ValidationError{Path: dir, Reason: "path is not a directory", Err: ErrNotDirectory}
	}

	tsconfig, err := os.Stat(filepath.Join(abs, ast.TSConfigFileName))
	if err != nil || tsconfig.IsDir() {
		return "", &ValidationError{Path: dir, Reason: "no tsconfig.json in directory", Err: ErrMissingTSConfig}
	}
	return abs, nil
}

func hasParentSegment(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}
