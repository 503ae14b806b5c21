// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fixtures locates and copies the checked-in TypeScript fixture
// projects for tests.
package fixtures

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// SampleProjectName is the directory name of the main fixture project.
const SampleProjectName = "sample-project"

// Dir returns the absolute path of the fixtures directory.
func Dir(t testing.TB) string {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("Cannot determine fixtures source location")
	}
	return filepath.Dir(file)
}

// SampleProject copies test/fixtures/sample-project to a fresh temp directory
// and returns its path. Tests may write to the copy (for example a store
// directory) without dirtying the checked-in fixture.
func SampleProject(t testing.TB) string {
	t.Helper()

	src := filepath.Join(Dir(t), SampleProjectName)
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("Fixture directory not found at %s: %v", src, err)
	}

	dst := filepath.Join(t.TempDir(), SampleProjectName)
	if err := copyDir(src, dst); err != nil {
		t.Fatalf("Failed to copy fixture: %v", err)
	}
	return dst
}

// WriteProject creates a project in a temp directory from path → content
// pairs. A tsconfig.json is added when files does not contain one.
func WriteProject(t testing.TB, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	all := map[string]string{"tsconfig.json": `{"compilerOptions": {"strict": true}}`}
	for rel, content := range files {
		all[rel] = content
	}
	for rel, content := range all {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return root
}

// copyDir recursively copies src to dst, skipping .git/ and store directories.
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		base := filepath.Base(path)
		if info.IsDir() && (base == ".git" || base == ".ts-code-graph") {
			return filepath.SkipDir
		}

		relPath, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return relErr
		}
		destPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			return os.MkdirAll(destPath, 0o755)
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		return os.WriteFile(destPath, data, 0o644)
	})
}
