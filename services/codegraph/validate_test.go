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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/tscodegraph/test/fixtures"
)

func TestValidateProjectDir_Accepts(t *testing.T) {
	root := fixtures.SampleProject(t)

	got, err := ValidateProjectDir(root)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestValidateProjectDir_RelativePath(t *testing.T) {
	root := fixtures.SampleProject(t)
	t.Chdir(filepath.Dir(root))

	got, err := ValidateProjectDir(fixtures.SampleProjectName)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, fixtures.SampleProjectName, filepath.Base(got))
}

func TestValidateProjectDir_Rejects(t *testing.T) {
	root := fixtures.SampleProject(t)
	base := t.TempDir()

	file := filepath.Join(base, "file.ts")
	require.NoError(t, os.WriteFile(file, []byte("export {};\n"), 0o644))

	noConfig := filepath.Join(base, "no-config")
	require.NoError(t, os.Mkdir(noConfig, 0o755))

	link := filepath.Join(base, "link")
	require.NoError(t, os.Symlink(root, link))

	tests := []struct {
		name string
		dir  string
		want error
	}{
		{"empty", "", ErrDirectoryNotFound},
		{"leading parent", "../project", ErrPathTraversal},
		{"inner parent", root + "/src/../src", ErrPathTraversal},
		{"missing", filepath.Join(base, "missing"), ErrDirectoryNotFound},
		{"file", file, ErrNotDirectory},
		{"no tsconfig", noConfig, ErrMissingTSConfig},
		{"symlink", link, ErrSymlink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateProjectDir(tt.dir)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "error = %v, want %v", err, tt.want)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.dir, ve.Path)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(ErrEmptyName))
	assert.False(t, IsValidationError(errors.New("disk full")))
	assert.False(t, IsValidationError(nil))
}
