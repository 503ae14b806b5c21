// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/tscodegraph/test/fixtures"
)

func TestLoadProject_SampleProject(t *testing.T) {
	root := fixtures.SampleProject(t)

	p, err := LoadProject(context.Background(), root)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	defer p.Close()

	sample, ok := p.File("src/sample.ts")
	if !ok {
		t.Fatal("src/sample.ts not loaded")
	}
	if sample.AbsPath == "" || sample.Ambient {
		t.Errorf("sample.ts = %+v", sample)
	}

	globals, ok := p.File("src/globals.d.ts")
	if !ok || !globals.Ambient {
		t.Error("declaration file must be loaded and marked as a declaration file")
	}

	for i := 1; i < len(p.Files); i++ {
		if p.Files[i-1].Path >= p.Files[i].Path {
			t.Errorf("files not sorted: %s before %s", p.Files[i-1].Path, p.Files[i].Path)
		}
	}
}

func TestLoadProject_WorkersDeterministic(t *testing.T) {
	root := fixtures.SampleProject(t)

	serial, err := LoadProject(context.Background(), root, WithWorkers(1))
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	defer serial.Close()

	parallel, err := LoadProject(context.Background(), root, WithWorkers(4))
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	defer parallel.Close()

	if len(serial.Files) != len(parallel.Files) {
		t.Fatalf("file counts differ: %d vs %d", len(serial.Files), len(parallel.Files))
	}
	for i := range serial.Files {
		if serial.Files[i].Path != parallel.Files[i].Path {
			t.Errorf("file %d differs: %s vs %s", i, serial.Files[i].Path, parallel.Files[i].Path)
		}
	}
}

func TestLoadProject_MissingTSConfig(t *testing.T) {
	_, err := LoadProject(context.Background(), t.TempDir())
	if !errors.Is(err, ErrTSConfigNotFound) {
		t.Errorf("error = %v, want ErrTSConfigNotFound", err)
	}
}

func TestLoadProject_ExcludesAndGitignore(t *testing.T) {
	root := fixtures.WriteProject(t, map[string]string{
		"src/keep.ts":               "export function keep() {}\n",
		"src/generated/skip.ts":     "export function skip() {}\n",
		"src/ignored.ts":            "export function ignored() {}\n",
		"node_modules/pkg/index.ts": "export function dep() {}\n",
		".gitignore":                "src/ignored.ts\n",
	})

	p, err := LoadProject(context.Background(), root, WithExcludes("src/generated"))
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	defer p.Close()

	var paths []string
	for _, f := range p.Files {
		paths = append(paths, f.Path)
	}
	if len(paths) != 1 || paths[0] != "src/keep.ts" {
		t.Errorf("files = %v, want [src/keep.ts]", paths)
	}
}

func TestLoadProject_GitignoreDisabled(t *testing.T) {
	root := fixtures.WriteProject(t, map[string]string{
		"src/keep.ts":    "export function keep() {}\n",
		"src/ignored.ts": "export function ignored() {}\n",
		".gitignore":     "src/ignored.ts\n",
	})

	p, err := LoadProject(context.Background(), root, WithGitignore(false))
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	defer p.Close()

	if _, ok := p.File("src/ignored.ts"); !ok {
		t.Error("gitignored file must be loaded when gitignore is disabled")
	}
}

func TestLoadProject_SkipsOversizedFiles(t *testing.T) {
	root := fixtures.WriteProject(t, map[string]string{
		"src/small.ts": "export function small() {}\n",
		"src/big.ts":   "export const big = \"" + strings.Repeat("x", 512) + "\";\n",
	})

	p, err := LoadProject(context.Background(), root, WithMaxFileSize(128))
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	defer p.Close()

	if _, ok := p.File("src/big.ts"); ok {
		t.Error("oversized file must be skipped")
	}
	if _, ok := p.File("src/small.ts"); !ok {
		t.Error("small file must be loaded")
	}
}

func TestLoadProject_InvalidFileAborts(t *testing.T) {
	root := fixtures.WriteProject(t, map[string]string{
		"src/bad.ts": string([]byte{0xff, 0xfe}),
	})

	_, err := LoadProject(context.Background(), root)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if parseErr.FilePath != "src/bad.ts" {
		t.Errorf("FilePath = %q, want src/bad.ts", parseErr.FilePath)
	}
}
