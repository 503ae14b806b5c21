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
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// sourceExtensions are the file extensions parsed as TypeScript.
var sourceExtensions = []string{".ts", ".tsx", ".mts", ".cts"}

// declarationSuffixes mark ambient declaration files. They are parsed for
// their export surface but belong to the library boundary.
var declarationSuffixes = []string{".d.ts", ".d.mts", ".d.cts"}

// alwaysSkippedDirs are never descended into, whatever tsconfig says.
var alwaysSkippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// discoveredFile is one file selected for parsing.
type discoveredFile struct {
	relPath     string
	absPath     string
	declaration bool
}

// discoveryOptions controls the project walk.
type discoveryOptions struct {
	extraExcludes    []string
	respectGitignore bool
}

// isSourceFile reports whether name has a TypeScript extension.
func isSourceFile(name string) bool {
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// IsDeclarationFile reports whether name is an ambient declaration file.
func IsDeclarationFile(name string) bool {
	for _, suffix := range declarationSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// normalizePatterns strips "./" prefixes so tsconfig globs line up with
// slash-separated project-relative paths.
func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(filepath.ToSlash(p))
		p = strings.TrimPrefix(p, "./")
		if p == "" || p == "." {
			p = "**/*"
		}
		out = append(out, p)
	}
	return out
}

// discoverFiles walks root and returns the files selected by tsconfig.
//
// Description:
//
//	Include and exclude globs are matched with gitignore semantics, which
//	cover the "**", "*" and bare-directory forms tsconfig uses. Explicit
//	"files" entries are always included. Hidden directories (such as the
//	index directory) and node_modules are skipped. When respectGitignore is
//	set, the root .gitignore filters the walk as well.
//
// Outputs:
//
//	[]discoveredFile - Sorted by relative path.
//	error - Non-nil only if the walk itself fails.
func discoverFiles(root string, cfg *TSConfig, opts discoveryOptions, logger *slog.Logger) ([]discoveredFile, error) {
	include := ignore.CompileIgnoreLines(normalizePatterns(cfg.Include)...)
	excludePatterns := normalizePatterns(append(append([]string(nil), cfg.Exclude...), opts.extraExcludes...))
	exclude := ignore.CompileIgnoreLines(excludePatterns...)

	var gitignore *ignore.GitIgnore
	if opts.respectGitignore {
		gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
		if err == nil {
			gitignore = gi
		} else if !os.IsNotExist(err) {
			logger.Warn("ignoring unreadable .gitignore",
				slog.String("root", root),
				slog.String("error", err.Error()))
		}
	}

	explicit := make(map[string]bool, len(cfg.Files))
	for _, f := range normalizePatterns(cfg.Files) {
		explicit[f] = true
	}

	seen := make(map[string]bool)
	var files []discoveredFile

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			name := d.Name()
			if alwaysSkippedDirs[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if exclude.MatchesPath(rel) || (gitignore != nil && gitignore.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isSourceFile(d.Name()) {
			return nil
		}
		if !explicit[rel] {
			if len(cfg.Include) == 0 || !include.MatchesPath(rel) {
				return nil
			}
			if exclude.MatchesPath(rel) {
				return nil
			}
			if gitignore != nil && gitignore.MatchesPath(rel) {
				return nil
			}
		}

		if !seen[rel] {
			seen[rel] = true
			files = append(files, discoveredFile{
				relPath:     rel,
				absPath:     path,
				declaration: IsDeclarationFile(d.Name()),
			})
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(files, func(i, j int) bool { return files[i].relPath < files[j].relPath })
	return files, nil
}
