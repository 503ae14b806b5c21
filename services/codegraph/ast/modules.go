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
	"path"
	"path/filepath"
	"strings"
)

// ModuleKind classifies a module specifier.
type ModuleKind int

const (
	// ModuleExternal is a bare specifier ("react", "node:path"). Such
	// modules live outside the tsconfig source set.
	ModuleExternal ModuleKind = iota + 1

	// ModuleProject is a relative specifier resolved to a project source file.
	ModuleProject

	// ModuleMissing is a relative specifier that matches no project file.
	ModuleMissing
)

// String returns the kind name.
func (k ModuleKind) String() string {
	switch k {
	case ModuleExternal:
		return "external"
	case ModuleProject:
		return "project"
	case ModuleMissing:
		return "missing"
	}
	return "unknown"
}

// jsToTSExtensions maps emitted JavaScript extensions to their sources.
var jsToTSExtensions = map[string][]string{
	".js":  {".ts", ".tsx", ".d.ts"},
	".jsx": {".tsx"},
	".mjs": {".mts", ".d.mts"},
	".cjs": {".cts", ".d.cts"},
}

// IsRelativeSpecifier reports whether spec names a path rather than a package.
func IsRelativeSpecifier(spec string) bool {
	return strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/")
}

// ModuleCandidates returns the project-relative paths a relative specifier
// may name, in lookup order.
//
// Description:
//
//	The specifier is joined with the importing file's directory. A JavaScript
//	extension is swapped for its TypeScript source extension; a TypeScript
//	extension is kept; anything else gets ".ts" appended, followed by the
//	".tsx", ".d.ts" and directory index fallbacks. An absolute specifier is
//	taken relative to the filesystem root and mapped into the project when it
//	lies inside root.
//
// Outputs:
//
//	[]string - Candidate paths with forward slashes. Empty when the
//	           specifier escapes the project.
func ModuleCandidates(root, fromPath, spec string) []string {
	var base string
	if strings.HasPrefix(spec, "/") {
		rel, err := filepath.Rel(root, filepath.FromSlash(spec))
		if err != nil {
			return nil
		}
		base = path.Clean(filepath.ToSlash(rel))
	} else {
		base = path.Join(path.Dir(fromPath), spec)
	}
	if base == ".." || strings.HasPrefix(base, "../") {
		return nil
	}

	ext := path.Ext(base)
	if replacements, ok := jsToTSExtensions[ext]; ok {
		stem := strings.TrimSuffix(base, ext)
		out := make([]string, 0, len(replacements))
		for _, r := range replacements {
			out = append(out, stem+r)
		}
		return out
	}
	if isSourceFile(base) {
		return []string{base}
	}
	return []string{
		base + ".ts",
		base + ".tsx",
		base + ".d.ts",
		base + "/index.ts",
		base + "/index.tsx",
		base + "/index.d.ts",
	}
}

// ResolveModule resolves a module specifier written in file from.
//
// Outputs:
//
//	*File - The target file for ModuleProject. Nil otherwise.
//	ModuleKind - Classification of the specifier.
func (p *Project) ResolveModule(from *File, spec string) (*File, ModuleKind) {
	if !IsRelativeSpecifier(spec) {
		return nil, ModuleExternal
	}
	for _, candidate := range ModuleCandidates(p.Root, from.Path, spec) {
		if target, ok := p.byPath[candidate]; ok {
			return target, ModuleProject
		}
	}
	return nil, ModuleMissing
}
