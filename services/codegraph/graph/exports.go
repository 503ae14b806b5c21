// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"log/slog"

	"github.com/AleutianAI/tscodegraph/services/codegraph/ast"
)

// ExportTarget is what an exported name ultimately refers to.
type ExportTarget struct {
	// Decl is the original declaration. Nil for namespaces and externals.
	Decl *ast.Declaration

	// Module is set when the name is a module namespace object
	// ("export * as ns from" or a re-exported namespace import).
	Module *ast.File

	// External is true when the chain leaves the project through a bare
	// specifier. Specifier holds the module it left through.
	External  bool
	Specifier string
}

// visitKey identifies one (file, export name) step of a re-export chain.
type visitKey struct {
	file string
	name string
}

// ExportResolver resolves module export surfaces across re-export chains.
//
// Thread Safety: Safe for concurrent use after construction; it only reads
// the project.
type ExportResolver struct {
	project *ast.Project
	logger  *slog.Logger
}

// NewExportResolver creates a resolver over project.
func NewExportResolver(project *ast.Project, logger *slog.Logger) *ExportResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportResolver{project: project, logger: logger}
}

// Resolve returns what file exports under name.
//
// Description:
//
//	Looks at the file's own exported declarations, then export clauses
//	(following import bindings they republish), then named re-exports, then
//	wildcard re-exports in statement order. Every (file, name) step is
//	recorded in a visited set; a chain that returns to a visited step stops
//	and the name is reported as unresolved.
//
// Outputs:
//
//	ExportTarget - The resolved target.
//	bool - False when the name is not exported or its chain cycles.
func (r *ExportResolver) Resolve(file *ast.File, name string) (ExportTarget, bool) {
	return r.resolve(file, name, make(map[visitKey]bool))
}

func (r *ExportResolver) resolve(file *ast.File, name string, visited map[visitKey]bool) (ExportTarget, bool) {
	key := visitKey{file: file.Path, name: name}
	if visited[key] {
		r.logger.Debug("re-export chain cycles",
			slog.String("file", file.Path),
			slog.String("name", name),
			slog.String("error", ErrReExportCycle.Error()),
		)
		return ExportTarget{}, false
	}
	visited[key] = true

	for _, d := range file.Declarations {
		if d.ExportName == name && d.Kind.IsValue() {
			return ExportTarget{Decl: d}, true
		}
	}

	for _, le := range file.LocalExports {
		if le.Exported != name {
			continue
		}
		for _, d := range file.ModuleBindings(le.Local) {
			if d.Kind == ast.DeclImport {
				return r.resolveImport(file, d.Import, visited)
			}
			if d.Kind.IsValue() {
				return ExportTarget{Decl: d}, true
			}
		}
		return ExportTarget{}, false
	}

	for _, re := range file.ReExports {
		if re.Wildcard || re.Exported != name {
			continue
		}
		return r.follow(file, re.Specifier, re.Imported, visited)
	}

	if name == "default" {
		return ExportTarget{}, false
	}
	for _, re := range file.ReExports {
		if !re.Wildcard {
			continue
		}
		target, kind := r.project.ResolveModule(file, re.Specifier)
		if kind != ast.ModuleProject {
			continue
		}
		if found, ok := r.resolve(target, name, visited); ok {
			return found, true
		}
	}
	return ExportTarget{}, false
}

// resolveImport follows an import binding republished by an export clause.
func (r *ExportResolver) resolveImport(file *ast.File, imp *ast.Import, visited map[visitKey]bool) (ExportTarget, bool) {
	return r.follow(file, imp.Specifier, imp.Imported, visited)
}

// follow resolves name imported from specifier as seen from file.
func (r *ExportResolver) follow(file *ast.File, specifier, name string, visited map[visitKey]bool) (ExportTarget, bool) {
	target, kind := r.project.ResolveModule(file, specifier)
	switch kind {
	case ast.ModuleExternal:
		return ExportTarget{External: true, Specifier: specifier}, true
	case ast.ModuleMissing:
		return ExportTarget{}, false
	}
	if name == "*" {
		return ExportTarget{Module: target}, true
	}
	return r.resolve(target, name, visited)
}

// Names returns the export surface of file in statement order: direct
// exports, export clauses, named re-exports, then names reached through
// wildcard re-exports. "default" is never taken from a wildcard.
func (r *ExportResolver) Names(file *ast.File) []string {
	var out []string
	seen := make(map[string]bool)
	r.collectNames(file, seen, make(map[string]bool), &out, true)
	return out
}

func (r *ExportResolver) collectNames(file *ast.File, seen, files map[string]bool, out *[]string, top bool) {
	if files[file.Path] {
		return
	}
	files[file.Path] = true

	add := func(name string) {
		if name == "" || seen[name] || (!top && name == "default") {
			return
		}
		seen[name] = true
		*out = append(*out, name)
	}

	for _, d := range file.Declarations {
		if d.Exported() && d.Kind.IsValue() {
			add(d.ExportName)
		}
	}
	for _, le := range file.LocalExports {
		add(le.Exported)
	}
	for _, re := range file.ReExports {
		if !re.Wildcard {
			add(re.Exported)
		}
	}
	for _, re := range file.ReExports {
		if !re.Wildcard {
			continue
		}
		if target, kind := r.project.ResolveModule(file, re.Specifier); kind == ast.ModuleProject {
			r.collectNames(target, seen, files, out, false)
		}
	}
}

// Surface returns the node-producing declarations (functions, arrow
// variables and classes) exported by file, in export surface order. Names
// resolving to the same declaration appear once.
func (r *ExportResolver) Surface(file *ast.File) []*ast.Declaration {
	var out []*ast.Declaration
	seen := make(map[*ast.Declaration]bool)
	for _, name := range r.Names(file) {
		target, ok := r.Resolve(file, name)
		if !ok || target.Decl == nil || seen[target.Decl] {
			continue
		}
		if !producesNode(target.Decl) {
			continue
		}
		seen[target.Decl] = true
		out = append(out, target.Decl)
	}
	return out
}

// producesNode reports whether a top-level declaration becomes a graph node.
func producesNode(d *ast.Declaration) bool {
	if !d.TopLevel {
		return d.Kind == ast.DeclMethod
	}
	switch d.Kind {
	case ast.DeclFunction, ast.DeclArrowVariable, ast.DeclClass:
		return true
	}
	return false
}
