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
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/tscodegraph/services/codegraph/ast"
)

// ImportSite is one classified import(...) call.
type ImportSite struct {
	// Text is the raw call text, e.g. `import("./sample.js")`.
	Text string

	// Specifier is the string literal argument. Empty when not Literal.
	Specifier string

	// Literal is true when the first argument is a string literal.
	Literal bool

	// External is true for bare specifiers and for relative specifiers
	// that do not land on a project source file.
	External bool

	// Targets are the exported declarations of the imported module.
	Targets []NodeID
}

// ExternalCall returns the external record of an unresolved import, or false
// when the import resolved to the project.
func (s ImportSite) ExternalCall(from NodeID) (ExternalCall, bool) {
	switch {
	case !s.Literal:
		return ExternalCall{From: from, Name: DynamicImportMarker, Text: s.Text}, true
	case s.External:
		return ExternalCall{From: from, Name: s.Specifier, Text: s.Text}, true
	}
	return ExternalCall{}, false
}

// ImportResolver resolves dynamic imports to the exports of their target.
type ImportResolver struct {
	project *ast.Project
	exports *ExportResolver
}

// NewImportResolver creates an import resolver.
func NewImportResolver(project *ast.Project, exports *ExportResolver) *ImportResolver {
	return &ImportResolver{project: project, exports: exports}
}

// Resolve classifies the import(...) call in file f.
//
// A literal relative specifier is resolved with the TypeScript extension
// rules; when it lands on a project source file, every function, arrow
// variable and class in that file's export surface (following re-exports to
// the original declaration) is a target.
func (r *ImportResolver) Resolve(f *ast.File, call *sitter.Node) (ImportSite, bool) {
	ok, spec, literal := dynamicImportSpecifier(f, call)
	if !ok {
		return ImportSite{}, false
	}
	site := ImportSite{Text: f.Text(call), Specifier: spec, Literal: literal}
	if !literal {
		return site, true
	}

	target, kind := r.project.ResolveModule(f, spec)
	if kind != ast.ModuleProject {
		site.External = true
		return site, true
	}
	for _, d := range r.exports.Surface(target) {
		site.Targets = append(site.Targets, DeclID(d))
	}
	return site, true
}

// dynamicImportSpecifier inspects an import(...) call.
//
// Outputs:
//
//	ok - False when call is not an import(...) with at least one argument.
//	spec - The unquoted specifier when literal.
//	literal - True when the first argument is a string literal.
func dynamicImportSpecifier(f *ast.File, call *sitter.Node) (ok bool, spec string, literal bool) {
	if !isDynamicImport(call) {
		return false, "", false
	}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return false, "", false
	}
	first := args.NamedChild(0)
	if first.Type() != "string" {
		return true, "", false
	}
	return true, f.StringContent(first), true
}
