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

// unit is one extracted node together with the code scanned for its calls.
type unit struct {
	node Node
	decl *ast.Declaration
	body *sitter.Node
}

// ExtractNodes returns the nodes declared by a source file, in source order.
//
// Description:
//
//	Top-level function declarations and arrow-function variables become
//	function nodes; top-level classes become class nodes followed by one
//	method node per method member. Constructors, accessors, nested functions,
//	type declarations and plain variables produce no node. Signatures in
//	declaration files become nodes without a body to scan.
func ExtractNodes(f *ast.File) []Node {
	units := extractUnits(f)
	out := make([]Node, 0, len(units))
	for _, u := range units {
		out = append(out, u.node)
	}
	return out
}

// extractUnits builds the nodes of f with their call scanning roots.
func extractUnits(f *ast.File) []unit {
	var units []unit
	for _, d := range f.Declarations {
		switch d.Kind {
		case ast.DeclFunction, ast.DeclArrowVariable:
			units = append(units, unit{node: nodeFor(d, NodeKindFunction), decl: d, body: d.Body})
		case ast.DeclClass:
			units = append(units, unit{node: nodeFor(d, NodeKindClass), decl: d})
			for _, m := range d.Members {
				if m.Kind != ast.DeclMethod {
					continue
				}
				units = append(units, unit{node: nodeFor(m, NodeKindMethod), decl: m, body: m.Body})
			}
		}
	}
	return units
}

// nodeFor builds the node of a declaration.
func nodeFor(d *ast.Declaration, kind NodeKind) Node {
	return Node{
		ID:        DeclID(d),
		Name:      d.DisplayName(),
		Kind:      kind,
		FilePath:  d.File.Path,
		Line:      d.Line,
		Signature: d.Signature,
	}
}
