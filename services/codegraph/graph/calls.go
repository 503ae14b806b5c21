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

// CallClass is the outcome of resolving one call expression.
type CallClass int

const (
	// CallInternal resolved to a project declaration.
	CallInternal CallClass = iota + 1

	// CallExternal resolved to a library declaration.
	CallExternal

	// CallUnknown has no identifiable callee or no candidate declaration.
	CallUnknown
)

// String returns the class name.
func (c CallClass) String() string {
	switch c {
	case CallInternal:
		return "internal"
	case CallExternal:
		return "external"
	case CallUnknown:
		return "unknown"
	}
	return "invalid"
}

// CallSite is one classified call expression.
type CallSite struct {
	Class CallClass

	// Text is the raw callee source text, e.g. "console.log".
	Text string

	// Target is the callee identity. Set only for CallInternal.
	Target NodeID

	// Line is the 1-based line of the call.
	Line int
}

// CallResolver classifies call expressions.
type CallResolver struct {
	oracle *Oracle
}

// NewCallResolver creates a resolver backed by oracle.
func NewCallResolver(oracle *Oracle) *CallResolver {
	return &CallResolver{oracle: oracle}
}

// Resolve classifies the call expression call in file f.
//
// Description:
//
//	The callee identifier is the callee itself when it is a bare identifier
//	and the property name when it is a property access. Any other callee
//	shape (an IIFE, computed access, super(...)) is unknown. Otherwise the
//	first candidate from the oracle decides: a library declaration is
//	external, a project declaration is internal.
//
// Thread Safety: Safe for concurrent use.
func (r *CallResolver) Resolve(f *ast.File, call *sitter.Node) CallSite {
	fn := call.ChildByFieldName("function")
	site := CallSite{
		Class: CallUnknown,
		Text:  f.Text(fn),
		Line:  int(call.StartPoint().Row + 1),
	}
	if fn == nil {
		return site
	}

	var candidates []Candidate
	switch fn.Type() {
	case "identifier":
		candidates = r.oracle.Candidates(f, fn)
	case tsMemberExpression:
		property := fn.ChildByFieldName("property")
		if property == nil {
			return site
		}
		switch property.Type() {
		case "property_identifier", "private_property_identifier":
			candidates = r.oracle.MemberCandidates(f, fn.ChildByFieldName("object"), f.Text(property))
		default:
			return site
		}
	default:
		return site
	}

	if len(candidates) == 0 {
		return site
	}
	first := candidates[0]
	if first.External {
		site.Class = CallExternal
		return site
	}
	site.Class = CallInternal
	site.Target = first.ID()
	return site
}

const (
	tsCallExpression   = "call_expression"
	tsMemberExpression = "member_expression"
)

// isCall reports whether n is a call expression. Tagged templates share the
// node type but are not calls.
func isCall(n *sitter.Node) bool {
	if n.Type() != tsCallExpression {
		return false
	}
	args := n.ChildByFieldName("arguments")
	return args != nil && args.Type() != "template_string"
}

// isDynamicImport reports whether n is an import(...) call.
func isDynamicImport(n *sitter.Node) bool {
	if n.Type() != tsCallExpression {
		return false
	}
	fn := n.ChildByFieldName("function")
	return fn != nil && fn.Type() == "import"
}

// walkCalls visits every call expression under root in source order using an
// explicit stack.
func walkCalls(root *sitter.Node, visit func(call *sitter.Node)) {
	if root == nil {
		return
	}
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if isCall(n) {
			visit(n)
		}
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.NamedChild(i))
		}
	}
}
