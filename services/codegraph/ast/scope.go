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
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// functionLikeTypes are the nodes that open a parameter scope.
var functionLikeTypes = map[string]bool{
	"function_declaration":           true,
	"generator_function_declaration": true,
	"function":                       true,
	"function_expression":            true,
	"generator_function":             true,
	"arrow_function":                 true,
	"method_definition":              true,
}

// blockTypes are the nodes whose direct statements declare bindings.
var blockTypes = map[string]bool{
	tsNodeStatementBlock: true,
	"class_static_block": true,
	"switch_case":        true,
	"switch_default":     true,
}

// Lookup resolves the identifier node ident to its declarations.
//
// Description:
//
//	Walks outward from ident through the enclosing lexical scopes and returns
//	the bindings of the innermost scope that declares the name, ordered by
//	source position. Module scope includes top-level declarations and import
//	bindings. An empty result means the name is not declared in this file
//	(it may still be an ambient global).
//
// Thread Safety: Safe for concurrent use on the same File.
func (f *File) Lookup(ident *sitter.Node) []*Declaration {
	if ident == nil {
		return nil
	}
	return f.LookupName(ident, f.Text(ident), false)
}

// LookupName resolves name as seen from the position of node at.
//
// When types is true, only declarations usable in a type position are
// returned (classes, interfaces, type aliases, enums, imports); otherwise only
// value declarations are returned.
func (f *File) LookupName(at *sitter.Node, name string, types bool) []*Declaration {
	if at == nil || name == "" {
		return nil
	}
	for n := at.Parent(); n != nil; n = n.Parent() {
		var found []*Declaration
		switch {
		case n.Type() == "program":
			return filterKinds(f.topLevel[name], types)
		case blockTypes[n.Type()]:
			found = f.blockBindings(n, name)
		case functionLikeTypes[n.Type()]:
			found = f.parameterBindings(n, name)
		case n.Type() == "for_statement":
			if init := n.ChildByFieldName("initializer"); init != nil {
				found = f.declaratorBindings(init, name)
			}
		case n.Type() == "for_in_statement":
			if left := n.ChildByFieldName("left"); left != nil {
				found = f.patternBinding(n, left, name, DeclVariable)
			}
		case n.Type() == "catch_clause":
			if param := n.ChildByFieldName("parameter"); param != nil {
				found = f.patternBinding(n, param, name, DeclParameter)
			}
		}
		if found = filterKinds(found, types); len(found) > 0 {
			sort.SliceStable(found, func(i, j int) bool {
				return found[i].Node.StartByte() < found[j].Node.StartByte()
			})
			return found
		}
	}
	return nil
}

// filterKinds keeps value or type declarations.
func filterKinds(decls []*Declaration, types bool) []*Declaration {
	if len(decls) == 0 {
		return nil
	}
	out := make([]*Declaration, 0, len(decls))
	for _, d := range decls {
		if types && d.Kind.IsType() || !types && d.Kind.IsValue() {
			out = append(out, d)
		}
	}
	return out
}

// blockBindings returns the bindings named name declared by the direct
// statements of a block.
func (f *File) blockBindings(block *sitter.Node, name string) []*Declaration {
	var out []*Declaration
	for i := 0; i < int(block.NamedChildCount()); i++ {
		stmt := block.NamedChild(i)
		switch stmt.Type() {
		case "function_declaration", "generator_function_declaration":
			if f.Text(stmt.ChildByFieldName("name")) == name {
				out = append(out, f.localDecl(&Declaration{
					Name: name,
					Kind: DeclFunction,
					Line: lineOf(stmt),
					Node: stmt,
					Body: stmt,
				}))
			}
		case "class_declaration", "abstract_class_declaration":
			if f.Text(stmt.ChildByFieldName("name")) == name {
				out = append(out, f.localDecl(&Declaration{
					Name:     name,
					Kind:     DeclClass,
					Line:     lineOf(stmt),
					Node:     stmt,
					Heritage: classHeritage(stmt),
				}))
			}
		case "lexical_declaration", "variable_declaration":
			out = append(out, f.declaratorBindings(stmt, name)...)
		}
	}
	return out
}

// declaratorBindings returns bindings named name from a variable declaration.
func (f *File) declaratorBindings(decl *sitter.Node, name string) []*Declaration {
	if decl.Type() != "lexical_declaration" && decl.Type() != "variable_declaration" {
		return nil
	}
	var out []*Declaration
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		declarator := decl.NamedChild(i)
		if declarator.Type() != "variable_declarator" {
			continue
		}
		nameNode := declarator.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		if nameNode.Type() == tsNodeIdentifier {
			if f.Text(nameNode) != name {
				continue
			}
			d := &Declaration{
				Name:           name,
				Kind:           DeclVariable,
				Line:           lineOf(declarator),
				Node:           declarator,
				Value:          declarator.ChildByFieldName("value"),
				TypeAnnotation: declarator.ChildByFieldName("type"),
			}
			if d.Value != nil && d.Value.Type() == tsNodeArrowFunction {
				d.Kind = DeclArrowVariable
				d.Body = d.Value
			}
			out = append(out, f.localDecl(d))
			continue
		}
		out = append(out, f.patternBinding(declarator, nameNode, name, DeclVariable)...)
	}
	return out
}

// parameterBindings returns parameters (and a named function expression's
// own name) bound by a function-like node.
func (f *File) parameterBindings(fn *sitter.Node, name string) []*Declaration {
	var out []*Declaration

	if param := fn.ChildByFieldName("parameter"); param != nil {
		if f.Text(param) == name {
			out = append(out, f.localDecl(&Declaration{
				Name: name,
				Kind: DeclParameter,
				Line: lineOf(param),
				Node: param,
			}))
		}
	}

	if params := fn.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			param := params.NamedChild(i)
			pattern := param.ChildByFieldName("pattern")
			if pattern == nil {
				continue
			}
			for _, id := range patternIdentifiers(pattern) {
				if f.Text(id) != name {
					continue
				}
				out = append(out, f.localDecl(&Declaration{
					Name:           name,
					Kind:           DeclParameter,
					Line:           lineOf(param),
					Node:           param,
					TypeAnnotation: param.ChildByFieldName("type"),
				}))
			}
		}
	}

	if functionExpressionTypes[fn.Type()] && f.Text(fn.ChildByFieldName("name")) == name {
		out = append(out, f.localDecl(&Declaration{
			Name: name,
			Kind: DeclFunction,
			Line: lineOf(fn),
			Node: fn,
			Body: fn,
		}))
	}
	return out
}

// patternBinding returns a binding for name when pattern binds it.
func (f *File) patternBinding(owner, pattern *sitter.Node, name string, kind DeclKind) []*Declaration {
	for _, id := range patternIdentifiers(pattern) {
		if f.Text(id) == name {
			return []*Declaration{f.localDecl(&Declaration{
				Name: name,
				Kind: kind,
				Line: lineOf(owner),
				Node: owner,
			})}
		}
	}
	return nil
}

// localDecl finalizes a lazily built local declaration and caches it.
func (f *File) localDecl(d *Declaration) *Declaration {
	d.File = f
	return f.remember(d)
}

// EnclosingClass returns the class node that "this" refers to at node n, or
// nil when n is not inside a method, field initializer or arrow function
// nested in one. A non-arrow function boundary rebinds "this".
func EnclosingClass(n *sitter.Node) *sitter.Node {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Type() {
		case "class_declaration", "abstract_class_declaration", "class":
			return cur
		case "function_declaration", "generator_function_declaration", "function", "function_expression", "generator_function":
			return nil
		}
	}
	return nil
}
