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

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/tscodegraph/services/codegraph/ast"
)

// maxReceiverDepth bounds receiver inference through aliases such as
// "const a = b" so self-referential initializers terminate.
const maxReceiverDepth = 8

// Candidate is one declaration an identifier may refer to.
type Candidate struct {
	// FilePath is the project-relative declaring file, ast.LibraryPath for
	// ambient globals, or the module specifier for external modules.
	FilePath string

	// Line is the 1-based declaration line. Zero for library candidates.
	Line int

	// Name is the declared name.
	Name string

	// External is true when the declaration belongs to a library boundary.
	External bool

	// Decl is the project declaration. Nil for library candidates.
	Decl *ast.Declaration
}

// ID returns the node identity the candidate would have.
func (c Candidate) ID() NodeID {
	return NodeID{Path: c.FilePath, Line: c.Line, Name: c.Name}
}

// candidateFor builds the candidate of a declaration.
func candidateFor(d *ast.Declaration) Candidate {
	return Candidate{
		FilePath: d.File.Path,
		Line:     d.Line,
		Name:     d.DisplayName(),
		Decl:     d,
	}
}

// libraryCandidate builds a candidate outside the project.
func libraryCandidate(module, name string) Candidate {
	return Candidate{FilePath: module, Name: name, External: true}
}

// Oracle answers "which declarations may this identifier refer to".
//
// Description:
//
//	Candidates are produced from the nearest enclosing lexical scope that
//	binds the name, in declaration order. Import bindings are followed
//	through the target module's export surface, including re-export chains.
//	Property names in member calls are resolved against the receiver: the
//	enclosing class for this/super, a module namespace, a class, an
//	interface or class named by a type annotation, a "new" initializer, or
//	an object literal initializer. Top-level values of script files (no
//	import or export, typically global .d.ts files) are visible project
//	wide. Remaining names that are runtime globals resolve to the library
//	boundary.
//
// Thread Safety: Safe for concurrent use; lookups are read-only apart from
// the per-file binding caches, which are synchronized.
type Oracle struct {
	project *ast.Project
	exports *ExportResolver
	globals map[string][]*ast.Declaration
	logger  *slog.Logger
}

// NewOracle creates an oracle over project.
func NewOracle(project *ast.Project, exports *ExportResolver, logger *slog.Logger) *Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Oracle{
		project: project,
		exports: exports,
		globals: make(map[string][]*ast.Declaration),
		logger:  logger,
	}
	for _, f := range project.Files {
		if isModuleFile(f) {
			continue
		}
		for _, d := range f.Declarations {
			if d.Name != "" && d.Kind.IsValue() {
				o.globals[d.Name] = append(o.globals[d.Name], d)
			}
		}
	}
	return o
}

// isModuleFile reports whether f has any import or export, which makes its
// declarations module scoped rather than global.
func isModuleFile(f *ast.File) bool {
	if len(f.Imports) > 0 || len(f.LocalExports) > 0 || len(f.ReExports) > 0 {
		return true
	}
	for _, d := range f.Declarations {
		if d.Exported() {
			return true
		}
	}
	return false
}

// Candidates returns the ordered candidates of a value identifier in f.
func (o *Oracle) Candidates(f *ast.File, ident *sitter.Node) []Candidate {
	name := f.Text(ident)
	decls := f.LookupName(ident, name, false)
	if len(decls) == 0 {
		return o.globalCandidates(name)
	}

	out := make([]Candidate, 0, len(decls))
	for _, d := range decls {
		if d.Kind == ast.DeclImport {
			out = append(out, o.importCandidate(d))
			continue
		}
		out = append(out, candidateFor(d))
	}
	return out
}

// MemberCandidates returns the candidates of property accessed on object.
func (o *Oracle) MemberCandidates(f *ast.File, object *sitter.Node, property string) []Candidate {
	recv := o.receiverOf(f, object, 0)
	switch recv.kind {
	case recvExternal:
		return []Candidate{libraryCandidate(recv.module, property)}

	case recvModule:
		target, ok := o.exports.Resolve(recv.file, property)
		if !ok {
			return nil
		}
		return o.targetCandidates(target, property)

	case recvClass:
		if m := o.classMember(recv.decl, property, make(map[*ast.Declaration]bool)); m != nil {
			return []Candidate{candidateFor(m)}
		}

	case recvInterface:
		if c, ok := interfaceMember(recv.decl, property); ok {
			return []Candidate{c}
		}

	case recvObject:
		if c, ok := objectMember(recv.file, recv.node, property); ok {
			return []Candidate{c}
		}
	}
	return nil
}

// HeritageClass returns the class named by an extends expression or an
// implements type, or nil when it does not name a project class.
func (o *Oracle) HeritageClass(f *ast.File, n *sitter.Node) *ast.Declaration {
	var decls []*ast.Declaration
	switch n.Type() {
	case "identifier":
		decls = f.Lookup(n)
	case "type_identifier":
		decls = f.LookupName(n, f.Text(n), true)
	case "generic_type":
		if name := typeNameNode(n); name != nil {
			decls = f.LookupName(name, f.Text(name), true)
		}
	}
	if len(decls) == 0 {
		return nil
	}
	target, ok := o.resolveBinding(decls[0])
	if !ok || target.Decl == nil || target.Decl.Kind != ast.DeclClass {
		return nil
	}
	return target.Decl
}

// globalCandidates resolves a name no project scope declares.
func (o *Oracle) globalCandidates(name string) []Candidate {
	if decls := o.globals[name]; len(decls) > 0 {
		out := make([]Candidate, 0, len(decls))
		for _, d := range decls {
			out = append(out, candidateFor(d))
		}
		return out
	}
	if ast.IsAmbientGlobal(name) {
		return []Candidate{libraryCandidate(ast.LibraryPath, name)}
	}
	return nil
}

// importCandidate resolves an import binding. A binding whose target cannot
// be found stays a candidate of its own; it never becomes a node and is
// reconciled into an external call.
func (o *Oracle) importCandidate(d *ast.Declaration) Candidate {
	target, ok := o.resolveBinding(d)
	if !ok {
		return candidateFor(d)
	}
	if cands := o.targetCandidates(target, d.Import.Imported); len(cands) > 0 {
		if target.External && (d.Import.Imported == "default" || d.Import.Imported == "*") {
			cands[0].Name = d.Name
		}
		return cands[0]
	}
	return candidateFor(d)
}

// targetCandidates converts an export target into candidates.
func (o *Oracle) targetCandidates(target ExportTarget, name string) []Candidate {
	switch {
	case target.External:
		return []Candidate{libraryCandidate(target.Specifier, name)}
	case target.Decl != nil:
		return []Candidate{candidateFor(target.Decl)}
	}
	return nil
}

// resolveBinding follows an import binding to what it names. Other
// declarations resolve to themselves.
func (o *Oracle) resolveBinding(d *ast.Declaration) (ExportTarget, bool) {
	if d.Kind != ast.DeclImport {
		return ExportTarget{Decl: d}, true
	}
	imp := d.Import
	target, kind := o.project.ResolveModule(d.File, imp.Specifier)
	switch kind {
	case ast.ModuleExternal:
		return ExportTarget{External: true, Specifier: imp.Specifier}, true
	case ast.ModuleMissing:
		return ExportTarget{}, false
	}
	if imp.Imported == "*" {
		return ExportTarget{Module: target}, true
	}
	return o.exports.Resolve(target, imp.Imported)
}

type recvKind int

const (
	recvNone recvKind = iota
	recvExternal
	recvModule
	recvClass
	recvInterface
	recvObject
)

// receiver is the inferred value a member access is applied to.
type receiver struct {
	kind recvKind

	// decl is the class or interface declaration.
	decl *ast.Declaration

	// file is the namespace module, or the file holding node.
	file *ast.File

	// node is the object literal.
	node *sitter.Node

	// module names the library module of an external receiver.
	module string
}

// receiverOf infers the receiver expression n evaluates to.
func (o *Oracle) receiverOf(f *ast.File, n *sitter.Node, depth int) receiver {
	if n == nil || depth > maxReceiverDepth {
		return receiver{}
	}
	switch n.Type() {
	case "this":
		if cls := o.classDeclFor(f, ast.EnclosingClass(n)); cls != nil {
			return receiver{kind: recvClass, decl: cls}
		}

	case "super":
		if cls := o.classDeclFor(f, ast.EnclosingClass(n)); cls != nil {
			if parent := o.superclass(cls); parent != nil {
				return receiver{kind: recvClass, decl: parent}
			}
		}

	case "identifier":
		decls := f.Lookup(n)
		if len(decls) == 0 {
			name := f.Text(n)
			if globals := o.globals[name]; len(globals) > 0 {
				return o.receiverOfDecl(globals[0], depth+1)
			}
			if ast.IsAmbientGlobal(name) {
				return receiver{kind: recvExternal, module: ast.LibraryPath}
			}
			return receiver{}
		}
		return o.receiverOfDecl(decls[0], depth+1)

	case "member_expression":
		inner := o.receiverOf(f, n.ChildByFieldName("object"), depth+1)
		property := f.Text(n.ChildByFieldName("property"))
		switch inner.kind {
		case recvExternal:
			return inner
		case recvModule:
			if target, ok := o.exports.Resolve(inner.file, property); ok {
				return o.receiverOfTarget(target, depth+1)
			}
		case recvClass:
			if m := o.classMember(inner.decl, property, make(map[*ast.Declaration]bool)); m != nil {
				return o.receiverOfDecl(m, depth+1)
			}
		}

	case "parenthesized_expression", "non_null_expression", "await_expression":
		return o.receiverOf(f, n.NamedChild(0), depth+1)

	case "as_expression", "satisfies_expression":
		if count := int(n.NamedChildCount()); count > 1 {
			if recv := o.typeReceiver(f, n.NamedChild(count-1)); recv.kind != recvNone {
				return recv
			}
		}
		return o.receiverOf(f, n.NamedChild(0), depth+1)

	default:
		return o.receiverOfValue(f, n, depth+1)
	}
	return receiver{}
}

// receiverOfDecl infers the receiver a declared name holds.
func (o *Oracle) receiverOfDecl(d *ast.Declaration, depth int) receiver {
	if depth > maxReceiverDepth {
		return receiver{}
	}
	switch d.Kind {
	case ast.DeclImport:
		target, ok := o.resolveBinding(d)
		if !ok {
			return receiver{}
		}
		return o.receiverOfTarget(target, depth+1)

	case ast.DeclClass:
		return receiver{kind: recvClass, decl: d}

	case ast.DeclInterface:
		return receiver{kind: recvInterface, decl: d}

	case ast.DeclVariable, ast.DeclParameter, ast.DeclField:
		if d.TypeAnnotation != nil {
			if recv := o.typeReceiver(d.File, d.TypeAnnotation); recv.kind != recvNone {
				return recv
			}
		}
		if d.Value != nil {
			return o.receiverOfValue(d.File, d.Value, depth+1)
		}
	}
	return receiver{}
}

// receiverOfTarget infers the receiver of an export target.
func (o *Oracle) receiverOfTarget(target ExportTarget, depth int) receiver {
	switch {
	case target.External:
		return receiver{kind: recvExternal, module: target.Specifier}
	case target.Module != nil:
		return receiver{kind: recvModule, file: target.Module}
	case target.Decl != nil:
		return o.receiverOfDecl(target.Decl, depth+1)
	}
	return receiver{}
}

// receiverOfValue infers the receiver an initializer expression produces.
func (o *Oracle) receiverOfValue(f *ast.File, v *sitter.Node, depth int) receiver {
	if v == nil || depth > maxReceiverDepth {
		return receiver{}
	}
	switch v.Type() {
	case "new_expression":
		ctor := v.ChildByFieldName("constructor")
		if ctor == nil {
			return receiver{}
		}
		recv := o.receiverOf(f, ctor, depth+1)
		if recv.kind == recvClass || recv.kind == recvExternal {
			return recv
		}

	case "call_expression":
		if ok, spec, literal := dynamicImportSpecifier(f, v); ok && literal {
			return o.moduleReceiver(f, spec)
		}

	case "object":
		return receiver{kind: recvObject, file: f, node: v}

	case "identifier", "member_expression", "parenthesized_expression",
		"await_expression", "non_null_expression", "as_expression", "satisfies_expression":
		return o.receiverOf(f, v, depth+1)
	}
	return receiver{}
}

// moduleReceiver is the namespace object of a module specifier.
func (o *Oracle) moduleReceiver(f *ast.File, spec string) receiver {
	target, kind := o.project.ResolveModule(f, spec)
	switch kind {
	case ast.ModuleProject:
		return receiver{kind: recvModule, file: target}
	case ast.ModuleExternal:
		return receiver{kind: recvExternal, module: spec}
	}
	return receiver{}
}

// typeReceiver infers the receiver described by a type annotation.
func (o *Oracle) typeReceiver(f *ast.File, t *sitter.Node) receiver {
	if t == nil {
		return receiver{}
	}
	if t.Type() == "type_annotation" {
		t = t.NamedChild(0)
		if t == nil {
			return receiver{}
		}
	}
	var nameNode *sitter.Node
	switch t.Type() {
	case "type_identifier":
		nameNode = t
	case "generic_type":
		nameNode = typeNameNode(t)
	}
	if nameNode == nil {
		return receiver{}
	}

	name := f.Text(nameNode)
	decls := f.LookupName(nameNode, name, true)
	if len(decls) == 0 {
		if ast.IsAmbientGlobal(name) {
			return receiver{kind: recvExternal, module: ast.LibraryPath}
		}
		return receiver{}
	}
	target, ok := o.resolveBinding(decls[0])
	if !ok {
		return receiver{}
	}
	if target.External {
		return receiver{kind: recvExternal, module: target.Specifier}
	}
	if d := target.Decl; d != nil {
		switch d.Kind {
		case ast.DeclClass:
			return receiver{kind: recvClass, decl: d}
		case ast.DeclInterface:
			return receiver{kind: recvInterface, decl: d}
		}
	}
	return receiver{}
}

// typeNameNode returns the name of a generic type reference.
func typeNameNode(t *sitter.Node) *sitter.Node {
	if name := t.ChildByFieldName("name"); name != nil {
		return name
	}
	if first := t.NamedChild(0); first != nil && first.Type() == "type_identifier" {
		return first
	}
	return nil
}

// classDeclFor returns the declaration built for a class node.
func (o *Oracle) classDeclFor(f *ast.File, cls *sitter.Node) *ast.Declaration {
	if cls == nil {
		return nil
	}
	d, ok := f.DeclarationFor(cls, f.Text(cls.ChildByFieldName("name")))
	if !ok || d.Kind != ast.DeclClass {
		return nil
	}
	return d
}

// superclass returns the project class cls extends, if any.
func (o *Oracle) superclass(cls *ast.Declaration) *ast.Declaration {
	if len(cls.Heritage.Extends) == 0 {
		return nil
	}
	return o.HeritageClass(cls.File, cls.Heritage.Extends[0])
}

// classMember finds a member by name on cls or along its extends chain.
func (o *Oracle) classMember(cls *ast.Declaration, name string, visited map[*ast.Declaration]bool) *ast.Declaration {
	for cls != nil && !visited[cls] {
		visited[cls] = true
		for _, m := range cls.Members {
			if m.Name == name {
				return m
			}
		}
		cls = o.superclass(cls)
	}
	return nil
}

// interfaceMember finds a method or property signature of an interface.
func interfaceMember(iface *ast.Declaration, name string) (Candidate, bool) {
	body := iface.Node.ChildByFieldName("body")
	if body == nil {
		return Candidate{}, false
	}
	f := iface.File
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "method_signature", "property_signature":
			if f.Text(member.ChildByFieldName("name")) == name {
				return Candidate{
					FilePath: f.Path,
					Line:     int(member.StartPoint().Row + 1),
					Name:     name,
				}, true
			}
		}
	}
	return Candidate{}, false
}

// objectMember finds a method or property of an object literal.
func objectMember(f *ast.File, object *sitter.Node, name string) (Candidate, bool) {
	for i := 0; i < int(object.NamedChildCount()); i++ {
		member := object.NamedChild(i)
		var key *sitter.Node
		switch member.Type() {
		case "method_definition":
			key = member.ChildByFieldName("name")
		case "pair":
			key = member.ChildByFieldName("key")
		case "shorthand_property_identifier":
			key = member
		}
		if key != nil && f.Text(key) == name {
			return Candidate{
				FilePath: f.Path,
				Line:     int(member.StartPoint().Row + 1),
				Name:     name,
			}, true
		}
	}
	return Candidate{}, false
}
