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
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// AnonymousName is the display name of declarations without a name.
const AnonymousName = "(anonymous)"

// DeclKind classifies a declaration.
type DeclKind int

const (
	// DeclFunction is a function declaration (or an anonymous default-exported function).
	DeclFunction DeclKind = iota + 1

	// DeclArrowVariable is a variable whose initializer is an arrow function.
	DeclArrowVariable

	// DeclVariable is any other variable binding.
	DeclVariable

	// DeclClass is a class declaration.
	DeclClass

	// DeclMethod is a method member of a class.
	DeclMethod

	// DeclField is a property member of a class, interface or object literal.
	DeclField

	// DeclInterface is an interface declaration.
	DeclInterface

	// DeclTypeAlias is a type alias declaration.
	DeclTypeAlias

	// DeclEnum is an enum declaration.
	DeclEnum

	// DeclNamespace is a namespace or ambient module declaration.
	DeclNamespace

	// DeclParameter is a function parameter or catch binding.
	DeclParameter

	// DeclImport is a binding introduced by an import statement.
	DeclImport
)

var declKindNames = map[DeclKind]string{
	DeclFunction:      "function",
	DeclArrowVariable: "arrow_variable",
	DeclVariable:      "variable",
	DeclClass:         "class",
	DeclMethod:        "method",
	DeclField:         "field",
	DeclInterface:     "interface",
	DeclTypeAlias:     "type_alias",
	DeclEnum:          "enum",
	DeclNamespace:     "namespace",
	DeclParameter:     "parameter",
	DeclImport:        "import",
}

// String returns the lowercase kind name.
func (k DeclKind) String() string {
	if name, ok := declKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsValue reports whether the kind binds a runtime value.
func (k DeclKind) IsValue() bool {
	return k != DeclInterface && k != DeclTypeAlias
}

// IsType reports whether the kind can appear in a type position.
func (k DeclKind) IsType() bool {
	switch k {
	case DeclClass, DeclInterface, DeclTypeAlias, DeclEnum, DeclImport, DeclNamespace:
		return true
	}
	return false
}

// Declaration is one named (or anonymous) declaration in a file.
//
// Top-level declarations are built once per parse. Local bindings (nested
// functions, parameters, block variables) are built lazily by scope lookups
// and cached per file, so pointer identity is stable within a File.
type Declaration struct {
	// Name is the declared name. Empty for anonymous declarations.
	Name string

	// Kind classifies the declaration.
	Kind DeclKind

	// File is the declaring file.
	File *File

	// Line is the 1-based start line used for node identity.
	Line int

	// ExportName is the name this declaration is exported under directly
	// ("default" for default exports). Empty when not exported by its own
	// statement; export clauses are resolved separately.
	ExportName string

	// TopLevel is true for declarations at module scope.
	TopLevel bool

	// Node is the declaring syntax node.
	Node *sitter.Node

	// Body is the node scanned for call expressions. Nil when the
	// declaration has no executable code.
	Body *sitter.Node

	// Value is a variable initializer or a field initializer.
	Value *sitter.Node

	// TypeAnnotation is the declared type of a variable, parameter or field.
	TypeAnnotation *sitter.Node

	// Heritage holds the extends/implements clauses of a class or interface.
	Heritage Heritage

	// Members lists method members of a class in source order.
	Members []*Declaration

	// Owner is the class of a method.
	Owner *Declaration

	// Import is set for DeclImport bindings.
	Import *Import

	// Signature is the declaration header, e.g. "function greet(name: string): string".
	Signature string
}

// DisplayName returns the name, or AnonymousName when the declaration has none.
func (d *Declaration) DisplayName() string {
	if d.Name == "" {
		return AnonymousName
	}
	return d.Name
}

// Exported reports whether the declaration's own statement exports it.
func (d *Declaration) Exported() bool {
	return d.ExportName != ""
}

// Heritage holds class or interface heritage expressions.
type Heritage struct {
	// Extends is the extends expression (classes) or types (interfaces).
	Extends []*sitter.Node

	// Implements lists implemented types.
	Implements []*sitter.Node
}

// Import is one binding created by an import statement.
type Import struct {
	// Specifier is the module specifier string.
	Specifier string

	// Imported is the exported name in the source module: a name,
	// "default", or "*" for namespace imports.
	Imported string

	// Local is the local binding name.
	Local string

	// Line is the 1-based line of the binding.
	Line int

	// TypeOnly is true for "import type" bindings.
	TypeOnly bool
}

// LocalExport is an export clause entry without a source module,
// e.g. "export { a as b }" or "export default a".
type LocalExport struct {
	Exported string
	Local    string
	Line     int
}

// ReExport is an export statement with a source module.
type ReExport struct {
	// Specifier is the source module specifier.
	Specifier string

	// Exported is the name published by this module. Empty for "export *".
	Exported string

	// Imported is the name taken from the source module, or "*".
	Imported string

	// Wildcard is true for "export * from" without a namespace name.
	Wildcard bool

	// Line is the 1-based line of the statement.
	Line int
}

// File is one parsed TypeScript file.
//
// Thread Safety: A File is built by one goroutine. After LoadProject returns,
// lookups may be called from one goroutine at a time per File (the local
// binding cache is guarded by a mutex).
type File struct {
	// Path is the project-relative path with forward slashes.
	Path string

	// AbsPath is the absolute filesystem path.
	AbsPath string

	// Ambient is true for declaration files (.d.ts). They are project
	// sources; their function signatures carry no body.
	Ambient bool

	// Content is the raw source.
	Content []byte

	// HasErrors is true when tree-sitter recovered from syntax errors.
	HasErrors bool

	// Declarations lists top-level declarations in source order.
	Declarations []*Declaration

	// Imports lists import bindings in source order.
	Imports []*Import

	// LocalExports lists export clause entries without a source module.
	LocalExports []*LocalExport

	// ReExports lists export statements with a source module.
	ReExports []*ReExport

	tree     *sitter.Tree
	root     *sitter.Node
	topLevel map[string][]*Declaration

	mu     sync.Mutex
	byNode map[bindingKey]*Declaration
}

// bindingKey identifies one name bound by one declaring node.
type bindingKey struct {
	node nodeKey
	name string
}

// nodeKey identifies a syntax node within one tree.
type nodeKey struct {
	start uint32
	end   uint32
	typ   string
}

func keyOf(n *sitter.Node) nodeKey {
	return nodeKey{start: n.StartByte(), end: n.EndByte(), typ: n.Type()}
}

// Root returns the program node.
func (f *File) Root() *sitter.Node {
	return f.root
}

// Text returns the source text of n.
func (f *File) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(f.Content[n.StartByte():n.EndByte()])
}

// Close releases the tree-sitter tree.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

// ModuleBindings returns the module-scope bindings named name, in source order.
func (f *File) ModuleBindings(name string) []*Declaration {
	return f.topLevel[name]
}

// DeclarationFor returns the declaration of name built for a declaring node, if any.
func (f *File) DeclarationFor(n *sitter.Node, name string) (*Declaration, bool) {
	if n == nil {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byNode[bindingKey{node: keyOf(n), name: name}]
	return d, ok
}

// remember caches d under its declaring node and returns the cached
// declaration when one already exists.
func (f *File) remember(d *Declaration) *Declaration {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := bindingKey{node: keyOf(d.Node), name: d.Name}
	if existing, ok := f.byNode[key]; ok {
		return existing
	}
	f.byNode[key] = d
	return d
}

// lineOf returns the 1-based start line of n.
func lineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row + 1)
}
