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
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Tree-sitter node types used across the package.
const (
	tsNodeCallExpression   = "call_expression"
	tsNodeMemberExpression = "member_expression"
	tsNodeIdentifier       = "identifier"
	tsNodeExportStatement  = "export_statement"
	tsNodeImportStatement  = "import_statement"
	tsNodeString           = "string"
	tsNodeArrowFunction    = "arrow_function"
	tsNodeClassBody        = "class_body"
	tsNodeStatementBlock   = "statement_block"
	tsNodeImport           = "import"
)

// functionExpressionTypes covers both names the grammar has used for
// anonymous function expressions.
var functionExpressionTypes = map[string]bool{
	"function":            true,
	"function_expression": true,
	"generator_function":  true,
}

// exportMode tells collectDeclaration how the enclosing statement exports it.
type exportMode int

const (
	exportNone exportMode = iota
	exportNamed
	exportDefault
)

// ParseFile parses TypeScript content as the project-relative file relPath.
//
// Description:
//
//	Uses the TSX grammar for .tsx files and the TypeScript grammar otherwise.
//	Collects top-level declarations, import bindings, export clauses and
//	re-exports. The returned File owns its tree-sitter tree; call Close when
//	done. Syntax errors do not fail the parse: tree-sitter recovers and
//	HasErrors is set.
//
// Inputs:
//
//	ctx - Context for cancellation of the tree-sitter parse.
//	relPath - Project-relative path with forward slashes.
//	content - Raw source bytes. Must be valid UTF-8.
//
// Outputs:
//
//	*File - The parsed file. Never nil on success.
//	error - *ParseError wrapping ErrInvalidContent or the tree-sitter failure.
//
// Thread Safety: Safe for concurrent use; each call creates its own parser.
func ParseFile(ctx context.Context, relPath string, content []byte) (*File, error) {
	if !utf8.Valid(content) {
		return nil, &ParseError{FilePath: relPath, Message: "content is not valid UTF-8", Cause: ErrInvalidContent}
	}

	parser := sitter.NewParser()
	if strings.HasSuffix(relPath, ".tsx") {
		parser.SetLanguage(tsx.GetLanguage())
	} else {
		parser.SetLanguage(typescript.GetLanguage())
	}

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, wrapParseError(err, relPath, "tree-sitter parse failed")
	}

	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, &ParseError{FilePath: relPath, Message: "tree-sitter returned nil root node"}
	}

	f := &File{
		Path:     relPath,
		Ambient:  IsDeclarationFile(relPath),
		Content:  content,
		tree:     tree,
		root:     root,
		topLevel: make(map[string][]*Declaration),
		byNode:   make(map[bindingKey]*Declaration),
	}
	f.HasErrors = root.HasError()

	c := &collector{file: f}
	c.collectProgram(root)
	return f, nil
}

// collector builds a File's top-level facts from its syntax tree.
type collector struct {
	file      *File
	inAmbient bool
}

func (c *collector) text(n *sitter.Node) string {
	return c.file.Text(n)
}

// collectProgram walks the program's statements.
func (c *collector) collectProgram(root *sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case tsNodeExportStatement:
			c.collectExport(child)
		case tsNodeImportStatement:
			c.collectImport(child)
		case "expression_statement":
			if inner := child.NamedChild(0); inner != nil && inner.Type() == "internal_module" {
				c.collectDeclaration(inner, child, exportNone)
			}
		default:
			c.collectDeclaration(child, child, exportNone)
		}
	}
}

// addTopLevel records a module-scope declaration.
func (c *collector) addTopLevel(d *Declaration) {
	d.File = c.file
	d.TopLevel = true
	c.file.Declarations = append(c.file.Declarations, d)
	if d.Name != "" {
		c.file.topLevel[d.Name] = append(c.file.topLevel[d.Name], d)
	}
	c.file.remember(d)
}

// exportNameFor returns the direct export name for a declaration named name.
func exportNameFor(mode exportMode, name string) string {
	switch mode {
	case exportDefault:
		return "default"
	case exportNamed:
		return name
	}
	return ""
}

// collectDeclaration handles one declaration statement. stmt is the node whose
// start line anchors the declaration (the export statement when exported).
func (c *collector) collectDeclaration(n, stmt *sitter.Node, mode exportMode) {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration":
		c.addTopLevel(c.functionDecl(n, stmt, mode))

	case "function_signature":
		// Outside ambient context a signature is an overload of the
		// implementation that follows it.
		if c.file.Ambient || c.inAmbient {
			d := c.functionDecl(n, stmt, mode)
			d.Body = nil
			c.addTopLevel(d)
		}

	case "class_declaration", "abstract_class_declaration":
		c.addTopLevel(c.classDecl(n, stmt, mode))

	case "lexical_declaration", "variable_declaration":
		keyword := "var"
		if first := n.Child(0); first != nil && !first.IsNamed() {
			keyword = first.Type()
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			declarator := n.NamedChild(i)
			if declarator.Type() != "variable_declarator" {
				continue
			}
			for _, d := range c.variableDecls(declarator, keyword, mode) {
				c.addTopLevel(d)
			}
		}

	case "interface_declaration":
		d := c.namedDecl(n, stmt, DeclInterface, mode)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "extends_type_clause" {
				for j := 0; j < int(child.NamedChildCount()); j++ {
					d.Heritage.Extends = append(d.Heritage.Extends, child.NamedChild(j))
				}
			}
		}
		c.addTopLevel(d)

	case "type_alias_declaration":
		c.addTopLevel(c.namedDecl(n, stmt, DeclTypeAlias, mode))

	case "enum_declaration":
		c.addTopLevel(c.namedDecl(n, stmt, DeclEnum, mode))

	case "internal_module", "module":
		d := c.namedDecl(n, stmt, DeclNamespace, mode)
		d.Name = strings.Trim(d.Name, `"'`)
		c.addTopLevel(d)

	case "ambient_declaration":
		c.inAmbient = true
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c.collectDeclaration(n.NamedChild(i), stmt, mode)
		}
		c.inAmbient = false
	}
}

// namedDecl builds a declaration whose name is the "name" field.
func (c *collector) namedDecl(n, stmt *sitter.Node, kind DeclKind, mode exportMode) *Declaration {
	name := c.text(n.ChildByFieldName("name"))
	return &Declaration{
		Name:       name,
		Kind:       kind,
		Line:       lineOf(stmt),
		ExportName: exportNameFor(mode, name),
		Node:       n,
	}
}

// functionDecl builds a function declaration. The whole declaration is its
// body for call scanning so default parameter values are covered.
func (c *collector) functionDecl(n, stmt *sitter.Node, mode exportMode) *Declaration {
	name := c.text(n.ChildByFieldName("name"))
	d := &Declaration{
		Name:       name,
		Kind:       DeclFunction,
		Line:       lineOf(stmt),
		ExportName: exportNameFor(mode, name),
		Node:       n,
		Body:       n,
	}

	var sig strings.Builder
	if hasToken(n, "async") {
		sig.WriteString("async ")
	}
	sig.WriteString("function")
	if hasToken(n, "*") {
		sig.WriteString("*")
	}
	if name != "" {
		sig.WriteString(" ")
		sig.WriteString(name)
	}
	sig.WriteString(c.callSignature(n))
	d.Signature = sig.String()
	return d
}

// callSignature renders type parameters, parameters and return type.
func (c *collector) callSignature(n *sitter.Node) string {
	var b strings.Builder
	b.WriteString(c.text(n.ChildByFieldName("type_parameters")))
	if params := n.ChildByFieldName("parameters"); params != nil {
		b.WriteString(c.text(params))
	} else if param := n.ChildByFieldName("parameter"); param != nil {
		b.WriteString(c.text(param))
	} else {
		b.WriteString("()")
	}
	b.WriteString(c.text(n.ChildByFieldName("return_type")))
	return b.String()
}

// classDecl builds a class declaration and its members.
func (c *collector) classDecl(n, stmt *sitter.Node, mode exportMode) *Declaration {
	name := c.text(n.ChildByFieldName("name"))
	cls := &Declaration{
		Name:       name,
		Kind:       DeclClass,
		Line:       lineOf(stmt),
		ExportName: exportNameFor(mode, name),
		Node:       n,
	}
	cls.File = c.file
	cls.Heritage = classHeritage(n)

	var sig strings.Builder
	if n.Type() == "abstract_class_declaration" {
		sig.WriteString("abstract ")
	}
	sig.WriteString("class")
	if name != "" {
		sig.WriteString(" ")
		sig.WriteString(name)
	}
	sig.WriteString(c.text(n.ChildByFieldName("type_parameters")))
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == "class_heritage" {
			sig.WriteString(" ")
			sig.WriteString(c.text(child))
		}
	}
	cls.Signature = sig.String()

	body := n.ChildByFieldName("body")
	if body == nil {
		return cls
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if member := c.classMember(body.NamedChild(i), cls); member != nil {
			cls.Members = append(cls.Members, member)
			c.file.remember(member)
		}
	}
	return cls
}

// classHeritage collects extends and implements clauses of a class node.
func classHeritage(n *sitter.Node) Heritage {
	var h Heritage
	for i := 0; i < int(n.NamedChildCount()); i++ {
		heritage := n.NamedChild(i)
		if heritage.Type() != "class_heritage" {
			continue
		}
		for j := 0; j < int(heritage.NamedChildCount()); j++ {
			clause := heritage.NamedChild(j)
			for k := 0; k < int(clause.NamedChildCount()); k++ {
				expr := clause.NamedChild(k)
				if expr.Type() == "type_arguments" {
					continue
				}
				switch clause.Type() {
				case "extends_clause":
					h.Extends = append(h.Extends, expr)
				case "implements_clause":
					h.Implements = append(h.Implements, expr)
				}
			}
		}
	}
	return h
}

// classMember builds a member declaration, or nil for members that are
// neither methods nor fields. Constructors and accessors are not methods.
func (c *collector) classMember(m *sitter.Node, cls *Declaration) *Declaration {
	switch m.Type() {
	case "method_definition", "abstract_method_signature":
		name := c.text(m.ChildByFieldName("name"))
		if name == "" || name == "constructor" || hasToken(m, "get") || hasToken(m, "set") {
			return nil
		}
		d := &Declaration{
			Name:      name,
			Kind:      DeclMethod,
			File:      c.file,
			Line:      lineOf(m),
			Node:      m,
			Owner:     cls,
			Signature: c.methodSignature(m, name),
		}
		if m.Type() == "method_definition" {
			d.Body = m
		}
		return d

	case "public_field_definition":
		name := c.text(m.ChildByFieldName("name"))
		if name == "" {
			return nil
		}
		return &Declaration{
			Name:           name,
			Kind:           DeclField,
			File:           c.file,
			Line:           lineOf(m),
			Node:           m,
			Owner:          cls,
			Value:          m.ChildByFieldName("value"),
			TypeAnnotation: m.ChildByFieldName("type"),
		}
	}
	return nil
}

// methodSignature renders modifiers, name and call signature of a method.
func (c *collector) methodSignature(m *sitter.Node, name string) string {
	var mods []string
	for i := 0; i < int(m.ChildCount()); i++ {
		child := m.Child(i)
		switch child.Type() {
		case "accessibility_modifier", "static", "async", "abstract", "override", "readonly":
			mods = append(mods, c.text(child))
		}
	}
	sig := name + c.callSignature(m)
	if len(mods) > 0 {
		return strings.Join(mods, " ") + " " + sig
	}
	return sig
}

// variableDecls builds declarations for one variable declarator. Destructuring
// patterns yield one plain variable per bound identifier.
func (c *collector) variableDecls(declarator *sitter.Node, keyword string, mode exportMode) []*Declaration {
	nameNode := declarator.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	value := declarator.ChildByFieldName("value")
	typeAnn := declarator.ChildByFieldName("type")

	if nameNode.Type() != tsNodeIdentifier {
		var out []*Declaration
		for _, id := range patternIdentifiers(nameNode) {
			name := c.text(id)
			out = append(out, &Declaration{
				Name:       name,
				Kind:       DeclVariable,
				Line:       lineOf(declarator),
				ExportName: exportNameFor(mode, name),
				Node:       declarator,
			})
		}
		return out
	}

	name := c.text(nameNode)
	d := &Declaration{
		Name:           name,
		Kind:           DeclVariable,
		Line:           lineOf(declarator),
		ExportName:     exportNameFor(mode, name),
		Node:           declarator,
		Value:          value,
		TypeAnnotation: typeAnn,
	}
	if mode == exportDefault {
		d.ExportName = ""
	}

	if value != nil && value.Type() == tsNodeArrowFunction {
		d.Kind = DeclArrowVariable
		d.Body = value
		prefix := ""
		if hasToken(value, "async") {
			prefix = "async "
		}
		d.Signature = fmt.Sprintf("%s %s = %s%s =>", keyword, name, prefix, c.callSignature(value))
	} else {
		d.Signature = keyword + " " + name + c.text(typeAnn)
	}
	return []*Declaration{d}
}

// collectExport handles an export statement.
func (c *collector) collectExport(stmt *sitter.Node) {
	isDefault := false
	star := false
	var clause, namespace *sitter.Node
	for i := 0; i < int(stmt.ChildCount()); i++ {
		child := stmt.Child(i)
		switch child.Type() {
		case "default":
			isDefault = true
		case "*":
			star = true
		case "export_clause":
			clause = child
		case "namespace_export":
			namespace = child
		}
	}

	mode := exportNamed
	if isDefault {
		mode = exportDefault
	}

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		c.collectDeclaration(decl, stmt, mode)
		return
	}

	if value := stmt.ChildByFieldName("value"); value != nil && isDefault {
		c.collectDefaultValue(value, stmt)
		return
	}

	source := stmt.ChildByFieldName("source")
	line := lineOf(stmt)

	switch {
	case source != nil && clause != nil:
		specifier := c.file.StringContent(source)
		for _, spec := range c.exportSpecifiers(clause) {
			c.file.ReExports = append(c.file.ReExports, &ReExport{
				Specifier: specifier,
				Exported:  spec[1],
				Imported:  spec[0],
				Line:      line,
			})
		}

	case source != nil && namespace != nil:
		name := ""
		if count := int(namespace.NamedChildCount()); count > 0 {
			name = strings.Trim(c.text(namespace.NamedChild(count-1)), `"'`)
		}
		c.file.ReExports = append(c.file.ReExports, &ReExport{
			Specifier: c.file.StringContent(source),
			Exported:  name,
			Imported:  "*",
			Line:      line,
		})

	case source != nil && star:
		c.file.ReExports = append(c.file.ReExports, &ReExport{
			Specifier: c.file.StringContent(source),
			Imported:  "*",
			Wildcard:  true,
			Line:      line,
		})

	case clause != nil:
		for _, spec := range c.exportSpecifiers(clause) {
			c.file.LocalExports = append(c.file.LocalExports, &LocalExport{
				Exported: spec[1],
				Local:    spec[0],
				Line:     line,
			})
		}

	default:
		// Grammar versions without the declaration/value fields.
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			child := stmt.NamedChild(i)
			if child.Type() == "decorator" || child.Type() == "comment" {
				continue
			}
			if isDefault {
				c.collectDefaultValue(child, stmt)
			} else {
				c.collectDeclaration(child, stmt, mode)
			}
			return
		}
	}
}

// exportSpecifiers returns [name, alias] pairs of an export clause.
func (c *collector) exportSpecifiers(clause *sitter.Node) [][2]string {
	var out [][2]string
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		spec := clause.NamedChild(i)
		if spec.Type() != "export_specifier" {
			continue
		}
		name := strings.Trim(c.text(spec.ChildByFieldName("name")), `"'`)
		if name == "" {
			continue
		}
		alias := strings.Trim(c.text(spec.ChildByFieldName("alias")), `"'`)
		if alias == "" {
			alias = name
		}
		out = append(out, [2]string{name, alias})
	}
	return out
}

// collectDefaultValue handles "export default <expression>".
func (c *collector) collectDefaultValue(value, stmt *sitter.Node) {
	switch {
	case functionExpressionTypes[value.Type()]:
		d := c.functionDecl(value, stmt, exportDefault)
		c.addTopLevel(d)
	case value.Type() == "class":
		c.addTopLevel(c.classDecl(value, stmt, exportDefault))
	case value.Type() == tsNodeIdentifier:
		c.file.LocalExports = append(c.file.LocalExports, &LocalExport{
			Exported: "default",
			Local:    c.text(value),
			Line:     lineOf(stmt),
		})
	}
}

// collectImport records the bindings of an import statement.
func (c *collector) collectImport(stmt *sitter.Node) {
	source := stmt.ChildByFieldName("source")
	typeOnly := hasToken(stmt, "type")

	add := func(n *sitter.Node, imported, local, specifier string, specTypeOnly bool) {
		if local == "" {
			return
		}
		imp := &Import{
			Specifier: specifier,
			Imported:  imported,
			Local:     local,
			Line:      lineOf(n),
			TypeOnly:  typeOnly || specTypeOnly,
		}
		c.file.Imports = append(c.file.Imports, imp)
		d := &Declaration{
			Name:   local,
			Kind:   DeclImport,
			File:   c.file,
			Line:   imp.Line,
			Node:   n,
			Import: imp,
		}
		d.TopLevel = true
		c.file.topLevel[local] = append(c.file.topLevel[local], d)
		c.file.remember(d)
	}

	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		switch child.Type() {
		case "import_clause":
			if source == nil {
				continue
			}
			specifier := c.file.StringContent(source)
			for j := 0; j < int(child.NamedChildCount()); j++ {
				part := child.NamedChild(j)
				switch part.Type() {
				case tsNodeIdentifier:
					add(part, "default", c.text(part), specifier, false)
				case "namespace_import":
					if id := lastNamedOfType(part, tsNodeIdentifier); id != nil {
						add(part, "*", c.text(id), specifier, false)
					}
				case "named_imports":
					for k := 0; k < int(part.NamedChildCount()); k++ {
						spec := part.NamedChild(k)
						if spec.Type() != "import_specifier" {
							continue
						}
						name := strings.Trim(c.text(spec.ChildByFieldName("name")), `"'`)
						local := c.text(spec.ChildByFieldName("alias"))
						if local == "" {
							local = name
						}
						add(spec, name, local, specifier, hasToken(spec, "type"))
					}
				}
			}

		case "import_require_clause":
			id := lastNamedOfType(child, tsNodeIdentifier)
			str := lastNamedOfType(child, tsNodeString)
			if id != nil && str != nil {
				add(child, "*", c.text(id), c.file.StringContent(str), false)
			}
		}
	}
}

// StringContent returns the content of a string literal node between its
// quotes. Escape sequences are kept as written.
func (f *File) StringContent(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	text := f.Text(n)
	if len(text) >= 2 {
		switch q := text[0]; q {
		case '"', '\'', '`':
			if text[len(text)-1] == q {
				return text[1 : len(text)-1]
			}
		}
	}
	return text
}

// hasToken reports whether n has a direct anonymous child of type tok.
func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.IsNamed() && child.Type() == tok {
			return true
		}
	}
	return false
}

// lastNamedOfType returns the last named child of n with type typ.
func lastNamedOfType(n *sitter.Node, typ string) *sitter.Node {
	var found *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == typ {
			found = child
		}
	}
	return found
}

// patternIdentifiers returns the identifier nodes bound by a binding pattern.
func patternIdentifiers(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case tsNodeIdentifier, "shorthand_property_identifier_pattern":
		return []*sitter.Node{n}
	case "pair_pattern":
		return patternIdentifiers(n.ChildByFieldName("value"))
	case "assignment_pattern", "object_assignment_pattern":
		return patternIdentifiers(n.ChildByFieldName("left"))
	case "object_pattern", "array_pattern", "rest_pattern":
		var out []*sitter.Node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			out = append(out, patternIdentifiers(n.NamedChild(i))...)
		}
		return out
	}
	return nil
}
