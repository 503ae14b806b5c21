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
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
)

// identAt returns the nth identifier node (0-based) whose text is name.
func identAt(t *testing.T, f *File, name string, nth int) *sitter.Node {
	t.Helper()
	count := 0
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if n.Type() == "identifier" && f.Text(n) == name {
			if count == nth {
				found = n
				return
			}
			count++
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(f.Root())
	if found == nil {
		t.Fatalf("identifier %q #%d not found", name, nth)
	}
	return found
}

func TestLookup_NestedFunctionShadowsNothingAtTopLevel(t *testing.T) {
	src := `export function outerFunction(): number {
  function innerFunction(x: number): number {
    return x * 2;
  }
  const innerArrow = (y: number): number => y + 1;
  return innerFunction(5) + innerArrow(10);
}
`
	f := mustParse(t, "src/nested.ts", src)

	inner := f.Lookup(identAt(t, f, "innerFunction", 1))
	if len(inner) != 1 {
		t.Fatalf("innerFunction candidates = %d, want 1", len(inner))
	}
	if inner[0].Kind != DeclFunction || inner[0].Line != 2 || inner[0].TopLevel {
		t.Errorf("innerFunction = %+v", inner[0])
	}

	arrow := f.Lookup(identAt(t, f, "innerArrow", 1))
	if len(arrow) != 1 || arrow[0].Kind != DeclArrowVariable || arrow[0].Line != 5 {
		t.Errorf("innerArrow lookup = %+v", arrow)
	}
}

func TestLookup_ParameterShadowsModuleBinding(t *testing.T) {
	src := `function greet() {}
export function run(greet: () => void) {
  greet();
}
`
	f := mustParse(t, "src/shadow.ts", src)
	decls := f.Lookup(identAt(t, f, "greet", 2))
	if len(decls) != 1 {
		t.Fatalf("got %d candidates, want 1", len(decls))
	}
	if decls[0].Kind != DeclParameter {
		t.Errorf("Kind = %v, want parameter", decls[0].Kind)
	}
}

func TestLookup_ModuleScopeAndImports(t *testing.T) {
	src := `import { helper } from "./helper";
export function run() {
  helper();
  local();
}
function local() {}
`
	f := mustParse(t, "src/run.ts", src)

	helper := f.Lookup(identAt(t, f, "helper", 1))
	if len(helper) != 1 || helper[0].Kind != DeclImport || helper[0].Import.Specifier != "./helper" {
		t.Errorf("helper lookup = %+v", helper)
	}

	local := f.Lookup(identAt(t, f, "local", 0))
	if len(local) != 1 || local[0].Kind != DeclFunction || local[0].Line != 6 {
		t.Errorf("local lookup = %+v", local)
	}
}

func TestLookup_UndeclaredIsEmpty(t *testing.T) {
	f := mustParse(t, "src/u.ts", "export function run() {\n  undefinedFunction();\n}\n")
	if decls := f.Lookup(identAt(t, f, "undefinedFunction", 0)); len(decls) != 0 {
		t.Errorf("expected no candidates, got %d", len(decls))
	}
}

func TestLookup_DeclarationOrder(t *testing.T) {
	src := `var dup = () => 1;
var dup = () => 2;
export function run() {
  dup();
}
`
	f := mustParse(t, "src/dup.ts", src)
	decls := f.Lookup(identAt(t, f, "dup", 2))
	if len(decls) != 2 {
		t.Fatalf("got %d candidates, want 2", len(decls))
	}
	if decls[0].Line != 1 || decls[1].Line != 2 {
		t.Errorf("candidates not in declaration order: %d, %d", decls[0].Line, decls[1].Line)
	}
}

func TestLookup_LocalDeclarationsAreStable(t *testing.T) {
	src := `export function run() {
  const obj = { getValue() { return 1; } };
  obj.getValue();
  obj.getValue();
}
`
	f := mustParse(t, "src/stable.ts", src)
	first := f.Lookup(identAt(t, f, "obj", 1))
	second := f.Lookup(identAt(t, f, "obj", 2))
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one candidate each, got %d and %d", len(first), len(second))
	}
	if first[0] != second[0] {
		t.Error("repeated lookups must return the same declaration")
	}
	if first[0].Value == nil || first[0].Value.Type() != "object" {
		t.Error("object literal initializer must be recorded")
	}
}

func TestLookupName_TypePosition(t *testing.T) {
	src := `interface IUser {
  getName(): string;
}
export function save(user: IUser) {
  user.getName();
}
`
	f := mustParse(t, "src/types.ts", src)

	var typeNode *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if typeNode != nil {
			return
		}
		if n.Type() == "type_identifier" && f.Text(n) == "IUser" && n.Parent().Type() != "interface_declaration" {
			typeNode = n
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(f.Root())
	if typeNode == nil {
		t.Fatal("type reference not found")
	}

	types := f.LookupName(typeNode, "IUser", true)
	if len(types) != 1 || types[0].Kind != DeclInterface {
		t.Errorf("type lookup = %+v", types)
	}
	if values := f.LookupName(typeNode, "IUser", false); len(values) != 0 {
		t.Errorf("interfaces must not be value candidates, got %d", len(values))
	}
}

func TestEnclosingClass(t *testing.T) {
	src := `export class Square {
  area(): number {
    return 1;
  }
  describe(): string {
    const f = () => this.area();
    function g() { return 0; }
    return String(f() + g());
  }
}
`
	f := mustParse(t, "src/square.ts", src)

	area := identAt(t, f, "f", 1)
	cls := EnclosingClass(area)
	if cls == nil || !strings.HasPrefix(f.Text(cls), "class Square") {
		t.Fatalf("EnclosingClass = %v, want class Square", cls)
	}

	var ret *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if ret != nil {
			return
		}
		if n.Type() == "number" && f.Text(n) == "0" {
			ret = n
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(f.Root())
	if ret == nil {
		t.Fatal("literal 0 not found")
	}
	if EnclosingClass(ret) != nil {
		t.Error("a function declaration rebinds this")
	}
}
