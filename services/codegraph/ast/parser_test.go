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
	"errors"
	"testing"
)

func mustParse(t *testing.T, path, src string) *File {
	t.Helper()
	f, err := ParseFile(context.Background(), path, []byte(src))
	if err != nil {
		t.Fatalf("ParseFile(%s) failed: %v", path, err)
	}
	t.Cleanup(f.Close)
	return f
}

func findDecl(f *File, name string) *Declaration {
	for _, d := range f.Declarations {
		if d.Name == name {
			return d
		}
	}
	return nil
}

const sampleSource = `// Function declaration
export function greet(name: string): string {
  return ` + "`Hello, ${name}`" + `;
}

// Arrow function
export const add = (a: number, b: number): number => {
  return a + b;
};

// Class definition
export class Calculator {
  multiply(a: number, b: number): number {
    return a * b;
  }

  addAndDouble(a: number, b: number): number {
    const sum = add(a, b);
    return sum * 2;
  }
}
`

func TestParseFile_FunctionDeclaration(t *testing.T) {
	f := mustParse(t, "src/sample.ts", sampleSource)

	greet := findDecl(f, "greet")
	if greet == nil {
		t.Fatal("greet not found")
	}
	if greet.Kind != DeclFunction {
		t.Errorf("Kind = %v, want function", greet.Kind)
	}
	if greet.Line != 2 {
		t.Errorf("Line = %d, want 2", greet.Line)
	}
	if greet.ExportName != "greet" {
		t.Errorf("ExportName = %q, want greet", greet.ExportName)
	}
	if greet.Signature != "function greet(name: string): string" {
		t.Errorf("Signature = %q", greet.Signature)
	}
	if greet.Body == nil {
		t.Error("function declaration must have a body to scan")
	}
	if !greet.TopLevel || greet.File != f {
		t.Error("top-level declaration must point at its file")
	}
}

func TestParseFile_ArrowVariable(t *testing.T) {
	f := mustParse(t, "src/sample.ts", sampleSource)

	add := findDecl(f, "add")
	if add == nil {
		t.Fatal("add not found")
	}
	if add.Kind != DeclArrowVariable {
		t.Errorf("Kind = %v, want arrow_variable", add.Kind)
	}
	if add.Line != 7 {
		t.Errorf("Line = %d, want 7", add.Line)
	}
	if add.Body == nil || add.Body.Type() != "arrow_function" {
		t.Error("arrow variable body must be the arrow function")
	}
	if want := "const add = (a: number, b: number): number =>"; add.Signature != want {
		t.Errorf("Signature = %q, want %q", add.Signature, want)
	}
}

func TestParseFile_ClassMembers(t *testing.T) {
	f := mustParse(t, "src/sample.ts", sampleSource)

	calc := findDecl(f, "Calculator")
	if calc == nil {
		t.Fatal("Calculator not found")
	}
	if calc.Kind != DeclClass || calc.Line != 12 {
		t.Errorf("Calculator = %v at %d, want class at 12", calc.Kind, calc.Line)
	}
	if len(calc.Members) != 2 {
		t.Fatalf("len(Members) = %d, want 2", len(calc.Members))
	}
	wantLines := map[string]int{"multiply": 13, "addAndDouble": 17}
	for _, m := range calc.Members {
		if m.Kind != DeclMethod {
			t.Errorf("%s kind = %v, want method", m.Name, m.Kind)
		}
		if m.Line != wantLines[m.Name] {
			t.Errorf("%s line = %d, want %d", m.Name, m.Line, wantLines[m.Name])
		}
		if m.Owner != calc {
			t.Errorf("%s owner not set", m.Name)
		}
	}
}

func TestParseFile_ConstructorAndAccessorsAreNotMethods(t *testing.T) {
	src := `export class Box {
  private v = 0;
  constructor(v: number) {
    this.v = v;
  }
  get value(): number {
    return this.v;
  }
  set value(n: number) {
    this.v = n;
  }
  double(): number {
    return this.v * 2;
  }
}
`
	f := mustParse(t, "src/box.ts", src)
	box := findDecl(f, "Box")
	if box == nil {
		t.Fatal("Box not found")
	}
	var methods []string
	for _, m := range box.Members {
		if m.Kind == DeclMethod {
			methods = append(methods, m.Name)
		}
	}
	if len(methods) != 1 || methods[0] != "double" {
		t.Errorf("methods = %v, want [double]", methods)
	}
}

func TestParseFile_AnonymousDefaultExport(t *testing.T) {
	src := `// Anonymous default export
export default function (): string {
  return "anonymous function";
}
`
	f := mustParse(t, "src/anon.ts", src)
	if len(f.Declarations) != 1 {
		t.Fatalf("len(Declarations) = %d, want 1", len(f.Declarations))
	}
	d := f.Declarations[0]
	if d.Name != "" || d.DisplayName() != AnonymousName {
		t.Errorf("DisplayName = %q, want %q", d.DisplayName(), AnonymousName)
	}
	if d.ExportName != "default" {
		t.Errorf("ExportName = %q, want default", d.ExportName)
	}
	if d.Line != 2 {
		t.Errorf("Line = %d, want 2", d.Line)
	}
}

func TestParseFile_AnonymousDefaultClass(t *testing.T) {
	src := `export default class {
  doSomething(): void {
    console.log("anonymous class method");
  }
}
`
	f := mustParse(t, "src/anonymous.ts", src)
	if len(f.Declarations) != 1 {
		t.Fatalf("len(Declarations) = %d, want 1", len(f.Declarations))
	}
	cls := f.Declarations[0]
	if cls.Kind != DeclClass || cls.DisplayName() != AnonymousName {
		t.Errorf("got %v %q, want anonymous class", cls.Kind, cls.DisplayName())
	}
	if len(cls.Members) != 1 || cls.Members[0].Name != "doSomething" || cls.Members[0].Line != 2 {
		t.Errorf("unexpected members: %+v", cls.Members)
	}
}

func TestParseFile_Imports(t *testing.T) {
	src := `import { greet, add as plus } from "./sample.js";
import * as ns from "./ns";
import def from "lib";
import type { Shape } from "./shapes";
`
	f := mustParse(t, "src/imports.ts", src)

	tests := []struct {
		local    string
		imported string
		spec     string
		typeOnly bool
	}{
		{"greet", "greet", "./sample.js", false},
		{"plus", "add", "./sample.js", false},
		{"ns", "*", "./ns", false},
		{"def", "default", "lib", false},
		{"Shape", "Shape", "./shapes", true},
	}
	if len(f.Imports) != len(tests) {
		t.Fatalf("len(Imports) = %d, want %d", len(f.Imports), len(tests))
	}
	for i, tt := range tests {
		imp := f.Imports[i]
		if imp.Local != tt.local || imp.Imported != tt.imported || imp.Specifier != tt.spec || imp.TypeOnly != tt.typeOnly {
			t.Errorf("Imports[%d] = %+v, want %+v", i, *imp, tt)
		}
		bindings := f.ModuleBindings(tt.local)
		if len(bindings) != 1 || bindings[0].Kind != DeclImport {
			t.Errorf("missing import binding for %s", tt.local)
		}
	}
}

func TestParseFile_ReExports(t *testing.T) {
	src := `export { originalFunction } from "./origin.js";
export { a as b } from "./other";
export * from "./wild.js";
export * as space from "./space";
`
	f := mustParse(t, "src/re.ts", src)
	if len(f.ReExports) != 4 {
		t.Fatalf("len(ReExports) = %d, want 4", len(f.ReExports))
	}

	named := f.ReExports[0]
	if named.Exported != "originalFunction" || named.Imported != "originalFunction" || named.Wildcard {
		t.Errorf("named re-export = %+v", *named)
	}
	alias := f.ReExports[1]
	if alias.Exported != "b" || alias.Imported != "a" {
		t.Errorf("aliased re-export = %+v", *alias)
	}
	wild := f.ReExports[2]
	if !wild.Wildcard || wild.Specifier != "./wild.js" {
		t.Errorf("wildcard re-export = %+v", *wild)
	}
	space := f.ReExports[3]
	if space.Wildcard || space.Exported != "space" || space.Imported != "*" {
		t.Errorf("namespace re-export = %+v", *space)
	}
}

func TestParseFile_LocalExports(t *testing.T) {
	src := `function helper() {}
const value = 1;
export { helper as publicHelper, value };
export default helper;
`
	f := mustParse(t, "src/local.ts", src)
	want := map[string]string{"publicHelper": "helper", "value": "value", "default": "helper"}
	if len(f.LocalExports) != len(want) {
		t.Fatalf("len(LocalExports) = %d, want %d", len(f.LocalExports), len(want))
	}
	for _, le := range f.LocalExports {
		if want[le.Exported] != le.Local {
			t.Errorf("export %s -> %s, want %s", le.Exported, le.Local, want[le.Exported])
		}
	}
	if d := findDecl(f, "helper"); d == nil || d.Exported() {
		t.Error("helper must be declared and not directly exported")
	}
}

func TestParseFile_OverloadsSkipped(t *testing.T) {
	src := `export function pick(x: string): string;
export function pick(x: number): number;
export function pick(x: any): any {
  return x;
}
`
	f := mustParse(t, "src/overload.ts", src)
	if len(f.Declarations) != 1 {
		t.Fatalf("len(Declarations) = %d, want 1 (implementation only)", len(f.Declarations))
	}
	if f.Declarations[0].Line != 3 {
		t.Errorf("Line = %d, want 3", f.Declarations[0].Line)
	}
}

func TestParseFile_TypesAreNotValues(t *testing.T) {
	src := `export type UserId = string;
export interface IUser {
  getName(): string;
}
`
	f := mustParse(t, "src/types.ts", src)
	for _, d := range f.Declarations {
		if d.Kind.IsValue() {
			t.Errorf("%s (%v) must not be a value declaration", d.Name, d.Kind)
		}
		if !d.Kind.IsType() {
			t.Errorf("%s (%v) must be a type declaration", d.Name, d.Kind)
		}
	}
}

func TestParseFile_DeclarationFileIsAmbient(t *testing.T) {
	f := mustParse(t, "src/globals.d.ts", "declare function ambientHelper(value: string): string;\n")
	if !f.Ambient {
		t.Error("declaration file must be ambient")
	}
	d := findDecl(f, "ambientHelper")
	if d == nil {
		t.Fatal("ambient function signature must be collected")
	}
	if d.Body != nil {
		t.Error("ambient signature has no body")
	}
}

func TestParseFile_InvalidUTF8(t *testing.T) {
	_, err := ParseFile(context.Background(), "src/bad.ts", []byte{0xff, 0xfe, 0x00})
	if err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
	if !errors.Is(err, ErrInvalidContent) {
		t.Errorf("error = %v, want ErrInvalidContent", err)
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) || parseErr.FilePath != "src/bad.ts" {
		t.Errorf("expected *ParseError for src/bad.ts, got %T", err)
	}
}

func TestParseFile_SyntaxErrorsRecover(t *testing.T) {
	f := mustParse(t, "src/broken.ts", "export function ok() { return 1; }\nexport function broken( {\n")
	if !f.HasErrors {
		t.Error("HasErrors should be set")
	}
	if findDecl(f, "ok") == nil {
		t.Error("declarations before the error must survive")
	}
}
