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
	"context"
	"reflect"
	"testing"

	"github.com/AleutianAI/tscodegraph/services/codegraph/ast"
	"github.com/AleutianAI/tscodegraph/test/fixtures"
)

func loadProject(t *testing.T, files map[string]string) *ast.Project {
	t.Helper()
	project, err := ast.LoadProject(context.Background(), fixtures.WriteProject(t, files))
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	t.Cleanup(project.Close)
	return project
}

func mustFile(t *testing.T, p *ast.Project, path string) *ast.File {
	t.Helper()
	f, ok := p.File(path)
	if !ok {
		t.Fatalf("%s not loaded", path)
	}
	return f
}

func TestExportResolver_Chains(t *testing.T) {
	p := loadProject(t, map[string]string{
		"src/origin.ts": `export function original() {}
export default function () {}
`,
		"src/local.ts": `import { original } from "./origin";
function helper() {}
export { helper as publicHelper, original as forwarded };
`,
		"src/barrel.ts": `export { original as renamed } from "./origin.js";
export * from "./local";
export * from "./origin";
export * as ns from "./origin";
export { thing } from "lodash";
`,
	})
	r := NewExportResolver(p, nil)
	barrel := mustFile(t, p, "src/barrel.ts")

	tests := []struct {
		name     string
		wantDecl string
		wantLine int
	}{
		{"renamed", "original", 1},
		{"publicHelper", "helper", 2},
		{"forwarded", "original", 1},
		{"original", "original", 1},
	}
	for _, tt := range tests {
		target, ok := r.Resolve(barrel, tt.name)
		if !ok || target.Decl == nil {
			t.Errorf("Resolve(%s) unresolved", tt.name)
			continue
		}
		if target.Decl.Name != tt.wantDecl || target.Decl.Line != tt.wantLine {
			t.Errorf("Resolve(%s) = %s@%d, want %s@%d", tt.name, target.Decl.Name, target.Decl.Line, tt.wantDecl, tt.wantLine)
		}
	}

	if target, ok := r.Resolve(barrel, "ns"); !ok || target.Module == nil || target.Module.Path != "src/origin.ts" {
		t.Errorf("namespace re-export = %+v, %v", target, ok)
	}
	if target, ok := r.Resolve(barrel, "thing"); !ok || !target.External || target.Specifier != "lodash" {
		t.Errorf("external re-export = %+v, %v", target, ok)
	}
	if _, ok := r.Resolve(barrel, "default"); ok {
		t.Error("default must not be re-exported through a wildcard")
	}
	if _, ok := r.Resolve(barrel, "nothing"); ok {
		t.Error("unknown names must not resolve")
	}
}

func TestExportResolver_NamesAndSurface(t *testing.T) {
	p := loadProject(t, map[string]string{
		"src/origin.ts": `export function a() {}
export const b = () => 1;
export const plain = 1;
export class C {}
export interface I {}
export default function () {}
`,
		"src/barrel.ts": `export * from "./origin";
`,
	})
	r := NewExportResolver(p, nil)

	origin := mustFile(t, p, "src/origin.ts")
	if got, want := r.Names(origin), []string{"a", "b", "plain", "C", "default"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names(origin) = %v, want %v", got, want)
	}

	barrel := mustFile(t, p, "src/barrel.ts")
	if got, want := r.Names(barrel), []string{"a", "b", "plain", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names(barrel) = %v, want %v", got, want)
	}

	var surface []string
	for _, d := range r.Surface(origin) {
		surface = append(surface, d.DisplayName())
	}
	if want := []string{"a", "b", "C", ast.AnonymousName}; !reflect.DeepEqual(surface, want) {
		t.Errorf("Surface(origin) = %v, want %v", surface, want)
	}
}

func TestExportResolver_CycleIsUnresolved(t *testing.T) {
	p := loadProject(t, map[string]string{
		"src/a.ts": `export * from "./b";
export { loop } from "./b";
`,
		"src/b.ts": `export * from "./a";
export { loop } from "./a";
`,
	})
	r := NewExportResolver(p, nil)

	if _, ok := r.Resolve(mustFile(t, p, "src/a.ts"), "loop"); ok {
		t.Error("cyclic re-export must not resolve")
	}
	if got := r.Surface(mustFile(t, p, "src/a.ts")); len(got) != 0 {
		t.Errorf("Surface = %v, want empty", got)
	}
}
