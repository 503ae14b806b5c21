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
	"reflect"
	"testing"
)

func TestModuleCandidates(t *testing.T) {
	tests := []struct {
		name string
		from string
		spec string
		want []string
	}{
		{
			name: "js extension maps to ts sources",
			from: "src/caller.ts",
			spec: "./sample.js",
			want: []string{"src/sample.ts", "src/sample.tsx", "src/sample.d.ts"},
		},
		{
			name: "jsx maps to tsx",
			from: "src/app.tsx",
			spec: "./view.jsx",
			want: []string{"src/view.tsx"},
		},
		{
			name: "mjs maps to mts",
			from: "src/a.ts",
			spec: "./esm.mjs",
			want: []string{"src/esm.mts", "src/esm.d.mts"},
		},
		{
			name: "ts extension is kept",
			from: "src/a.ts",
			spec: "./b.ts",
			want: []string{"src/b.ts"},
		},
		{
			name: "extensionless gets fallbacks",
			from: "src/a.ts",
			spec: "../lib/util",
			want: []string{
				"lib/util.ts", "lib/util.tsx", "lib/util.d.ts",
				"lib/util/index.ts", "lib/util/index.tsx", "lib/util/index.d.ts",
			},
		},
		{
			name: "escaping the project yields nothing",
			from: "src/a.ts",
			spec: "../../outside",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ModuleCandidates("/project", tt.from, tt.spec)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ModuleCandidates(%q, %q) = %v, want %v", tt.from, tt.spec, got, tt.want)
			}
		})
	}
}

func TestIsRelativeSpecifier(t *testing.T) {
	for spec, want := range map[string]bool{
		"./a":       true,
		"../b":      true,
		"/abs/path": true,
		"path":      false,
		"node:fs":   false,
		"@scope/x":  false,
	} {
		if got := IsRelativeSpecifier(spec); got != want {
			t.Errorf("IsRelativeSpecifier(%q) = %v, want %v", spec, got, want)
		}
	}
}

func TestResolveModule(t *testing.T) {
	caller := mustParse(t, "src/caller.ts", "export {};\n")
	sample := mustParse(t, "src/sample.ts", "export function greet() {}\n")
	ambient := mustParse(t, "src/types.d.ts", "export declare function typed(): void;\n")
	index := mustParse(t, "src/util/index.ts", "export const u = () => 1;\n")

	p := &Project{
		Root: "/project",
		byPath: map[string]*File{
			caller.Path:  caller,
			sample.Path:  sample,
			ambient.Path: ambient,
			index.Path:   index,
		},
	}

	tests := []struct {
		spec     string
		wantKind ModuleKind
		wantFile *File
	}{
		{"./sample.js", ModuleProject, sample},
		{"./sample", ModuleProject, sample},
		{"./util", ModuleProject, index},
		{"./types", ModuleProject, ambient},
		{"./missing.js", ModuleMissing, nil},
		{"path", ModuleExternal, nil},
	}
	for _, tt := range tests {
		got, kind := p.ResolveModule(caller, tt.spec)
		if kind != tt.wantKind || got != tt.wantFile {
			t.Errorf("ResolveModule(%q) = (%v, %v), want (%v, %v)", tt.spec, got, kind, tt.wantFile, tt.wantKind)
		}
	}
}

func TestIsAmbientGlobal(t *testing.T) {
	for _, name := range []string{"console", "Math", "setTimeout", "process", "JSON"} {
		if !IsAmbientGlobal(name) {
			t.Errorf("%s should be an ambient global", name)
		}
	}
	if IsAmbientGlobal("undefinedFunction") {
		t.Error("undefinedFunction is not a global")
	}
}
