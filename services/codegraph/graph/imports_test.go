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
	"testing"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/tscodegraph/services/codegraph/ast"
)

// firstDynamicImport returns the first import(...) call in f.
func firstDynamicImport(f *ast.File) *sitter.Node {
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if isDynamicImport(n) {
			found = n
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(f.Root())
	return found
}

func TestDynamicImportSpecifier_MatchesStaticImports(t *testing.T) {
	tests := []struct {
		literal string
		want    string
	}{
		{`"./sample.js"`, "./sample.js"},
		{`'./sample.js'`, "./sample.js"},
		{`"'quoted'"`, "'quoted'"},
		{`"./sam\x70le.js"`, `./sam\x70le.js`},
	}
	for _, tt := range tests {
		src := "import def from " + tt.literal + ";\n" +
			"export async function load() {\n" +
			"  return import(" + tt.literal + ");\n" +
			"}\n"
		f, err := ast.ParseFile(context.Background(), "src/load.ts", []byte(src))
		if err != nil {
			t.Fatalf("ParseFile failed: %v", err)
		}
		t.Cleanup(f.Close)

		call := firstDynamicImport(f)
		if call == nil {
			t.Fatalf("%s: import() call not found", tt.literal)
		}
		ok, spec, literal := dynamicImportSpecifier(f, call)
		if !ok || !literal {
			t.Fatalf("%s: dynamicImportSpecifier = (%v, %q, %v)", tt.literal, ok, spec, literal)
		}
		if spec != tt.want {
			t.Errorf("%s: dynamic specifier = %q, want %q", tt.literal, spec, tt.want)
		}
		if len(f.Imports) != 1 || f.Imports[0].Specifier != tt.want {
			t.Errorf("%s: static imports = %+v, want specifier %q", tt.literal, f.Imports, tt.want)
		}
	}
}
