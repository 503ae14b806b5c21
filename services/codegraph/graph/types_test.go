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
	"encoding/json"
	"errors"
	"testing"
)

func TestParseNodeID_RoundTrip(t *testing.T) {
	tests := []NodeID{
		{Path: "src/sample.ts", Line: 2, Name: "greet"},
		{Path: "src/sample.ts", Line: 54, Name: "(anonymous)"},
		{Path: "C:/work/app.ts", Line: 7, Name: "add"},
		{Path: "src/router.ts", Line: 2, Name: `"get:user"`},
		{Path: "C:/work/router.ts", Line: 12, Name: "a:1:b"},
	}
	for _, want := range tests {
		got, err := ParseNodeID(want.String())
		if err != nil {
			t.Errorf("ParseNodeID(%q) failed: %v", want.String(), err)
			continue
		}
		if got != want {
			t.Errorf("ParseNodeID(%q) = %+v, want %+v", want.String(), got, want)
		}
	}
}

func TestParseNodeID_Invalid(t *testing.T) {
	for _, s := range []string{"", "greet", "src/a.ts:greet", "src/a.ts:x:greet", "src/a.ts:3:", ":3:greet", "src/a.ts:-1:greet"} {
		if _, err := ParseNodeID(s); !errors.Is(err, ErrInvalidNodeID) {
			t.Errorf("ParseNodeID(%q) error = %v, want ErrInvalidNodeID", s, err)
		}
	}
}

func TestNodeJSON(t *testing.T) {
	n := Node{
		ID:       NodeID{Path: "src/sample.ts", Line: 2, Name: "greet"},
		Name:     "greet",
		Kind:     NodeKindFunction,
		FilePath: "src/sample.ts",
		Line:     2,
	}
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"id":"src/sample.ts:2:greet","name":"greet","type":"function","filePath":"src/sample.ts","lineNumber":2}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var back Node
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back != n {
		t.Errorf("round trip = %+v, want %+v", back, n)
	}
}

func TestNodeJSON_ColonInName(t *testing.T) {
	nid := NodeID{Path: "src/router.ts", Line: 2, Name: `"get:user"`}
	n := Node{ID: nid, Name: nid.Name, Kind: NodeKindMethod, FilePath: nid.Path, Line: nid.Line}
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back Node
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.ID != nid {
		t.Errorf("ID = %+v, want %+v", back.ID, nid)
	}
}

func TestKindsValid(t *testing.T) {
	if !NodeKindMethod.Valid() || NodeKind("module").Valid() {
		t.Error("NodeKind.Valid misclassifies")
	}
	if !EdgeKindImplements.Valid() || EdgeKind("references").Valid() {
		t.Error("EdgeKind.Valid misclassifies")
	}
}
