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
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/tscodegraph/services/codegraph/ast"
)

// NodeKind classifies a graph node.
type NodeKind string

const (
	NodeKindFunction  NodeKind = "function"
	NodeKindClass     NodeKind = "class"
	NodeKindMethod    NodeKind = "method"
	NodeKindVariable  NodeKind = "variable"
	NodeKindComponent NodeKind = "component"
)

// Valid reports whether k is a known node kind.
func (k NodeKind) Valid() bool {
	switch k {
	case NodeKindFunction, NodeKindClass, NodeKindMethod, NodeKindVariable, NodeKindComponent:
		return true
	}
	return false
}

// EdgeKind classifies a directed relationship between two nodes.
type EdgeKind string

const (
	EdgeKindCalls      EdgeKind = "calls"
	EdgeKindImports    EdgeKind = "imports"
	EdgeKindExtends    EdgeKind = "extends"
	EdgeKindImplements EdgeKind = "implements"
)

// Valid reports whether k is a known edge kind.
func (k EdgeKind) Valid() bool {
	switch k {
	case EdgeKindCalls, EdgeKindImports, EdgeKindExtends, EdgeKindImplements:
		return true
	}
	return false
}

// DynamicImportMarker is the ExternalCall name recorded for an import() whose
// specifier is not a string literal.
const DynamicImportMarker = "dynamic-import"

// NodeID identifies a node by declaring file, start line and name.
//
// NodeID is comparable and safe to use as a map key. Its text form is
// "path:line:name", e.g. "src/sample.ts:2:greet". The text form is for
// display and wire output; stores keep the parts separately.
type NodeID struct {
	Path string
	Line int
	Name string
}

// String returns the canonical "path:line:name" form.
func (id NodeID) String() string {
	return id.Path + ":" + strconv.Itoa(id.Line) + ":" + id.Name
}

// IsZero reports whether id is the zero value.
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

// MarshalText implements encoding.TextMarshaler.
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *NodeID) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseNodeID parses the canonical "path:line:name" form.
//
// The line is the first colon-delimited field made only of digits, so names
// containing colons (string-literal method names such as "get:user") and
// drive-letter paths both round-trip. A path must not itself contain a
// ":<digits>:" field.
func ParseNodeID(s string) (NodeID, error) {
	for start := 0; ; {
		rel := strings.IndexByte(s[start:], ':')
		if rel < 0 {
			return NodeID{}, fmt.Errorf("%w: %q", ErrInvalidNodeID, s)
		}
		lineSep := start + rel
		nameRel := strings.IndexByte(s[lineSep+1:], ':')
		if nameRel < 0 {
			return NodeID{}, fmt.Errorf("%w: %q", ErrInvalidNodeID, s)
		}
		nameSep := lineSep + 1 + nameRel
		if field := s[lineSep+1 : nameSep]; lineSep > 0 && isDigits(field) {
			line, err := strconv.Atoi(field)
			if err != nil {
				return NodeID{}, fmt.Errorf("%w: bad line in %q", ErrInvalidNodeID, s)
			}
			name := s[nameSep+1:]
			if name == "" {
				return NodeID{}, fmt.Errorf("%w: empty name in %q", ErrInvalidNodeID, s)
			}
			return NodeID{Path: s[:lineSep], Line: line, Name: name}, nil
		}
		start = lineSep + 1
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// DeclID returns the identity of a declaration.
func DeclID(d *ast.Declaration) NodeID {
	return NodeID{Path: d.File.Path, Line: d.Line, Name: d.DisplayName()}
}

// Node is one declared function, class or method.
type Node struct {
	ID        NodeID   `json:"id"`
	Name      string   `json:"name"`
	Kind      NodeKind `json:"type"`
	FilePath  string   `json:"filePath"`
	Line      int      `json:"lineNumber"`
	Signature string   `json:"signature,omitempty"`
}

// Edge is a directed relationship between two nodes.
type Edge struct {
	From NodeID   `json:"from"`
	To   NodeID   `json:"to"`
	Kind EdgeKind `json:"type"`
}

// ExternalCall is a reference that could not be tied to a project node.
//
// Name is the callee text (or module specifier, or DynamicImportMarker) and
// Text is the raw source text of the reference.
type ExternalCall struct {
	From NodeID `json:"from"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// Stats summarizes a build.
type Stats struct {
	Files         int   `json:"files"`
	Nodes         int   `json:"nodes"`
	Edges         int   `json:"edges"`
	ExternalCalls int   `json:"externalCalls"`
	Reconciled    int   `json:"reconciled"`
	DurationMilli int64 `json:"durationMs"`
}

// Result is the output of one build: the reconciled, sorted graph.
type Result struct {
	Nodes         []Node         `json:"nodes"`
	Edges         []Edge         `json:"edges"`
	ExternalCalls []ExternalCall `json:"externalCalls"`
	Stats         Stats          `json:"stats"`
}
