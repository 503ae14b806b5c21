// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mcpserver exposes the call graph service as Model Context Protocol
// tools over stdio.
//
// Tools:
//
//	index_codebase {directory} - Rebuild a project's call graph
//	search_code {name, directory?} - Nodes by name
//	get_call_graph {name, directory?} - Nodes by name with callers and callees
//
// Every result is a single JSON text block. Failures are reported in-band as
// {"success": false, "error": "..."} with IsError set, never as protocol
// errors. Nothing is written to stdout except protocol frames.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AleutianAI/tscodegraph/services/codegraph"
	"github.com/AleutianAI/tscodegraph/services/codegraph/graph"
)

// ServerName is the implementation name announced to clients.
const ServerName = "ts-code-graph"

// IndexArgs are the arguments of index_codebase.
type IndexArgs struct {
	Directory string `json:"directory" jsonschema:"Path to the TypeScript project directory"`
}

// SearchArgs are the arguments of search_code.
type SearchArgs struct {
	Name      string `json:"name" jsonschema:"Name of the function or class to search for"`
	Directory string `json:"directory,omitempty" jsonschema:"Project directory (default: current directory)"`
}

// CallGraphArgs are the arguments of get_call_graph.
type CallGraphArgs struct {
	Name      string `json:"name" jsonschema:"Name of the function or class"`
	Directory string `json:"directory,omitempty" jsonschema:"Project directory (default: current directory)"`
}

// Option configures a Server.
type Option func(*Server)

// WithWorkDir sets the directory used when a tool call omits one.
// Default: ".".
func WithWorkDir(dir string) Option {
	return func(s *Server) {
		s.workDir = dir
	}
}

// WithLogger sets the server logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server is an MCP server backed by a codegraph.Service.
type Server struct {
	svc     *codegraph.Service
	mcp     *mcp.Server
	workDir string
	logger  *slog.Logger
}

// New creates a Server with all tools registered.
func New(svc *codegraph.Service, opts ...Option) *Server {
	s := &Server{svc: svc, workDir: "."}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: codegraph.ServiceVersion,
	}, nil)
	s.registerTools()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server starting", slog.String("transport", "stdio"))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_codebase",
		Description: "Index a TypeScript project to analyze code structure",
	}, s.handleIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_code",
		Description: "Search for functions or classes by name",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_call_graph",
		Description: "Get callers and callees of a function or class",
	}, s.handleCallGraph)
}

type indexPayload struct {
	Success   bool                 `json:"success"`
	Directory string               `json:"directory"`
	Stats     codegraph.IndexStats `json:"stats"`
}

type searchPayload struct {
	Matches []graph.Node `json:"matches"`
}

type callGraphPayload struct {
	Results []codegraph.Match `json:"results"`
}

type errorPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleIndex(ctx context.Context, _ *mcp.CallToolRequest, args IndexArgs) (*mcp.CallToolResult, any, error) {
	result, err := s.svc.Index(ctx, s.directory(args.Directory))
	if err != nil {
		return s.errorResult("index_codebase", err), nil, nil
	}
	return jsonResult(indexPayload{
		Success:   true,
		Directory: result.Directory,
		Stats:     result.Stats,
	}), nil, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	nodes, err := s.svc.Search(ctx, args.Name, s.directory(args.Directory))
	if err != nil {
		return s.errorResult("search_code", err), nil, nil
	}
	return jsonResult(searchPayload{Matches: nodes}), nil, nil
}

func (s *Server) handleCallGraph(ctx context.Context, _ *mcp.CallToolRequest, args CallGraphArgs) (*mcp.CallToolResult, any, error) {
	result, err := s.svc.Query(ctx, args.Name, s.directory(args.Directory))
	if err != nil {
		return s.errorResult("get_call_graph", err), nil, nil
	}
	return jsonResult(callGraphPayload{Results: result.Matches}), nil, nil
}

func (s *Server) directory(dir string) string {
	if dir == "" {
		return s.workDir
	}
	return dir
}

func (s *Server) errorResult(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("Tool call failed",
		slog.String("tool", tool),
		slog.String("error", err.Error()),
	)
	result := jsonResult(errorPayload{Success: false, Error: err.Error()})
	result.IsError = true
	return result
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: `{"success": false, "error": "cannot encode result"}`}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
