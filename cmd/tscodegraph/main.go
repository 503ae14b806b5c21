// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command tscodegraph indexes TypeScript projects into a call graph and
// queries it from the command line, over HTTP, or as an MCP server.
//
// Usage:
//
//	tscodegraph index <directory>
//	tscodegraph query <name> [-d directory]
//	tscodegraph search <name> [-d directory]
//	tscodegraph stats [-d directory]
//	tscodegraph serve [--addr host:port]
//	tscodegraph mcp
//	tscodegraph watch <directory>
//
// Results are printed to stdout as indented JSON. Logs and failures go to
// stderr; a failed command exits with status 1.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		writeJSON(stderr, errorOutput{Success: false, Error: err.Error()})
		return 1
	}
	return 0
}
