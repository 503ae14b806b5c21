// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/tscodegraph/services/codegraph/mcpserver"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server over stdio",
		Long: `Serve the index_codebase, search_code and get_call_graph tools over
stdin/stdout. Tool calls without a directory use the working directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd, "")
			if err != nil {
				return err
			}
			defer a.close()

			workDir, err := os.Getwd()
			if err != nil {
				return err
			}
			server := mcpserver.New(a.svc,
				mcpserver.WithWorkDir(workDir),
				mcpserver.WithLogger(a.logger),
			)
			return server.Run(cmd.Context())
		},
	}
}
