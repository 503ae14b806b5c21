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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/tscodegraph/services/codegraph"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch DIRECTORY",
		Short: "Index a project and reindex it on every change",
		Long: `Index the project once, then watch its sources and rebuild the graph
after each burst of changes. Every completed run prints one JSON result.
Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			return a.svc.Watch(cmd.Context(), args[0], func(result *codegraph.IndexResult, err error) {
				if err != nil {
					a.logger.Error("Reindex failed", slog.String("error", err.Error()))
					return
				}
				if err := writeJSON(out, indexOutput{
					Success:   true,
					Directory: result.Directory,
					Stats:     result.Stats,
				}); err != nil {
					a.logger.Warn("Failed to write result", slog.String("error", err.Error()))
				}
			})
		},
	}
}
