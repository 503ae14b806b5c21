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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/tscodegraph/services/codegraph"
	"github.com/AleutianAI/tscodegraph/services/codegraph/graph"
	"github.com/AleutianAI/tscodegraph/services/codegraph/store"
)

type indexOutput struct {
	Success   bool                 `json:"success"`
	Directory string               `json:"directory"`
	Stats     codegraph.IndexStats `json:"stats"`
}

type queryOutput struct {
	Success bool              `json:"success"`
	Matches []codegraph.Match `json:"matches"`
}

type searchOutput struct {
	Success bool         `json:"success"`
	Nodes   []graph.Node `json:"nodes"`
}

type statsOutput struct {
	Success   bool                 `json:"success"`
	Directory string               `json:"directory"`
	Stats     codegraph.IndexStats `json:"stats"`
	LastRun   *store.RunMeta       `json:"lastRun,omitempty"`
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index DIRECTORY",
		Short: "Index a TypeScript project",
		Long: `Parse every source file selected by the project's tsconfig.json, build
the call graph, and replace the stored graph with it.

Examples:
  tscodegraph index .
  TSCG_STORAGE_BACKEND=badger tscodegraph index ./my-app`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.svc.Index(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), indexOutput{
				Success:   true,
				Directory: result.Directory,
				Stats:     result.Stats,
			})
		},
	}
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "query NAME",
		Short: "Show the callers and callees of a function or class",
		Long: `Find every function, class or method named NAME (exact, case-sensitive)
and print each with its direct callers and callees.

Prerequisites:
  Run 'tscodegraph index' first.

Examples:
  tscodegraph query greet
  tscodegraph query Calculator -d ./my-app`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd, dir)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.svc.Query(cmd.Context(), args[0], dir)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), queryOutput{Success: true, Matches: result.Matches})
		},
	}
	cmd.Flags().StringVarP(&dir, "directory", "d", ".", "Project directory")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "search NAME",
		Short: "Find functions or classes by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd, dir)
			if err != nil {
				return err
			}
			defer a.close()

			nodes, err := a.svc.Search(cmd.Context(), args[0], dir)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), searchOutput{Success: true, Nodes: nodes})
		},
	}
	cmd.Flags().StringVarP(&dir, "directory", "d", ".", "Project directory")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stored graph counts and the last indexing run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd, dir)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.svc.Stats(cmd.Context(), dir)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), statsOutput{
				Success:   true,
				Directory: result.Directory,
				Stats:     result.Stats,
				LastRun:   result.LastRun,
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "directory", "d", ".", "Project directory")
	return cmd
}
