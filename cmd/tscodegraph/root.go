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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/tscodegraph/services/codegraph"
	"github.com/AleutianAI/tscodegraph/services/codegraph/config"
	"github.com/AleutianAI/tscodegraph/services/codegraph/telemetry"
)

// serviceName identifies this process in telemetry.
const serviceName = "tscodegraph"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "tscodegraph",
		Short: "Analyze TypeScript codebases and query call relationships",
		Long: `tscodegraph parses a TypeScript project, extracts functions, classes and
methods, resolves the calls between them, and stores the call graph next to
the project (.ts-code-graph/ by default).

Prerequisites:
  The project directory must contain a tsconfig.json.

Examples:
  tscodegraph index ./my-app
  tscodegraph query greet -d ./my-app
  tscodegraph serve --addr 127.0.0.1:8089`,
		Version:       codegraph.ServiceVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "",
		"Log format: auto, text, json (overrides config)")

	root.AddCommand(
		newIndexCmd(opts),
		newQueryCmd(opts),
		newSearchCmd(opts),
		newStatsCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// app is the runtime shared by a command: configuration, logger and service.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	svc      *codegraph.Service
	shutdown func(context.Context) error
}

// setup loads the configuration of projectDir and builds the runtime.
//
// projectDir selects the codegraph.config.yaml to read; it may be empty.
func (o *rootOptions) setup(cmd *cobra.Command, projectDir string) (*app, error) {
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: codegraph.ServiceVersion,
		TraceExporter:  cfg.Telemetry.TraceExporter,
		MetricExporter: cfg.Telemetry.MetricExporter,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		svc:      codegraph.NewService(cfg, codegraph.WithLogger(logger)),
		shutdown: shutdown,
	}, nil
}

// close releases the service stores and flushes telemetry.
func (a *app) close() {
	if err := a.svc.Close(); err != nil {
		a.logger.Warn("Failed to close stores", slog.String("error", err.Error()))
	}
	if err := a.shutdown(context.Background()); err != nil {
		a.logger.Warn("Failed to flush telemetry", slog.String("error", err.Error()))
	}
}

// newLogger builds the process logger writing to w.
//
// Format "auto" picks the text handler when w is a terminal and JSON
// otherwise.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	useText := cfg.Format == "text"
	if cfg.Format == "auto" || cfg.Format == "" {
		if f, ok := w.(*os.File); ok {
			useText = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	if useText {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}

type errorOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
