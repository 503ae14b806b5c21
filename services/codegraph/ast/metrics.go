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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for project loading.
var (
	tracer = otel.Tracer("tscodegraph.ast")
	meter  = otel.Meter("tscodegraph.ast")
)

var (
	loadLatency metric.Float64Histogram
	filesParsed metric.Int64Counter
	parseErrors metric.Int64Counter
	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		loadLatency, err = meter.Float64Histogram(
			"ast_project_load_duration_seconds",
			metric.WithDescription("Duration of project discovery and parsing"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		filesParsed, err = meter.Int64Counter(
			"ast_files_parsed_total",
			metric.WithDescription("Total number of TypeScript files parsed"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseErrors, err = meter.Int64Counter(
			"ast_parse_errors_total",
			metric.WithDescription("Total number of files that failed to parse"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordLoadMetrics records one LoadProject call.
func recordLoadMetrics(ctx context.Context, duration time.Duration, files int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	loadLatency.Record(ctx, duration.Seconds(), attrs)
	if success {
		filesParsed.Add(ctx, int64(files))
	} else {
		parseErrors.Add(ctx, 1)
	}
}

// startLoadSpan creates a span for a LoadProject call.
//
// The caller must call span.End().
func startLoadSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ast.LoadProject",
		trace.WithAttributes(attribute.String("ast.project_root", root)),
	)
}

// setLoadSpanResult sets the result attributes on a load span.
func setLoadSpanResult(span trace.Span, sourceFiles, declarationFiles int) {
	span.SetAttributes(
		attribute.Int("ast.source_files", sourceFiles),
		attribute.Int("ast.declaration_files", declarationFiles),
	)
}
