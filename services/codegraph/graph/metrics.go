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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("tscodegraph.graph")
	meter  = otel.Meter("tscodegraph.graph")
)

var (
	buildLatency  metric.Float64Histogram
	nodesTotal    metric.Int64Counter
	edgesTotal    metric.Int64Counter
	externalTotal metric.Int64Counter
	metricsOnce   sync.Once
	metricsErr    error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"graph_build_duration_seconds",
			metric.WithDescription("Duration of call graph builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesTotal, err = meter.Int64Counter(
			"graph_nodes_total",
			metric.WithDescription("Total number of nodes produced by builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesTotal, err = meter.Int64Counter(
			"graph_edges_total",
			metric.WithDescription("Total number of edges produced by builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		externalTotal, err = meter.Int64Counter(
			"graph_external_calls_total",
			metric.WithDescription("Total number of external calls produced by builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBuildMetrics records one Build call.
func recordBuildMetrics(ctx context.Context, duration time.Duration, stats Stats, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	buildLatency.Record(ctx, duration.Seconds(), attrs)
	if !success {
		return
	}
	nodesTotal.Add(ctx, int64(stats.Nodes))
	edgesTotal.Add(ctx, int64(stats.Edges))
	externalTotal.Add(ctx, int64(stats.ExternalCalls))
}

// startBuildSpan creates a span for a Build call.
//
// The caller must call span.End().
func startBuildSpan(ctx context.Context, fileCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "graph.Builder.Build",
		trace.WithAttributes(attribute.Int("graph.file_count", fileCount)),
	)
}

// setBuildSpanResult sets the result attributes on a build span.
func setBuildSpanResult(span trace.Span, stats Stats) {
	span.SetAttributes(
		attribute.Int("graph.nodes", stats.Nodes),
		attribute.Int("graph.edges", stats.Edges),
		attribute.Int("graph.external_calls", stats.ExternalCalls),
		attribute.Int("graph.reconciled", stats.Reconciled),
	)
}
