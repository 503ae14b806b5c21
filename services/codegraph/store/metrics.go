// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// storeOpsTotal counts store operations by backend, operation and status.
	// Labels: backend (sqlite, badger), op, status (ok, error)
	storeOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tscodegraph",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Total store operations by backend, operation and status",
	}, []string{"backend", "op", "status"})

	// storeRecordsTotal counts records written by bulk inserts.
	// Labels: backend, op
	storeRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tscodegraph",
		Subsystem: "store",
		Name:      "records_written_total",
		Help:      "Total records written by bulk inserts",
	}, []string{"backend", "op"})

	// storeLatencySeconds measures store operation latency.
	// Labels: backend, op
	storeLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tscodegraph",
		Subsystem: "store",
		Name:      "latency_seconds",
		Help:      "Store operation latency",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"backend", "op"})
)

// observe records one operation. records is the number written, zero for reads.
func observe(backend, op string, start time.Time, records int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeOpsTotal.WithLabelValues(backend, op, status).Inc()
	storeLatencySeconds.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if err == nil && records > 0 {
		storeRecordsTotal.WithLabelValues(backend, op).Add(float64(records))
	}
}
