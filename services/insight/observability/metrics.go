// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability holds the insight service's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration measures HTTP handler latency.
	// Labels: route, method, status
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "invisor",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	}, []string{"route", "method", "status"})

	// AttributionRequests counts attribution computations by outcome.
	// Labels: scope (global, local), source (real_shap, precomputed), status (ok, error)
	AttributionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invisor",
		Subsystem: "attribution",
		Name:      "requests_total",
		Help:      "Total attribution computations by scope, source, and status",
	}, []string{"scope", "source", "status"})

	// AttributionDuration measures attribution computation latency.
	// Labels: scope (global, local)
	AttributionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "invisor",
		Subsystem: "attribution",
		Name:      "duration_seconds",
		Help:      "Attribution computation latency in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	}, []string{"scope"})

	// ChatQueries counts chat queries by resolved intent.
	// Labels: intent
	ChatQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invisor",
		Subsystem: "chat",
		Name:      "queries_total",
		Help:      "Total chat queries by resolved intent",
	}, []string{"intent"})

	// DatasetUploads counts dataset uploads by outcome.
	// Labels: status (ok, invalid, error)
	DatasetUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invisor",
		Subsystem: "dataset",
		Name:      "uploads_total",
		Help:      "Total dataset uploads by outcome",
	}, []string{"status"})

	// DatasetRows gauges the row count of the active dataset snapshot.
	DatasetRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "invisor",
		Subsystem: "dataset",
		Name:      "rows",
		Help:      "Row count of the active dataset snapshot",
	})

	// CacheBuildDuration measures insight cache assembly latency.
	CacheBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "invisor",
		Subsystem: "insights",
		Name:      "cache_build_duration_seconds",
		Help:      "Insight cache build latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	})
)
