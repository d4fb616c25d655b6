// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package metrics provides Prometheus instrumentation for the HTTP front
// door, the query execution pipeline (C9), the aggregation-result and
// cardinality caches (C8), and the RemoteScan circuit breakers (C6).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/querymesh/internal/qerrors"
)

var (
	// APIRequestsTotal counts HTTP requests the front door served, by
	// method/path/status. Recorded by internal/middleware.PrometheusMetrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querymesh_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querymesh_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "querymesh_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// QueryDuration covers the whole C9 Execute cycle: compile, plan,
	// partition, admit, scan, merge.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querymesh_query_duration_seconds",
			Help:    "End-to-end query execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
		},
		[]string{"org", "stream_type", "work_group"},
	)

	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querymesh_query_errors_total",
			Help: "Total number of query execution errors, by qerrors.Kind",
		},
		[]string{"kind"},
	)

	QueryPartial = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querymesh_query_partial_results_total",
			Help: "Total number of responses returned with is_partial=true",
		},
		[]string{"org", "stream_type"},
	)

	// ScanBytes and ScanFiles record C6's reported scan volume per query.
	ScanBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querymesh_scan_bytes",
			Help:    "Bytes scanned per query",
			Buckets: prometheus.ExponentialBuckets(1<<20, 4, 10), // 1MiB .. ~256GiB
		},
		[]string{"org", "stream_type"},
	)

	ScanFiles = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querymesh_scan_files",
			Help:    "Number of parquet files scanned per query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"org", "stream_type"},
	)

	// AggCacheHits/Misses track C8's per-bucket cache lookups.
	AggCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "querymesh_agg_cache_hits_total",
			Help: "Total number of aggregation-result cache hits",
		},
	)

	AggCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "querymesh_agg_cache_misses_total",
			Help: "Total number of aggregation-result cache misses",
		},
	)

	CardinalityCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "querymesh_cardinality_cache_hits_total",
			Help: "Total number of cardinality-estimate cache hits",
		},
	)

	CardinalityCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "querymesh_cardinality_cache_misses_total",
			Help: "Total number of cardinality-estimate cache misses",
		},
	)

	// WorkGroupAdmitted/Rejected track C5's admission control.
	WorkGroupAdmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querymesh_workgroup_admitted_total",
			Help: "Total number of queries admitted, by work group",
		},
		[]string{"class"},
	)

	WorkGroupRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querymesh_workgroup_rejected_total",
			Help: "Total number of queries rejected by the admission limiter, by work group",
		},
		[]string{"class"},
	)

	// CircuitBreakerState mirrors gobreaker's State for every RemoteScan
	// destination node (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "querymesh_circuit_breaker_state",
			Help: "RemoteScan circuit breaker state per destination node (0=closed, 1=half-open, 2=open)",
		},
		[]string{"node"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querymesh_circuit_breaker_transitions_total",
			Help: "Total number of RemoteScan circuit breaker state transitions",
		},
		[]string{"node", "from_state", "to_state"},
	)
)

// RecordAPIRequest records one HTTP request/response cycle.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordQuery records one driver.Execute cycle's outcome.
func RecordQuery(org, streamType, workGroup string, duration time.Duration, scanBytes, scanFiles int64, isPartial bool, err error) {
	QueryDuration.WithLabelValues(org, streamType, workGroup).Observe(duration.Seconds())
	ScanBytes.WithLabelValues(org, streamType).Observe(float64(scanBytes))
	ScanFiles.WithLabelValues(org, streamType).Observe(float64(scanFiles))
	if isPartial {
		QueryPartial.WithLabelValues(org, streamType).Inc()
	}
	if err != nil {
		QueryErrors.WithLabelValues(string(qerrors.KindOf(err))).Inc()
	}
}

// RecordAggCacheLookup records a C8 cache hit or miss.
func RecordAggCacheLookup(hit bool) {
	if hit {
		AggCacheHits.Inc()
	} else {
		AggCacheMisses.Inc()
	}
}

// RecordCardinalityCacheLookup records a cardinality-cache hit or miss.
func RecordCardinalityCacheLookup(hit bool) {
	if hit {
		CardinalityCacheHits.Inc()
	} else {
		CardinalityCacheMisses.Inc()
	}
}

// RecordWorkGroupAdmission records C5's admit/reject decision for class.
func RecordWorkGroupAdmission(class string, admitted bool) {
	if admitted {
		WorkGroupAdmitted.WithLabelValues(class).Inc()
	} else {
		WorkGroupRejected.WithLabelValues(class).Inc()
	}
}
