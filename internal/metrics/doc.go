// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

/*
Package metrics provides Prometheus metrics collection and export for the
query engine.

This package implements application instrumentation using the Prometheus
client library, exposing metrics for monitoring API throughput, query
execution, cache effectiveness, admission control, and RemoteScan circuit
breaker health.

# Overview

The package provides metrics for:
  - HTTP request latency and throughput
  - End-to-end query execution duration, errors, and partial results
  - Scan volume (bytes and parquet files) per query
  - Aggregation-result cache (C8) and cardinality cache hit/miss rates
  - Work-group admission control (C5) decisions
  - RemoteScan (C6) circuit breaker state and transitions

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:5080/metrics

# Available Metrics

HTTP Metrics:
  - querymesh_api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - querymesh_api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
    Buckets: .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60
  - querymesh_api_active_requests: In-flight requests (gauge)

Query Execution Metrics (C9):
  - querymesh_query_duration_seconds: End-to-end Execute duration (histogram)
    Labels: org, stream_type, work_group
  - querymesh_query_errors_total: Failed queries (counter)
    Labels: kind (a qerrors.Kind value, e.g. search_timeout, plan_build)
  - querymesh_query_partial_results_total: Responses with is_partial=true (counter)
    Labels: org, stream_type
  - querymesh_scan_bytes, querymesh_scan_files: Scan volume per query (histograms)
    Labels: org, stream_type

Cache Metrics:
  - querymesh_agg_cache_hits_total / querymesh_agg_cache_misses_total:
    C8 per-bucket aggregation-result cache lookups (counters)
  - querymesh_cardinality_cache_hits_total / querymesh_cardinality_cache_misses_total:
    internal/cardinality distinct-count estimate lookups (counters)

Admission Control Metrics (C5):
  - querymesh_workgroup_admitted_total / querymesh_workgroup_rejected_total:
    internal/workgroup.Limiter decisions (counters)
    Labels: class (short, long, background)

RemoteScan Circuit Breaker Metrics (C6):
  - querymesh_circuit_breaker_state: Current gobreaker state per node (gauge)
    Labels: node
    Values: 0=closed, 1=half-open, 2=open
  - querymesh_circuit_breaker_transitions_total: State transitions (counter)
    Labels: node, from_state, to_state

# Usage Example

Basic setup in cmd/queryengine/main.go:

	import (
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    // Register metrics endpoint
	    http.Handle("/metrics", promhttp.Handler())
	}

Recording a query execution outcome, from internal/driver.Driver.Execute:

	resp, err := d.execute(ctx, req)
	metrics.RecordQuery(req.Org, string(req.StreamType), resp.WorkGroup,
	    d.now().Sub(requestStart), resp.ScanSize, resp.ScanFiles, resp.IsPartial, err)

Recording HTTP metrics with middleware (see internal/middleware.PrometheusMetrics):

	func PrometheusMetrics(next http.HandlerFunc) http.HandlerFunc {
	    return func(w http.ResponseWriter, r *http.Request) {
	        start := time.Now()
	        metrics.TrackActiveRequest(true)
	        defer metrics.TrackActiveRequest(false)

	        rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	        next(rw, r)

	        metrics.RecordAPIRequest(r.Method, chi.RouteContext(r.Context()).RoutePattern(),
	            strconv.Itoa(rw.status), time.Since(start))
	    }
	}

# Prometheus Configuration

Example prometheus.yml configuration:

	scrape_configs:
	  - job_name: 'querymesh'
	    static_configs:
	      - targets: ['localhost:5080']
	    metrics_path: '/metrics'
	    scrape_interval: 15s

# Grafana Dashboards

The metrics support Grafana dashboards with panels for:

  - API request rate and latency (p50, p95, p99 percentiles)
  - Query error rate by qerrors.Kind
  - Cache hit rate for C8 and the cardinality cache
  - Work-group admission/rejection rate by class
  - Circuit breaker state per RemoteScan destination node

Example PromQL queries:

	# API p95 latency
	histogram_quantile(0.95, rate(querymesh_api_request_duration_seconds_bucket[5m]))

	# Query error rate by kind
	sum by (kind) (rate(querymesh_query_errors_total[5m]))

	# Aggregation cache hit rate
	sum(rate(querymesh_agg_cache_hits_total[5m]))
	  / (sum(rate(querymesh_agg_cache_hits_total[5m])) + sum(rate(querymesh_agg_cache_misses_total[5m])))

	# Work-group rejection rate
	sum by (class) (rate(querymesh_workgroup_rejected_total[5m]))

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.

# Cardinality Management

To prevent high cardinality issues:

  - Endpoint labels come from chi's matched route pattern, never the raw
    request path, so org/stream path segments never become label values
  - qerrors.Kind is a small closed set of string constants
  - Work-group class is one of short, long, background

# Alerting Rules

Example Prometheus alerting rules:

	groups:
	  - name: querymesh
	    rules:
	      - alert: HighQueryErrorRate
	        expr: |
	          sum(rate(querymesh_query_errors_total[5m]))
	          /
	          sum(rate(querymesh_query_duration_seconds_count[5m]))
	          > 0.05
	        for: 5m
	        annotations:
	          summary: "High query error rate: {{ $value }}%"

	      - alert: CircuitBreakerOpen
	        expr: querymesh_circuit_breaker_state == 2
	        for: 2m
	        annotations:
	          summary: "RemoteScan circuit breaker open for {{ $labels.node }}"

# See Also

  - internal/middleware: HTTP middleware that records API request metrics
  - internal/driver: records query execution and work-group admission metrics
  - internal/aggcache, internal/cardinality: record cache lookup metrics
  - https://prometheus.io/docs/practices/naming/: Metric naming conventions
*/
package metrics
