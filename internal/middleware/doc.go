// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

/*
Package middleware provides HTTP middleware components for the application.

This package implements infrastructure middleware for compression, performance
monitoring, request ID tracking, and Prometheus metrics integration. These
components work alongside the authentication middleware to create a complete
middleware stack for HTTP request processing.

Key Components:

  - Compression: Gzip compression of every response when the client accepts gzip
  - Performance Monitor: Request latency tracking with percentile calculations
  - Request ID: UUID-based request tracking for distributed tracing
  - Prometheus Metrics: HTTP request/response instrumentation

Middleware Stack:

internal/httpapi adapts these (via its chiMiddleware shim, since most of
this package's middleware wraps http.HandlerFunc rather than chi's native
func(http.Handler) http.Handler) onto a chi router: RequestID, Compression,
the performance monitor and CORS apply to every route, rate limiting
gates only /api/v1, and Prometheus metrics wrap /api/v1 specifically so
health checks don't pollute the scan-latency histograms:

	r.Use(requestIDMiddleware())   // internal/middleware.RequestID
	r.Use(corsHandler(corsCfg))    // github.com/go-chi/cors
	r.Use(compressionMiddleware()) // internal/middleware.Compression
	r.Use(perf.Middleware)         // internal/middleware.PerformanceMonitor (already chi-shaped)

	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(rateLimitHandler(rateCfg))     // github.com/go-chi/httprate
	    r.Use(prometheusMetricsMiddleware()) // internal/middleware.PrometheusMetrics
	    r.Post("/search", handler.Search)
	})

GetStats() is exposed at GET /debug/perf.

Usage Example - Compression:

	import "github.com/tomtom215/querymesh/internal/middleware"

	// Wrap handler with gzip compression
	http.HandleFunc("/api/v1/data",
	    middleware.Compression(handler),
	)

	// Every response is compressed, regardless of size
	// Accept-Encoding: gzip header is required

Usage Example - Performance Monitoring:

	// Create performance monitor keeping the 1000 most recent requests
	perfMon := middleware.NewPerformanceMonitor(1000)

	// Wrap handler
	http.Handle("/api/v1/stats",
	    perfMon.Middleware(handler),
	)

	// Get per-endpoint statistics (durations in milliseconds)
	for _, s := range perfMon.GetStats() {
	    fmt.Printf("%s p50: %d, p95: %d, p99: %d\n",
	        s.Path, s.P50Duration, s.P95Duration, s.P99Duration)
	}

Usage Example - Request ID:

	// Request ID middleware
	http.HandleFunc("/api/v1/logs",
	    middleware.RequestID(handler),
	)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := r.Context().Value(middleware.RequestIDKey).(string)
	    log.Printf("[%s] Processing request", requestID)
	}

Performance Characteristics:

  - Compression: 70-90% size reduction for JSON (text/json mime types)
  - Compression overhead: ~1-2ms for typical responses
  - Metrics overhead: <0.1ms per request
  - Request ID overhead: <0.01ms (UUID generation)
  - Performance monitor: mutex-guarded sliding window of latency samples

Compression Details:

The compression middleware:
  - Compresses every response; there is no size threshold
  - Supports gzip encoding (Accept-Encoding: gzip)
  - Does not filter by mime type
  - Automatically sets Content-Encoding header
  - Does not implement http.Flusher; the gzip stream is closed when the
    handler returns

Performance Monitor:

The performance monitor tracks:
  - Request count per endpoint (status codes are recorded; no error rate
    is computed)
  - Latency percentiles (p50, p95, p99)
  - Rolling window of the maxMetrics most recent requests (1000 in
    internal/httpapi)
  - Thread-safe concurrent access with RWMutex

Thread Safety:

All middleware components are thread-safe:
  - Compression uses per-request gzip writers
  - Performance monitor uses sync.RWMutex
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/httpapi: the chi router and handlers wrapped by this middleware
  - internal/authz: tenant/stream authorization, enforced inside the query
    compiler rather than as HTTP middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
