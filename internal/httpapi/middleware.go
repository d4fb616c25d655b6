// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/querymesh/internal/middleware"
)

// chiMiddleware adapts the http.HandlerFunc-wrapping middleware in
// internal/middleware (RequestID, PrometheusMetrics, Compression) to chi's
// native func(http.Handler) http.Handler shape, so r.Use() can take them
// directly.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// CORSConfig configures the front door's CORS policy.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAgeSeconds    int
}

// DefaultCORSConfig allows no origins; deployments must opt in explicitly.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		MaxAgeSeconds:  86400,
	}
}

func corsHandler(cfg CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAgeSeconds,
	})
}

// RateLimitConfig configures go-chi/httprate on the search endpoint, which
// runs queries and therefore needs stricter admission than health checks.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultRateLimitConfig matches the teacher's 100 req/min default.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Requests: 100, Window: time.Minute}
}

func rateLimitHandler(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(cfg.Requests, cfg.Window, httprate.WithKeyFuncs(httprate.KeyByIP))
}

// prometheusMetricsMiddleware wraps internal/middleware.PrometheusMetrics for
// chi's r.Use().
func prometheusMetricsMiddleware() func(http.Handler) http.Handler {
	return chiMiddleware(middleware.PrometheusMetrics)
}

// requestIDMiddleware wraps internal/middleware.RequestID for chi's r.Use().
func requestIDMiddleware() func(http.Handler) http.Handler {
	return chiMiddleware(middleware.RequestID)
}

// compressionMiddleware wraps internal/middleware.Compression for chi's
// r.Use().
func compressionMiddleware() func(http.Handler) http.Handler {
	return chiMiddleware(middleware.Compression)
}
