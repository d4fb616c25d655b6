// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package httpapi is the thin HTTP front door onto internal/driver: chi
// routing, go-playground/validator request validation, Prometheus metrics,
// and swaggo-annotated handlers. Core query execution is transport-agnostic
// (spec §1); this package exists only so the engine has a process entrypoint.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/querymesh/internal/driver"
	"github.com/tomtom215/querymesh/internal/middleware"
)

// Config configures the front door's chi router.
type Config struct {
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

// DefaultConfig returns the default configuration: DefaultCORSConfig (no
// allowed origins) and DefaultRateLimitConfig.
func DefaultConfig() Config {
	return Config{CORS: DefaultCORSConfig(), RateLimit: DefaultRateLimitConfig()}
}

// NewRouter builds the chi router serving d. cfg.CORS applies to every
// route; cfg.RateLimit gates only /api/v1, so health and metrics stay
// unthrottled for orchestrator probes and scrapers.
func NewRouter(d *driver.Driver, cfg Config) http.Handler {
	perf := middleware.NewPerformanceMonitor(1000)
	h := &Handler{Driver: d, Perf: perf}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(cfg.CORS))
	r.Use(compressionMiddleware())
	r.Use(perf.Middleware)

	r.Get("/health/live", Live)
	r.Get("/health/ready", Ready)
	r.Get("/debug/perf", h.PerfStats)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimitHandler(cfg.RateLimit))
		r.Use(prometheusMetricsMiddleware())
		r.Post("/search", h.Search)
	})

	return r
}
