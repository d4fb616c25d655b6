// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package httpapi

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/querymesh/internal/driver"
	"github.com/tomtom215/querymesh/internal/middleware"
	"github.com/tomtom215/querymesh/internal/validation"
)

// Handler serves the thin HTTP front door onto driver.Driver. HTTP handling
// itself is out of core scope (spec §1); this exists only so the query
// engine has a process entrypoint for the logical request/response of §6.
type Handler struct {
	Driver *driver.Driver
	Perf   *middleware.PerformanceMonitor
}

// Live reports process liveness unconditionally: reachability is all a
// liveness probe needs.
//
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/live [get]
func Live(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports readiness the same as Live in single-node mode: there is no
// warm-up phase once the Driver's collaborators are constructed.
//
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/ready [get]
func Ready(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Search runs a tenant-scoped SQL query through the C9 pipeline and returns
// its logical response (spec §6).
//
// @Summary Run a query
// @Description Compiles, plans, and executes a tenant-scoped SQL query against the named org/stream_type, returning matched rows or aggregated results.
// @Tags Search
// @Accept json
// @Produce json
// @Param request body SearchRequest true "Query request"
// @Success 200 {object} SearchResponse
// @Failure 400 {object} ErrorResponse "Invalid request or SQL"
// @Failure 403 {object} ErrorResponse "Stream not authorized for this user"
// @Failure 404 {object} ErrorResponse "Unknown stream"
// @Failure 503 {object} ErrorResponse "No querier online"
// @Failure 504 {object} ErrorResponse "Query timed out"
// @Router /api/v1/search [post]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var sr SearchRequest
	if !decodeAndValidate(w, r, &sr) {
		return
	}

	traceID := requestTraceID(r)
	userID := userIDFromRequest(r)
	req := sr.toDomain(traceID, userID)

	ctx := r.Context()
	if req.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, secondsToDuration(req.TimeoutSeconds))
		defer cancel()
	}

	resp, err := h.Driver.Execute(ctx, req)
	if err != nil {
		respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fromDomain(resp))
}

// PerfStats reports request-latency percentiles per endpoint, gathered by
// internal/middleware.PerformanceMonitor.
//
// @Summary Request latency statistics
// @Tags Health
// @Produce json
// @Success 200 {object} []middleware.EndpointStats
// @Router /debug/perf [get]
func (h *Handler) PerfStats(w http.ResponseWriter, _ *http.Request) {
	if h.Perf == nil {
		respondJSON(w, http.StatusOK, []middleware.EndpointStats{})
		return
	}
	respondJSON(w, http.StatusOK, h.Perf.GetStats())
}

func userIDFromRequest(r *http.Request) string {
	if uid := r.Header.Get("X-User-ID"); uid != "" {
		return uid
	}
	return "anonymous"
}

func requestTraceID(r *http.Request) string {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

// decodeAndValidate reads the JSON body into v and runs
// internal/validation's go-playground/validator checks, writing the error
// response itself when either step fails.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return false
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return false
	}
	return true
}
