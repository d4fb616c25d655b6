// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package httpapi

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/querymesh/internal/logging"
	"github.com/tomtom215/querymesh/internal/qerrors"
)

func secondsToDuration(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	respondJSON(w, status, &ErrorResponse{
		Status: "error",
		Error:  &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// statusForKind maps a qerrors.Kind to the HTTP status code spec §7
// associates with that failure class.
func statusForKind(kind qerrors.Kind) int {
	switch kind {
	case qerrors.KindParseSQL, qerrors.KindUnsupportedConstruct, qerrors.KindFullTextSearchFieldNotFound:
		return http.StatusBadRequest
	case qerrors.KindUnknownStream, qerrors.KindSchemaMismatch:
		return http.StatusNotFound
	case qerrors.KindUnauthorizedStream:
		return http.StatusForbidden
	case qerrors.KindSlotTimeout, qerrors.KindSearchTimeout:
		return http.StatusGatewayTimeout
	case qerrors.KindSearchCancelled, qerrors.KindRPCCancelled:
		return 499 // client closed request, matching the source's nginx convention
	case qerrors.KindNoQuerierOnline, qerrors.KindNodeUnreachable:
		return http.StatusServiceUnavailable
	case qerrors.KindPlanBuild, qerrors.KindInternalExecution, qerrors.KindRPCOther:
		return http.StatusInternalServerError
	case qerrors.KindSearchParquetFileNotFound:
		return http.StatusConflict
	case qerrors.KindRPCDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondQueryError writes the error envelope for a failed Execute call,
// classifying err via qerrors.KindOf when it wraps a *qerrors.Error.
func respondQueryError(w http.ResponseWriter, err error) {
	kind := qerrors.KindOf(err)
	if kind == "" {
		respondError(w, http.StatusInternalServerError, "internal_execution", err.Error(), nil)
		return
	}
	respondError(w, statusForKind(kind), string(kind), err.Error(), nil)
}
