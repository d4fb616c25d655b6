// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package httpapi

import "github.com/tomtom215/querymesh/internal/querymeta"

// SearchRequest is the wire shape of a query request (spec §6 "Query
// request (logical)"). querymeta.Request has no JSON tags of its own since
// internal/driver is transport-agnostic; this DTO is the HTTP front door's
// translation layer, validated with go-playground/validator tags.
type SearchRequest struct {
	Org             string   `json:"org" validate:"required"`
	StreamType      string   `json:"stream_type" validate:"required,oneof=logs metrics traces enrichment_tables"`
	SQL             string   `json:"sql" validate:"required"`
	StartUs         int64    `json:"start_us" validate:"required"`
	EndUs           int64    `json:"end_us" validate:"required,gtfield=StartUs"`
	From            int64    `json:"from" validate:"gte=0"`
	Size            int64    `json:"size" validate:"gte=0"`
	TrackTotalHits  bool     `json:"track_total_hits"`
	QuickMode       bool     `json:"quick_mode"`
	StreamingOutput bool     `json:"streaming_output"`
	StreamingID     string   `json:"streaming_id"`
	QueryFn         string   `json:"query_fn"`
	Regions         []string `json:"regions"`
	Clusters        []string `json:"clusters"`
	SearchEventType string   `json:"search_type" validate:"omitempty,oneof=ui dashboard report alert rum derived_stream"`
	UseCache        bool     `json:"use_cache"`
	ClearCache      bool     `json:"clear_cache"`
	TimeoutSeconds  int64    `json:"timeout" validate:"gte=0"`
}

// toDomain translates the validated wire request into the driver's request
// type, filling UserID and TraceID from the caller's authenticated context
// and the per-request trace ID minted by the request-ID middleware.
func (sr SearchRequest) toDomain(traceID, userID string) querymeta.Request {
	eventType := querymeta.SearchEventUI
	if sr.SearchEventType != "" {
		eventType = querymeta.SearchEventType(sr.SearchEventType)
	}
	return querymeta.Request{
		TraceID:         traceID,
		Org:             sr.Org,
		StreamType:      querymeta.StreamType(sr.StreamType),
		SQL:             sr.SQL,
		TimeRange:       querymeta.TimeRange{StartUs: sr.StartUs, EndUs: sr.EndUs},
		From:            sr.From,
		Size:            sr.Size,
		TrackTotalHits:  sr.TrackTotalHits,
		QuickMode:       sr.QuickMode,
		StreamingOutput: sr.StreamingOutput,
		StreamingID:     sr.StreamingID,
		QueryFn:         sr.QueryFn,
		Regions:         sr.Regions,
		Clusters:        sr.Clusters,
		SearchEventType: eventType,
		UseCache:        sr.UseCache,
		ClearCache:      sr.ClearCache,
		TimeoutSeconds:  sr.TimeoutSeconds,
		UserID:          userID,
	}
}

// SearchResponse is the wire shape of querymeta.Response.
type SearchResponse struct {
	TraceID           string          `json:"trace_id"`
	TookMS            int64           `json:"took_ms"`
	WaitInQueueMS     int64           `json:"wait_in_queue_ms"`
	Hits              []querymeta.Row `json:"hits"`
	Total             int64           `json:"total"`
	From              int64           `json:"from"`
	Size              int64           `json:"size"`
	ScanFiles         int64           `json:"scan_files"`
	ScanSize          int64           `json:"scan_size"`
	ScanRecords       int64           `json:"scan_records"`
	Columns           []string        `json:"columns"`
	ResponseType      string          `json:"response_type,omitempty"`
	CachedRatio       float64         `json:"cached_ratio,omitempty"`
	ResultCacheRatio  float64         `json:"result_cache_ratio,omitempty"`
	WorkGroup         string          `json:"work_group,omitempty"`
	PeakMemoryUsage   int64           `json:"peak_memory_usage,omitempty"`
	IsPartial         bool            `json:"is_partial"`
	FunctionError     []string        `json:"function_error,omitempty"`
	HistogramInterval *int64          `json:"histogram_interval,omitempty"`
	NewStartTime      *int64          `json:"new_start_time,omitempty"`
	NewEndTime        *int64          `json:"new_end_time,omitempty"`
}

func fromDomain(resp querymeta.Response) SearchResponse {
	return SearchResponse{
		TraceID:           resp.TraceID,
		TookMS:            resp.TookMS,
		WaitInQueueMS:     resp.TookDetail.WaitInQueueMS,
		Hits:              resp.Hits,
		Total:             resp.Total,
		From:              resp.From,
		Size:              resp.Size,
		ScanFiles:         resp.ScanFiles,
		ScanSize:          resp.ScanSize,
		ScanRecords:       resp.ScanRecords,
		Columns:           resp.Columns,
		ResponseType:      resp.ResponseType,
		CachedRatio:       resp.CachedRatio,
		ResultCacheRatio:  resp.ResultCacheRatio,
		WorkGroup:         resp.WorkGroup,
		PeakMemoryUsage:   resp.PeakMemoryUsage,
		IsPartial:         resp.IsPartial,
		FunctionError:     resp.FunctionError,
		HistogramInterval: resp.HistogramInterval,
		NewStartTime:      resp.NewStartTime,
		NewEndTime:        resp.NewEndTime,
	}
}

// ErrorResponse is the error envelope returned for non-2xx responses.
type ErrorResponse struct {
	Status string     `json:"status"`
	Error  *ErrorBody `json:"error"`
}

// ErrorBody names the qerrors.Kind (or VALIDATION_ERROR) and a message.
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
