// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package querymeta

import "time"

// TimeRange is an inclusive-start, exclusive-end microsecond range.
type TimeRange struct {
	StartUs int64
	EndUs   int64
}

// Duration returns the range length.
func (r TimeRange) Duration() time.Duration {
	return time.Duration(r.EndUs-r.StartUs) * time.Microsecond
}

// Empty reports whether the range has non-positive length.
func (r TimeRange) Empty() bool { return r.EndUs <= r.StartUs }

// SearchEventType classifies the originator of a query for role-group
// routing (UI search vs scheduled report vs alert evaluation).
type SearchEventType string

const (
	SearchEventUI            SearchEventType = "ui"
	SearchEventDashboard     SearchEventType = "dashboard"
	SearchEventReport        SearchEventType = "report"
	SearchEventAlert         SearchEventType = "alert"
	SearchEventRUM           SearchEventType = "rum"
	SearchEventDerivedStream SearchEventType = "derived_stream"
)

// Request is the tenant-scoped query request driving the C9 pipeline
// (spec §3 "Request", §6 "Query request (logical)").
type Request struct {
	TraceID         string
	Org             string
	StreamType      StreamType
	SQL             string
	TimeRange       TimeRange
	From            int64
	Size            int64
	TrackTotalHits  bool
	QuickMode       bool
	StreamingOutput bool
	StreamingID     string
	QueryFn         string
	Regions         []string
	Clusters        []string
	SearchEventType SearchEventType
	UseCache        bool
	ClearCache      bool
	TimeoutSeconds  int64
	LocalMode       bool
	UserID          string

	// WorkGroup is populated by the driver after admission (C5); empty on
	// input.
	WorkGroup string
}

// TookDetail breaks down where time was spent for a response.
type TookDetail struct {
	WaitInQueueMS int64
}

// Row is one result row: column name to decoded value.
type Row map[string]any

// Response is the logical query response (spec §6 "Query response").
type Response struct {
	TraceID           string
	TookMS            int64
	TookDetail        TookDetail
	Hits              []Row
	Total             int64
	From              int64
	Size              int64
	ScanFiles         int64
	ScanSize          int64
	ScanRecords       int64
	Columns           []string
	ResponseType      string
	CachedRatio       float64
	ResultCacheRatio  float64
	WorkGroup         string
	PeakMemoryUsage   int64
	IsPartial         bool
	FunctionError     []string
	HistogramInterval *int64
	NewStartTime      *int64
	NewEndTime        *int64
}
