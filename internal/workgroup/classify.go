// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package workgroup implements C5: work-group classification and the
// admission-control slot limiter every query acquires before execution
// (spec §4.5).
package workgroup

import "github.com/tomtom215/querymesh/internal/querymeta"

// Class is the work-group a query is classified into.
type Class string

const (
	ClassShort      Class = "short"
	ClassLong       Class = "long"
	ClassBackground Class = "background"
)

// Classifier decides a query's Class from its request and compiled
// metadata (spec §4.5 "Classification").
type Classifier struct {
	// LongScanBytesThreshold is the scan-size estimate above which an
	// interactive query is classified Long instead of Short.
	LongScanBytesThreshold int64
}

// Classify implements spec §4.5's three-way split: reports, derived
// streams, and alerts are always Background; interactive queries with a
// scan estimate above the threshold are Long; everything else is Short.
func (c Classifier) Classify(req querymeta.Request, scanBytesEstimate int64) Class {
	switch req.SearchEventType {
	case querymeta.SearchEventReport, querymeta.SearchEventDerivedStream, querymeta.SearchEventAlert:
		return ClassBackground
	}
	if scanBytesEstimate > c.LongScanBytesThreshold {
		return ClassLong
	}
	return ClassShort
}
