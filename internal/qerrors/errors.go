// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package qerrors defines the query engine's error taxonomy (kinds, not
// Go types) so that every layer can classify a failure without string
// matching, following the sentinel-kind + wrapped-cause pattern the teacher
// uses in internal/eventprocessor/errors.go.
package qerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the buckets named in spec §7.
type Kind string

const (
	// Validation
	KindParseSQL                    Kind = "parse_sql"
	KindUnknownStream               Kind = "unknown_stream"
	KindUnsupportedConstruct        Kind = "unsupported_construct"
	KindFullTextSearchFieldNotFound Kind = "fts_field_not_found"
	KindUnauthorizedStream          Kind = "unauthorized_stream"

	// Planning
	KindPlanBuild      Kind = "plan_build"
	KindSchemaMismatch Kind = "schema_mismatch"

	// Cluster
	KindNoQuerierOnline Kind = "no_querier_online"
	KindNodeUnreachable Kind = "node_unreachable"

	// Admission
	KindSlotTimeout Kind = "slot_timeout"

	// Execution
	KindSearchTimeout             Kind = "search_timeout"
	KindSearchCancelled           Kind = "search_cancelled"
	KindInternalExecution         Kind = "internal_execution"
	KindSearchParquetFileNotFound Kind = "search_parquet_file_not_found"

	// Transport
	KindRPCCancelled        Kind = "rpc_cancelled"
	KindRPCDeadlineExceeded Kind = "rpc_deadline_exceeded"
	KindRPCOther            Kind = "rpc_other"
)

// wholeRequestKinds fail the entire request rather than being recovered as
// a partial per-partition error (spec §7 "Propagation").
var wholeRequestKinds = map[Kind]bool{
	KindParseSQL:                    true,
	KindUnknownStream:               true,
	KindUnsupportedConstruct:        true,
	KindFullTextSearchFieldNotFound: true,
	KindUnauthorizedStream:          true,
	KindPlanBuild:                   true,
	KindSchemaMismatch:              true,
	KindNoQuerierOnline:             true,
	KindSlotTimeout:                 true,
	KindSearchTimeout:               true,
	KindSearchCancelled:             true,
	KindInternalExecution:           true,
}

// recoverableAtPartition lists the per-partition RPC failures that the
// remote-scan operator swallows into an empty stream + partial-error note
// instead of failing the whole collect (spec §4.6 step 6, §7).
var recoverableAtPartition = map[Kind]bool{
	KindRPCCancelled:              true,
	KindRPCDeadlineExceeded:       true,
	KindSearchParquetFileNotFound: true,
}

// Error wraps a Kind with a message, a trace id for correlation, and an
// optional underlying cause.
type Error struct {
	Kind    Kind
	TraceID string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, qerrors.New(kind, "")) style kind comparisons.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error that wraps cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithTrace returns a copy of e stamped with traceID, for attaching
// correlation context at the point an error crosses the driver boundary.
func (e *Error) WithTrace(traceID string) *Error {
	cp := *e
	cp.TraceID = traceID
	return &cp
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, else "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FailsWholeRequest reports whether an error of this kind must fail the
// entire request rather than being recovered as a partial error.
func FailsWholeRequest(kind Kind) bool { return wholeRequestKinds[kind] }

// RecoverableAtPartition reports whether an error of this kind, observed at
// a single RemoteScan partition, should be swallowed into an empty stream
// plus a partial-error note rather than aborting sibling partitions.
func RecoverableAtPartition(kind Kind) bool { return recoverableAtPartition[kind] }
