// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package planmodel

import "github.com/tomtom215/querymesh/internal/querymeta"

// ScanExec reads a single stream's partition directly in the node that
// plans the query (no remote fan-out); used for non-cluster or
// already-local-only execution.
type ScanExec struct {
	Stream  string
	FileIDs []string
}

func (ScanExec) Name() string { return "scan_exec" }

// RemoteScanExec fans a sub-plan out across the cluster's online queriers,
// one invocation per file-list partition, and streams partial RecordBatches
// back over the remote-scan RPC (spec §4.6). Partitions holds the file IDs
// assigned to each remote invocation, in partition order; it is empty at
// the point C3 inserts the node and is filled in by the driver once C4's
// file-list partitioning has run. IndexMode carries C3 P1's detected
// index-optimize shape, if any, so workers can short-circuit to an
// index-only read.
type RemoteScanExec struct {
	Stream     string
	Partitions [][]string
	WorkGroup  string
	EnrichMode bool
	IndexMode  *querymeta.IndexOptimizeMode
}

func (RemoteScanExec) Name() string { return "remote_scan_exec" }

// RepartitionExec redistributes rows across PartitionCount output streams,
// by hash of HashExprs when non-empty, else round robin.
type RepartitionExec struct {
	PartitionCount int
	HashExprs      []Expr
}

func (RepartitionExec) Name() string { return "repartition_exec" }

// CoalescePartitionsExec merges multiple input partitions into a single
// output stream, preserving no particular order.
type CoalescePartitionsExec struct{}

func (CoalescePartitionsExec) Name() string { return "coalesce_partitions_exec" }

// SortPreservingMergeExec merges already-sorted input partitions into one
// sorted output stream according to Keys.
type SortPreservingMergeExec struct {
	Keys []SortKey
}

func (SortPreservingMergeExec) Name() string { return "sort_preserving_merge_exec" }

// UnionExec concatenates the output of all of its children without
// reordering.
type UnionExec struct{}

func (UnionExec) Name() string { return "union_exec" }

// HashJoinExec probes a build-side hash table keyed on RightOn against a
// streamed probe side keyed on LeftOn.
type HashJoinExec struct {
	Kind    JoinKind
	LeftOn  []string
	RightOn []string
}

func (HashJoinExec) Name() string { return "hash_join_exec" }

// BroadcastJoinExec replicates its (small) left child to every partition
// of its right child instead of hash-repartitioning either side; chosen when
// the left side's estimated row count is at or below
// Config.BroadcastJoinMaxRows (spec §4.3 P3).
type BroadcastJoinExec struct {
	Kind    JoinKind
	LeftOn  []string
	RightOn []string
}

func (BroadcastJoinExec) Name() string { return "broadcast_join_exec" }

// AggregateMode distinguishes the two halves of a split aggregation.
type AggregateMode string

const (
	AggregatePartial AggregateMode = "partial"
	AggregateFinal   AggregateMode = "final"
	// AggregateSinglePartition covers the no-RemoteScan case where a single
	// aggregate stage suffices (spec §4.3 P4 "streaming aggregation").
	AggregateSinglePartition AggregateMode = "single_partition"
)

// AggregateExec computes GroupBy/Aggrs in Mode. Partial instances run once
// per RemoteScanExec partition; a Final instance combines their outputs.
type AggregateExec struct {
	Mode    AggregateMode
	GroupBy []Expr
	Aggrs   []Expr
}

func (AggregateExec) Name() string { return "aggregate_exec" }

// SortExec orders its child by Keys; Limit > 0 turns it into a bounded
// top-k sort.
type SortExec struct {
	Keys  []SortKey
	Limit int64
}

func (SortExec) Name() string { return "sort_exec" }

// GlobalLimitExec caps the row count after skip, applied once the final
// ordering (if any) is established.
type GlobalLimitExec struct {
	Fetch int64
	Skip  int64
}

func (GlobalLimitExec) Name() string { return "global_limit_exec" }

// FilterExec evaluates Predicate row by row.
type FilterExec struct {
	Predicate Expr
}

func (FilterExec) Name() string { return "filter_exec" }

// ProjectionExec evaluates Exprs to produce the output schema.
type ProjectionExec struct {
	Exprs []Expr
}

func (ProjectionExec) Name() string { return "projection_exec" }

// AnalyzeExec wraps its child, collecting ScanStats/Metrics for EXPLAIN
// ANALYZE responses (spec §4.2 L4, §4.6 "Metrics side channel").
type AnalyzeExec struct{}

func (AnalyzeExec) Name() string { return "analyze_exec" }

// DeduplicationExec is the physical counterpart of DeduplicationExtension,
// deduplicating on Columns keeping the row with the greatest TieBreak value.
type DeduplicationExec struct {
	Columns  []string
	TieBreak string
}

func (DeduplicationExec) Name() string { return "dedup_exec" }
