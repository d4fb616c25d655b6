// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package physicalplan

import "github.com/tomtom215/querymesh/internal/querymeta"

// Config carries the per-request parameters C3's rewrites need beyond the
// plan tree itself.
type Config struct {
	// TargetPartitions is the driver's CPU count, used both as the initial
	// scan partitioning and as the round-robin repartition width after
	// RemoteScan insertion.
	TargetPartitions int
	// WorkGroup labels every RemoteScanExec this run inserts, for the
	// work-group classifier (C5) to read back off the plan.
	WorkGroup string
	// SingleNode and StreamCount together gate P2's "single-node mode"
	// skip: insertion is skipped only when the executing node is
	// standalone and the plan references at most one stream.
	SingleNode  bool
	StreamCount int

	// BroadcastJoinEnabled gates P3.
	BroadcastJoinEnabled bool
	// BroadcastJoinMaxRows is the left-side row estimate ceiling below
	// which a HashJoin is replaced with a BroadcastJoin.
	BroadcastJoinMaxRows int64

	// TimeRange is the query's requested range, used by P1 to compute the
	// SimpleHistogram mode's rounded min_us/n_buckets. Zero value disables
	// histogram-mode bucket-count computation (MinUs/NBuckets stay 0).
	TimeRange querymeta.TimeRange
}
