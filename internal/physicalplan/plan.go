// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package physicalplan

import (
	"github.com/tomtom215/querymesh/internal/planmodel"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// Result is the output of Plan: the finished physical tree's root, the
// index-optimize mode P1 detected (nil if none matched), and the streaming
// aggregation context P4 wired in (nil if streaming does not apply).
type Result struct {
	Root              planmodel.NodeID
	IndexOptimizeMode *querymeta.IndexOptimizeMode
	Streaming         *StreamingAggregationContext
}

// Plan runs C3 in full: lower the logical tree to physical operators (P1's
// prerequisite), detect an index-optimize shape (P1), insert RemoteScan
// nodes (P2), apply broadcast join (P3, feature-gated), and wire streaming
// aggregation (P4, feature-gated) -- in that order, matching spec §4.3.
func Plan(arena *planmodel.Arena, logicalRoot planmodel.NodeID, cfg Config, estimate RowEstimator, streamingRequested bool) Result {
	root := Lower(arena, logicalRoot, cfg.TargetPartitions)
	root = FinalizeRoot(arena, root)

	mode := DetectIndexOptimizeMode(arena, root, cfg.TimeRange)

	root = InsertRemoteScan(arena, root, cfg, mode)
	root = ApplyBroadcastJoin(arena, root, cfg, estimate)
	streaming := WireStreaming(arena, root, streamingRequested)

	arena.SetRoot(root)
	return Result{Root: root, IndexOptimizeMode: mode, Streaming: streaming}
}
