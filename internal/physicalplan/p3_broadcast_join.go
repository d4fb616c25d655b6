// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package physicalplan

import "github.com/tomtom215/querymesh/internal/planmodel"

// RowEstimate describes what the planner knows about a subtree's left-hand
// row count for P3's broadcast-join decision.
type RowEstimate struct {
	Rows    int64
	Bounded bool // false for an unbounded/streaming source
}

// RowEstimator returns the planner's best estimate for the subtree rooted
// at id, used only to decide broadcast-join eligibility.
type RowEstimator func(arena *planmodel.Arena, id planmodel.NodeID) RowEstimate

// ApplyBroadcastJoin is P3 (feature-gated): replaces a HashJoinExec with a
// BroadcastJoinExec when its left side is small, bounded, and free of a
// Union, per spec §4.3 P3. estimate supplies the left side's row estimate;
// callers that have no cost model may pass an estimator that always
// reports Bounded: false, which rejects every join (the spec's "rejected
// if... the estimated cost exceeds a threshold" default).
func ApplyBroadcastJoin(arena *planmodel.Arena, root planmodel.NodeID, cfg Config, estimate RowEstimator) planmodel.NodeID {
	if !cfg.BroadcastJoinEnabled || estimate == nil {
		return root
	}

	var joins []planmodel.NodeID
	arena.Walk(root, func(id planmodel.NodeID, op planmodel.Op, _ []planmodel.NodeID) {
		if _, ok := op.(planmodel.HashJoinExec); ok {
			joins = append(joins, id)
		}
	})

	for _, id := range joins {
		join, ok := arena.Op(id).(planmodel.HashJoinExec)
		if !ok {
			continue
		}
		children := arena.Children(id)
		if len(children) != 2 {
			continue
		}
		left := children[0]
		if arena.Contains(left, "union_exec") {
			continue
		}
		est := estimate(arena, left)
		if !est.Bounded || est.Rows > cfg.BroadcastJoinMaxRows {
			continue
		}
		arena.Replace(id, planmodel.BroadcastJoinExec{Kind: join.Kind, LeftOn: join.LeftOn, RightOn: join.RightOn})
	}
	return root
}
