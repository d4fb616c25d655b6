// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package logicalplan

import (
	"github.com/tomtom215/querymesh/internal/planmodel"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// defaultJoinRightSideLimit is the §4.2 L3 default when Config.JoinRightSideLimit is unset.
const defaultJoinRightSideLimit = int64(50_000)

// LimitJoinRightSide is L3: for any inner join whose right side is not
// already deduplicated, sorts it by _timestamp descending, caps it to a
// bounded limit, and wraps it in a DeduplicationExtension keyed on the join
// columns. This bounds worst-case memory for the hash join's build side
// without silently changing result semantics for primary-key-like joins
// (spec §4.2 L3).
type LimitJoinRightSide struct {
	DefaultLimit int64
}

func (LimitJoinRightSide) Name() string { return "l3_limit_join_right_side" }

func (r LimitJoinRightSide) Apply(arena *planmodel.Arena, root planmodel.NodeID) (bool, error) {
	limit := r.DefaultLimit
	if limit <= 0 {
		limit = defaultJoinRightSideLimit
	}
	changed := false
	// Collect join node ids first: mutating children while Walk is
	// in-flight (post-order) would visit stale child ids.
	var joins []planmodel.NodeID
	arena.Walk(root, func(id planmodel.NodeID, op planmodel.Op, _ []planmodel.NodeID) {
		if j, ok := op.(planmodel.Join); ok && j.Kind == planmodel.JoinInner {
			joins = append(joins, id)
		}
	})
	for _, id := range joins {
		join, ok := arena.Op(id).(planmodel.Join)
		if !ok {
			continue
		}
		children := arena.Children(id)
		if len(children) != 2 {
			continue
		}
		rightChild := children[1]
		if arena.Contains(rightChild, "dedup_extension") {
			continue
		}
		sortID := arena.Add(planmodel.Sort{
			Keys: []planmodel.SortKey{{Expr: planmodel.ColumnRef{Column: querymeta.DefaultTimestampField}, Descending: true}},
		}, rightChild)
		limitID := arena.Add(planmodel.Limit{Fetch: limit}, sortID)
		dedupID := arena.Add(planmodel.DeduplicationExtension{
			Columns:  join.RightOn,
			TieBreak: querymeta.DefaultTimestampField,
		}, limitID)
		arena.SetChildren(id, []planmodel.NodeID{children[0], dedupID})
		changed = true
	}
	return changed, nil
}
