// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package physicalplan implements C3: the physical-plan rewrites that run
// after C2's logical optimizer hands off a plan tree (spec §4.3). Lower
// turns the logical algebra into DataFusion-style physical operators with a
// target partitioning of the driver's CPU count; P1-P4 then rewrite that
// physical tree in place.
package physicalplan

import "github.com/tomtom215/querymesh/internal/planmodel"

// Lower rewrites the logical subtree rooted at id into physical operators,
// in place, and returns the (possibly new) root id. Every Relation becomes
// a ScanExec wrapped in a RepartitionExec sized to targetPartitions, so the
// rest of the tree starts out already split across CPU-count partitions.
// Lower does not wrap the final root; FinalizeRoot adds the
// CoalescePartitionsExec on top.
func Lower(arena *planmodel.Arena, id planmodel.NodeID, targetPartitions int) planmodel.NodeID {
	if id == 0 {
		return 0
	}
	op := arena.Op(id)
	if op == nil {
		return id
	}

	switch o := op.(type) {
	case planmodel.Relation:
		arena.Replace(id, planmodel.ScanExec{Stream: o.Stream})
		return arena.Add(planmodel.RepartitionExec{PartitionCount: targetPartitions}, id)

	case planmodel.Projection:
		children := lowerChildren(arena, id, targetPartitions)
		arena.Replace(id, planmodel.ProjectionExec{Exprs: o.Exprs})
		arena.SetChildren(id, children)
		return id

	case planmodel.Filter:
		children := lowerChildren(arena, id, targetPartitions)
		arena.Replace(id, planmodel.FilterExec{Predicate: o.Predicate})
		arena.SetChildren(id, children)
		return id

	case planmodel.Aggregate:
		children := lowerChildren(arena, id, targetPartitions)
		arena.Replace(id, planmodel.AggregateExec{
			Mode:    planmodel.AggregateSinglePartition,
			GroupBy: o.GroupBy,
			Aggrs:   o.Aggrs,
		})
		arena.SetChildren(id, children)
		return id

	case planmodel.Sort:
		children := lowerChildren(arena, id, targetPartitions)
		arena.Replace(id, planmodel.SortExec{Keys: o.Keys})
		arena.SetChildren(id, children)
		return id

	case planmodel.Limit:
		children := lowerChildren(arena, id, targetPartitions)
		arena.Replace(id, planmodel.GlobalLimitExec{Fetch: o.Fetch, Skip: o.Skip})
		arena.SetChildren(id, children)
		return id

	case planmodel.Join:
		children := lowerChildren(arena, id, targetPartitions)
		arena.Replace(id, planmodel.HashJoinExec{Kind: o.Kind, LeftOn: o.LeftOn, RightOn: o.RightOn})
		arena.SetChildren(id, children)
		return id

	case planmodel.DeduplicationExtension:
		children := lowerChildren(arena, id, targetPartitions)
		arena.Replace(id, planmodel.DeduplicationExec{Columns: o.Columns, TieBreak: o.TieBreak})
		arena.SetChildren(id, children)
		return id

	case planmodel.Union:
		children := lowerChildren(arena, id, targetPartitions)
		arena.Replace(id, planmodel.UnionExec{})
		arena.SetChildren(id, children)
		return id

	case planmodel.Analyze:
		children := lowerChildren(arena, id, targetPartitions)
		arena.Replace(id, planmodel.AnalyzeExec{})
		arena.SetChildren(id, children)
		return id

	default:
		// Already a physical operator (idempotent re-lowering, or a node
		// physicalplan itself inserted): recurse into children only.
		lowerChildren(arena, id, targetPartitions)
		return id
	}
}

// lowerChildren lowers id's children in place and returns their new ids.
func lowerChildren(arena *planmodel.Arena, id planmodel.NodeID, targetPartitions int) []planmodel.NodeID {
	old := arena.Children(id)
	next := make([]planmodel.NodeID, len(old))
	for i, c := range old {
		next[i] = Lower(arena, c, targetPartitions)
	}
	arena.SetChildren(id, next)
	return next
}

// FinalizeRoot wraps root in a CoalescePartitionsExec so its output is a
// single stream, unless root is already a CoalescePartitionsExec or a
// SortPreservingMergeExec. A SortExec root is wrapped like any other; it
// is not promoted to a SortPreservingMergeExec.
func FinalizeRoot(arena *planmodel.Arena, root planmodel.NodeID) planmodel.NodeID {
	switch arena.Op(root).(type) {
	case planmodel.CoalescePartitionsExec, planmodel.SortPreservingMergeExec:
		return root
	}
	return arena.Add(planmodel.CoalescePartitionsExec{}, root)
}
