// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package physicalplan

import (
	"github.com/tomtom215/querymesh/internal/planmodel"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// InsertRemoteScan is P2: walk the physical plan bottom-up and insert
// RemoteScanExec nodes at every fan-out boundary (spec §4.3 P2). It returns
// the plan's (possibly new) root id.
//
// Single-node mode: when cfg.SingleNode is true and the plan references at
// most one stream, insertion is skipped entirely and the plan runs local.
func InsertRemoteScan(arena *planmodel.Arena, root planmodel.NodeID, cfg Config, mode *querymeta.IndexOptimizeMode) planmodel.NodeID {
	if cfg.SingleNode && cfg.StreamCount <= 1 {
		return root
	}

	var repartitionOrCoalesce, sortMerges, unions, hashJoins []planmodel.NodeID
	arena.Walk(root, func(id planmodel.NodeID, op planmodel.Op, _ []planmodel.NodeID) {
		switch op.(type) {
		case planmodel.RepartitionExec, planmodel.CoalescePartitionsExec:
			repartitionOrCoalesce = append(repartitionOrCoalesce, id)
		case planmodel.SortPreservingMergeExec:
			sortMerges = append(sortMerges, id)
		case planmodel.UnionExec:
			unions = append(unions, id)
		case planmodel.HashJoinExec:
			hashJoins = append(hashJoins, id)
		}
	})

	inserted := false

	for _, id := range repartitionOrCoalesce {
		if arena.Contains(id, "remote_scan_exec") {
			continue
		}
		children := arena.Children(id)
		if len(children) != 1 {
			continue
		}
		rs := arena.Add(newRemoteScan(cfg, mode), children[0])
		rep := arena.Add(planmodel.RepartitionExec{PartitionCount: cfg.TargetPartitions}, rs)
		arena.SetChildren(id, []planmodel.NodeID{rep})
		inserted = true
	}

	for _, id := range sortMerges {
		if arena.Contains(id, "remote_scan_exec") {
			continue
		}
		merge, ok := arena.Op(id).(planmodel.SortPreservingMergeExec)
		if !ok {
			continue
		}
		children := arena.Children(id)
		perNodeMerge := arena.Add(planmodel.SortPreservingMergeExec{Keys: merge.Keys}, children...)
		rs := arena.Add(newRemoteScan(cfg, mode), perNodeMerge)
		arena.SetChildren(id, []planmodel.NodeID{rs})
		inserted = true
	}

	for _, id := range unions {
		children := arena.Children(id)
		changed := false
		next := make([]planmodel.NodeID, len(children))
		for i, c := range children {
			if arena.Contains(c, "remote_scan_exec") {
				next[i] = c
				continue
			}
			base := c
			if sortExec, ok := arena.Op(c).(planmodel.SortExec); ok {
				base = arena.Add(planmodel.SortPreservingMergeExec{Keys: sortExec.Keys}, c)
			}
			next[i] = arena.Add(newRemoteScan(cfg, mode), base)
			changed = true
		}
		if changed {
			arena.SetChildren(id, next)
			inserted = true
		}
	}

	for _, id := range hashJoins {
		children := arena.Children(id)
		changed := false
		next := make([]planmodel.NodeID, len(children))
		for i, c := range children {
			if arena.Contains(c, "remote_scan_exec") {
				next[i] = c
				continue
			}
			rs := arena.Add(newRemoteScan(cfg, mode), c)
			rep := arena.Add(planmodel.RepartitionExec{PartitionCount: cfg.TargetPartitions}, rs)
			next[i] = rep
			changed = true
		}
		if changed {
			arena.SetChildren(id, next)
			inserted = true
		}
	}

	if !inserted {
		return arena.Add(newRemoteScan(cfg, mode), root)
	}
	return root
}

func newRemoteScan(cfg Config, mode *querymeta.IndexOptimizeMode) planmodel.RemoteScanExec {
	return planmodel.RemoteScanExec{WorkGroup: cfg.WorkGroup, IndexMode: mode}
}
