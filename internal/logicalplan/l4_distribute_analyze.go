// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package logicalplan

import "github.com/tomtom215/querymesh/internal/planmodel"

// DistributeAnalyze is L4: EXPLAIN ANALYZE is rewritten so the Analyze
// operator sits at the very root of the tree, above everything else (spec
// §4.2 L4). Only the operator is moved: RemoteScan insertion (P2) adds no
// analyze flag to the RemoteScans it inserts, and the driver leaves
// remotescan.PartitionRequest.IsAnalyze false on every request it builds.
type DistributeAnalyze struct{}

func (DistributeAnalyze) Name() string { return "l4_distribute_analyze" }

func (DistributeAnalyze) Apply(arena *planmodel.Arena, root planmodel.NodeID) (bool, error) {
	analyzeID := arena.Find(root, "analyze")
	if analyzeID == 0 || analyzeID == root {
		return false, nil
	}

	parent := arena.Parent(root, analyzeID)
	children := arena.Children(analyzeID)
	var analyzeChild planmodel.NodeID
	if len(children) > 0 {
		analyzeChild = children[0]
	}

	if parent != 0 {
		parentChildren := arena.Children(parent)
		for i, c := range parentChildren {
			if c == analyzeID {
				parentChildren[i] = analyzeChild
			}
		}
		arena.SetChildren(parent, parentChildren)
	}

	newRoot := arena.Add(planmodel.Analyze{}, root)
	arena.SetRoot(newRoot)
	return true, nil
}
