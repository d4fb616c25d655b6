// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

// Package logicalplan implements C2: the fixed-order logical-plan rewriters
// (histogram, match_all, limit-join-right-side dedup, distribute-analyze)
// that run on internal/planmodel's arena-indexed tree after C1 lowers the
// compiled SQL to a logical algebra (spec §4.2).
package logicalplan

import "github.com/tomtom215/querymesh/internal/planmodel"

// Rule is one named logical-plan rewrite. Apply may mutate the arena in
// place (via Replace/SetChildren); rewritten reports whether it changed
// anything, for diagnostics and idempotence testing.
type Rule interface {
	Name() string
	Apply(arena *planmodel.Arena, root planmodel.NodeID) (rewritten bool, err error)
}

// Optimizer runs a fixed ordered sequence of rules over a plan tree exactly
// once each, per spec §4.2 (the rules are not run to a fixpoint; each fires
// at most once per compile).
type Optimizer struct {
	Rules []Rule
}

// DefaultOptimizer returns the Optimizer running L1-L4 in the order spec.md
// §4.2 lists them.
func DefaultOptimizer(cfg Config) *Optimizer {
	return &Optimizer{
		Rules: []Rule{
			HistogramRewrite{RangeLen: cfg.RangeLen},
			MatchRewrite{FTSFields: cfg.FTSFields},
			LimitJoinRightSide{DefaultLimit: cfg.JoinRightSideLimit},
			DistributeAnalyze{},
		},
	}
}

// Config carries the per-request parameters the logical rules need beyond
// the plan tree itself.
type Config struct {
	// RangeLen is the compiled query's time-range length, used by
	// HistogramRewrite to pick a default bucket interval when a histogram
	// call supplies none.
	RangeLen int64 // microseconds
	// FTSFields are the full-text-search fields of the stream being
	// queried, used by MatchRewrite.
	FTSFields []string
	// JoinRightSideLimit is the configurable default for LimitJoinRightSide
	// (spec §4.2 L3, default 50000).
	JoinRightSideLimit int64
}

// Run applies every rule in order to the tree rooted at root, returning the
// (possibly new) root id after rewriting. Rules that need to change the
// tree's root (L4) do so via arena.SetRoot; Run re-reads arena.Root()
// before handing the current root to the next rule.
func (o *Optimizer) Run(arena *planmodel.Arena, root planmodel.NodeID) (planmodel.NodeID, error) {
	arena.SetRoot(root)
	for _, rule := range o.Rules {
		if _, err := rule.Apply(arena, arena.Root()); err != nil {
			return arena.Root(), err
		}
	}
	return arena.Root(), nil
}
