// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package logicalplan

import (
	"time"

	"github.com/tomtom215/querymesh/internal/planmodel"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// HistogramRewrite is L1: every scalar-function expression named histogram
// becomes a date_bin call at the logical-expression level. This is a
// safety-net re-application of C1's rewrite: C1 only rewrites the
// top-level projection/group-by/order-by, so a histogram() nested inside a
// subquery or join condition that only reaches the logical tree is caught
// here (spec §4.2 L1).
type HistogramRewrite struct {
	// RangeLen is the compiled query's time-range length in microseconds,
	// used to pick a default interval for histogram() calls with no
	// explicit interval argument.
	RangeLen int64
}

func (HistogramRewrite) Name() string { return "l1_histogram_rewrite" }

func (h HistogramRewrite) Apply(arena *planmodel.Arena, root planmodel.NodeID) (bool, error) {
	rangeLen := time.Duration(h.RangeLen) * time.Microsecond
	changed := false
	fn := func(e planmodel.Expr) (planmodel.Expr, bool) {
		call, ok := e.(planmodel.FuncCall)
		if !ok || call.Func != "histogram" || len(call.Args) == 0 {
			return e, false
		}
		return rewriteHistogramFuncCall(call, rangeLen), true
	}
	arena.Walk(root, func(id planmodel.NodeID, _ planmodel.Op, _ []planmodel.NodeID) {
		if rewriteNodeExprs(arena, id, fn) {
			changed = true
		}
	})
	return changed, nil
}

func rewriteHistogramFuncCall(call planmodel.FuncCall, rangeLen time.Duration) planmodel.FuncCall {
	ts := call.Args[0]
	interval := querymeta.FormatInterval(querymeta.DefaultHistogramInterval(rangeLen))
	if len(call.Args) > 1 {
		if lit, ok := call.Args[1].(planmodel.Literal); ok {
			switch lit.Kind {
			case "utf8":
				if s, ok := lit.Value.(string); ok {
					interval = s
				}
			case "int64":
				if n, ok := lit.Value.(int64); ok {
					interval = querymeta.FormatInterval(querymeta.IntervalForBucketCount(rangeLen, n))
				}
			}
		}
	}
	return planmodel.FuncCall{
		Func: "date_bin",
		Args: []planmodel.Expr{
			planmodel.Literal{Kind: "utf8", Value: interval},
			planmodel.FuncCall{Func: "to_timestamp_micros", Args: []planmodel.Expr{ts}},
			planmodel.Literal{Kind: "utf8", Value: querymeta.HistogramOrigin},
		},
	}
}
