// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package sqlmodel

import (
	"strconv"

	"github.com/tomtom215/querymesh/internal/querymeta"
	"github.com/tomtom215/querymesh/internal/sqlmodel/parse"
)

// rewriteHistogram replaces every histogram(ts[, n|interval]) call with
// date_bin(interval, to_timestamp_micros(ts), fixed_origin) across the
// projection, group-by, and order-by clauses (spec §4.1 step 2 "Rewrite
// histogram").
func rewriteHistogram(stmt *parse.SelectStmt, timeRange querymeta.TimeRange) error {
	fn := func(e parse.Expr) (parse.Expr, error) {
		call, ok := e.(parse.Call)
		if !ok || call.Name != "histogram" {
			return e, nil
		}
		return rewriteHistogramCall(call, timeRange)
	}
	if err := transformExprSlice(stmt.Columns, fn); err != nil {
		return err
	}
	if err := transformExprSlice(stmt.GroupBy, fn); err != nil {
		return err
	}
	for i := range stmt.OrderBy {
		r, err := transformExpr(stmt.OrderBy[i].Expr, fn)
		if err != nil {
			return err
		}
		stmt.OrderBy[i].Expr = r
	}
	return nil
}

func rewriteHistogramCall(call parse.Call, timeRange querymeta.TimeRange) (parse.Expr, error) {
	if len(call.Args) == 0 {
		return call, nil
	}
	ts := call.Args[0]
	rangeLen := timeRange.Duration()

	var interval string
	switch {
	case len(call.Args) < 2:
		interval = querymeta.FormatInterval(querymeta.DefaultHistogramInterval(rangeLen))
	default:
		switch arg := call.Args[1].(type) {
		case parse.StringLit:
			interval = arg.Value
		case parse.NumberLit:
			n, err := strconv.ParseInt(arg.Text, 10, 64)
			if err != nil {
				n = 0
			}
			interval = querymeta.FormatInterval(querymeta.IntervalForBucketCount(rangeLen, n))
		default:
			interval = querymeta.FormatInterval(querymeta.DefaultHistogramInterval(rangeLen))
		}
	}

	return parse.Call{
		Name: "date_bin",
		Args: []parse.Expr{
			parse.StringLit{Value: interval},
			parse.Call{Name: "to_timestamp_micros", Args: []parse.Expr{ts}},
			parse.StringLit{Value: querymeta.HistogramOrigin},
		},
	}, nil
}
