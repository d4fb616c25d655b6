// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package sqlmodel

import (
	"github.com/tomtom215/querymesh/internal/querymeta"
	"github.com/tomtom215/querymesh/internal/sqlmodel/parse"
)

// extract walks the rewritten AST and populates the remaining CompiledSQL
// fields (spec §4.1 step 3): columns, group-by, order-by, limit/offset,
// wildcard/distinct/aggregate flags, equal/prefix predicates restricted to
// columns unambiguous across schemas (trivially true here: exactly one
// stream is supported per query), and sorted_by_time (step 4).
func extract(stmt *parse.SelectStmt, ref querymeta.StreamRef, streams map[querymeta.StreamRef]*querymeta.Schema, matchAllKeys []string, req CompileRequest) (*querymeta.CompiledSQL, error) {
	compiled := &querymeta.CompiledSQL{
		Org:          req.Org,
		StreamType:   req.StreamType,
		SQL:          req.SQL,
		Streams:      streams,
		TimeRange:    &req.TimeRange,
		IsDistinct:   stmt.Distinct,
		IsWildcard:   isWildcardProjection(stmt.Columns),
		MatchAllKeys: matchAllKeys,
		EqualItems:   map[querymeta.StreamRef][]querymeta.EqualItem{},
		PrefixItems:  map[querymeta.StreamRef][]querymeta.PrefixItem{},
	}

	compiled.HasAggregation = containsAggregate(stmt.Columns) || len(stmt.GroupBy) > 0
	compiled.HistogramInterval = histogramIntervalFromStmt(stmt)

	compiled.Limit = req.DefaultLimit
	if stmt.Limit != nil {
		if *stmt.Limit <= 0 {
			compiled.Limit = req.DefaultLimit
		} else {
			compiled.Limit = *stmt.Limit
		}
	}
	compiled.Offset = stmt.Offset

	for _, item := range stmt.OrderBy {
		if ident, ok := item.Expr.(parse.Ident); ok {
			dir := querymeta.Asc
			if item.Descending {
				dir = querymeta.Desc
			}
			compiled.OrderBy = append(compiled.OrderBy, querymeta.OrderByItem{Field: ident.Name, Direction: dir})
		}
	}

	equal, prefix, err := extractPredicates(stmt.Where)
	if err != nil {
		return nil, err
	}
	if len(equal) > 0 {
		compiled.EqualItems[ref] = equal
	}
	if len(prefix) > 0 {
		compiled.PrefixItems[ref] = prefix
	}

	compiled.SortedByTime = isSortedByTimeOnly(stmt, compiled)

	return compiled, nil
}

func containsAggregate(cols []parse.Expr) bool {
	for _, c := range cols {
		found := false
		walkExpr(unwrapAlias(c), func(e parse.Expr) {
			if exprIsAggregate(e) {
				found = true
			}
		})
		if found {
			return true
		}
	}
	return false
}

// histogramIntervalFromStmt recovers the microsecond interval from a
// date_bin call produced by the histogram rewrite, so HistogramInterval is
// populated even though the AST no longer contains a literal `histogram`
// call.
func histogramIntervalFromStmt(stmt *parse.SelectStmt) *int64 {
	var interval *int64
	visit := func(e parse.Expr) {
		call, ok := e.(parse.Call)
		if !ok || call.Name != "date_bin" || len(call.Args) == 0 {
			return
		}
		lit, ok := call.Args[0].(parse.StringLit)
		if !ok {
			return
		}
		us := querymeta.ParseIntervalMicros(lit.Value)
		if us > 0 {
			interval = &us
		}
	}
	for _, c := range stmt.Columns {
		walkExpr(c, visit)
	}
	for _, c := range stmt.GroupBy {
		walkExpr(c, visit)
	}
	return interval
}

// extractPredicates walks a top-level conjunction (AND chain) of the WHERE
// clause and extracts equal/IN predicates and LIKE 'x%' prefix predicates.
// Predicates inside an OR are not extracted, since they do not unambiguously
// restrict the scan (spec §4.1 step 3).
func extractPredicates(where parse.Expr) ([]querymeta.EqualItem, []querymeta.PrefixItem, error) {
	var equal []querymeta.EqualItem
	var prefix []querymeta.PrefixItem
	var walk func(e parse.Expr)
	walk = func(e parse.Expr) {
		switch n := e.(type) {
		case parse.BinaryExpr:
			if n.Op == parse.OpAnd {
				walk(n.Left)
				walk(n.Right)
				return
			}
			if n.Op == parse.OpEq {
				if ident, ok := n.Left.(parse.Ident); ok {
					if val, ok := literalText(n.Right); ok {
						equal = append(equal, querymeta.EqualItem{Field: ident.Name, Value: val})
					}
				}
				return
			}
			if n.Op == parse.OpLike || n.Op == parse.OpILike {
				if ident, ok := n.Left.(parse.Ident); ok {
					if lit, ok := n.Right.(parse.StringLit); ok {
						if p, isPrefix := trimTrailingWildcard(lit.Value); isPrefix {
							prefix = append(prefix, querymeta.PrefixItem{Field: ident.Name, Prefix: p})
						}
					}
				}
				return
			}
		case parse.InExpr:
			if n.Negate {
				return
			}
			ident, ok := n.Operand.(parse.Ident)
			if !ok {
				return
			}
			for _, v := range n.Values {
				if val, ok := literalText(v); ok {
					equal = append(equal, querymeta.EqualItem{Field: ident.Name, Value: val})
				}
			}
		}
	}
	walk(where)
	return equal, prefix, nil
}

func literalText(e parse.Expr) (string, bool) {
	switch lit := e.(type) {
	case parse.StringLit:
		return lit.Value, true
	case parse.NumberLit:
		return lit.Text, true
	}
	return "", false
}

func trimTrailingWildcard(pattern string) (string, bool) {
	if len(pattern) < 2 || pattern[len(pattern)-1] != '%' {
		return "", false
	}
	for i := 0; i < len(pattern)-1; i++ {
		if pattern[i] == '%' || pattern[i] == '_' {
			return "", false
		}
	}
	return pattern[:len(pattern)-1], true
}

func isSortedByTimeOnly(stmt *parse.SelectStmt, compiled *querymeta.CompiledSQL) bool {
	if compiled.HasAggregation || len(stmt.Joins) > 0 {
		return false
	}
	if len(stmt.OrderBy) != 1 {
		return false
	}
	ident, ok := stmt.OrderBy[0].Expr.(parse.Ident)
	return ok && ident.Name == querymeta.DefaultTimestampField
}
