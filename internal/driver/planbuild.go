// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package driver

import (
	"sort"

	"github.com/tomtom215/querymesh/internal/planmodel"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// buildLogicalPlan lowers a CompiledSQL into the shape-only logical algebra
// C2/C3 rewrite over (spec §4.2, §4.3). CompiledSQL deliberately does not
// expose a structured expression tree -- the real per-row predicate and
// aggregate semantics live in CompiledSQL.SQL, which is shipped verbatim to
// the querier that executes a partition. What the physical planner needs
// from the logical tree is the query's *shape* (is there a filter, an
// aggregate, a histogram, an order, a limit) so P1/P2/P3/P4 can match on it
// and insert RemoteScan at the right boundary; buildLogicalPlan reconstructs
// exactly that shape from CompiledSQL's extracted summary fields.
func buildLogicalPlan(compiled *querymeta.CompiledSQL) (*planmodel.Arena, planmodel.NodeID) {
	arena := planmodel.NewArena()

	ref := primaryStream(compiled)
	root := arena.Add(planmodel.Relation{Stream: ref.Name})

	if pred := buildFilterPredicate(compiled, ref); pred != nil {
		root = arena.Add(planmodel.Filter{Predicate: pred}, root)
	}

	if compiled.HasAggregation {
		root = arena.Add(planmodel.Aggregate{
			GroupBy: groupByExprs(compiled),
			Aggrs:   []planmodel.Expr{planmodel.FuncCall{Func: "count"}},
		}, root)
	}

	if len(compiled.OrderBy) > 0 {
		keys := make([]planmodel.SortKey, len(compiled.OrderBy))
		for i, ob := range compiled.OrderBy {
			keys[i] = planmodel.SortKey{
				Expr:       planmodel.ColumnRef{Column: ob.Field},
				Descending: ob.Direction == querymeta.Desc,
			}
		}
		root = arena.Add(planmodel.Sort{Keys: keys}, root)
	}

	if compiled.Limit > 0 {
		var skip int64
		if compiled.Offset != nil {
			skip = *compiled.Offset
		}
		root = arena.Add(planmodel.Limit{Fetch: compiled.Limit, Skip: skip}, root)
	}

	arena.SetRoot(root)
	return arena, root
}

// primaryStream returns compiled's single referenced stream. Compile never
// produces more than one entry in Streams (the parser supports one FROM
// clause per query, §4.1), so a deterministic pick over a map of size > 1
// is only ever exercised defensively.
func primaryStream(compiled *querymeta.CompiledSQL) querymeta.StreamRef {
	refs := make([]querymeta.StreamRef, 0, len(compiled.Streams))
	for ref := range compiled.Streams {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
	if len(refs) == 0 {
		return querymeta.StreamRef{}
	}
	return refs[0]
}

// buildFilterPredicate ANDs together the equality and prefix predicates C1
// extracted for ref, for P1's index-optimize matching. A nil return means
// no structural predicate was extracted (the query may still filter via
// CompiledSQL.SQL's WHERE clause; that's invisible at this layer).
func buildFilterPredicate(compiled *querymeta.CompiledSQL, ref querymeta.StreamRef) planmodel.Expr {
	var terms []planmodel.Expr
	for _, eq := range compiled.EqualItems[ref] {
		terms = append(terms, planmodel.BinaryExpr{
			Op:    planmodel.OpEq,
			Left:  planmodel.ColumnRef{Column: eq.Field},
			Right: planmodel.Literal{Kind: "utf8", Value: eq.Value},
		})
	}
	for _, pr := range compiled.PrefixItems[ref] {
		terms = append(terms, planmodel.BinaryExpr{
			Op:    planmodel.OpLike,
			Left:  planmodel.ColumnRef{Column: pr.Field},
			Right: planmodel.Literal{Kind: "utf8", Value: pr.Prefix + "%"},
		})
	}
	for _, key := range compiled.MatchAllKeys {
		terms = append(terms, planmodel.FuncCall{
			Func: "match_all",
			Args: []planmodel.Expr{planmodel.ColumnRef{Column: key}},
		})
	}

	if len(terms) == 0 {
		return nil
	}
	pred := terms[0]
	for _, t := range terms[1:] {
		pred = planmodel.BinaryExpr{Op: planmodel.OpAnd, Left: pred, Right: t}
	}
	return pred
}

// groupByExprs reconstructs the histogram() group-by call L1 expects to
// rewrite when HistogramInterval is set, else a plain timestamp bucket is
// not inferable and the aggregate is treated as a bare count-pattern.
func groupByExprs(compiled *querymeta.CompiledSQL) []planmodel.Expr {
	if compiled.HistogramInterval == nil {
		return nil
	}
	return []planmodel.Expr{
		planmodel.FuncCall{Func: "histogram", Args: []planmodel.Expr{
			planmodel.ColumnRef{Column: querymeta.DefaultTimestampField},
			planmodel.Literal{Kind: "int64", Value: *compiled.HistogramInterval},
		}},
	}
}
