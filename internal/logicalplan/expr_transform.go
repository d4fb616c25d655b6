// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package logicalplan

import "github.com/tomtom215/querymesh/internal/planmodel"

// transformExpr rewrites every node of e bottom-up using fn.
func transformExpr(e planmodel.Expr, fn func(planmodel.Expr) (planmodel.Expr, bool)) (planmodel.Expr, bool) {
	if e == nil {
		return nil, false
	}
	changed := false
	switch n := e.(type) {
	case planmodel.FuncCall:
		args := make([]planmodel.Expr, len(n.Args))
		for i, a := range n.Args {
			r, c := transformExpr(a, fn)
			args[i] = r
			changed = changed || c
		}
		n.Args = args
		e = n
	case planmodel.BinaryExpr:
		l, lc := transformExpr(n.Left, fn)
		r, rc := transformExpr(n.Right, fn)
		n.Left, n.Right = l, r
		changed = changed || lc || rc
		e = n
	case planmodel.NotExpr:
		op, c := transformExpr(n.Operand, fn)
		n.Operand = op
		changed = changed || c
		e = n
	case planmodel.InList:
		col, cc := transformExpr(n.Column, fn)
		n.Column = col
		changed = changed || cc
		vals := make([]planmodel.Expr, len(n.Values))
		for i, v := range n.Values {
			r, c := transformExpr(v, fn)
			vals[i] = r
			changed = changed || c
		}
		n.Values = vals
		e = n
	case planmodel.AliasExpr:
		inner, c := transformExpr(n.Expr, fn)
		n.Expr = inner
		changed = changed || c
		e = n
	}
	rewritten, applied := fn(e)
	return rewritten, changed || applied
}

// transformExprSlice applies transformExpr to every element of exprs in
// place, returning whether anything changed.
func transformExprSlice(exprs []planmodel.Expr, fn func(planmodel.Expr) (planmodel.Expr, bool)) bool {
	changed := false
	for i, e := range exprs {
		r, c := transformExpr(e, fn)
		exprs[i] = r
		changed = changed || c
	}
	return changed
}

// rewriteNodeExprs applies fn to every Expr field of the operator stored at
// id, replacing the node in arena if anything changed. Only the operator
// kinds that carry expressions (Projection, Filter, Aggregate, Sort) are
// handled; others are left untouched.
func rewriteNodeExprs(arena *planmodel.Arena, id planmodel.NodeID, fn func(planmodel.Expr) (planmodel.Expr, bool)) bool {
	op := arena.Op(id)
	changed := false
	switch n := op.(type) {
	case planmodel.Projection:
		changed = transformExprSlice(n.Exprs, fn)
		if changed {
			arena.Replace(id, n)
		}
	case planmodel.Filter:
		r, c := transformExpr(n.Predicate, fn)
		if c {
			n.Predicate = r
			arena.Replace(id, n)
		}
		changed = c
	case planmodel.Aggregate:
		gc := transformExprSlice(n.GroupBy, fn)
		ac := transformExprSlice(n.Aggrs, fn)
		changed = gc || ac
		if changed {
			arena.Replace(id, n)
		}
	case planmodel.Sort:
		for i := range n.Keys {
			r, c := transformExpr(n.Keys[i].Expr, fn)
			if c {
				n.Keys[i].Expr = r
				changed = true
			}
		}
		if changed {
			arena.Replace(id, n)
		}
	}
	return changed
}
