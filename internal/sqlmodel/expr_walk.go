// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package sqlmodel

import "github.com/tomtom215/querymesh/internal/sqlmodel/parse"

// exprTransform rewrites a single expression node; children are already
// transformed by the time transform is called on their parent, so a
// transform only needs to react to the node it receives.
type exprTransform func(parse.Expr) (parse.Expr, error)

// transformExpr recursively rewrites every node of e bottom-up using fn.
func transformExpr(e parse.Expr, fn exprTransform) (parse.Expr, error) {
	if e == nil {
		return nil, nil
	}
	var err error
	switch n := e.(type) {
	case parse.BinaryExpr:
		if n.Left, err = transformExpr(n.Left, fn); err != nil {
			return nil, err
		}
		if n.Right, err = transformExpr(n.Right, fn); err != nil {
			return nil, err
		}
		e = n
	case parse.NotExpr:
		if n.Operand, err = transformExpr(n.Operand, fn); err != nil {
			return nil, err
		}
		e = n
	case parse.IsNullExpr:
		if n.Operand, err = transformExpr(n.Operand, fn); err != nil {
			return nil, err
		}
		e = n
	case parse.InExpr:
		if n.Operand, err = transformExpr(n.Operand, fn); err != nil {
			return nil, err
		}
		for i, v := range n.Values {
			if n.Values[i], err = transformExpr(v, fn); err != nil {
				return nil, err
			}
		}
		e = n
	case parse.AliasExpr:
		if n.Expr, err = transformExpr(n.Expr, fn); err != nil {
			return nil, err
		}
		e = n
	case parse.Call:
		for i, a := range n.Args {
			if n.Args[i], err = transformExpr(a, fn); err != nil {
				return nil, err
			}
		}
		e = n
	}
	return fn(e)
}

// transformExprSlice applies transformExpr to each element of exprs in
// place.
func transformExprSlice(exprs []parse.Expr, fn exprTransform) error {
	for i, e := range exprs {
		r, err := transformExpr(e, fn)
		if err != nil {
			return err
		}
		exprs[i] = r
	}
	return nil
}

// walkExpr visits every node of e, including e itself, calling visit on
// each.
func walkExpr(e parse.Expr, visit func(parse.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case parse.BinaryExpr:
		walkExpr(n.Left, visit)
		walkExpr(n.Right, visit)
	case parse.NotExpr:
		walkExpr(n.Operand, visit)
	case parse.IsNullExpr:
		walkExpr(n.Operand, visit)
	case parse.InExpr:
		walkExpr(n.Operand, visit)
		for _, v := range n.Values {
			walkExpr(v, visit)
		}
	case parse.AliasExpr:
		walkExpr(n.Expr, visit)
	case parse.Call:
		for _, a := range n.Args {
			walkExpr(a, visit)
		}
	}
}
