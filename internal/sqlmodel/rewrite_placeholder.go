// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package sqlmodel

import "github.com/tomtom215/querymesh/internal/sqlmodel/parse"

// rewritePlaceholder replaces any comparison, LIKE, or IN literal equal to
// placeholder with the tautology TRUE (or FALSE for negated forms), so
// templated dashboards can bind "all values" without manual pruning
// (spec §4.1 step 2 "Remove placeholder"). This rewrite never fails; it is a
// no-op on AST shapes it does not understand.
func rewritePlaceholder(stmt *parse.SelectStmt, placeholder string) error {
	if placeholder == "" {
		return nil
	}
	stmt.Where = rewritePlaceholderExpr(stmt.Where, placeholder)
	for i, j := range stmt.Joins {
		stmt.Joins[i].On = rewritePlaceholderExpr(j.On, placeholder)
	}
	return nil
}

func rewritePlaceholderExpr(e parse.Expr, placeholder string) parse.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case parse.BinaryExpr:
		n.Left = rewritePlaceholderExpr(n.Left, placeholder)
		n.Right = rewritePlaceholderExpr(n.Right, placeholder)
		if isPlaceholderLiteral(n.Right, placeholder) || isPlaceholderLiteral(n.Left, placeholder) {
			switch n.Op {
			case parse.OpEq, parse.OpLike, parse.OpILike:
				return parse.BoolLit{Value: true}
			case parse.OpNotEq:
				return parse.BoolLit{Value: false}
			}
		}
		return n
	case parse.NotExpr:
		n.Operand = rewritePlaceholderExpr(n.Operand, placeholder)
		return n
	case parse.InExpr:
		n.Operand = rewritePlaceholderExpr(n.Operand, placeholder)
		for _, v := range n.Values {
			if isPlaceholderLiteral(v, placeholder) {
				if n.Negate {
					return parse.BoolLit{Value: false}
				}
				return parse.BoolLit{Value: true}
			}
		}
		return n
	default:
		return e
	}
}

func isPlaceholderLiteral(e parse.Expr, placeholder string) bool {
	s, ok := e.(parse.StringLit)
	return ok && s.Value == placeholder
}
