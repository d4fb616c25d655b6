// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package logicalplan

import (
	"strings"

	"github.com/tomtom215/querymesh/internal/planmodel"
	"github.com/tomtom215/querymesh/internal/qerrors"
)

// MatchRewrite is L2: match_all/fuzzy_match_all expressions reachable only
// through the logical tree (e.g. pushed into a Filter below a join) are
// expanded into the same ILIKE disjunction C1 produces, preserving the
// original column names so downstream projection resolution still works
// (spec §4.2 L2).
type MatchRewrite struct {
	FTSFields []string
}

func (MatchRewrite) Name() string { return "l2_match_rewrite" }

func (m MatchRewrite) Apply(arena *planmodel.Arena, root planmodel.NodeID) (bool, error) {
	changed := false
	var applyErr error
	fn := func(e planmodel.Expr) (planmodel.Expr, bool) {
		call, ok := e.(planmodel.FuncCall)
		if !ok {
			return e, false
		}
		fuzzy := call.Func == "fuzzy_match_all"
		if call.Func != "match_all" && !fuzzy {
			return e, false
		}
		rewritten, err := m.expand(call, fuzzy)
		if err != nil {
			applyErr = err
			return e, false
		}
		return rewritten, true
	}
	arena.Walk(root, func(id planmodel.NodeID, _ planmodel.Op, _ []planmodel.NodeID) {
		if rewriteNodeExprs(arena, id, fn) {
			changed = true
		}
	})
	return changed, applyErr
}

func (m MatchRewrite) expand(call planmodel.FuncCall, fuzzy bool) (planmodel.Expr, error) {
	if len(m.FTSFields) == 0 {
		return nil, qerrors.New(qerrors.KindFullTextSearchFieldNotFound, "stream has no full-text-search fields configured")
	}
	if len(call.Args) == 0 {
		return nil, qerrors.New(qerrors.KindUnsupportedConstruct, "match_all requires one string argument")
	}
	lit, ok := call.Args[0].(planmodel.Literal)
	if !ok || lit.Kind != "utf8" {
		return nil, qerrors.New(qerrors.KindUnsupportedConstruct, "match_all argument must be a string literal")
	}
	term, _ := lit.Value.(string)
	term = strings.TrimPrefix(term, "re:")
	term = strings.Trim(term, "*")

	var disjunction planmodel.Expr
	for _, field := range m.FTSFields {
		var clause planmodel.Expr
		if fuzzy {
			clause = planmodel.FuncCall{Func: "fuzzy_match", Args: []planmodel.Expr{
				planmodel.ColumnRef{Column: field}, planmodel.Literal{Kind: "utf8", Value: term},
			}}
		} else {
			clause = planmodel.BinaryExpr{
				Op:   planmodel.OpAnd,
				Left: planmodel.BinaryExpr{Op: planmodel.OpIsNotNull, Left: planmodel.ColumnRef{Column: field}},
				Right: planmodel.BinaryExpr{
					Op:    planmodel.OpLike,
					Left:  planmodel.ColumnRef{Column: field},
					Right: planmodel.Literal{Kind: "utf8", Value: "%" + term + "%"},
				},
			}
		}
		if disjunction == nil {
			disjunction = clause
		} else {
			disjunction = planmodel.BinaryExpr{Op: planmodel.OpOr, Left: disjunction, Right: clause}
		}
	}
	return disjunction, nil
}
