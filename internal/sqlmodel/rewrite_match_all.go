// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package sqlmodel

import (
	"strings"

	"github.com/tomtom215/querymesh/internal/qerrors"
	"github.com/tomtom215/querymesh/internal/querymeta"
	"github.com/tomtom215/querymesh/internal/sqlmodel/parse"
)

// rewriteMatchAll expands match_all('x') into a disjunction of ILIKE
// comparisons across the stream's full-text-search fields, and
// fuzzy_match_all('x', n) into the same disjunction using a fuzzy UDF call
// per field (spec §4.1 step 2 "Rewrite match_all"). A stream with no FTS
// fields fails the whole request with KindFullTextSearchFieldNotFound: this
// specification chooses rewrite-time error over silently returning no hits
// (spec §9 "possibly-buggy behaviors").
func rewriteMatchAll(stmt *parse.SelectStmt, schema *querymeta.Schema) ([]string, error) {
	if stmt.Where == nil {
		return nil, nil
	}
	var keys []string
	rewritten, err := rewriteMatchAllExpr(stmt.Where, schema, &keys)
	if err != nil {
		return nil, err
	}
	stmt.Where = rewritten
	return keys, nil
}

func rewriteMatchAllExpr(e parse.Expr, schema *querymeta.Schema, keys *[]string) (parse.Expr, error) {
	switch n := e.(type) {
	case parse.Call:
		switch n.Name {
		case "match_all":
			return expandMatchAll(n, schema, false, keys)
		case "fuzzy_match_all":
			return expandMatchAll(n, schema, true, keys)
		}
		return n, nil
	case parse.BinaryExpr:
		left, err := rewriteMatchAllExpr(n.Left, schema, keys)
		if err != nil {
			return nil, err
		}
		right, err := rewriteMatchAllExpr(n.Right, schema, keys)
		if err != nil {
			return nil, err
		}
		n.Left, n.Right = left, right
		return n, nil
	case parse.NotExpr:
		operand, err := rewriteMatchAllExpr(n.Operand, schema, keys)
		if err != nil {
			return nil, err
		}
		n.Operand = operand
		return n, nil
	default:
		return e, nil
	}
}

func expandMatchAll(call parse.Call, schema *querymeta.Schema, fuzzy bool, keys *[]string) (parse.Expr, error) {
	if len(schema.Settings.FullTextSearchFields) == 0 {
		return nil, qerrors.New(qerrors.KindFullTextSearchFieldNotFound, "stream has no full-text-search fields configured")
	}
	term, err := matchAllTerm(call)
	if err != nil {
		return nil, err
	}
	*keys = append(*keys, term)
	fuzziness := ""
	if fuzzy && len(call.Args) > 1 {
		if n, ok := call.Args[1].(parse.NumberLit); ok {
			fuzziness = n.Text
		}
	}

	var disjunction parse.Expr
	for _, field := range schema.Settings.FullTextSearchFields {
		var pattern parse.Expr
		if fuzzy {
			pattern = parse.Call{Name: "fuzzy_match", Args: []parse.Expr{
				parse.Ident{Name: field}, parse.StringLit{Value: term}, parse.StringLit{Value: fuzziness},
			}}
		} else {
			clause := parse.BinaryExpr{
				Op:    parse.OpAnd,
				Left:  parse.IsNullExpr{Operand: parse.Ident{Name: field}, Negate: true},
				Right: parse.BinaryExpr{Op: parse.OpILike, Left: parse.Ident{Name: field}, Right: parse.StringLit{Value: "%" + term + "%"}},
			}
			pattern = clause
		}
		if disjunction == nil {
			disjunction = pattern
		} else {
			disjunction = parse.BinaryExpr{Op: parse.OpOr, Left: disjunction, Right: pattern}
		}
	}
	return disjunction, nil
}

// matchAllTerm extracts and normalizes the search term: strips leading/
// trailing '*' wildcards and a leading "re:" prefix (spec §4.1 step 2).
func matchAllTerm(call parse.Call) (string, error) {
	if len(call.Args) == 0 {
		return "", qerrors.New(qerrors.KindUnsupportedConstruct, "match_all requires one string argument")
	}
	lit, ok := call.Args[0].(parse.StringLit)
	if !ok {
		return "", qerrors.New(qerrors.KindUnsupportedConstruct, "match_all argument must be a string literal")
	}
	term := lit.Value
	term = strings.TrimPrefix(term, "re:")
	term = strings.Trim(term, "*")
	return term, nil
}
