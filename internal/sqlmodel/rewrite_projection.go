// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package sqlmodel

import (
	"github.com/tomtom215/querymesh/internal/querymeta"
	"github.com/tomtom215/querymesh/internal/sqlmodel/parse"
)

// addTimestampProjection prepends the schema's timestamp (and row-id, if
// present) columns to the top-level projection when they are not already
// referenced, the query is not a wildcard, and the query is not aggregate-
// only (spec §4.1 step 2 "Add timestamp / row-id projections").
func addTimestampProjection(stmt *parse.SelectStmt, schema *querymeta.Schema) {
	if isWildcardProjection(stmt.Columns) || isAggregateOnly(stmt.Columns) {
		return
	}
	var prepend []parse.Expr
	if !projectsColumn(stmt.Columns, schema.TimestampField) {
		prepend = append(prepend, parse.Ident{Name: schema.TimestampField})
	}
	if schema.RowIDField != "" && !projectsColumn(stmt.Columns, schema.RowIDField) {
		prepend = append(prepend, parse.Ident{Name: schema.RowIDField})
	}
	if len(prepend) == 0 {
		return
	}
	stmt.Columns = append(prepend, stmt.Columns...)
}

func isWildcardProjection(cols []parse.Expr) bool {
	for _, c := range cols {
		if _, ok := c.(parse.Star); ok {
			return true
		}
	}
	return false
}

func isAggregateOnly(cols []parse.Expr) bool {
	if len(cols) == 0 {
		return false
	}
	for _, c := range cols {
		if !exprIsAggregate(unwrapAlias(c)) {
			return false
		}
	}
	return true
}

func exprIsAggregate(e parse.Expr) bool {
	call, ok := e.(parse.Call)
	if !ok {
		return false
	}
	switch call.Name {
	case "count", "sum", "avg", "min", "max", "approx_distinct", "histogram":
		return true
	}
	return false
}

func unwrapAlias(e parse.Expr) parse.Expr {
	if a, ok := e.(parse.AliasExpr); ok {
		return a.Expr
	}
	return e
}

func projectsColumn(cols []parse.Expr, name string) bool {
	for _, c := range cols {
		if ident, ok := unwrapAlias(c).(parse.Ident); ok && ident.Name == name {
			return true
		}
	}
	return false
}
