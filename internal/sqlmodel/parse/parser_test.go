// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleSelect(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM logs WHERE _timestamp >= 10 ORDER BY _timestamp DESC LIMIT 10`)
	require.NoError(t, err)
	assert.Equal(t, "logs", stmt.From)
	require.Len(t, stmt.Columns, 1)
	_, isStar := stmt.Columns[0].(Star)
	assert.True(t, isStar)
	require.Len(t, stmt.OrderBy, 1)
	assert.True(t, stmt.OrderBy[0].Descending)
	require.NotNil(t, stmt.Limit)
	assert.Equal(t, int64(10), *stmt.Limit)

	where, ok := stmt.Where.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpGtEq, where.Op)
}

func TestParseSimpleTopN(t *testing.T) {
	stmt, err := Parse(`SELECT name, count(*) AS cnt FROM logs GROUP BY name ORDER BY cnt DESC LIMIT 2`)
	require.NoError(t, err)
	require.Len(t, stmt.Columns, 2)
	alias, ok := stmt.Columns[1].(AliasExpr)
	require.True(t, ok)
	assert.Equal(t, "cnt", alias.Alias)
	call, ok := alias.Expr.(Call)
	require.True(t, ok)
	assert.Equal(t, "count", call.Name)
	require.Len(t, stmt.GroupBy, 1)
}

func TestParseHistogram(t *testing.T) {
	stmt, err := Parse(`SELECT histogram(_timestamp) AS ts, count(*) FROM logs GROUP BY ts`)
	require.NoError(t, err)
	alias, ok := stmt.Columns[0].(AliasExpr)
	require.True(t, ok)
	call, ok := alias.Expr.(Call)
	require.True(t, ok)
	assert.Equal(t, "histogram", call.Name)
}

func TestParseMatchAll(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM t WHERE match_all('open')`)
	require.NoError(t, err)
	call, ok := stmt.Where.(Call)
	require.True(t, ok)
	assert.Equal(t, "match_all", call.Name)
	require.Len(t, call.Args, 1)
	lit, ok := call.Args[0].(StringLit)
	require.True(t, ok)
	assert.Equal(t, "open", lit.Value)
}

func TestParseJoin(t *testing.T) {
	stmt, err := Parse(`SELECT a.x FROM a INNER JOIN b ON a.id = b.id WHERE a.y IN (1, 2, 3)`)
	require.NoError(t, err)
	require.Len(t, stmt.Joins, 1)
	assert.Equal(t, JoinInner, stmt.Joins[0].Kind)
	in, ok := stmt.Where.(InExpr)
	require.True(t, ok)
	assert.Len(t, in.Values, 3)
}

func TestParseInvalidSyntax(t *testing.T) {
	_, err := Parse(`SELECT FROM WHERE`)
	assert.Error(t, err)
}
