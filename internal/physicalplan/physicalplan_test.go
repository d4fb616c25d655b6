// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package physicalplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/querymesh/internal/planmodel"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

func simpleSelectLogical() (*planmodel.Arena, planmodel.NodeID) {
	arena := planmodel.NewArena()
	scan := arena.Add(planmodel.Relation{Stream: "logs"})
	filter := arena.Add(planmodel.Filter{
		Predicate: planmodel.BinaryExpr{Op: planmodel.OpEq, Left: planmodel.ColumnRef{Column: "level"}, Right: planmodel.Literal{Kind: "utf8", Value: "error"}},
	}, scan)
	sort := arena.Add(planmodel.Sort{
		Keys: []planmodel.SortKey{{Expr: planmodel.ColumnRef{Column: querymeta.DefaultTimestampField}, Descending: true}},
	}, filter)
	limit := arena.Add(planmodel.Limit{Fetch: 100}, sort)
	arena.SetRoot(limit)
	return arena, limit
}

func TestLowerConvertsRelationToScanUnderRepartition(t *testing.T) {
	arena, root := simpleSelectLogical()
	lowered := Lower(arena, root, 4)

	_, isLimit := arena.Op(lowered).(planmodel.GlobalLimitExec)
	assert.True(t, isLimit)
	assert.True(t, arena.Contains(lowered, "scan_exec"))
	assert.True(t, arena.Contains(lowered, "repartition_exec"))
}

func TestDetectSimpleSelectMode(t *testing.T) {
	arena, root := simpleSelectLogical()
	lowered := Lower(arena, root, 4)

	mode := DetectIndexOptimizeMode(arena, lowered, querymeta.TimeRange{})
	require.NotNil(t, mode)
	assert.Equal(t, querymeta.IndexOptimizeSimpleSelect, mode.Kind)
	assert.Equal(t, int64(100), mode.Limit)
	assert.False(t, mode.Ascending)
}

func TestDetectSimpleHistogramMode(t *testing.T) {
	arena := planmodel.NewArena()
	scan := arena.Add(planmodel.Relation{Stream: "logs"})
	agg := arena.Add(planmodel.Aggregate{
		GroupBy: []planmodel.Expr{planmodel.FuncCall{Func: "date_bin", Args: []planmodel.Expr{
			planmodel.Literal{Kind: "int64", Value: int64(60_000_000)},
			planmodel.FuncCall{Func: "ts_micros", Args: []planmodel.Expr{planmodel.ColumnRef{Column: querymeta.DefaultTimestampField}}},
			planmodel.Literal{Kind: "int64", Value: int64(0)},
		}}},
		Aggrs: []planmodel.Expr{planmodel.FuncCall{Func: "count"}},
	}, scan)
	arena.SetRoot(agg)

	// Literal S3 scenario: range [1757401694060000, 1757402594060000] us,
	// 60s bucket. min_us rounds the start down to the nearest bucket
	// boundary; n_buckets covers [min_us, end_us].
	timeRange := querymeta.TimeRange{StartUs: 1757401694060000, EndUs: 1757402594060000}

	lowered := Lower(arena, arena.Root(), 4)
	mode := DetectIndexOptimizeMode(arena, lowered, timeRange)
	require.NotNil(t, mode)
	assert.Equal(t, querymeta.IndexOptimizeSimpleHistogram, mode.Kind)
	assert.Equal(t, int64(60_000_000), mode.BucketUs)
	assert.Equal(t, int64(1757401680000000), mode.MinUs)
	assert.Equal(t, int64(16), mode.NBuckets)
}

func TestDetectAbortsOnJoin(t *testing.T) {
	arena := planmodel.NewArena()
	left := arena.Add(planmodel.Relation{Stream: "a"})
	right := arena.Add(planmodel.Relation{Stream: "b"})
	join := arena.Add(planmodel.Join{Kind: planmodel.JoinInner, LeftOn: []string{"id"}, RightOn: []string{"id"}}, left, right)
	sort := arena.Add(planmodel.Sort{
		Keys: []planmodel.SortKey{{Expr: planmodel.ColumnRef{Column: querymeta.DefaultTimestampField}, Descending: true}},
	}, join)
	limit := arena.Add(planmodel.Limit{Fetch: 10}, sort)
	arena.SetRoot(limit)

	lowered := Lower(arena, arena.Root(), 4)
	mode := DetectIndexOptimizeMode(arena, lowered, querymeta.TimeRange{})
	assert.Nil(t, mode)
}

func TestInsertRemoteScanAtCoalesce(t *testing.T) {
	arena, root := simpleSelectLogical()
	lowered := Lower(arena, root, 4)
	lowered = FinalizeRoot(arena, lowered)
	require.True(t, arena.Contains(lowered, "coalesce_partitions_exec"))

	newRoot := InsertRemoteScan(arena, lowered, Config{TargetPartitions: 4}, nil)
	assert.True(t, arena.Contains(newRoot, "remote_scan_exec"))
}

func TestInsertRemoteScanSkippedInSingleNodeMode(t *testing.T) {
	arena, root := simpleSelectLogical()
	lowered := Lower(arena, root, 4)
	lowered = FinalizeRoot(arena, lowered)

	newRoot := InsertRemoteScan(arena, lowered, Config{TargetPartitions: 4, SingleNode: true, StreamCount: 1}, nil)
	assert.False(t, arena.Contains(newRoot, "remote_scan_exec"))
	assert.Equal(t, lowered, newRoot)
}

func TestInsertRemoteScanFallsBackToRoot(t *testing.T) {
	arena := planmodel.NewArena()
	scan := arena.Add(planmodel.ScanExec{Stream: "logs"})
	newRoot := InsertRemoteScan(arena, scan, Config{TargetPartitions: 4}, nil)
	_, ok := arena.Op(newRoot).(planmodel.RemoteScanExec)
	assert.True(t, ok)
}

func TestApplyBroadcastJoinReplacesSmallLeftSide(t *testing.T) {
	arena := planmodel.NewArena()
	left := arena.Add(planmodel.ScanExec{Stream: "small"})
	right := arena.Add(planmodel.ScanExec{Stream: "big"})
	join := arena.Add(planmodel.HashJoinExec{Kind: planmodel.JoinInner, LeftOn: []string{"id"}, RightOn: []string{"id"}}, left, right)
	arena.SetRoot(join)

	estimator := func(_ *planmodel.Arena, _ planmodel.NodeID) RowEstimate {
		return RowEstimate{Rows: 10, Bounded: true}
	}
	newRoot := ApplyBroadcastJoin(arena, arena.Root(), Config{BroadcastJoinEnabled: true, BroadcastJoinMaxRows: 1000}, estimator)
	_, ok := arena.Op(newRoot).(planmodel.BroadcastJoinExec)
	assert.True(t, ok)
}

func TestApplyBroadcastJoinRejectsUnbounded(t *testing.T) {
	arena := planmodel.NewArena()
	left := arena.Add(planmodel.ScanExec{Stream: "small"})
	right := arena.Add(planmodel.ScanExec{Stream: "big"})
	join := arena.Add(planmodel.HashJoinExec{Kind: planmodel.JoinInner, LeftOn: []string{"id"}, RightOn: []string{"id"}}, left, right)
	arena.SetRoot(join)

	estimator := func(_ *planmodel.Arena, _ planmodel.NodeID) RowEstimate {
		return RowEstimate{Bounded: false}
	}
	newRoot := ApplyBroadcastJoin(arena, arena.Root(), Config{BroadcastJoinEnabled: true, BroadcastJoinMaxRows: 1000}, estimator)
	_, ok := arena.Op(newRoot).(planmodel.HashJoinExec)
	assert.True(t, ok)
}

func TestWireStreamingOnlyForSimpleAggregate(t *testing.T) {
	arena := planmodel.NewArena()
	scan := arena.Add(planmodel.ScanExec{Stream: "logs"})
	agg := arena.Add(planmodel.AggregateExec{
		Mode:  planmodel.AggregateSinglePartition,
		Aggrs: []planmodel.Expr{planmodel.FuncCall{Func: "count"}},
	}, scan)
	arena.SetRoot(agg)

	ctx := WireStreaming(arena, arena.Root(), true)
	require.NotNil(t, ctx)
	assert.False(t, ctx.IsCompleteCacheHit())
	ctx.SetCompleteCacheHit(true)
	assert.True(t, ctx.IsCompleteCacheHit())

	join := arena.Add(planmodel.HashJoinExec{Kind: planmodel.JoinInner}, scan, scan)
	assert.Nil(t, WireStreaming(arena, join, true))
	assert.Nil(t, WireStreaming(arena, arena.Root(), false))
}

func TestPlanEndToEnd(t *testing.T) {
	arena, root := simpleSelectLogical()
	result := Plan(arena, root, Config{TargetPartitions: 4, WorkGroup: "short"}, nil, false)

	require.NotNil(t, result.IndexOptimizeMode)
	assert.Equal(t, querymeta.IndexOptimizeSimpleSelect, result.IndexOptimizeMode.Kind)
	assert.True(t, arena.Contains(result.Root, "remote_scan_exec"))
	assert.Nil(t, result.Streaming)
}
