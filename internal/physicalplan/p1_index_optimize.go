// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package physicalplan

import (
	"github.com/tomtom215/querymesh/internal/planmodel"
	"github.com/tomtom215/querymesh/internal/querymeta"
)

// DetectIndexOptimizeMode is P1: pattern-match the physical tree rooted at
// root (after stripping a top-level projection/coalesce) against the three
// shapes of spec §4.3 P1. It returns nil if none match, or if a "complex"
// operator (join, cross-join, union) is found anywhere along the path
// examined, per the literal rule that such an operator aborts detection.
// timeRange is only consulted for the SimpleHistogram shape, to round the
// bucket origin down to an even multiple of the interval and to count the
// buckets the rounded range spans.
func DetectIndexOptimizeMode(arena *planmodel.Arena, root planmodel.NodeID, timeRange querymeta.TimeRange) *querymeta.IndexOptimizeMode {
	id := skipProjectionAndCoalesce(arena, root)
	if id == 0 {
		return nil
	}
	if mode := matchSimpleHistogram(arena, id, timeRange); mode != nil {
		return mode
	}
	if mode := matchSimpleTopN(arena, id); mode != nil {
		return mode
	}
	if mode := matchSimpleSelect(arena, id); mode != nil {
		return mode
	}
	return nil
}

// skipProjectionAndCoalesce descends through any chain of ProjectionExec /
// CoalescePartitionsExec wrappers at the top of the tree, per P1's "ignoring
// top-level projection/coalesce".
func skipProjectionAndCoalesce(arena *planmodel.Arena, id planmodel.NodeID) planmodel.NodeID {
	for {
		switch arena.Op(id).(type) {
		case planmodel.ProjectionExec, planmodel.CoalescePartitionsExec:
			children := arena.Children(id)
			if len(children) != 1 {
				return id
			}
			id = children[0]
		default:
			return id
		}
	}
}

// skipRepartition descends through a single RepartitionExec wrapper, the
// shape Lower produces directly above every ScanExec.
func skipRepartition(arena *planmodel.Arena, id planmodel.NodeID) planmodel.NodeID {
	if _, ok := arena.Op(id).(planmodel.RepartitionExec); ok {
		children := arena.Children(id)
		if len(children) == 1 {
			return children[0]
		}
	}
	return id
}

// isComplex reports whether op is one of the "complex" operators that abort
// P1 detection wherever encountered.
func isComplex(op planmodel.Op) bool {
	switch op.(type) {
	case planmodel.HashJoinExec, planmodel.BroadcastJoinExec, planmodel.UnionExec:
		return true
	default:
		return false
	}
}

// matchSimpleSelect matches fetch-limited-sort-by-timestamp directly over a
// filter over a scan, with no aggregation or join in between.
func matchSimpleSelect(arena *planmodel.Arena, id planmodel.NodeID) *querymeta.IndexOptimizeMode {
	limit, ok := arena.Op(id).(planmodel.GlobalLimitExec)
	if !ok {
		return nil
	}
	children := arena.Children(id)
	if len(children) != 1 {
		return nil
	}
	sortID := children[0]
	sort, ok := arena.Op(sortID).(planmodel.SortExec)
	if !ok || len(sort.Keys) != 1 {
		return nil
	}
	col, ok := sort.Keys[0].Expr.(planmodel.ColumnRef)
	if !ok || col.Column != querymeta.DefaultTimestampField {
		return nil
	}

	below := arena.Children(sortID)
	if len(below) != 1 {
		return nil
	}
	cur := below[0]
	for {
		op := arena.Op(cur)
		if isComplex(op) {
			return nil
		}
		switch op.(type) {
		case planmodel.FilterExec:
			c := arena.Children(cur)
			if len(c) != 1 {
				return nil
			}
			cur = c[0]
			continue
		case planmodel.RepartitionExec:
			cur = skipRepartition(arena, cur)
			continue
		case planmodel.ScanExec:
			return &querymeta.IndexOptimizeMode{
				Kind:      querymeta.IndexOptimizeSimpleSelect,
				Limit:     limit.Fetch,
				Ascending: !sort.Keys[0].Descending,
			}
		default:
			return nil
		}
	}
}

// matchSimpleTopN matches a fetch-limited sort by count(*) over a
// [field, count(*)] projection over a single-group-by-field aggregate.
func matchSimpleTopN(arena *planmodel.Arena, id planmodel.NodeID) *querymeta.IndexOptimizeMode {
	limit, ok := arena.Op(id).(planmodel.GlobalLimitExec)
	if !ok {
		return nil
	}
	children := arena.Children(id)
	if len(children) != 1 {
		return nil
	}
	sortID := children[0]
	sort, ok := arena.Op(sortID).(planmodel.SortExec)
	if !ok || len(sort.Keys) != 1 {
		return nil
	}
	call, ok := sort.Keys[0].Expr.(planmodel.FuncCall)
	if !ok || call.FuncName() != "count" {
		return nil
	}

	below := arena.Children(sortID)
	if len(below) != 1 {
		return nil
	}
	projID := below[0]
	proj, ok := arena.Op(projID).(planmodel.ProjectionExec)
	if !ok || len(proj.Exprs) != 2 {
		return nil
	}
	field, ok := fieldProjection(proj.Exprs[0])
	if !ok {
		return nil
	}

	aggChildren := arena.Children(projID)
	if len(aggChildren) != 1 {
		return nil
	}
	agg, ok := arena.Op(aggChildren[0]).(planmodel.AggregateExec)
	if !ok || len(agg.GroupBy) != 1 || len(agg.Aggrs) != 1 {
		return nil
	}
	groupField, ok := fieldProjection(agg.GroupBy[0])
	if !ok || groupField != field {
		return nil
	}
	aggCall, ok := agg.Aggrs[0].(planmodel.FuncCall)
	if !ok || aggCall.FuncName() != "count" {
		return nil
	}

	return &querymeta.IndexOptimizeMode{
		Kind:      querymeta.IndexOptimizeSimpleTopN,
		Field:     field,
		Limit:     limit.Fetch,
		Ascending: !sort.Keys[0].Descending,
	}
}

// matchSimpleHistogram matches a lone AggregateExec grouping solely by a
// three-argument date_bin call with a literal bucket width, with a count(*)
// aggregate; the column date_bin buckets is not inspected. min_us rounds
// the range start down to the nearest bucket boundary and n_buckets covers
// [min_us, range end] (spec §4.3 P1, §8 S3).
func matchSimpleHistogram(arena *planmodel.Arena, id planmodel.NodeID, timeRange querymeta.TimeRange) *querymeta.IndexOptimizeMode {
	agg, ok := arena.Op(id).(planmodel.AggregateExec)
	if !ok || len(agg.GroupBy) != 1 || len(agg.Aggrs) != 1 {
		return nil
	}
	call, ok := agg.GroupBy[0].(planmodel.FuncCall)
	if !ok || call.FuncName() != "date_bin" || len(call.Args) != 3 {
		return nil
	}
	aggCall, ok := agg.Aggrs[0].(planmodel.FuncCall)
	if !ok || aggCall.FuncName() != "count" {
		return nil
	}
	bucketUs := literalInt(call.Args[0])
	if bucketUs == 0 {
		return nil
	}

	minUs := timeRange.StartUs - timeRange.StartUs%bucketUs
	var nBuckets int64
	if timeRange.EndUs > minUs {
		span := timeRange.EndUs - minUs
		nBuckets = span / bucketUs
		if span%bucketUs != 0 {
			nBuckets++
		}
	}
	return &querymeta.IndexOptimizeMode{
		Kind:     querymeta.IndexOptimizeSimpleHistogram,
		MinUs:    minUs,
		BucketUs: bucketUs,
		NBuckets: nBuckets,
	}
}

func fieldProjection(e planmodel.Expr) (string, bool) {
	switch v := e.(type) {
	case planmodel.ColumnRef:
		return v.Column, true
	case planmodel.AliasExpr:
		return fieldProjection(v.Expr)
	default:
		return "", false
	}
}

func literalInt(e planmodel.Expr) int64 {
	lit, ok := e.(planmodel.Literal)
	if !ok {
		return 0
	}
	switch v := lit.Value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
