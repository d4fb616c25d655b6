// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package physicalplan

import (
	"sync"

	"github.com/tomtom215/querymesh/internal/planmodel"
)

// StreamingAggregationContext is wired into the physical optimizer for a
// "simple aggregate" query running with streaming output (spec §4.3 P4).
// The collector reads IsCompleteCacheHit after execution to decide whether
// the result was fully synthesized from the aggregation-result cache
// without touching a RemoteScan at all.
type StreamingAggregationContext struct {
	mu                 sync.Mutex
	isCompleteCacheHit bool
}

// SetCompleteCacheHit records whether this execution's result came
// entirely from cached partial aggregates.
func (c *StreamingAggregationContext) SetCompleteCacheHit(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isCompleteCacheHit = v
}

// IsCompleteCacheHit reports the last value SetCompleteCacheHit recorded.
func (c *StreamingAggregationContext) IsCompleteCacheHit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCompleteCacheHit
}

// IsSimpleAggregate reports whether the plan rooted at id matches the
// "simple aggregate" count-pattern: a single AggregateExec with at most one
// group-by key and exactly one count(*) aggregate, and nothing else above
// it besides projection/coalesce wrapping.
func IsSimpleAggregate(arena *planmodel.Arena, id planmodel.NodeID) bool {
	id = skipProjectionAndCoalesce(arena, id)
	agg, ok := arena.Op(id).(planmodel.AggregateExec)
	if !ok || len(agg.GroupBy) > 1 || len(agg.Aggrs) != 1 {
		return false
	}
	call, ok := agg.Aggrs[0].(planmodel.FuncCall)
	return ok && call.FuncName() == "count"
}

// WireStreaming attaches a StreamingAggregationContext when streamingRequested
// is true and the plan rooted at root is a simple aggregate, per spec §4.3
// P4. It returns nil when streaming does not apply.
func WireStreaming(arena *planmodel.Arena, root planmodel.NodeID, streamingRequested bool) *StreamingAggregationContext {
	if !streamingRequested || !IsSimpleAggregate(arena, root) {
		return nil
	}
	return &StreamingAggregationContext{}
}
