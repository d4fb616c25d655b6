// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package querymeta

// SortDirection is ascending or descending order.
type SortDirection int

const (
	Asc SortDirection = iota
	Desc
)

// OrderByItem is one ORDER BY term.
type OrderByItem struct {
	Field     string
	Direction SortDirection
}

// EqualItem is an extracted equality/IN predicate: field = value_text (or
// field IN (value_text, ...) flattened to one entry per value).
type EqualItem struct {
	Field string
	Value string
}

// PrefixItem is an extracted `LIKE 'x%'` predicate.
type PrefixItem struct {
	Field  string
	Prefix string
}

// IndexConditionKind distinguishes the shape of an index condition attached
// to a remote scan.
type IndexConditionKind string

const (
	IndexConditionEqual  IndexConditionKind = "equal"
	IndexConditionPrefix IndexConditionKind = "prefix"
	IndexConditionMatch  IndexConditionKind = "match_all"
)

// IndexCondition is the hint attached to a RemoteScan telling workers which
// inverted-index fast path to use.
type IndexCondition struct {
	Kind  IndexConditionKind
	Field string
	Terms []string
}

// IndexOptimizeModeKind tags which of the three pattern-matched shapes (if
// any) a physical plan was rewritten into (spec §4.3 P1).
type IndexOptimizeModeKind string

const (
	IndexOptimizeNone            IndexOptimizeModeKind = ""
	IndexOptimizeSimpleSelect    IndexOptimizeModeKind = "simple_select"
	IndexOptimizeSimpleTopN      IndexOptimizeModeKind = "simple_top_n"
	IndexOptimizeSimpleHistogram IndexOptimizeModeKind = "simple_histogram"
)

// IndexOptimizeMode is the tagged union of §4.3 P1's three emitted modes.
type IndexOptimizeMode struct {
	Kind IndexOptimizeModeKind

	// SimpleSelect / SimpleTopN
	Field     string // SimpleTopN only
	Limit     int64
	Ascending bool

	// SimpleHistogram
	MinUs    int64
	BucketUs int64
	NBuckets int64
}

// CompiledSQL is the fully-resolved output of C1 (spec §3 "Compiled SQL").
// It is immutable once built and exclusively owned by the driver that built
// it.
type CompiledSQL struct {
	Org        string
	StreamType StreamType
	SQL        string // canonical, post-rewrite text
	Streams    map[StreamRef]*Schema

	TimeRange         *TimeRange
	HistogramInterval *int64 // microseconds

	Limit  int64
	Offset *int64

	OrderBy []OrderByItem

	EqualItems   map[StreamRef][]EqualItem
	PrefixItems  map[StreamRef][]PrefixItem
	MatchAllKeys []string

	IndexCondition    *IndexCondition
	IndexOptimizeMode *IndexOptimizeMode

	SamplingConfig *SamplingConfig
	SortedByTime   bool
	HasAggregation bool
	IsDistinct     bool
	IsWildcard     bool
	UsesZoFn       bool
}

// SamplingConfig controls approximate execution over a sampled fraction of
// rows.
type SamplingConfig struct {
	Enabled    bool
	Percentage float64
}

// Validate enforces the invariants of spec §3 "Compiled SQL":
//   - Streams is non-empty.
//   - every field named in EqualItems/PrefixItems exists in exactly the
//     schema it is keyed under.
//   - if IndexOptimizeMode is set, HasAggregation matches the mode's shape.
func (c *CompiledSQL) Validate() error {
	if len(c.Streams) == 0 {
		return errStreamsEmpty
	}
	for ref, items := range c.EqualItems {
		schema, ok := c.Streams[ref]
		if !ok {
			return errUnknownStreamRef
		}
		for _, it := range items {
			if !schema.HasField(it.Field) {
				return errFieldNotInSchema
			}
		}
	}
	for ref, items := range c.PrefixItems {
		schema, ok := c.Streams[ref]
		if !ok {
			return errUnknownStreamRef
		}
		for _, it := range items {
			if !schema.HasField(it.Field) {
				return errFieldNotInSchema
			}
		}
	}
	if c.IndexOptimizeMode != nil {
		wantsAgg := c.IndexOptimizeMode.Kind == IndexOptimizeSimpleTopN || c.IndexOptimizeMode.Kind == IndexOptimizeSimpleHistogram
		if wantsAgg != c.HasAggregation {
			return errIndexModeAggMismatch
		}
	}
	return nil
}
