// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package planmodel

// Relation is a leaf scan over one stream.
type Relation struct {
	Stream string
}

func (Relation) Name() string { return "relation" }

// Projection selects/renames a set of output expressions.
type Projection struct {
	Exprs []Expr
}

func (Projection) Name() string { return "projection" }

// Filter applies Predicate to its single child.
type Filter struct {
	Predicate Expr
}

func (Filter) Name() string { return "filter" }

// Aggregate groups by GroupBy and computes Aggrs over its child.
type Aggregate struct {
	GroupBy []Expr
	Aggrs   []Expr
}

func (Aggregate) Name() string { return "aggregate" }

// SortKey is one ORDER BY term of a logical Sort.
type SortKey struct {
	Expr       Expr
	Descending bool
}

// Sort orders its child by Keys.
type Sort struct {
	Keys []SortKey
}

func (Sort) Name() string { return "sort" }

// Limit caps its child to Fetch rows after skipping Skip.
type Limit struct {
	Fetch int64
	Skip  int64
}

func (Limit) Name() string { return "limit" }

// JoinKind distinguishes join semantics.
type JoinKind string

const (
	JoinInner JoinKind = "inner"
	JoinLeft  JoinKind = "left"
	JoinCross JoinKind = "cross"
)

// Join has two children (accessed via Arena.Children: [0]=left, [1]=right).
type Join struct {
	Kind    JoinKind
	LeftOn  []string
	RightOn []string
}

func (Join) Name() string { return "join" }

// DeduplicationExtension keys deduplication on Columns, retaining the row
// with the most recent TieBreak value per key (spec §4.2 L3).
type DeduplicationExtension struct {
	Columns  []string
	TieBreak string
}

func (DeduplicationExtension) Name() string { return "dedup_extension" }

// Union merges the output of all of its children.
type Union struct{}

func (Union) Name() string { return "union" }

// Analyze wraps its child to collect and report execution statistics
// (EXPLAIN ANALYZE, spec §4.2 L4).
type Analyze struct{}

func (Analyze) Name() string { return "analyze" }
