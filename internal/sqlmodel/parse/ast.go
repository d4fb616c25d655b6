// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package parse

// Expr is a node of the parsed scalar/boolean expression tree.
type Expr interface {
	exprNode()
}

// Star represents the `*` projection item.
type Star struct{}

func (Star) exprNode() {}

// Ident references a column or qualified column (table.column).
type Ident struct{ Name string }

func (Ident) exprNode() {}

// NumberLit is a numeric literal, kept as text so callers choose int/float.
type NumberLit struct{ Text string }

func (NumberLit) exprNode() {}

// StringLit is a single-quoted string literal with escapes resolved.
type StringLit struct{ Value string }

func (StringLit) exprNode() {}

// BoolLit is TRUE/FALSE.
type BoolLit struct{ Value bool }

func (BoolLit) exprNode() {}

// NullLit is the NULL literal.
type NullLit struct{}

func (NullLit) exprNode() {}

// Call is a scalar or aggregate function invocation, e.g. count(*),
// histogram(ts, '1m'), match_all('x').
type Call struct {
	Name     string
	Args     []Expr
	Distinct bool
}

func (Call) exprNode() {}

// BinOp is a binary operator token, normalized to lowercase.
type BinOp string

const (
	OpAnd   BinOp = "and"
	OpOr    BinOp = "or"
	OpEq    BinOp = "="
	OpNotEq BinOp = "!="
	OpLt    BinOp = "<"
	OpLtEq  BinOp = "<="
	OpGt    BinOp = ">"
	OpGtEq  BinOp = ">="
	OpLike  BinOp = "like"
	OpILike BinOp = "ilike"
	OpAdd   BinOp = "+"
	OpSub   BinOp = "-"
	OpMul   BinOp = "*"
	OpDiv   BinOp = "/"
)

// BinaryExpr is `Left Op Right`.
type BinaryExpr struct {
	Op    BinOp
	Left  Expr
	Right Expr
}

func (BinaryExpr) exprNode() {}

// NotExpr is `NOT Operand`.
type NotExpr struct{ Operand Expr }

func (NotExpr) exprNode() {}

// IsNullExpr is `Operand IS [NOT] NULL`.
type IsNullExpr struct {
	Operand Expr
	Negate  bool
}

func (IsNullExpr) exprNode() {}

// InExpr is `Operand [NOT] IN (Values...)`.
type InExpr struct {
	Operand Expr
	Values  []Expr
	Negate  bool
}

func (InExpr) exprNode() {}

// AliasExpr names an expression's output column: `Expr AS Alias`.
type AliasExpr struct {
	Expr  Expr
	Alias string
}

func (AliasExpr) exprNode() {}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr       Expr
	Descending bool
}

// JoinKind distinguishes join semantics recognized by the parser.
type JoinKind string

const (
	JoinInner JoinKind = "inner"
	JoinLeft  JoinKind = "left"
	JoinCross JoinKind = "cross"
)

// Join is a single FROM-clause join term.
type Join struct {
	Kind  JoinKind
	Table string
	Alias string
	On    Expr
}

// SelectStmt is the root of a parsed query.
type SelectStmt struct {
	Explain   bool
	Analyze   bool
	Distinct  bool
	Columns   []Expr // AliasExpr, Ident, Call, Star, ...
	From      string
	FromAlias string
	Joins     []Join
	Where     Expr
	GroupBy   []Expr
	OrderBy   []OrderItem
	Limit     *int64
	Offset    *int64
}
