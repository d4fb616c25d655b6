// Querymesh - Distributed Observability Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querymesh

package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses one SQL statement into a SelectStmt.
func Parse(sql string) (*SelectStmt, error) {
	lx := newLexer(sql)
	toks, err := lx.tokens()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmt, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	if !p.atEOF() {
		return nil, fmt.Errorf("parse: unexpected trailing input at token %d (%q)", p.pos, p.cur().text)
	}
	return stmt, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) atEOF() bool { return p.cur().kind == tokEOF }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(word string) bool {
	t := p.cur()
	return t.kind == tokKeyword && strings.EqualFold(t.text, word)
}

func (p *parser) expectKeyword(word string) error {
	if !p.isKeyword(word) {
		return fmt.Errorf("parse: expected keyword %q, got %q at token %d", word, p.cur().text, p.pos)
	}
	p.advance()
	return nil
}

func (p *parser) isOp(op string) bool {
	t := p.cur()
	return t.kind == tokOp && t.text == op
}

func (p *parser) parseSelect() (*SelectStmt, error) {
	stmt := &SelectStmt{}
	if p.isKeyword("explain") {
		p.advance()
		stmt.Explain = true
		if p.isKeyword("analyze") {
			p.advance()
			stmt.Analyze = true
		}
	}
	if err := p.expectKeyword("select"); err != nil {
		return nil, err
	}
	if p.isKeyword("distinct") {
		p.advance()
		stmt.Distinct = true
	}
	cols, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	stmt.Columns = cols

	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	table, alias, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	stmt.From, stmt.FromAlias = table, alias

	for p.isKeyword("inner") || p.isKeyword("left") || p.isKeyword("cross") || p.isKeyword("join") {
		j, err := p.parseJoin()
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, j)
	}

	if p.isKeyword("where") {
		p.advance()
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.isKeyword("group") {
		p.advance()
		if err := p.expectKeyword("by"); err != nil {
			return nil, err
		}
		items, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = items
	}

	if p.isKeyword("order") {
		p.advance()
		if err := p.expectKeyword("by"); err != nil {
			return nil, err
		}
		items, err := p.parseOrderByList()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = items
	}

	if p.isKeyword("limit") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Limit = &n
	}
	if p.isKeyword("offset") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Offset = &n
	}
	return stmt, nil
}

func (p *parser) parseIntLiteral() (int64, error) {
	if p.cur().kind != tokNumber {
		return 0, fmt.Errorf("parse: expected integer literal, got %q", p.cur().text)
	}
	t := p.advance()
	n, err := strconv.ParseInt(t.text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse: invalid integer literal %q: %w", t.text, err)
	}
	return n, nil
}

func (p *parser) parseTableRef() (name, alias string, err error) {
	if p.cur().kind != tokIdent {
		return "", "", fmt.Errorf("parse: expected table name, got %q", p.cur().text)
	}
	name = p.advance().text
	if p.isKeyword("as") {
		p.advance()
		alias = p.advance().text
		return name, alias, nil
	}
	if p.cur().kind == tokIdent {
		alias = p.advance().text
	}
	return name, alias, nil
}

func (p *parser) parseJoin() (Join, error) {
	kind := JoinInner
	switch {
	case p.isKeyword("inner"):
		p.advance()
	case p.isKeyword("left"):
		p.advance()
		kind = JoinLeft
	case p.isKeyword("cross"):
		p.advance()
		kind = JoinCross
	}
	if err := p.expectKeyword("join"); err != nil {
		return Join{}, err
	}
	table, alias, err := p.parseTableRef()
	if err != nil {
		return Join{}, err
	}
	j := Join{Kind: kind, Table: table, Alias: alias}
	if kind != JoinCross {
		if err := p.expectKeyword("on"); err != nil {
			return Join{}, err
		}
		on, err := p.parseExpr()
		if err != nil {
			return Join{}, err
		}
		j.On = on
	}
	return j, nil
}

func (p *parser) parseSelectList() ([]Expr, error) {
	var items []Expr
	for {
		if p.cur().kind == tokStar {
			p.advance()
			items = append(items, Star{})
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if p.isKeyword("as") {
				p.advance()
				alias := p.advance().text
				e = AliasExpr{Expr: e, Alias: alias}
			} else if p.cur().kind == tokIdent {
				alias := p.advance().text
				e = AliasExpr{Expr: e, Alias: alias}
			}
			items = append(items, e)
		}
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseExprList() ([]Expr, error) {
	var items []Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseOrderByList() ([]OrderItem, error) {
	var items []OrderItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := OrderItem{Expr: e}
		if p.isKeyword("asc") {
			p.advance()
		} else if p.isKeyword("desc") {
			p.advance()
			item.Descending = true
		}
		items = append(items, item)
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

// parseExpr parses an OR-level expression, the entry point for WHERE/ON/etc.
func (p *parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.isKeyword("not") {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return NotExpr{Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	switch {
	case p.isOp("="):
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: OpEq, Left: left, Right: right}, nil
	case p.isOp("!=") || p.isOp("<>"):
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: OpNotEq, Left: left, Right: right}, nil
	case p.isOp("<"):
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: OpLt, Left: left, Right: right}, nil
	case p.isOp("<="):
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: OpLtEq, Left: left, Right: right}, nil
	case p.isOp(">"):
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: OpGt, Left: left, Right: right}, nil
	case p.isOp(">="):
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: OpGtEq, Left: left, Right: right}, nil
	case p.isKeyword("like"):
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: OpLike, Left: left, Right: right}, nil
	case p.isKeyword("ilike"):
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: OpILike, Left: left, Right: right}, nil
	case p.isKeyword("not"):
		p.advance()
		if p.isKeyword("in") {
			p.advance()
			values, err := p.parseInList()
			if err != nil {
				return nil, err
			}
			return InExpr{Operand: left, Values: values, Negate: true}, nil
		}
		return nil, fmt.Errorf("parse: expected IN after NOT at token %d", p.pos)
	case p.isKeyword("in"):
		p.advance()
		values, err := p.parseInList()
		if err != nil {
			return nil, err
		}
		return InExpr{Operand: left, Values: values}, nil
	case p.isKeyword("is"):
		p.advance()
		negate := false
		if p.isKeyword("not") {
			p.advance()
			negate = true
		}
		if err := p.expectKeyword("null"); err != nil {
			return nil, err
		}
		return IsNullExpr{Operand: left, Negate: negate}, nil
	}
	return left, nil
}

func (p *parser) parseInList() ([]Expr, error) {
	if p.cur().kind != tokLParen {
		return nil, fmt.Errorf("parse: expected '(' after IN")
	}
	p.advance()
	values, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokRParen {
		return nil, fmt.Errorf("parse: expected ')' to close IN list")
	}
	p.advance()
	return values, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := OpAdd
		if p.isOp("-") {
			op = OpSub
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.isOp("/") || (p.cur().kind == tokStar) {
		op := OpMul
		if p.isOp("/") {
			op = OpDiv
		}
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch {
	case t.kind == tokLParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, fmt.Errorf("parse: expected ')' at token %d", p.pos)
		}
		p.advance()
		return e, nil
	case t.kind == tokStar:
		p.advance()
		return Star{}, nil
	case t.kind == tokNumber:
		p.advance()
		return NumberLit{Text: t.text}, nil
	case t.kind == tokString:
		p.advance()
		return StringLit{Value: t.text}, nil
	case t.kind == tokKeyword && strings.EqualFold(t.text, "true"):
		p.advance()
		return BoolLit{Value: true}, nil
	case t.kind == tokKeyword && strings.EqualFold(t.text, "false"):
		p.advance()
		return BoolLit{Value: false}, nil
	case t.kind == tokKeyword && strings.EqualFold(t.text, "null"):
		p.advance()
		return NullLit{}, nil
	case t.kind == tokIdent:
		p.advance()
		if p.cur().kind == tokLParen {
			return p.parseCall(t.text)
		}
		return Ident{Name: t.text}, nil
	}
	return nil, fmt.Errorf("parse: unexpected token %q at position %d", t.text, t.pos)
}

func (p *parser) parseCall(name string) (Expr, error) {
	p.advance() // consume '('
	call := Call{Name: strings.ToLower(name)}
	if p.cur().kind == tokRParen {
		p.advance()
		return call, nil
	}
	if p.isKeyword("distinct") {
		p.advance()
		call.Distinct = true
	}
	if p.cur().kind == tokStar {
		p.advance()
		call.Args = append(call.Args, Star{})
	} else {
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		call.Args = args
	}
	if p.cur().kind != tokRParen {
		return nil, fmt.Errorf("parse: expected ')' to close call to %s", name)
	}
	p.advance()
	return call, nil
}
