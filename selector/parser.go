/*
 * Copyright 2025 The SpitBreak Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package selector

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// maxNestingDepth bounds parenthesis, NOT and unary minus nesting so a
// hostile selector cannot exhaust the stack.
const maxNestingDepth = 100

// ParseError reports selector source that lexed but does not form a valid
// expression. Pos is the byte offset of the token the parser stopped at.
type ParseError struct {
	Msg string
	Pos int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("selector: %s at position %d", e.Msg, e.Pos)
}

type parser struct {
	lex   *Lexer
	tok   Token
	depth int
}

// parse compiles selector source into an expression tree.
func parse(input string) (Expr, error) {
	p := &parser{lex: NewLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Type == TokenEOF {
		return nil, &ParseError{Msg: "empty selector"}
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.Type != TokenEOF {
		return nil, p.unexpected("end of expression")
	}
	return expr, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) expect(typ TokenType, what string) error {
	if p.tok.Type != typ {
		return p.unexpected(what)
	}
	return p.advance()
}

func (p *parser) unexpected(expected string) *ParseError {
	return &ParseError{
		Msg: fmt.Sprintf("expected %s, found %s", expected, p.tok),
		Pos: p.tok.Pos,
	}
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxNestingDepth {
		return &ParseError{Msg: "expression nested too deeply", Pos: p.tok.Pos}
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == TokenOr {
		if err = p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == TokenAnd {
		if err = p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.tok.Type != TokenNot {
		return p.parseComparison()
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	if err := p.advance(); err != nil {
		return nil, err
	}
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return &UnaryExpr{Op: OpNot, X: x}, nil
}

var comparisonOps = map[TokenType]BinaryOp{
	TokenEq:  OpEq,
	TokenNeq: OpNeq,
	TokenLt:  OpLt,
	TokenLe:  OpLe,
	TokenGt:  OpGt,
	TokenGe:  OpGe,
}

// parseComparison handles the comparison tier: the six comparison operators
// plus BETWEEN, IN, LIKE and IS NULL, all left-associative. A NOT at this
// level negates the BETWEEN, IN or LIKE that follows it; prefix NOT belongs
// to parseNot.
func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Type {
		case TokenEq, TokenNeq, TokenLt, TokenLe, TokenGt, TokenGe:
			op := comparisonOps[p.tok.Type]
			if err = p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{Op: op, Left: left, Right: right}
		case TokenNot:
			if err = p.advance(); err != nil {
				return nil, err
			}
			switch p.tok.Type {
			case TokenBetween:
				left, err = p.parseBetween(left, true)
			case TokenIn:
				left, err = p.parseIn(left, true)
			case TokenLike:
				left, err = p.parseLike(left, true)
			default:
				return nil, p.unexpected("BETWEEN, IN or LIKE after NOT")
			}
			if err != nil {
				return nil, err
			}
		case TokenBetween:
			if left, err = p.parseBetween(left, false); err != nil {
				return nil, err
			}
		case TokenIn:
			if left, err = p.parseIn(left, false); err != nil {
				return nil, err
			}
		case TokenLike:
			if left, err = p.parseLike(left, false); err != nil {
				return nil, err
			}
		case TokenIs:
			if left, err = p.parseIsNull(left); err != nil {
				return nil, err
			}
		default:
			return left, nil
		}
	}
}

// parseBetween parses "BETWEEN low AND high" with the subject already
// consumed. The AND here belongs to BETWEEN, not to the conjunction tier.
func (p *parser) parseBetween(x Expr, negated bool) (Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	low, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if err = p.expect(TokenAnd, "AND"); err != nil {
		return nil, err
	}
	high, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &BetweenExpr{X: x, Low: low, High: high, Negated: negated}, nil
}

func (p *parser) parseIn(x Expr, negated bool) (Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(TokenLParen, "'('"); err != nil {
		return nil, err
	}
	var list []Expr
	for {
		lit, err := p.parseListLiteral()
		if err != nil {
			return nil, err
		}
		list = append(list, lit)
		if p.tok.Type != TokenComma {
			break
		}
		if err = p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(TokenRParen, "')'"); err != nil {
		return nil, err
	}
	return &InExpr{X: x, List: list, Negated: negated}, nil
}

// parseListLiteral parses one element of an IN list. Only literals are
// allowed, optionally sign-prefixed when numeric.
func (p *parser) parseListLiteral() (Expr, error) {
	neg := false
	if p.tok.Type == TokenMinus {
		neg = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	var lit Expr
	switch p.tok.Type {
	case TokenString:
		if neg {
			return nil, p.unexpected("number after '-'")
		}
		lit = &StringLit{Value: p.tok.Value}
	case TokenInt:
		i, err := p.intValue()
		if err != nil {
			return nil, err
		}
		if neg {
			i = -i
		}
		lit = &IntLit{Value: i}
	case TokenFloat:
		f, err := p.floatValue()
		if err != nil {
			return nil, err
		}
		if neg {
			f = -f
		}
		lit = &FloatLit{Value: f}
	case TokenTrue, TokenFalse:
		if neg {
			return nil, p.unexpected("number after '-'")
		}
		lit = &BoolLit{Value: p.tok.Type == TokenTrue}
	default:
		return nil, p.unexpected("literal")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *parser) parseLike(x Expr, negated bool) (Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Type != TokenString {
		return nil, p.unexpected("pattern string")
	}
	pattern := p.tok.Value
	patternPos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	escape := ""
	if p.tok.Type == TokenEscape {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Type != TokenString {
			return nil, p.unexpected("escape string")
		}
		escape = p.tok.Value
		if utf8.RuneCountInString(escape) != 1 {
			return nil, &ParseError{Msg: "ESCAPE must be a single character", Pos: p.tok.Pos}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	matcher, err := compileLike(pattern, escape)
	if err != nil {
		return nil, &ParseError{Msg: err.Error(), Pos: patternPos}
	}
	return &LikeExpr{X: x, Pattern: pattern, Escape: escape, Negated: negated, matcher: matcher}, nil
}

func (p *parser) parseIsNull(x Expr) (Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	negated := false
	if p.tok.Type == TokenNot {
		negated = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(TokenNull, "NULL"); err != nil {
		return nil, err
	}
	return &IsNullExpr{X: x, Negated: negated}, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == TokenPlus || p.tok.Type == TokenMinus {
		op := OpAdd
		if p.tok.Type == TokenMinus {
			op = OpSub
		}
		if err = p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == TokenStar || p.tok.Type == TokenSlash {
		op := OpMul
		if p.tok.Type == TokenSlash {
			op = OpDiv
		}
		if err = p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	switch p.tok.Type {
	case TokenMinus:
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: OpNeg, X: x}, nil
	case TokenPlus:
		// Unary plus is accepted and has no effect.
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	switch p.tok.Type {
	case TokenIdent:
		node := &Identifier{Name: p.tok.Value}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return node, nil
	case TokenInt:
		i, err := p.intValue()
		if err != nil {
			return nil, err
		}
		if err = p.advance(); err != nil {
			return nil, err
		}
		return &IntLit{Value: i}, nil
	case TokenFloat:
		f, err := p.floatValue()
		if err != nil {
			return nil, err
		}
		if err = p.advance(); err != nil {
			return nil, err
		}
		return &FloatLit{Value: f}, nil
	case TokenString:
		node := &StringLit{Value: p.tok.Value}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return node, nil
	case TokenTrue, TokenFalse:
		node := &BoolLit{Value: p.tok.Type == TokenTrue}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return node, nil
	case TokenLParen:
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err = p.expect(TokenRParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, p.unexpected("expression")
}

func (p *parser) intValue() (int64, error) {
	i, err := strconv.ParseInt(p.tok.Value, 10, 64)
	if err != nil {
		return 0, &ParseError{Msg: fmt.Sprintf("integer literal %s out of range", p.tok.Value), Pos: p.tok.Pos}
	}
	return i, nil
}

func (p *parser) floatValue() (float64, error) {
	f, err := strconv.ParseFloat(p.tok.Value, 64)
	if err != nil {
		return 0, &ParseError{Msg: fmt.Sprintf("malformed numeric literal %s", p.tok.Value), Pos: p.tok.Pos}
	}
	return f, nil
}
