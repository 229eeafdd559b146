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

import "regexp"

// Expr is a node of a compiled selector expression.
type Expr interface {
	exprNode()
}

// BinaryOp is the operator of a BinaryExpr.
type BinaryOp int

const (
	OpOr BinaryOp = iota
	OpAnd
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
)

var binaryOpNames = map[BinaryOp]string{
	OpOr:  "OR",
	OpAnd: "AND",
	OpEq:  "=",
	OpNeq: "<>",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// UnaryOp is the operator of a UnaryExpr.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	if op == OpNot {
		return "NOT"
	}
	return "-"
}

// Identifier names a message property. Dotted names reach into structured
// payloads (payload.temperature).
type Identifier struct {
	Name string
}

// StringLit is a single-quoted string literal.
type StringLit struct {
	Value string
}

// IntLit is an exact numeric literal.
type IntLit struct {
	Value int64
}

// FloatLit is an approximate numeric literal.
type FloatLit struct {
	Value float64
}

// BoolLit is a TRUE or FALSE literal.
type BoolLit struct {
	Value bool
}

// UnaryExpr applies NOT or unary minus to its operand.
type UnaryExpr struct {
	Op UnaryOp
	X  Expr
}

// BinaryExpr applies a logical, comparison or arithmetic operator to two
// operands.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// BetweenExpr is X [NOT] BETWEEN Low AND High. Both bounds are inclusive.
type BetweenExpr struct {
	X       Expr
	Low     Expr
	High    Expr
	Negated bool
}

// InExpr is X [NOT] IN (...). List elements are literals.
type InExpr struct {
	X       Expr
	List    []Expr
	Negated bool
}

// LikeExpr is X [NOT] LIKE pattern [ESCAPE escape]. The pattern is turned
// into an anchored regular expression at parse time; matcher is nil only
// when construction failed, which evaluates to Unknown.
type LikeExpr struct {
	X       Expr
	Pattern string
	Escape  string
	Negated bool

	matcher *regexp.Regexp
}

// IsNullExpr is X IS [NOT] NULL.
type IsNullExpr struct {
	X       Expr
	Negated bool
}

func (*Identifier) exprNode()  {}
func (*StringLit) exprNode()   {}
func (*IntLit) exprNode()      {}
func (*FloatLit) exprNode()    {}
func (*BoolLit) exprNode()     {}
func (*UnaryExpr) exprNode()   {}
func (*BinaryExpr) exprNode()  {}
func (*BetweenExpr) exprNode() {}
func (*InExpr) exprNode()      {}
func (*LikeExpr) exprNode()    {}
func (*IsNullExpr) exprNode()  {}
