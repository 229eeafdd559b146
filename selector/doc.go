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

// Package selector compiles and evaluates message selectors, the SQL-92
// style filter dialect consumers use to narrow a subscription to the
// messages they care about.
//
// A selector is compiled once into an immutable Selector and then evaluated
// per candidate message. Evaluation is three-valued: a predicate over a
// missing or incomparable property yields Unknown rather than an error, and
// Unknown never delivers a message. Compile errors (LexError, ParseError)
// are reported synchronously so a bad selector rejects the subscription that
// carries it instead of surfacing during delivery.
//
// # Grammar
//
// The grammar is defined by the following EBNF, lowest precedence first:
//
//	selector    = orExpr EOF
//	orExpr      = andExpr {"OR" andExpr}
//	andExpr     = notExpr {"AND" notExpr}
//	notExpr     = "NOT" notExpr / comparison
//	comparison  = additive {compOp additive / ["NOT"] "BETWEEN" additive "AND" additive /
//	              ["NOT"] "IN" "(" literal {"," literal} ")" /
//	              ["NOT"] "LIKE" string ["ESCAPE" string] /
//	              "IS" ["NOT"] "NULL"}
//	compOp      = "=" / "<>" / "<" / "<=" / ">" / ">="
//	additive    = multiplicative {("+" / "-") multiplicative}
//	multiplicative = unary {("*" / "/") unary}
//	unary       = ("-" / "+") unary / primary
//	primary     = identifier / literal / "TRUE" / "FALSE" / "(" orExpr ")"
//	literal     = string / number / "TRUE" / "FALSE"
//
// The lexical terms:
//
//	// An identifier; segments may be joined by dots to reach nested fields
//	identifier = #'[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*'
//
//	// A number; exact without '.' and exponent, approximate otherwise
//	number     = #'[0-9]+(\.[0-9]*)?([eE][-+]?[0-9]+)?|\.[0-9]+([eE][-+]?[0-9]+)?'
//
//	// A single-quoted string, '' escapes a quote ('it''s')
//	string     = #'\'([^\']|\'\')*\''
//
// Reserved words (AND, OR, NOT, BETWEEN, LIKE, IN, IS, NULL, ESCAPE, TRUE,
// FALSE) are matched case-insensitively; identifiers are case-sensitive.
//
// # Three-valued evaluation
//
// Properties resolve through an Env, which reports presence and a string
// form of the value. Coercion happens at evaluation time: a numeric operator
// parses the string value and yields Unknown when the parse fails, equality
// compares strings unless the other operand forces a numeric or boolean
// reading, and ordering requires both operands numeric. AND treats False as
// dominant, OR treats True as dominant, NOT preserves Unknown, and IS [NOT]
// NULL is the single construct that turns absence into a definite answer.
// Division by zero yields Unknown.
//
// Filter collapses the tristate to a delivery decision: only a definite True
// delivers.
package selector
