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
	"strings"
)

// TokenType identifies a lexical token class.
type TokenType int

const (
	TokenEOF TokenType = iota

	TokenIdent  // deviceId, payload.temperature
	TokenInt    // 42
	TokenFloat  // 4.2, .5, 7e3
	TokenString // 'red'

	TokenEq     // =
	TokenNeq    // <>
	TokenLt     // <
	TokenLe     // <=
	TokenGt     // >
	TokenGe     // >=
	TokenPlus   // +
	TokenMinus  // -
	TokenStar   // *
	TokenSlash  // /
	TokenLParen // (
	TokenRParen // )
	TokenComma  // ,
	TokenDot    // .

	TokenAnd
	TokenOr
	TokenNot
	TokenBetween
	TokenLike
	TokenIn
	TokenIs
	TokenNull
	TokenEscape
	TokenTrue
	TokenFalse
)

// reservedWords maps the upper-cased spelling of a reserved word to its
// token type. Matching is case-insensitive.
var reservedWords = map[string]TokenType{
	"AND":     TokenAnd,
	"OR":      TokenOr,
	"NOT":     TokenNot,
	"BETWEEN": TokenBetween,
	"LIKE":    TokenLike,
	"IN":      TokenIn,
	"IS":      TokenIs,
	"NULL":    TokenNull,
	"ESCAPE":  TokenEscape,
	"TRUE":    TokenTrue,
	"FALSE":   TokenFalse,
}

var tokenNames = map[TokenType]string{
	TokenEOF:     "end of expression",
	TokenIdent:   "identifier",
	TokenInt:     "integer",
	TokenFloat:   "number",
	TokenString:  "string",
	TokenEq:      "'='",
	TokenNeq:     "'<>'",
	TokenLt:      "'<'",
	TokenLe:      "'<='",
	TokenGt:      "'>'",
	TokenGe:      "'>='",
	TokenPlus:    "'+'",
	TokenMinus:   "'-'",
	TokenStar:    "'*'",
	TokenSlash:   "'/'",
	TokenLParen:  "'('",
	TokenRParen:  "')'",
	TokenComma:   "','",
	TokenDot:     "'.'",
	TokenAnd:     "AND",
	TokenOr:      "OR",
	TokenNot:     "NOT",
	TokenBetween: "BETWEEN",
	TokenLike:    "LIKE",
	TokenIn:      "IN",
	TokenIs:      "IS",
	TokenNull:    "NULL",
	TokenEscape:  "ESCAPE",
	TokenTrue:    "TRUE",
	TokenFalse:   "FALSE",
}

// Token is a single lexical unit of a selector. Pos is the byte offset of
// the token's first character in the source text.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// String renders the token for error messages.
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return tokenNames[TokenEOF]
	case TokenIdent:
		return fmt.Sprintf("identifier %q", t.Value)
	case TokenInt, TokenFloat:
		return fmt.Sprintf("number %s", t.Value)
	case TokenString:
		return fmt.Sprintf("string '%s'", strings.ReplaceAll(t.Value, "'", "''"))
	default:
		if name, ok := tokenNames[t.Type]; ok {
			return name
		}
		return fmt.Sprintf("token %q", t.Value)
	}
}
