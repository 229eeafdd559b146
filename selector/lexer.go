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

// LexError reports an invalid character or malformed literal in the
// selector source. Pos is the byte offset of the offending input.
type LexError struct {
	Msg string
	Pos int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("selector: %s at position %d", e.Msg, e.Pos)
}

// Lexer turns selector source text into a token stream. Create one per
// parse with NewLexer; calling Next after an error or EOF keeps returning
// the same result.
type Lexer struct {
	input string
	pos   int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Next returns the next token in the input.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()
	start := l.pos
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: start}, nil
	}

	ch := l.input[l.pos]
	switch {
	case isIdentStart(ch):
		return l.scanWord(start), nil
	case isDigit(ch):
		return l.scanNumber(start)
	case ch == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1]):
		return l.scanNumber(start)
	case ch == '\'':
		return l.scanString(start)
	}

	l.pos++
	switch ch {
	case '=':
		return Token{Type: TokenEq, Value: "=", Pos: start}, nil
	case '<':
		if l.pos < len(l.input) {
			switch l.input[l.pos] {
			case '>':
				l.pos++
				return Token{Type: TokenNeq, Value: "<>", Pos: start}, nil
			case '=':
				l.pos++
				return Token{Type: TokenLe, Value: "<=", Pos: start}, nil
			}
		}
		return Token{Type: TokenLt, Value: "<", Pos: start}, nil
	case '>':
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return Token{Type: TokenGe, Value: ">=", Pos: start}, nil
		}
		return Token{Type: TokenGt, Value: ">", Pos: start}, nil
	case '+':
		return Token{Type: TokenPlus, Value: "+", Pos: start}, nil
	case '-':
		return Token{Type: TokenMinus, Value: "-", Pos: start}, nil
	case '*':
		return Token{Type: TokenStar, Value: "*", Pos: start}, nil
	case '/':
		return Token{Type: TokenSlash, Value: "/", Pos: start}, nil
	case '(':
		return Token{Type: TokenLParen, Value: "(", Pos: start}, nil
	case ')':
		return Token{Type: TokenRParen, Value: ")", Pos: start}, nil
	case ',':
		return Token{Type: TokenComma, Value: ",", Pos: start}, nil
	case '.':
		return Token{Type: TokenDot, Value: ".", Pos: start}, nil
	}
	l.pos = start
	return Token{}, &LexError{Msg: fmt.Sprintf("unexpected character %q", ch), Pos: start}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\r', '\n':
			l.pos++
		default:
			return
		}
	}
}

// scanWord reads an identifier or reserved word. Identifier segments may be
// chained with dots (payload.temperature) so nested message fields resolve
// as a single name.
func (l *Lexer) scanWord(start int) Token {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isIdentPart(ch) {
			l.pos++
			continue
		}
		if ch == '.' && l.pos+1 < len(l.input) && isIdentStart(l.input[l.pos+1]) {
			l.pos += 2
			continue
		}
		break
	}
	word := l.input[start:l.pos]
	if typ, ok := reservedWords[strings.ToUpper(word)]; ok {
		return Token{Type: typ, Value: word, Pos: start}
	}
	return Token{Type: TokenIdent, Value: word, Pos: start}
}

// scanNumber reads an exact (integer) or approximate (decimal point or
// exponent) numeric literal.
func (l *Lexer) scanNumber(start int) (Token, error) {
	typ := TokenInt
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		typ = TokenFloat
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		typ = TokenFloat
		l.pos++
		if l.pos < len(l.input) && (l.input[l.pos] == '+' || l.input[l.pos] == '-') {
			l.pos++
		}
		if l.pos >= len(l.input) || !isDigit(l.input[l.pos]) {
			return Token{}, &LexError{Msg: fmt.Sprintf("malformed numeric literal %q", l.input[start:l.pos]), Pos: start}
		}
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	return Token{Type: typ, Value: l.input[start:l.pos], Pos: start}, nil
}

// scanString reads a single-quoted string literal. A doubled quote inside
// the literal stands for one quote character.
func (l *Lexer) scanString(start int) (Token, error) {
	var sb strings.Builder
	l.pos++
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\'' {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '\'' {
				sb.WriteByte('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return Token{Type: TokenString, Value: sb.String(), Pos: start}, nil
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return Token{}, &LexError{Msg: "unterminated string literal", Pos: start}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
