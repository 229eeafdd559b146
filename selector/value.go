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
	"strconv"
	"strings"
)

// Tristate is the result of evaluating a selector predicate. Unknown arises
// from missing properties and failed coercions and never delivers a message.
type Tristate int

const (
	Unknown Tristate = iota
	False
	True
)

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

func tristateOf(b bool) Tristate {
	if b {
		return True
	}
	return False
}

// not preserves Unknown and flips the definite states.
func (t Tristate) not() Tristate {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

type valueKind int

const (
	kindUnknown valueKind = iota
	kindBool
	kindInt
	kindFloat
	kindString
)

// value is the currency of expression evaluation. Exact numerics are int64,
// approximate numerics float64. Identifiers enter as strings and coerce at
// the operator that consumes them.
type value struct {
	kind valueKind
	b    bool
	i    int64
	f    float64
	s    string
}

func unknownVal() value         { return value{kind: kindUnknown} }
func boolVal(b bool) value      { return value{kind: kindBool, b: b} }
func intVal(i int64) value      { return value{kind: kindInt, i: i} }
func floatVal(f float64) value  { return value{kind: kindFloat, f: f} }
func stringVal(s string) value  { return value{kind: kindString, s: s} }
func (v value) isUnknown() bool { return v.kind == kindUnknown }

// truth reads a value in boolean position. Numbers have no truth value.
func truth(v value) Tristate {
	switch v.kind {
	case kindBool:
		return tristateOf(v.b)
	case kindString:
		if b, ok := parseBool(v.s); ok {
			return tristateOf(b)
		}
	}
	return Unknown
}

func parseBool(s string) (bool, bool) {
	if strings.EqualFold(s, "true") {
		return true, true
	}
	if strings.EqualFold(s, "false") {
		return false, true
	}
	return false, false
}

// numeric coerces a value for an arithmetic or ordering operator. Strings
// parse as exact first, then approximate.
func numeric(v value) (value, bool) {
	switch v.kind {
	case kindInt, kindFloat:
		return v, true
	case kindString:
		if i, err := strconv.ParseInt(v.s, 10, 64); err == nil {
			return intVal(i), true
		}
		if f, err := strconv.ParseFloat(v.s, 64); err == nil {
			return floatVal(f), true
		}
	}
	return unknownVal(), false
}

// compareEq implements = and, negated, <>. Equality is string against
// string unless one operand forces a numeric or boolean reading of the
// other; incompatible kinds yield Unknown.
func compareEq(a, b value) Tristate {
	if a.isUnknown() || b.isUnknown() {
		return Unknown
	}
	if a.kind == kindBool || b.kind == kindBool {
		return compareBoolEq(a, b)
	}
	if a.kind == kindInt || a.kind == kindFloat || b.kind == kindInt || b.kind == kindFloat {
		na, aok := numeric(a)
		nb, bok := numeric(b)
		if !aok || !bok {
			return Unknown
		}
		if na.kind == kindInt && nb.kind == kindInt {
			return tristateOf(na.i == nb.i)
		}
		return tristateOf(toFloat(na) == toFloat(nb))
	}
	return tristateOf(a.s == b.s)
}

func compareBoolEq(a, b value) Tristate {
	ba, aok := coerceBool(a)
	bb, bok := coerceBool(b)
	if !aok || !bok {
		return Unknown
	}
	return tristateOf(ba == bb)
}

func coerceBool(v value) (bool, bool) {
	switch v.kind {
	case kindBool:
		return v.b, true
	case kindString:
		return parseBool(v.s)
	}
	return false, false
}

// compareOrder implements < <= > >=. Ordering is numeric only.
func compareOrder(op BinaryOp, a, b value) Tristate {
	na, aok := numeric(a)
	nb, bok := numeric(b)
	if !aok || !bok {
		return Unknown
	}
	var cmp int
	if na.kind == kindInt && nb.kind == kindInt {
		switch {
		case na.i < nb.i:
			cmp = -1
		case na.i > nb.i:
			cmp = 1
		}
	} else {
		fa, fb := toFloat(na), toFloat(nb)
		switch {
		case fa < fb:
			cmp = -1
		case fa > fb:
			cmp = 1
		}
	}
	switch op {
	case OpLt:
		return tristateOf(cmp < 0)
	case OpLe:
		return tristateOf(cmp <= 0)
	case OpGt:
		return tristateOf(cmp > 0)
	default:
		return tristateOf(cmp >= 0)
	}
}

// arith implements + - * /. Two exact operands stay exact; division by zero
// yields Unknown in both the exact and approximate domains.
func arith(op BinaryOp, a, b value) value {
	na, aok := numeric(a)
	nb, bok := numeric(b)
	if !aok || !bok {
		return unknownVal()
	}
	if na.kind == kindInt && nb.kind == kindInt {
		switch op {
		case OpAdd:
			return intVal(na.i + nb.i)
		case OpSub:
			return intVal(na.i - nb.i)
		case OpMul:
			return intVal(na.i * nb.i)
		default:
			if nb.i == 0 {
				return unknownVal()
			}
			return intVal(na.i / nb.i)
		}
	}
	fa, fb := toFloat(na), toFloat(nb)
	switch op {
	case OpAdd:
		return floatVal(fa + fb)
	case OpSub:
		return floatVal(fa - fb)
	case OpMul:
		return floatVal(fa * fb)
	default:
		if fb == 0 {
			return unknownVal()
		}
		return floatVal(fa / fb)
	}
}

// negate implements unary minus.
func negate(v value) value {
	n, ok := numeric(v)
	if !ok {
		return unknownVal()
	}
	if n.kind == kindInt {
		return intVal(-n.i)
	}
	return floatVal(-n.f)
}

func toFloat(v value) float64 {
	if v.kind == kindInt {
		return float64(v.i)
	}
	return v.f
}
