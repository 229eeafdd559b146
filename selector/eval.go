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

// evalBool evaluates an expression in boolean position. AND is
// False-dominant, OR is True-dominant, NOT preserves Unknown, and IS [NOT]
// NULL is the only construct that maps absence onto a definite state.
func evalBool(e Expr, env Env) Tristate {
	switch n := e.(type) {
	case *BinaryExpr:
		switch n.Op {
		case OpAnd:
			left := evalBool(n.Left, env)
			if left == False {
				return False
			}
			right := evalBool(n.Right, env)
			if right == False {
				return False
			}
			if left == True && right == True {
				return True
			}
			return Unknown
		case OpOr:
			left := evalBool(n.Left, env)
			if left == True {
				return True
			}
			right := evalBool(n.Right, env)
			if right == True {
				return True
			}
			if left == False && right == False {
				return False
			}
			return Unknown
		case OpEq:
			return compareEq(evalExpr(n.Left, env), evalExpr(n.Right, env))
		case OpNeq:
			return compareEq(evalExpr(n.Left, env), evalExpr(n.Right, env)).not()
		case OpLt, OpLe, OpGt, OpGe:
			return compareOrder(n.Op, evalExpr(n.Left, env), evalExpr(n.Right, env))
		default:
			return truth(evalExpr(e, env))
		}
	case *UnaryExpr:
		if n.Op == OpNot {
			return evalBool(n.X, env).not()
		}
		return truth(evalExpr(e, env))
	case *BetweenExpr:
		v := evalExpr(n.X, env)
		res := and3(
			compareOrder(OpGe, v, evalExpr(n.Low, env)),
			compareOrder(OpLe, v, evalExpr(n.High, env)),
		)
		if n.Negated {
			return res.not()
		}
		return res
	case *InExpr:
		v := evalExpr(n.X, env)
		res := False
		for _, elem := range n.List {
			switch compareEq(v, evalExpr(elem, env)) {
			case True:
				res = True
			case Unknown:
				if res == False {
					res = Unknown
				}
			}
			if res == True {
				break
			}
		}
		if n.Negated {
			return res.not()
		}
		return res
	case *LikeExpr:
		v := evalExpr(n.X, env)
		if v.kind != kindString || n.matcher == nil {
			return Unknown
		}
		res := tristateOf(n.matcher.MatchString(v.s))
		if n.Negated {
			return res.not()
		}
		return res
	case *IsNullExpr:
		res := tristateOf(evalExpr(n.X, env).isUnknown())
		if n.Negated {
			return res.not()
		}
		return res
	default:
		return truth(evalExpr(e, env))
	}
}

// evalExpr evaluates an expression in value position. Identifiers resolve
// through the environment as strings; absence is Unknown.
func evalExpr(e Expr, env Env) value {
	switch n := e.(type) {
	case *Identifier:
		if !env.Present(n.Name) {
			return unknownVal()
		}
		return stringVal(env.Value(n.Name))
	case *StringLit:
		return stringVal(n.Value)
	case *IntLit:
		return intVal(n.Value)
	case *FloatLit:
		return floatVal(n.Value)
	case *BoolLit:
		return boolVal(n.Value)
	case *UnaryExpr:
		if n.Op == OpNeg {
			return negate(evalExpr(n.X, env))
		}
		return fromTristate(evalBool(e, env))
	case *BinaryExpr:
		switch n.Op {
		case OpAdd, OpSub, OpMul, OpDiv:
			return arith(n.Op, evalExpr(n.Left, env), evalExpr(n.Right, env))
		}
		return fromTristate(evalBool(e, env))
	default:
		return fromTristate(evalBool(e, env))
	}
}

func and3(a, b Tristate) Tristate {
	if a == False || b == False {
		return False
	}
	if a == True && b == True {
		return True
	}
	return Unknown
}

func fromTristate(t Tristate) value {
	switch t {
	case True:
		return boolVal(true)
	case False:
		return boolVal(false)
	default:
		return unknownVal()
	}
}
