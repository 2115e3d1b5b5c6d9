package vm

import (
	"math"
	"strings"

	"gecko/pkg/diag"
)

// MaxStringLen bounds strings built by repetition, in bytes
const MaxStringLen int64 = 1 << 26

type ruleKey struct {
	left  ValueKind
	op    string
	right ValueKind
}

type binaryFn func(addr diag.Address, a, b Value) (Value, *Flow)

// binaryRules maps (left kind, operator, right kind) to an implementation.
// == and != are handled before the table since they accept any pair.
var binaryRules = make(map[ruleKey]binaryFn)

func rule(left ValueKind, op string, right ValueKind, fn binaryFn) {
	binaryRules[ruleKey{left, op, right}] = fn
}

func init() {
	for _, op := range []string{"+", "-", "*", "/", "%", "<", "<=", ">", ">="} {
		rule(KindInt, op, KindInt, intArith(op))
		rule(KindFloat, op, KindFloat, floatArith(op))
		rule(KindInt, op, KindFloat, promoted(op))
		rule(KindFloat, op, KindInt, promoted(op))
	}

	rule(KindString, "+", KindString, func(_ diag.Address, a, b Value) (Value, *Flow) {
		return NewString(a.Str + b.Str), nil
	})
	rule(KindString, "*", KindInt, func(addr diag.Address, a, b Value) (Value, *Flow) {
		if b.I64 < 0 {
			return Nil, raise(diag.Runtime, addr, "negative repeat count: %d", b.I64)
		}
		if a.Str == "" {
			return a, nil
		}
		if b.I64 > MaxStringLen/int64(len(a.Str)) {
			return Nil, raise(diag.Runtime, addr, "repeat result too large: %d x %d bytes", b.I64, len(a.Str))
		}
		return NewString(strings.Repeat(a.Str, int(b.I64))), nil
	})
	for _, op := range []string{"<", "<=", ">", ">="} {
		rule(KindString, op, KindString, stringCompare(op))
	}

	rule(KindBool, "and", KindBool, func(_ diag.Address, a, b Value) (Value, *Flow) {
		return NewBool(a.Bool && b.Bool), nil
	})
	rule(KindBool, "or", KindBool, func(_ diag.Address, a, b Value) (Value, *Flow) {
		return NewBool(a.Bool || b.Bool), nil
	})
}

func intArith(op string) binaryFn {
	return func(addr diag.Address, a, b Value) (Value, *Flow) {
		x, y := a.I64, b.I64
		switch op {
		case "+":
			return NewInt(x + y), nil
		case "-":
			return NewInt(x - y), nil
		case "*":
			return NewInt(x * y), nil
		case "/":
			if y == 0 {
				return Nil, raise(diag.Runtime, addr, "division by zero")
			}
			return NewInt(x / y), nil
		case "%":
			if y == 0 {
				return Nil, raise(diag.Runtime, addr, "division by zero")
			}
			return NewInt(x % y), nil
		default:
			return compare(op, cmpInt(x, y)), nil
		}
	}
}

func floatArith(op string) binaryFn {
	return func(_ diag.Address, a, b Value) (Value, *Flow) {
		x, y := a.F64, b.F64
		switch op {
		case "+":
			return NewFloat(x + y), nil
		case "-":
			return NewFloat(x - y), nil
		case "*":
			return NewFloat(x * y), nil
		case "/":
			return NewFloat(x / y), nil
		case "%":
			return NewFloat(math.Mod(x, y)), nil
		default:
			return compareFloat(op, x, y), nil
		}
	}
}

// promoted applies the float rule after widening the int operand
func promoted(op string) binaryFn {
	fn := floatArith(op)
	return func(addr diag.Address, a, b Value) (Value, *Flow) {
		return fn(addr, toFloat(a), toFloat(b))
	}
}

func stringCompare(op string) binaryFn {
	return func(_ diag.Address, a, b Value) (Value, *Flow) {
		return compare(op, strings.Compare(a.Str, b.Str)), nil
	}
}

func toFloat(v Value) Value {
	if v.Kind == KindInt {
		return NewFloat(float64(v.I64))
	}
	return v
}

func cmpInt(x, y int64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func compare(op string, c int) Value {
	switch op {
	case "<":
		return NewBool(c < 0)
	case "<=":
		return NewBool(c <= 0)
	case ">":
		return NewBool(c > 0)
	default:
		return NewBool(c >= 0)
	}
}

// compareFloat keeps IEEE semantics: every ordering against NaN is false
func compareFloat(op string, x, y float64) Value {
	switch op {
	case "<":
		return NewBool(x < y)
	case "<=":
		return NewBool(x <= y)
	case ">":
		return NewBool(x > y)
	default:
		return NewBool(x >= y)
	}
}

// evalBinary evaluates a binary operation on two Values
func evalBinary(addr diag.Address, op string, a, b Value) (Value, *Flow) {
	switch op {
	case "==":
		return NewBool(Equal(a, b)), nil
	case "!=":
		return NewBool(!Equal(a, b)), nil
	}

	fn, ok := binaryRules[ruleKey{a.Kind, op, b.Kind}]
	if !ok {
		return Nil, errorFlow(diag.New(diag.Type, addr,
			"unsupported operand types for "+op+": "+a.TypeName()+" and "+b.TypeName(),
			"convert one operand so both sides have compatible types."))
	}

	return fn(addr, a, b)
}

// evalUnary evaluates neg and not
func evalUnary(addr diag.Address, op string, v Value) (Value, *Flow) {
	if op == "not" {
		return NewBool(!v.Truthy()), nil
	}

	switch v.Kind {
	case KindInt:
		return NewInt(-v.I64), nil
	case KindFloat:
		return NewFloat(-v.F64), nil
	default:
		return Nil, errorFlow(diag.New(diag.Type, addr,
			"unsupported operand type for neg: "+v.TypeName(), ""))
	}
}
