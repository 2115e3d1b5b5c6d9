package vm

import (
	"math"
	"strings"
	"testing"

	"gecko/pkg/diag"
)

func TestEvalBinary(t *testing.T) {
	tests := []struct {
		left     Value
		op       string
		right    Value
		expected Value
	}{
		{NewInt(7), "+", NewInt(5), NewInt(12)},
		{NewInt(7), "-", NewInt(5), NewInt(2)},
		{NewInt(7), "*", NewInt(5), NewInt(35)},
		{NewInt(7), "/", NewInt(2), NewInt(3)},
		{NewInt(7), "%", NewInt(5), NewInt(2)},
		{NewInt(1), "+", NewFloat(0.5), NewFloat(1.5)},
		{NewFloat(3), "/", NewInt(2), NewFloat(1.5)},
		{NewFloat(1), "/", NewFloat(0), NewFloat(math.Inf(1))},
		{NewInt(2), "<", NewInt(3), NewBool(true)},
		{NewInt(3), "<=", NewFloat(3), NewBool(true)},
		{NewFloat(2.5), ">", NewInt(3), NewBool(false)},
		{NewString("ab"), "+", NewString("cd"), NewString("abcd")},
		{NewString("ab"), "*", NewInt(3), NewString("ababab")},
		{NewString("a"), "<", NewString("b"), NewBool(true)},
		{NewBool(true), "and", NewBool(false), NewBool(false)},
		{NewBool(true), "or", NewBool(false), NewBool(true)},
		{NewInt(1), "==", NewFloat(1), NewBool(true)},
		{NewInt(1), "==", NewString("1"), NewBool(false)},
		{Nil, "==", Nil, NewBool(true)},
		{NewString("x"), "!=", NewString("x"), NewBool(false)},
	}

	for _, test := range tests {
		got, flow := evalBinary(diag.Address{}, test.op, test.left, test.right)
		if flow != nil {
			t.Errorf("%s %s %s: unexpected signal %s", test.left.Inspect(), test.op, test.right.Inspect(), flow)
			continue
		}
		if got.Kind != test.expected.Kind || !Equal(got, test.expected) {
			t.Errorf("%s %s %s: expected %s, got %s", test.left.Inspect(), test.op, test.right.Inspect(), test.expected.Inspect(), got.Inspect())
		}
	}
}

func TestEvalBinaryErrors(t *testing.T) {
	tests := []struct {
		left     Value
		op       string
		right    Value
		kind     diag.Kind
		contains string
	}{
		{NewInt(1), "+", NewString("a"), diag.Type, "unsupported operand types for +: int and string"},
		{NewString("a"), "-", NewString("b"), diag.Type, "for -: string and string"},
		{NewInt(1), "/", NewInt(0), diag.Runtime, "division by zero"},
		{NewInt(1), "%", NewInt(0), diag.Runtime, "division by zero"},
		{NewString("a"), "*", NewInt(-1), diag.Runtime, "negative repeat count"},
		{NewString("ab"), "*", NewInt(5_000_000_000_000_000_000), diag.Runtime, "repeat result too large"},
		{NewString("ab"), "*", NewInt(MaxStringLen/2 + 1), diag.Runtime, "repeat result too large"},
		{NewInt(1), "and", NewBool(true), diag.Type, "int and bool"},
	}

	for _, test := range tests {
		_, flow := evalBinary(diag.Address{}, test.op, test.left, test.right)
		if flow == nil || flow.Kind != FlowError {
			t.Errorf("%s %s %s: expected an error", test.left.Inspect(), test.op, test.right.Inspect())
			continue
		}
		if flow.Err.Kind != test.kind || !strings.Contains(flow.Err.Message, test.contains) {
			t.Errorf("%s %s %s: unexpected error %v", test.left.Inspect(), test.op, test.right.Inspect(), flow.Err)
		}
	}
}

func TestRepeatLimit(t *testing.T) {
	got, flow := evalBinary(diag.Address{}, "*", NewString("ab"), NewInt(MaxStringLen/2))
	if flow != nil {
		t.Fatalf("a repeat at the limit should succeed: %v", flow)
	}
	if int64(len(got.Str)) != MaxStringLen {
		t.Errorf("expected %d bytes, got %d", MaxStringLen, len(got.Str))
	}

	got, flow = evalBinary(diag.Address{}, "*", NewString(""), NewInt(5_000_000_000_000_000_000))
	if flow != nil || got.Str != "" {
		t.Errorf("repeating an empty string is always empty, got %s %v", got.Inspect(), flow)
	}
}

func TestEvalUnary(t *testing.T) {
	if got, _ := evalUnary(diag.Address{}, "neg", NewInt(3)); got.I64 != -3 {
		t.Errorf("neg 3: got %s", got)
	}
	if got, _ := evalUnary(diag.Address{}, "neg", NewFloat(1.5)); got.F64 != -1.5 {
		t.Errorf("neg 1.5: got %s", got)
	}
	if got, _ := evalUnary(diag.Address{}, "not", NewString("")); !got.Bool {
		t.Errorf("not \"\": got %s", got)
	}
	if _, flow := evalUnary(diag.Address{}, "neg", NewString("x")); flow == nil || flow.Err.Kind != diag.Type {
		t.Error("neg on a string should be a type error")
	}
}
