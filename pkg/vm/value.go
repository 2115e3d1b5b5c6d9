package vm

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gecko/pkg/chunk"
	"gecko/pkg/diag"
)

type ValueKind int

const (
	KindNil ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindType
	KindInstance
	KindCallable
	KindBuiltin
)

func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindType:
		return "type"
	case KindInstance:
		return "instance"
	case KindCallable:
		return "function"
	case KindBuiltin:
		return "builtin"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value represents a dynamically-typed value in the virtual machine.
// Exactly one payload field is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	I64  int64
	F64  float64
	Bool bool
	Str  string

	Type   *Type
	Inst   *Instance
	Fn     *Callable
	Native *Builtin
}

// Nil is the unit value.
var Nil = Value{}

// Type is a user-defined type descriptor.
type Type struct {
	Name    string
	Fields  []string
	Methods map[string]*Callable
}

// Method resolves a method by name
func (t *Type) Method(name string) (*Callable, bool) {
	m, ok := t.Methods[name]
	return m, ok
}

// Instance is an object of a user-defined type. Values holding the same
// *Instance alias it: field writes through one are seen by all.
type Instance struct {
	Type   *Type
	Fields *Frame
}

// Callable is a function body bundled with the frame live at its definition.
type Callable struct {
	Name     string
	Params   []string
	Body     *chunk.Chunk
	Captured *Frame
}

// BuiltinFunc implements a host function. Returned errors that are not
// *diag.Error are reported as runtime errors at the call site.
type BuiltinFunc func(vm *VM, addr diag.Address, args []Value) (Value, error)

// Builtin is a function implemented by the host. Arity -1 accepts any count.
type Builtin struct {
	Name  string
	Arity int
	Fn    BuiltinFunc
}

func NewInt(i int64) Value {
	return Value{Kind: KindInt, I64: i}
}

func NewFloat(f float64) Value {
	return Value{Kind: KindFloat, F64: f}
}

func NewBool(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

func NewString(s string) Value {
	return Value{Kind: KindString, Str: s}
}

func NewTypeValue(t *Type) Value {
	return Value{Kind: KindType, Type: t}
}

func NewInstanceValue(inst *Instance) Value {
	return Value{Kind: KindInstance, Inst: inst}
}

func NewCallableValue(fn *Callable) Value {
	return Value{Kind: KindCallable, Fn: fn}
}

func NewBuiltinValue(b *Builtin) Value {
	return Value{Kind: KindBuiltin, Native: b}
}

// FromConstant converts a chunk literal into a runtime value
func FromConstant(c chunk.Constant) Value {
	switch c.Kind {
	case chunk.ConstInt:
		return NewInt(c.Int)
	case chunk.ConstFloat:
		return NewFloat(c.Float)
	case chunk.ConstBool:
		return NewBool(c.Bool)
	case chunk.ConstString:
		return NewString(c.Str)
	default:
		return Nil
	}
}

// TypeName names the value's type; instances report their user type.
func (v Value) TypeName() string {
	if v.Kind == KindInstance && v.Inst != nil && v.Inst.Type != nil {
		return v.Inst.Type.Name
	}
	return v.Kind.String()
}

// String renders the value the way println shows it.
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		if math.IsInf(v.F64, 0) || math.IsNaN(v.F64) {
			return strconv.FormatFloat(v.F64, 'g', -1, 64)
		}
		if v.F64 == math.Trunc(v.F64) && math.Abs(v.F64) < 1e15 {
			return strconv.FormatFloat(v.F64, 'f', 1, 64)
		}
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindString:
		return v.Str
	case KindType:
		return fmt.Sprintf("<type %s>", v.Type.Name)
	case KindInstance:
		return fmt.Sprintf("<%s instance>", v.Inst.Type.Name)
	case KindCallable:
		return fmt.Sprintf("<function %s/%d>", v.Fn.Name, len(v.Fn.Params))
	case KindBuiltin:
		return fmt.Sprintf("<builtin %s>", v.Native.Name)
	default:
		return "<invalid>"
	}
}

// Inspect renders the value for diagnostics: strings are quoted and
// instances list their fields. An instance already being rendered further
// up shows as <T instance>.
func (v Value) Inspect() string {
	return v.inspect(make(map[*Instance]bool))
}

func (v Value) inspect(seen map[*Instance]bool) string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.Str)
	case KindInstance:
		if seen[v.Inst] {
			return v.String()
		}
		seen[v.Inst] = true
		defer delete(seen, v.Inst)

		names := v.Inst.Fields.Names()
		parts := make([]string, 0, len(names))
		for _, n := range names {
			fv, _ := v.Inst.Fields.local(n)
			parts = append(parts, n+": "+fv.inspect(seen))
		}
		return fmt.Sprintf("%s{%s}", v.Inst.Type.Name, strings.Join(parts, ", "))
	case KindType:
		names := make([]string, 0, len(v.Type.Methods))
		for n := range v.Type.Methods {
			names = append(names, n)
		}
		sort.Strings(names)
		return fmt.Sprintf("<type %s methods=[%s]>", v.Type.Name, strings.Join(names, " "))
	default:
		return v.String()
	}
}

// Truthy reports whether the value counts as true in conditions.
// nil, false, 0, 0.0 and "" are falsy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNil:
		return false
	case KindBool:
		return v.Bool
	case KindInt:
		return v.I64 != 0
	case KindFloat:
		return v.F64 != 0
	case KindString:
		return v.Str != ""
	default:
		return true
	}
}

// Equal compares primitives structurally and everything else by identity.
// Ints and floats compare numerically.
func Equal(a, b Value) bool {
	switch {
	case a.Kind == KindInt && b.Kind == KindFloat:
		return float64(a.I64) == b.F64
	case a.Kind == KindFloat && b.Kind == KindInt:
		return a.F64 == float64(b.I64)
	case a.Kind != b.Kind:
		return false
	}

	switch a.Kind {
	case KindNil:
		return true
	case KindInt:
		return a.I64 == b.I64
	case KindFloat:
		return a.F64 == b.F64
	case KindBool:
		return a.Bool == b.Bool
	case KindString:
		return a.Str == b.Str
	case KindType:
		return a.Type == b.Type
	case KindInstance:
		return a.Inst == b.Inst
	case KindCallable:
		return a.Fn == b.Fn
	case KindBuiltin:
		return a.Native == b.Native
	default:
		return false
	}
}
