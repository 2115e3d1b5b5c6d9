package vm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"gecko/pkg/diag"
)

var builtins = []*Builtin{
	{Name: "println", Arity: -1, Fn: builtinPrintln},
	{Name: "print", Arity: -1, Fn: builtinPrint},
	{Name: "type_of", Arity: 1, Fn: builtinTypeOf},
	{Name: "len", Arity: 1, Fn: builtinLen},
	{Name: "str", Arity: 1, Fn: builtinStr},
}

// NewGlobals creates the top-level frame with every builtin defined
func NewGlobals() *Frame {
	f := NewFrame()
	for _, b := range builtins {
		// names are unique, Define cannot fail here
		_ = f.Define(diag.Address{}, b.Name, NewBuiltinValue(b))
	}
	return f
}

func joinArgs(args []Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

func builtinPrintln(vm *VM, _ diag.Address, args []Value) (Value, error) {
	_, err := fmt.Fprintln(vm.out, joinArgs(args))
	return Nil, err
}

func builtinPrint(vm *VM, _ diag.Address, args []Value) (Value, error) {
	_, err := fmt.Fprint(vm.out, joinArgs(args))
	return Nil, err
}

func builtinTypeOf(_ *VM, _ diag.Address, args []Value) (Value, error) {
	return NewString(args[0].TypeName()), nil
}

func builtinLen(_ *VM, addr diag.Address, args []Value) (Value, error) {
	if args[0].Kind != KindString {
		return Nil, diag.Newf(diag.Type, addr, "len expects a string, got %s", args[0].TypeName())
	}
	return NewInt(int64(utf8.RuneCountInString(args[0].Str))), nil
}

func builtinStr(_ *VM, _ diag.Address, args []Value) (Value, error) {
	return NewString(args[0].String()), nil
}
