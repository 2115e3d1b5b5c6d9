package chunk

import (
	"fmt"

	"gecko/pkg/diag"
)

// Verify checks the structural contract the VM relies on: every operation
// is known, carries the operands its kind needs, jump targets stay inside
// their own chunk, and nested bodies are themselves well formed.
func Verify(c *Chunk) error {
	if c == nil {
		return malformed(diag.Address{}, "nil chunk")
	}

	for idx, in := range c.Code {
		if err := verifyInstruction(c, idx, in); err != nil {
			return err
		}
	}

	return nil
}

func verifyInstruction(c *Chunk, idx int, in Instruction) error {
	switch in.Op {
	case OpPop, OpDup, OpNeg, OpNot, OpRet, OpBreak, OpCont, OpRaise:
		return nil

	case OpPush:
		if in.Const == nil {
			return malformed(in.Addr, "push without constant at %d", idx)
		}
		if in.Const.Kind < ConstNil || in.Const.Kind > ConstString {
			return malformed(in.Addr, "unknown constant kind %d", in.Const.Kind)
		}

	case OpBin:
		if !Operators[in.Operator] {
			return malformed(in.Addr, "unknown operator %q", in.Operator)
		}

	case OpDefine, OpGet, OpSet, OpGetAttr, OpSetAttr:
		if in.Name == "" {
			return malformed(in.Addr, "%s without a name at %d", in.Op, idx)
		}

	case OpJmp, OpJmpf:
		if in.Target < 0 || in.Target > len(c.Code) {
			return malformed(in.Addr, "jump target %d out of range [0, %d]", in.Target, len(c.Code))
		}

	case OpCall, OpNew:
		if in.Argc < 0 {
			return malformed(in.Addr, "negative argument count %d", in.Argc)
		}

	case OpCallM:
		if in.Name == "" {
			return malformed(in.Addr, "callm without a method name at %d", idx)
		}
		if in.Argc < 0 {
			return malformed(in.Addr, "negative argument count %d", in.Argc)
		}

	case OpFunc:
		return verifyFunc(in.Addr, in.Func)

	case OpType:
		return verifyType(in.Addr, in.Type)

	case OpBlock:
		if in.Body == nil {
			return malformed(in.Addr, "block without body")
		}
		return Verify(in.Body)

	case OpLoop:
		if in.Body == nil {
			return malformed(in.Addr, "loop without body")
		}
		if in.Cond != nil {
			if err := Verify(in.Cond); err != nil {
				return err
			}
		}
		return Verify(in.Body)

	case OpTry:
		if in.Body == nil || in.Handler == nil {
			return malformed(in.Addr, "try needs a body and a handler")
		}
		if in.Name == "" {
			return malformed(in.Addr, "try without an error binding")
		}
		if err := Verify(in.Body); err != nil {
			return err
		}
		return Verify(in.Handler)

	default:
		return malformed(in.Addr, "unknown operation %q", in.Op)
	}

	return nil
}

func verifyFunc(addr diag.Address, fn *FuncProto) error {
	if fn == nil || fn.Body == nil {
		return malformed(addr, "function without body")
	}

	seen := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		if p == "" {
			return malformed(addr, "function %s has an empty parameter name", fn.Name)
		}
		if seen[p] {
			return malformed(addr, "function %s declares parameter %s twice", fn.Name, p)
		}
		seen[p] = true
	}

	return Verify(fn.Body)
}

func verifyType(addr diag.Address, t *TypeProto) error {
	if t == nil || t.Name == "" {
		return malformed(addr, "type without a name")
	}

	fields := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if f == "" || fields[f] {
			return malformed(addr, "type %s has an empty or repeated field %q", t.Name, f)
		}
		fields[f] = true
	}

	methods := make(map[string]bool, len(t.Methods))
	for _, m := range t.Methods {
		if m == nil || m.Name == "" {
			return malformed(addr, "type %s has an unnamed method", t.Name)
		}
		if methods[m.Name] {
			return malformed(addr, "type %s defines method %s twice", t.Name, m.Name)
		}
		methods[m.Name] = true

		for _, p := range m.Params {
			if p == "self" {
				return malformed(addr, "method %s.%s may not name a parameter self", t.Name, m.Name)
			}
		}
		if err := verifyFunc(addr, m); err != nil {
			return err
		}
	}

	return nil
}

func malformed(addr diag.Address, format string, args ...any) error {
	cause := fmt.Errorf("%w: %s", diag.ErrMalformedChunk, fmt.Sprintf(format, args...))
	return diag.Wrap(diag.Internal, addr, cause, "the chunk was not produced by a conforming compiler.")
}
