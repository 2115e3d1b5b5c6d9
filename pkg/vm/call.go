package vm

import (
	"fmt"

	"gecko/pkg/chunk"
	"gecko/pkg/diag"
)

const selfName = "self"

// closure bundles a function prototype with the frame live at its definition
func closure(proto *chunk.FuncProto, frame *Frame) *Callable {
	return &Callable{
		Name:     proto.Name,
		Params:   proto.Params,
		Body:     proto.Body,
		Captured: frame,
	}
}

// defineType builds a type descriptor; methods capture the defining frame
func defineType(proto *chunk.TypeProto, frame *Frame) *Type {
	t := &Type{
		Name:    proto.Name,
		Fields:  proto.Fields,
		Methods: make(map[string]*Callable, len(proto.Methods)),
	}
	for _, m := range proto.Methods {
		t.Methods[m.Name] = closure(m, frame)
	}
	return t
}

// call dispatches on the callee kind
func (vm *VM) call(addr diag.Address, callee Value, args []Value) (Value, *Flow) {
	switch callee.Kind {
	case KindCallable:
		return vm.invoke(addr, callee.Fn, args, nil)
	case KindBuiltin:
		return vm.callBuiltin(addr, callee.Native, args)
	case KindType:
		return Nil, raise(diag.Type, addr, "type %s is not callable; construct it with new", callee.Type.Name)
	default:
		return Nil, raise(diag.Type, addr, "value of type %s is not callable", callee.TypeName())
	}
}

// invoke runs fn in a fresh frame. Arity is checked before anything is
// bound. The frame's closure is the captured frame; for method calls its
// root is the receiver's field frame and self is bound locally. A return
// signal ends here and becomes the result; every other signal propagates to
// the caller unchanged.
func (vm *VM) invoke(addr diag.Address, fn *Callable, args []Value, self *Instance) (Value, *Flow) {
	if len(args) != len(fn.Params) {
		return Nil, errorFlow(diag.New(diag.Argument, addr,
			fmt.Sprintf("%s expected %d arguments, got %d", fn.Name, len(fn.Params), len(args)),
			"check the call site against the definition."))
	}

	if vm.depth >= vm.maxDepth {
		return Nil, errorFlow(diag.Wrap(diag.Runtime, addr, ErrMaxDepthExceeded, "check for unbounded recursion."))
	}

	frame := NewChildFrame(fn.Captured)
	if self != nil {
		if err := frame.SetRoot(addr, self.Fields); err != nil {
			return Nil, failure(addr, err)
		}
		if err := frame.Define(addr, selfName, NewInstanceValue(self)); err != nil {
			return Nil, failure(addr, err)
		}
	}
	for i, p := range fn.Params {
		if err := frame.Define(addr, p, args[i]); err != nil {
			return Nil, failure(addr, err)
		}
	}

	vm.depth++
	base := vm.stack.Size()
	flow := vm.exec(fn.Body, frame)
	vm.stack.Truncate(base)
	vm.depth--

	if flow == nil {
		return Nil, nil
	}

	if flow.Kind == FlowReturn {
		return flow.Value, nil
	}
	return Nil, flow
}

func (vm *VM) callBuiltin(addr diag.Address, b *Builtin, args []Value) (Value, *Flow) {
	if b.Arity >= 0 && len(args) != b.Arity {
		return Nil, errorFlow(diag.New(diag.Argument, addr,
			fmt.Sprintf("%s expected %d arguments, got %d", b.Name, b.Arity, len(args)), ""))
	}

	res, err := b.Fn(vm, addr, args)
	if err != nil {
		return Nil, failure(addr, err)
	}

	return res, nil
}

// callMethod resolves name on the receiver's type and invokes it bound to
// the receiver
func (vm *VM) callMethod(addr diag.Address, receiver Value, name string, args []Value) (Value, *Flow) {
	if receiver.Kind != KindInstance {
		return Nil, raise(diag.Type, addr, "cannot call method %s on %s", name, receiver.TypeName())
	}

	inst := receiver.Inst
	m, ok := inst.Type.Method(name)
	if !ok {
		return Nil, errorFlow(diag.New(diag.Runtime, addr,
			fmt.Sprintf("not found: %s.%s", inst.Type.Name, name),
			"check the type's method names."))
	}

	return vm.invoke(addr, m, args, inst)
}

// construct allocates an instance: a fresh unlinked field frame with every
// declared field bound to nil, then init (if defined) runs as a method on it
func (vm *VM) construct(addr diag.Address, typ Value, args []Value) (Value, *Flow) {
	if typ.Kind != KindType {
		return Nil, raise(diag.Type, addr, "cannot construct %s; new needs a type", typ.TypeName())
	}

	t := typ.Type
	fields := NewFrame()
	for _, name := range t.Fields {
		if err := fields.Define(addr, name, Nil); err != nil {
			return Nil, failure(addr, err)
		}
	}
	inst := &Instance{Type: t, Fields: fields}

	if init, ok := t.Method("init"); ok {
		if _, flow := vm.invoke(addr, init, args, inst); flow != nil {
			return Nil, flow
		}
	} else if len(args) > 0 {
		return Nil, errorFlow(diag.New(diag.Argument, addr,
			fmt.Sprintf("%s takes no arguments, got %d", t.Name, len(args)),
			"define an init method to accept constructor arguments."))
	}

	return NewInstanceValue(inst), nil
}

func (vm *VM) getField(addr diag.Address, target Value, name string) (Value, *Flow) {
	if target.Kind != KindInstance {
		return Nil, raise(diag.Type, addr, "cannot read field %s of %s", name, target.TypeName())
	}

	v, err := target.Inst.Fields.Lookup(addr, name)
	if err != nil {
		return Nil, failure(addr, err)
	}
	return v, nil
}

// setField writes an instance field, creating it when absent
func (vm *VM) setField(addr diag.Address, target Value, name string, v Value) *Flow {
	if target.Kind != KindInstance {
		return raise(diag.Type, addr, "cannot set field %s of %s", name, target.TypeName())
	}

	fields := target.Inst.Fields
	if fields.Has(name) {
		if err := fields.Set(addr, name, v); err != nil {
			return failure(addr, err)
		}
		return nil
	}

	if err := fields.Define(addr, name, v); err != nil {
		return failure(addr, err)
	}
	return nil
}
