package vm

import (
	"gecko/pkg/chunk"
	"gecko/pkg/diag"
)

// exec is the dispatch loop: fetch, execute, advance unless the instruction
// set the instruction pointer itself. It returns the first signal produced.
func (vm *VM) exec(c *chunk.Chunk, frame *Frame) *Flow {
	ip := 0
	for ip < len(c.Code) {
		in := &c.Code[ip]

		if flow := vm.tick(in.Addr); flow != nil {
			return flow
		}
		if vm.trace {
			vm.traceStep(c, ip, in)
		}

		next, flow := vm.step(in, ip, frame)
		if flow != nil {
			return flow
		}
		ip = next
	}

	return nil
}

func (vm *VM) traceStep(c *chunk.Chunk, ip int, in *chunk.Instruction) {
	top := "-"
	if v, ok := vm.stack.Peek(); ok {
		top = v.Inspect()
	}
	vm.logger.Debug("exec", "chunk", c.Name, "ip", ip, "op", in.String(), "addr", in.Addr.String(), "depth", vm.stack.Size(), "top", top)
}

// step executes a single instruction and returns the next instruction pointer
func (vm *VM) step(in *chunk.Instruction, ip int, frame *Frame) (int, *Flow) {
	switch in.Op {
	case chunk.OpPush:
		vm.push(FromConstant(*in.Const))

	case chunk.OpPop:
		if _, flow := vm.pop(in.Addr); flow != nil {
			return ip, flow
		}

	case chunk.OpDup:
		v, flow := vm.pop(in.Addr)
		if flow != nil {
			return ip, flow
		}
		vm.push(v)
		vm.push(v)

	case chunk.OpBin:
		operands, flow := vm.popN(in.Addr, 2)
		if flow != nil {
			return ip, flow
		}
		res, flow := evalBinary(in.Addr, in.Operator, operands[0], operands[1])
		if flow != nil {
			return ip, flow
		}
		vm.push(res)

	case chunk.OpNeg, chunk.OpNot:
		v, flow := vm.pop(in.Addr)
		if flow != nil {
			return ip, flow
		}
		res, flow := evalUnary(in.Addr, string(in.Op), v)
		if flow != nil {
			return ip, flow
		}
		vm.push(res)

	case chunk.OpDefine:
		v, flow := vm.pop(in.Addr)
		if flow != nil {
			return ip, flow
		}
		if err := frame.Define(in.Addr, in.Name, v); err != nil {
			return ip, failure(in.Addr, err)
		}

	case chunk.OpGet:
		v, err := frame.Lookup(in.Addr, in.Name)
		if err != nil {
			return ip, failure(in.Addr, err)
		}
		vm.push(v)

	case chunk.OpSet:
		v, flow := vm.pop(in.Addr)
		if flow != nil {
			return ip, flow
		}
		if err := frame.Set(in.Addr, in.Name, v); err != nil {
			return ip, failure(in.Addr, err)
		}

	case chunk.OpGetAttr:
		target, flow := vm.pop(in.Addr)
		if flow != nil {
			return ip, flow
		}
		v, flow := vm.getField(in.Addr, target, in.Name)
		if flow != nil {
			return ip, flow
		}
		vm.push(v)

	case chunk.OpSetAttr:
		operands, flow := vm.popN(in.Addr, 2)
		if flow != nil {
			return ip, flow
		}
		if flow := vm.setField(in.Addr, operands[0], in.Name, operands[1]); flow != nil {
			return ip, flow
		}

	case chunk.OpJmp:
		return in.Target, nil

	case chunk.OpJmpf:
		cond, flow := vm.pop(in.Addr)
		if flow != nil {
			return ip, flow
		}
		if !cond.Truthy() {
			return in.Target, nil
		}

	case chunk.OpCall:
		args, flow := vm.popN(in.Addr, in.Argc)
		if flow != nil {
			return ip, flow
		}
		callee, flow := vm.pop(in.Addr)
		if flow != nil {
			return ip, flow
		}
		res, flow := vm.call(in.Addr, callee, args)
		if flow != nil {
			return ip, flow
		}
		vm.push(res)

	case chunk.OpCallM:
		args, flow := vm.popN(in.Addr, in.Argc)
		if flow != nil {
			return ip, flow
		}
		receiver, flow := vm.pop(in.Addr)
		if flow != nil {
			return ip, flow
		}
		res, flow := vm.callMethod(in.Addr, receiver, in.Name, args)
		if flow != nil {
			return ip, flow
		}
		vm.push(res)

	case chunk.OpNew:
		args, flow := vm.popN(in.Addr, in.Argc)
		if flow != nil {
			return ip, flow
		}
		typ, flow := vm.pop(in.Addr)
		if flow != nil {
			return ip, flow
		}
		inst, flow := vm.construct(in.Addr, typ, args)
		if flow != nil {
			return ip, flow
		}
		vm.push(inst)

	case chunk.OpFunc:
		vm.push(NewCallableValue(closure(in.Func, frame)))

	case chunk.OpType:
		vm.push(NewTypeValue(defineType(in.Type, frame)))

	case chunk.OpBlock:
		if flow := vm.block(in.Body, frame); flow != nil {
			return ip, flow
		}

	case chunk.OpLoop:
		if flow := vm.loop(in, frame); flow != nil {
			return ip, flow
		}

	case chunk.OpTry:
		if flow := vm.try(in, frame); flow != nil {
			return ip, flow
		}

	case chunk.OpRet:
		v, flow := vm.pop(in.Addr)
		if flow != nil {
			return ip, flow
		}
		return ip, &Flow{Kind: FlowReturn, Addr: in.Addr, Value: v}

	case chunk.OpBreak:
		return ip, &Flow{Kind: FlowBreak, Addr: in.Addr}

	case chunk.OpCont:
		return ip, &Flow{Kind: FlowContinue, Addr: in.Addr}

	case chunk.OpRaise:
		v, flow := vm.pop(in.Addr)
		if flow != nil {
			return ip, flow
		}
		return ip, errorFlow(diag.New(diag.Runtime, in.Addr, v.String(), ""))

	default:
		return ip, fatal(in.Addr, diag.ErrMalformedChunk, "unknown operation "+string(in.Op))
	}

	return ip + 1, nil
}

// block runs body in a child frame whose closure is the enclosing frame.
// Signals pass through untouched; the stack is restored if one escapes.
func (vm *VM) block(body *chunk.Chunk, frame *Frame) *Flow {
	base := vm.stack.Size()

	flow := vm.exec(body, NewChildFrame(frame))
	if flow != nil {
		vm.stack.Truncate(base)
	}

	return flow
}

// loop is the boundary for break and continue. The condition, when present,
// runs in the enclosing frame and must leave exactly one value; each body
// iteration gets a fresh child frame.
func (vm *VM) loop(in *chunk.Instruction, frame *Frame) *Flow {
	base := vm.stack.Size()

	for {
		if flow := vm.tick(in.Addr); flow != nil {
			return flow
		}

		if in.Cond != nil {
			if flow := vm.exec(in.Cond, frame); flow != nil {
				vm.stack.Truncate(base)
				return flow
			}
			cond, flow := vm.pop(in.Addr)
			if flow != nil {
				return flow
			}
			if !cond.Truthy() {
				return nil
			}
		}

		flow := vm.exec(in.Body, NewChildFrame(frame))
		if flow == nil {
			continue
		}

		vm.stack.Truncate(base)
		switch flow.Kind {
		case FlowBreak:
			return nil
		case FlowContinue:
			continue
		default:
			return flow
		}
	}
}

// try runs the body and hands recoverable errors to the handler, binding the
// error message under in.Name. Internal errors are never caught.
func (vm *VM) try(in *chunk.Instruction, frame *Frame) *Flow {
	base := vm.stack.Size()

	flow := vm.exec(in.Body, NewChildFrame(frame))
	if flow == nil || flow.Kind != FlowError || flow.Err.Fatal() {
		if flow != nil {
			vm.stack.Truncate(base)
		}
		return flow
	}

	vm.stack.Truncate(base)
	vm.logger.Debug("error handled", "addr", flow.Err.Addr.String(), "error", flow.Err.Message)

	handler := NewChildFrame(frame)
	if err := handler.Define(in.Addr, in.Name, NewString(flow.Err.Message)); err != nil {
		return failure(in.Addr, err)
	}

	return vm.block(in.Handler, handler)
}
