package chunk

import (
	"errors"
	"fmt"

	"gecko/pkg/diag"
)

type fixup struct {
	index int
	label string
	addr  diag.Address
}

// Builder emits instructions into a Chunk and resolves jump labels.
// Every emitted instruction is tagged with the builder's current address.
type Builder struct {
	chunk  *Chunk
	addr   diag.Address
	labels map[string]int
	fixups []fixup
	errs   []error
}

// NewBuilder creates a builder for a chunk named name in file
func NewBuilder(name, file string) *Builder {
	return &Builder{
		chunk:  &Chunk{Name: name, File: file, Code: make([]Instruction, 0)},
		addr:   diag.NewAddress(0, 0, file),
		labels: make(map[string]int),
	}
}

// Sub returns a fresh builder for a nested body in the same file
func (b *Builder) Sub(name string) *Builder {
	sub := NewBuilder(name, b.chunk.File)
	sub.addr = b.addr
	return sub
}

// At sets the address attached to subsequently emitted instructions
func (b *Builder) At(addr diag.Address) *Builder {
	b.addr = addr
	return b
}

// Line sets the line (and clears the column) of the current address
func (b *Builder) Line(line int) *Builder {
	b.addr = diag.NewAddress(line, 0, b.chunk.File)
	return b
}

// Len returns the number of instructions emitted so far
func (b *Builder) Len() int {
	return len(b.chunk.Code)
}

func (b *Builder) emit(in Instruction) *Builder {
	in.Addr = b.addr
	b.chunk.Code = append(b.chunk.Code, in)
	return b
}

func (b *Builder) Push(c Constant) *Builder {
	return b.emit(Instruction{Op: OpPush, Const: &c})
}

func (b *Builder) PushInt(i int64) *Builder { return b.Push(Int(i)) }
func (b *Builder) PushFloat(f float64) *Builder { return b.Push(Float(f)) }
func (b *Builder) PushString(s string) *Builder { return b.Push(String(s)) }
func (b *Builder) Pop() *Builder { return b.emit(Instruction{Op: OpPop}) }
func (b *Builder) Dup() *Builder { return b.emit(Instruction{Op: OpDup}) }
func (b *Builder) Neg() *Builder { return b.emit(Instruction{Op: OpNeg}) }
func (b *Builder) Not() *Builder { return b.emit(Instruction{Op: OpNot}) }
func (b *Builder) Return() *Builder { return b.emit(Instruction{Op: OpRet}) }
func (b *Builder) Break() *Builder { return b.emit(Instruction{Op: OpBreak}) }
func (b *Builder) Continue() *Builder { return b.emit(Instruction{Op: OpCont}) }
func (b *Builder) Raise() *Builder { return b.emit(Instruction{Op: OpRaise}) }
func (b *Builder) Define(name string) *Builder { return b.emit(Instruction{Op: OpDefine, Name: name}) }
func (b *Builder) Get(name string) *Builder { return b.emit(Instruction{Op: OpGet, Name: name}) }
func (b *Builder) Set(name string) *Builder { return b.emit(Instruction{Op: OpSet, Name: name}) }
func (b *Builder) GetField(name string) *Builder { return b.emit(Instruction{Op: OpGetAttr, Name: name}) }
func (b *Builder) SetField(name string) *Builder { return b.emit(Instruction{Op: OpSetAttr, Name: name}) }
func (b *Builder) Call(argc int) *Builder { return b.emit(Instruction{Op: OpCall, Argc: argc}) }
func (b *Builder) New(argc int) *Builder { return b.emit(Instruction{Op: OpNew, Argc: argc}) }

// Bin emits a binary operation; op must be one of Operators
func (b *Builder) Bin(op string) *Builder {
	if !Operators[op] {
		b.errs = append(b.errs, diag.Newf(diag.Syntax, b.addr, "unknown operator: %q", op))
	}
	return b.emit(Instruction{Op: OpBin, Operator: op})
}

func (b *Builder) CallMethod(name string, argc int) *Builder {
	return b.emit(Instruction{Op: OpCallM, Name: name, Argc: argc})
}

// Func emits a closure constructor for body
func (b *Builder) Func(name string, params []string, body *Chunk) *Builder {
	return b.emit(Instruction{Op: OpFunc, Func: &FuncProto{Name: name, Params: params, Body: body}})
}

// Type emits a type constructor with the given fields and methods
func (b *Builder) Type(name string, fields []string, methods ...*FuncProto) *Builder {
	return b.emit(Instruction{Op: OpType, Type: &TypeProto{Name: name, Fields: fields, Methods: methods}})
}

// Block emits a lexical block running body in a child frame
func (b *Builder) Block(body *Chunk) *Builder {
	return b.emit(Instruction{Op: OpBlock, Body: body})
}

// Loop emits a loop; cond may be nil for an unconditional loop
func (b *Builder) Loop(cond, body *Chunk) *Builder {
	return b.emit(Instruction{Op: OpLoop, Cond: cond, Body: body})
}

// Try emits an error handler; the error message is bound to errName in handler
func (b *Builder) Try(body *Chunk, errName string, handler *Chunk) *Builder {
	return b.emit(Instruction{Op: OpTry, Body: body, Name: errName, Handler: handler})
}

// Label marks the position of the next instruction as a jump target
func (b *Builder) Label(name string) *Builder {
	if _, exists := b.labels[name]; exists {
		b.errs = append(b.errs, diag.New(diag.Syntax, b.addr,
			fmt.Sprintf("duplicate label: %s", name), "labels must be unique within a body."))
		return b
	}
	b.labels[name] = len(b.chunk.Code)
	return b
}

func (b *Builder) Jump(label string) *Builder {
	b.fixups = append(b.fixups, fixup{index: len(b.chunk.Code), label: label, addr: b.addr})
	return b.emit(Instruction{Op: OpJmp})
}

func (b *Builder) JumpIfFalse(label string) *Builder {
	b.fixups = append(b.fixups, fixup{index: len(b.chunk.Code), label: label, addr: b.addr})
	return b.emit(Instruction{Op: OpJmpf})
}

// Build resolves labels and returns the finished chunk
func (b *Builder) Build() (*Chunk, error) {
	for _, f := range b.fixups {
		target, ok := b.labels[f.label]
		if !ok {
			b.errs = append(b.errs, diag.New(diag.Syntax, f.addr,
				fmt.Sprintf("undefined label: %s", f.label), "declare it with `label`."))
			continue
		}
		b.chunk.Code[f.index].Target = target
	}
	b.fixups = nil

	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	return b.chunk, nil
}

// MustBuild is like Build but panics on error. Intended for chunks assembled
// in Go code, where a bad label is a programming error.
func (b *Builder) MustBuild() *Chunk {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}
