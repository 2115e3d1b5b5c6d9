package chunk

import (
	"fmt"
	"strconv"
	"strings"

	"gecko/pkg/diag"
)

type Operation string

// List of VM operations
const (
	OpPush    Operation = "push"
	OpPop     Operation = "pop"
	OpDup     Operation = "dup"
	OpBin     Operation = "bin"
	OpNeg     Operation = "neg"
	OpNot     Operation = "not"
	OpDefine  Operation = "def"
	OpGet     Operation = "get"
	OpSet     Operation = "set"
	OpGetAttr Operation = "getf"
	OpSetAttr Operation = "setf"
	OpJmp     Operation = "jmp"
	OpJmpf    Operation = "jmpf"
	OpCall    Operation = "call"
	OpCallM   Operation = "callm"
	OpNew     Operation = "new"
	OpFunc    Operation = "fun"
	OpType    Operation = "type"
	OpBlock   Operation = "block"
	OpLoop    Operation = "loop"
	OpTry     Operation = "try"
	OpRet     Operation = "ret"
	OpBreak   Operation = "brk"
	OpCont    Operation = "cont"
	OpRaise   Operation = "raise"
)

// Binary operators accepted by OpBin
var Operators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"and": true, "or": true,
}

type ConstKind int

const (
	ConstNil ConstKind = iota
	ConstInt
	ConstFloat
	ConstBool
	ConstString
)

// Constant is a literal carried by OpPush.
type Constant struct {
	Kind  ConstKind `cbor:"k"`
	Int   int64     `cbor:"i,omitempty"`
	Float float64   `cbor:"f,omitempty"`
	Bool  bool      `cbor:"b,omitempty"`
	Str   string    `cbor:"s,omitempty"`
}

func Int(i int64) Constant { return Constant{Kind: ConstInt, Int: i} }
func Float(f float64) Constant { return Constant{Kind: ConstFloat, Float: f} }
func Bool(b bool) Constant { return Constant{Kind: ConstBool, Bool: b} }
func String(s string) Constant { return Constant{Kind: ConstString, Str: s} }
func Nil() Constant { return Constant{Kind: ConstNil} }

func (c Constant) String() string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case ConstBool:
		return strconv.FormatBool(c.Bool)
	case ConstString:
		return strconv.Quote(c.Str)
	default:
		return "nil"
	}
}

// FuncProto is the compiled form of a function or method body.
type FuncProto struct {
	Name   string   `cbor:"name"`
	Params []string `cbor:"params,omitempty"`
	Body   *Chunk   `cbor:"body"`
}

// TypeProto describes a user-defined type: declared fields and methods.
type TypeProto struct {
	Name    string       `cbor:"name"`
	Fields  []string     `cbor:"fields,omitempty"`
	Methods []*FuncProto `cbor:"methods,omitempty"`
}

// Instruction is a single VM operation tagged with its source address.
// Operand fields are used per Op:
//
//	push            Const
//	bin             Operator
//	def get set     Name
//	getf setf       Name
//	jmp jmpf        Target
//	call new        Argc
//	callm           Name, Argc
//	fun             Func
//	type            Type
//	block           Body
//	loop            Cond (optional), Body
//	try             Body, Name (error binding), Handler
type Instruction struct {
	Op   Operation    `cbor:"op"`
	Addr diag.Address `cbor:"addr"`

	Const    *Constant  `cbor:"const,omitempty"`
	Operator string     `cbor:"operator,omitempty"`
	Name     string     `cbor:"name,omitempty"`
	Target   int        `cbor:"target,omitempty"`
	Argc     int        `cbor:"argc,omitempty"`
	Func     *FuncProto `cbor:"func,omitempty"`
	Type     *TypeProto `cbor:"type,omitempty"`
	Cond     *Chunk     `cbor:"cond,omitempty"`
	Body     *Chunk     `cbor:"body,omitempty"`
	Handler  *Chunk     `cbor:"handler,omitempty"`
}

// String returns a string representation of the instruction
func (i Instruction) String() string {
	args := i.Operands()
	if args == "" {
		return string(i.Op)
	}

	return fmt.Sprintf("%s %s", i.Op, args)
}

// Operands renders the instruction's inline operands (nested bodies excluded)
func (i Instruction) Operands() string {
	switch i.Op {
	case OpPush:
		if i.Const == nil {
			return "<missing>"
		}
		return i.Const.String()
	case OpBin:
		return i.Operator
	case OpDefine, OpGet, OpSet, OpGetAttr, OpSetAttr:
		return i.Name
	case OpJmp, OpJmpf:
		return fmt.Sprintf("-> %d", i.Target)
	case OpCall, OpNew:
		return strconv.Itoa(i.Argc)
	case OpCallM:
		return fmt.Sprintf("%s %d", i.Name, i.Argc)
	case OpFunc:
		if i.Func == nil {
			return "<missing>"
		}
		return strings.TrimSpace(i.Func.Name + " " + strings.Join(i.Func.Params, " "))
	case OpType:
		if i.Type == nil {
			return "<missing>"
		}
		return strings.TrimSpace(i.Type.Name + " " + strings.Join(i.Type.Fields, " "))
	case OpTry:
		return i.Name
	default:
		return ""
	}
}

// StackEffect returns how many values the instruction pops and pushes
func (i Instruction) StackEffect() (pops, pushes int) {
	switch i.Op {
	case OpPush, OpGet, OpFunc, OpType:
		return 0, 1
	case OpPop, OpDefine, OpSet, OpJmpf, OpRet, OpRaise:
		return 1, 0
	case OpDup:
		return 1, 2
	case OpBin:
		return 2, 1
	case OpNeg, OpNot, OpGetAttr:
		return 1, 1
	case OpSetAttr:
		return 2, 0
	case OpCall, OpCallM, OpNew:
		return i.Argc + 1, 1
	default:
		return 0, 0
	}
}
