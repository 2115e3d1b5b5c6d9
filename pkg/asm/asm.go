// Package asm reads the line-oriented textual form of a chunk.
//
// One instruction per line. Nested bodies open with fun, type, block, loop,
// while or try and close with end:
//
//	fun greet name
//	  push "Hi, "
//	  get name
//	  bin +
//	  ret
//	end
//	def greet
//
//	while
//	  get i
//	  push 3
//	  bin <
//	do
//	  ...
//	end
//
//	try err
//	  ...
//	catch
//	  ...
//	end
package asm

import (
	"errors"
	"strconv"

	"gecko/pkg/chunk"
	"gecko/pkg/diag"
	"gecko/pkg/lexer"
)

const (
	kwEnd   = "end"
	kwDo    = "do"
	kwCatch = "catch"
	kwLabel = "label"
	kwWhile = "while"
)

type Assembler struct {
	tokens []lexer.Token // token stream of the whole file
	pos    int           // index of the current token
	file   string        // source name for addresses
	errors []error       // list of errors
}

// Assemble lexes and assembles src into a top-level chunk named after file
func Assemble(file string, src string) (*chunk.Chunk, error) {
	tokens, err := lexer.NewLexer(src, file).Tokenize()
	if err != nil {
		return nil, err
	}

	return NewAssembler(file, tokens).Assemble()
}

// NewAssembler creates an assembler over an EOF-terminated token stream
func NewAssembler(file string, tokens []lexer.Token) *Assembler {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.EOF {
		tokens = append(tokens, lexer.NewToken(lexer.EOF, "", "", lexer.Position{}))
	}

	return &Assembler{
		tokens: tokens,
		file:   file,
		errors: []error{},
	}
}

// Assemble builds the top-level chunk. All syntax errors found are joined.
func (a *Assembler) Assemble() (*chunk.Chunk, error) {
	b := chunk.NewBuilder("main", a.file)
	a.body(b, "main")

	c, err := b.Build()
	if err != nil {
		a.errors = append(a.errors, err)
	}

	if len(a.errors) > 0 {
		return nil, errors.Join(a.errors...)
	}

	return c, nil
}

// body assembles lines into b until one of the terminators, which it
// consumes and returns. Without terminators it runs to the end of input.
func (a *Assembler) body(b *chunk.Builder, owner string, terminators ...string) string {
	for {
		tok := a.current()

		switch tok.Type {
		case lexer.EOF:
			if len(terminators) > 0 {
				a.addError(tok, "missing "+terminators[len(terminators)-1]+" for "+owner)
			}
			return ""
		case lexer.NEWLINE:
			a.advance()
			continue
		case lexer.ID:
		default:
			a.addError(tok, "expected an instruction, got "+describe(tok))
			a.skipLine()
			continue
		}

		for _, term := range terminators {
			if tok.Lexeme == term {
				a.advance()
				a.endLine()
				return term
			}
		}

		a.instruction(b)
	}
}

// instruction assembles the line starting at the current mnemonic
func (a *Assembler) instruction(b *chunk.Builder) {
	tok := a.advance()
	b.At(a.address(tok))

	switch tok.Lexeme {
	case string(chunk.OpPush):
		if c, ok := a.constant(); ok {
			b.Push(c)
		}

	case string(chunk.OpPop):
		b.Pop()
	case string(chunk.OpDup):
		b.Dup()
	case string(chunk.OpNeg):
		b.Neg()
	case string(chunk.OpNot):
		b.Not()
	case string(chunk.OpRet):
		b.Return()
	case string(chunk.OpBreak):
		b.Break()
	case string(chunk.OpCont):
		b.Continue()
	case string(chunk.OpRaise):
		b.Raise()

	case string(chunk.OpBin):
		if op, ok := a.operator(); ok {
			b.Bin(op)
		}

	case string(chunk.OpDefine):
		if name, ok := a.name(); ok {
			b.Define(name)
		}
	case string(chunk.OpGet):
		if name, ok := a.name(); ok {
			b.Get(name)
		}
	case string(chunk.OpSet):
		if name, ok := a.name(); ok {
			b.Set(name)
		}
	case string(chunk.OpGetAttr):
		if name, ok := a.name(); ok {
			b.GetField(name)
		}
	case string(chunk.OpSetAttr):
		if name, ok := a.name(); ok {
			b.SetField(name)
		}

	case kwLabel:
		if name, ok := a.name(); ok {
			b.Label(name)
		}
	case string(chunk.OpJmp):
		if name, ok := a.name(); ok {
			b.Jump(name)
		}
	case string(chunk.OpJmpf):
		if name, ok := a.name(); ok {
			b.JumpIfFalse(name)
		}

	case string(chunk.OpCall):
		if argc, ok := a.count(); ok {
			b.Call(argc)
		}
	case string(chunk.OpNew):
		if argc, ok := a.count(); ok {
			b.New(argc)
		}
	case string(chunk.OpCallM):
		name, ok := a.name()
		if !ok {
			break
		}
		if argc, ok := a.count(); ok {
			b.CallMethod(name, argc)
		}

	case string(chunk.OpFunc):
		if fn, ok := a.function(b, tok); ok {
			b.Func(fn.Name, fn.Params, fn.Body)
		}
		return

	case string(chunk.OpType):
		a.typeDecl(b, tok)
		return

	case string(chunk.OpBlock):
		a.endLine()
		b.Block(a.nested(b, "block", kwEnd))
		return

	case string(chunk.OpLoop):
		a.endLine()
		b.Loop(nil, a.nested(b, "loop", kwEnd))
		return

	case kwWhile:
		a.endLine()
		cond := a.nested(b, "while", kwDo)
		b.At(a.address(tok)).Loop(cond, a.nested(b, "while", kwEnd))
		return

	case string(chunk.OpTry):
		name, ok := a.name()
		if !ok {
			name = "err"
		}
		a.endLine()
		body := a.nested(b, "try", kwCatch)
		b.At(a.address(tok)).Try(body, name, a.nested(b, "catch", kwEnd))
		return

	case kwEnd, kwDo, kwCatch:
		a.addError(tok, "unexpected "+tok.Lexeme+" without an open body")

	default:
		a.addError(tok, "unknown instruction "+strconv.Quote(tok.Lexeme))
		a.skipLine()
		return
	}

	a.endLine()
}

// nested assembles a body chunk up to terminator
func (a *Assembler) nested(parent *chunk.Builder, owner string, terminator string) *chunk.Chunk {
	sub := parent.Sub(owner)
	a.body(sub, owner, terminator)

	return a.build(sub)
}

// function reads "fun name params..." and its body
func (a *Assembler) function(parent *chunk.Builder, start lexer.Token) (*chunk.FuncProto, bool) {
	name, ok := a.name()
	if !ok {
		a.skipLine()
		return nil, false
	}

	params := []string{}
	for a.current().Type == lexer.ID {
		params = append(params, a.advance().Lexeme)
	}
	a.endLine()

	sub := parent.Sub(name).At(a.address(start))
	a.body(sub, "fun "+name, kwEnd)

	return &chunk.FuncProto{Name: name, Params: params, Body: a.build(sub)}, true
}

// typeDecl reads "type Name fields..." followed by methods up to end
func (a *Assembler) typeDecl(b *chunk.Builder, start lexer.Token) {
	name, ok := a.name()
	if !ok {
		a.skipLine()
		return
	}

	fields := []string{}
	for a.current().Type == lexer.ID {
		fields = append(fields, a.advance().Lexeme)
	}
	a.endLine()

	methods := []*chunk.FuncProto{}
	for {
		tok := a.current()
		switch {
		case tok.Type == lexer.NEWLINE:
			a.advance()
			continue
		case tok.Type == lexer.EOF:
			a.addError(tok, "missing end for type "+name)
		case tok.Type == lexer.ID && tok.Lexeme == kwEnd:
			a.advance()
			a.endLine()
		case tok.Type == lexer.ID && tok.Lexeme == string(chunk.OpFunc):
			a.advance()
			if fn, ok := a.function(b, tok); ok {
				methods = append(methods, fn)
			}
			continue
		default:
			a.addError(tok, "only methods may appear in type "+name)
			a.skipLine()
			continue
		}
		break
	}

	b.At(a.address(start)).Type(name, fields, methods...)
}

func (a *Assembler) build(b *chunk.Builder) *chunk.Chunk {
	c, err := b.Build()
	if err != nil {
		a.errors = append(a.errors, err)
		return &chunk.Chunk{}
	}
	return c
}

// constant reads a literal operand
func (a *Assembler) constant() (chunk.Constant, bool) {
	tok := a.current()
	if !tok.Type.IsLiteral() {
		a.addError(tok, "expected a literal, got "+describe(tok))
		return chunk.Constant{}, false
	}
	a.advance()

	switch tok.Type {
	case lexer.INT:
		i, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			a.addError(tok, "integer out of range: "+tok.Lexeme)
			return chunk.Constant{}, false
		}
		return chunk.Int(i), true
	case lexer.FLOAT:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			a.addError(tok, "invalid float: "+tok.Lexeme)
			return chunk.Constant{}, false
		}
		return chunk.Float(f), true
	case lexer.STRING:
		return chunk.String(tok.Literal), true
	case lexer.TRUE:
		return chunk.Bool(true), true
	case lexer.FALSE:
		return chunk.Bool(false), true
	default:
		return chunk.Nil(), true
	}
}

// operator reads a binary operator: a symbol, or and/or
func (a *Assembler) operator() (string, bool) {
	tok := a.current()
	if tok.Type == lexer.OP || (tok.Type == lexer.ID && chunk.Operators[tok.Lexeme]) {
		a.advance()
		return tok.Lexeme, true
	}

	a.addError(tok, "expected an operator, got "+describe(tok))
	return "", false
}

func (a *Assembler) name() (string, bool) {
	tok := a.current()
	if tok.Type != lexer.ID {
		a.addError(tok, "expected a name, got "+describe(tok))
		return "", false
	}

	a.advance()
	return tok.Lexeme, true
}

// count reads a non-negative argument count
func (a *Assembler) count() (int, bool) {
	tok := a.current()
	if tok.Type != lexer.INT {
		a.addError(tok, "expected an argument count, got "+describe(tok))
		return 0, false
	}
	a.advance()

	n, err := strconv.Atoi(tok.Literal)
	if err != nil || n < 0 {
		a.addError(tok, "invalid argument count: "+tok.Lexeme)
		return 0, false
	}
	return n, true
}

func (a *Assembler) current() lexer.Token {
	return a.tokens[a.pos]
}

// advance returns the current token and moves past it; EOF is never passed
func (a *Assembler) advance() lexer.Token {
	tok := a.tokens[a.pos]
	if tok.Type != lexer.EOF {
		a.pos++
	}
	return tok
}

func (a *Assembler) address(tok lexer.Token) diag.Address {
	return tok.Pos.Address(a.file)
}
