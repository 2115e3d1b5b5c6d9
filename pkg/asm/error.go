package asm

import (
	"fmt"

	"gecko/pkg/diag"
	"gecko/pkg/lexer"
)

// addError records a syntax error at tok
func (a *Assembler) addError(tok lexer.Token, msg string) {
	a.errors = append(a.errors, diag.New(diag.Syntax, a.address(tok), msg, hintFor(tok)))
}

// endLine requires the instruction to end here. Trailing tokens are reported
// once and skipped.
func (a *Assembler) endLine() {
	tok := a.current()
	if tok.Type == lexer.NEWLINE || tok.Type == lexer.EOF {
		a.advance()
		return
	}

	a.addError(tok, "unexpected "+describe(tok)+" after instruction")
	a.skipLine()
}

// skipLine discards tokens through the next line break
func (a *Assembler) skipLine() {
	for {
		tok := a.advance()
		if tok.Type == lexer.NEWLINE || tok.Type == lexer.EOF {
			return
		}
	}
}

// describe names a token for error messages
func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "end of input"
	case lexer.NEWLINE:
		return "end of line"
	default:
		return fmt.Sprintf("%s %q", tok.Type, tok.Lexeme)
	}
}

func hintFor(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "close every body with end."
	case lexer.NEWLINE:
		return "the operand is missing."
	default:
		return ""
	}
}
