package lexer

import (
	"fmt"
)

type TokenType int

type Token struct {
	Type    TokenType // Type of the token
	Lexeme  string    // Actual string from source code
	Literal string    // Literal value (unquoted for strings), empty if not a literal
	Pos     Position  // Position in source code
}

// NewToken creates a new Token instance
func NewToken(tokenType TokenType, lexeme string, literal string, pos Position) Token {
	return Token{
		Type:    tokenType,
		Lexeme:  lexeme,
		Literal: literal,
		Pos:     pos,
	}
}

const (
	EOF     TokenType = iota // end of file
	NEWLINE                  // end of an instruction line

	ID     // identifier: mnemonic, name or label
	INT    // integer literal
	FLOAT  // float literal
	STRING // string literal
	TRUE   // true
	FALSE  // false
	NIL    // nil

	OP // operator symbol: + - * / % == != < <= > >=

	ILLEGAL // illegal token
)

var tokenNames = map[TokenType]string{
	EOF:     "$",
	NEWLINE: "newline",
	ID:      "id",
	INT:     "int",
	FLOAT:   "float",
	STRING:  "string",
	TRUE:    "true",
	FALSE:   "false",
	NIL:     "nil",
	OP:      "op",
	ILLEGAL: "illegal",
}

// String returns a string representation of the Token
func (t Token) String() string {
	if t.Literal == "" {
		return fmt.Sprintf("T_{%s, %q, nil, %s}", t.Type, t.Lexeme, t.Pos)
	}

	return fmt.Sprintf("T_{%s, %q, %q, %s}", t.Type, t.Lexeme, t.Literal, t.Pos)
}

// String returns a string representation of the TokenType
func (t TokenType) String() string {
	if str, ok := tokenNames[t]; ok {
		return str
	}

	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

// IsLiteral reports whether the token type denotes a constant
func (t TokenType) IsLiteral() bool {
	switch t {
	case INT, FLOAT, STRING, TRUE, FALSE, NIL:
		return true
	default:
		return false
	}
}
