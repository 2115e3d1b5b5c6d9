package lexer

import (
	"strconv"

	"gecko/pkg/diag"
)

type Lexer struct {
	input        string // input string to be tokenized
	file         string // source name for error reporting
	length       int    // length of the input string
	position     int    // current position in the input string
	line         int    // current line number for error reporting
	column       int    // current column number for error reporting
	currentToken Token  // current token for context (e.g., unary minus handling)
}

// Create a new lexer instance
func NewLexer(s string, file string) *Lexer {
	return &Lexer{
		input:        s,
		file:         file,
		length:       len(s),
		position:     0,
		line:         1,
		column:       1,
		currentToken: Token{Type: NEWLINE},
	}
}

// Get the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	// End of input
	if l.position >= l.length {
		tok := NewToken(EOF, "", "", l.currentPosition())
		l.currentToken = tok
		return tok
	}

	start := l.currentPosition()

	// Line breaks end an instruction
	if l.input[l.position] == '\n' {
		l.advance(1)
		tok := NewToken(NEWLINE, "\n", "", start)
		l.currentToken = tok
		return tok
	}

	// Signed numbers are only read as operands, never after "bin"
	if l.input[l.position] == '-' && l.prevAllowsUnary() {
		if l.position+1 < l.length && isDigit(l.input[l.position+1]) {
			remaining := l.input[l.position+1:]
			t, lex, matched := MatchToken(remaining)
			if matched && (t == INT || t == FLOAT) {
				lexeme := "-" + lex

				tok := NewToken(t, lexeme, lexeme, start)

				l.advance(len(lexeme))
				l.currentToken = tok

				return tok
			}
		}
	}

	// Regex match the first token it sees from the remaining input from current position to the end
	remaining := l.input[l.position:]
	tokenType, lexeme, matched := MatchToken(remaining)

	if !matched {
		l.advance(1)

		tok := NewToken(ILLEGAL, lexeme, "", start)
		l.currentToken = tok
		return tok
	}

	literal := lexeme
	if tokenType == STRING {
		unquoted, err := strconv.Unquote(lexeme)
		if err != nil {
			l.advance(len(lexeme))
			tok := NewToken(ILLEGAL, lexeme, "", start)
			l.currentToken = tok
			return tok
		}
		literal = unquoted
	}

	tok := NewToken(tokenType, lexeme, literal, start)
	l.advance(len(lexeme))
	l.currentToken = tok

	return tok
}

// Tokenize reads the whole input. It stops at the first illegal token.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	for {
		tok := l.NextToken()
		if tok.Type == ILLEGAL {
			return tokens, diag.Newf(diag.Lexical, tok.Pos.Address(l.file), "unexpected %q", tok.Lexeme)
		}

		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

// View next token without advancing the position
func (l *Lexer) Peek() Token {
	// save state
	cpos := l.position
	cline := l.line
	ccol := l.column
	ctok := l.currentToken

	token := l.NextToken()

	// restore state
	l.position = cpos
	l.line = cline
	l.column = ccol
	l.currentToken = ctok

	return token
}

// Skip blanks and comments, stopping at line breaks
func (l *Lexer) skipWhitespace() {
	for l.position < l.length {
		ch := l.input[l.position]

		if ch == ' ' || ch == '\t' || ch == '\r' {
			l.column++
			l.position++

		} else if l.position+1 < l.length && ch == '/' && l.input[l.position+1] == '/' {
			// comments run to the end of the line; the newline itself is a token
			for l.position < l.length && l.input[l.position] != '\n' {
				l.position++
				l.column++
			}
		} else {
			break
		}
	}
}

// Advance the lexer position by n characters
func (l *Lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if l.position >= l.length {
			break
		}

		if l.input[l.position] == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}

		l.position++
	}
}

// Get the current position of the lexer
func (l *Lexer) currentPosition() Position {
	return Position{
		Line:   l.line,
		Column: l.column,
		Offset: l.position,
	}
}

// Check if the previous token allows a signed literal: only operands follow
// a mnemonic, except for the operator of "bin"
func (l *Lexer) prevAllowsUnary() bool {
	return l.currentToken.Type == ID && l.currentToken.Lexeme != "bin"
}
