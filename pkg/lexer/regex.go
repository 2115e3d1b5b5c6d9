package lexer

import (
	"regexp"
)

// Token regex patterns
var tokenRegexes = map[TokenType]*regexp.Regexp{
	TRUE:  regexp.MustCompile(`^true\b`),
	FALSE: regexp.MustCompile(`^false\b`),
	NIL:   regexp.MustCompile(`^nil\b`),

	FLOAT:  regexp.MustCompile(`^\d+(\.\d+([eE][+-]?\d+)?|[eE][+-]?\d+)`),
	INT:    regexp.MustCompile(`^\d+`),
	STRING: regexp.MustCompile(`^"([^"\\\n]|\\.)*"`),

	OP: regexp.MustCompile(`^(==|!=|<=|>=|[-+*/%<>])`),
	ID: regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`),
}

// Token precedence order for matching (keywords before identifiers, floats before ints)
var tokenPrecedenceOrder = []TokenType{
	TRUE, FALSE, NIL, FLOAT, INT, STRING, OP, ID,
}

// MatchToken matches the first token at the start of s, in precedence order
func MatchToken(s string) (TokenType, string, bool) {
	if s == "" {
		return EOF, "", false
	}

	for _, tokenType := range tokenPrecedenceOrder {
		if regex, ok := tokenRegexes[tokenType]; ok {
			if match := regex.FindString(s); match != "" {
				return tokenType, match, true
			}
		}
	}

	return ILLEGAL, string(s[0]), false
}

// Check if a byte is a digit
func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
