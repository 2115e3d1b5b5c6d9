package lexer

import (
	"fmt"

	"gecko/pkg/diag"
)

type Position struct {
	Line   int
	Column int
	Offset int
}

// Returns a string representation of the Position
func (p Position) String() string {
	return fmt.Sprintf("%d, %d, %d", p.Line, p.Column, p.Offset)
}

// Address converts the position into a diagnostic address in file
func (p Position) Address(file string) diag.Address {
	return diag.NewAddress(p.Line, p.Column, file)
}
