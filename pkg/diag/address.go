package diag

import "fmt"

// Address identifies where an instruction or fault originates.
type Address struct {
	Line   int    `cbor:"line,omitempty"`
	Column int    `cbor:"col,omitempty"`
	File   string `cbor:"file,omitempty"`
}

// NewAddress creates a new Address instance
func NewAddress(line, column int, file string) Address {
	return Address{
		Line:   line,
		Column: column,
		File:   file,
	}
}

// IsZero reports whether the address carries no location at all
func (a Address) IsZero() bool {
	return a.Line == 0 && a.Column == 0 && a.File == ""
}

// String renders the address as file:line:col, leaving out unknown parts
func (a Address) String() string {
	file := a.File
	if file == "" {
		file = "<unknown>"
	}

	switch {
	case a.Line == 0:
		return file
	case a.Column == 0:
		return fmt.Sprintf("%s:%d", file, a.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", file, a.Line, a.Column)
	}
}
