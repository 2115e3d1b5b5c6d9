// Package diag holds the positioned error model shared by the assembler and
// the virtual machine.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"gecko/pkg/color"
)

type Kind int

const (
	Lexical Kind = iota
	Syntax
	Type
	Argument
	Runtime
	// Internal marks defects at the chunk boundary (stack underflow, malformed
	// chunks, step limit). Handlers never consume them.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Syntax:
		return "syntax"
	case Type:
		return "type"
	case Argument:
		return "argument"
	case Runtime:
		return "runtime"
	case Internal:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrMalformedChunk = errors.New("malformed chunk")
)

// Error is a fault tagged with its kind and source address.
type Error struct {
	Kind    Kind
	Addr    Address
	Message string
	Hint    string

	cause error
}

// New creates a new positioned error
func New(kind Kind, addr Address, message, hint string) *Error {
	return &Error{
		Kind:    kind,
		Addr:    addr,
		Message: message,
		Hint:    hint,
	}
}

// Newf creates a positioned error without a hint from a format string
func Newf(kind Kind, addr Address, format string, args ...any) *Error {
	return New(kind, addr, fmt.Sprintf(format, args...), "")
}

// Wrap creates a positioned error around cause, keeping it reachable through
// errors.Is and errors.As.
func Wrap(kind Kind, addr Address, cause error, hint string) *Error {
	return &Error{
		Kind:    kind,
		Addr:    addr,
		Message: cause.Error(),
		Hint:    hint,
		cause:   cause,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error at %s: %s", e.Kind, e.Addr, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Fatal reports whether the error must abort execution regardless of handlers
func (e *Error) Fatal() bool {
	return e.Kind == Internal
}

// Render formats the error for terminal output, colored when enabled
func (e *Error) Render() string {
	var sb strings.Builder

	sb.WriteString(color.BoldColorText(color.BrightRed, strings.ToUpper(e.Kind.String()[:1])+e.Kind.String()[1:]+" error"))
	if !e.Addr.IsZero() {
		sb.WriteString(" at ")
		sb.WriteString(color.Position(e.Addr.String()))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)

	if e.Hint != "" {
		sb.WriteString("\n")
		sb.WriteString(color.GrayText("hint: " + e.Hint))
	}

	return sb.String()
}

// As extracts a *Error from err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries a positioned error of the given kind
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
