package vm

import (
	"errors"
	"fmt"

	"gecko/pkg/diag"
)

type FlowKind int

const (
	FlowError FlowKind = iota
	FlowReturn
	FlowBreak
	FlowContinue
)

func (k FlowKind) String() string {
	switch k {
	case FlowError:
		return "error"
	case FlowReturn:
		return "return"
	case FlowBreak:
		return "break"
	case FlowContinue:
		return "continue"
	default:
		return fmt.Sprintf("flow(%d)", int(k))
	}
}

// Flow is the unwind signal threaded through every fallible VM operation.
// A nil *Flow means normal completion. Function boundaries consume
// FlowReturn, loop boundaries consume FlowBreak and FlowContinue, and try
// consumes non-fatal FlowError; everything else travels to the caller.
type Flow struct {
	Kind  FlowKind
	Addr  diag.Address // where the signal was raised
	Err   *diag.Error  // set for FlowError
	Value Value        // set for FlowReturn
}

func (f *Flow) String() string {
	switch f.Kind {
	case FlowError:
		return f.Err.Error()
	case FlowReturn:
		return fmt.Sprintf("return %s at %s", f.Value.Inspect(), f.Addr)
	default:
		return fmt.Sprintf("%s at %s", f.Kind, f.Addr)
	}
}

func errorFlow(err *diag.Error) *Flow {
	return &Flow{Kind: FlowError, Addr: err.Addr, Err: err}
}

// failure converts any error into an error flow at addr
func failure(addr diag.Address, err error) *Flow {
	if e, ok := diag.As(err); ok {
		return errorFlow(e)
	}
	return errorFlow(diag.Wrap(diag.Runtime, addr, err, ""))
}

func raise(kind diag.Kind, addr diag.Address, format string, args ...any) *Flow {
	return errorFlow(diag.Newf(kind, addr, format, args...))
}

// fatal wraps a sentinel as an Internal error that no handler may consume
func fatal(addr diag.Address, sentinel error, hint string) *Flow {
	return errorFlow(diag.Wrap(diag.Internal, addr, sentinel, hint))
}

// leak promotes a control signal that escaped every boundary into an error
func leak(f *Flow) *diag.Error {
	return diag.Wrap(diag.Runtime, f.Addr, fmt.Errorf("%w: %s", ErrFlowLeak, f.Kind), "check your code.")
}

var (
	ErrFlowLeak         = errors.New("flow leak")
	ErrMaxStepsExceeded = errors.New("maximum steps exceeded")
	ErrMaxDepthExceeded = errors.New("maximum call depth exceeded")
)
