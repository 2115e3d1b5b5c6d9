// Package vm executes chunks against frames. It owns the evaluation stack and
// is the only component that interprets Flow signals.
package vm

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"gecko/pkg/chunk"
	"gecko/pkg/diag"
	"gecko/pkg/stack"
)

const DefaultMaxDepth = 512

// VM is a stack-based virtual machine for chunks
type VM struct {
	stack *stack.Stack[Value] // evaluation stack shared by all activations

	out    io.Writer   // output writer for print builtins
	logger *log.Logger // trace and diagnostics logger
	trace  bool        // log every dispatched instruction

	maxSteps int // maximum steps (0 = unlimited)
	steps    int // steps executed

	maxDepth int // maximum nested calls
	depth    int // current call depth
}

type Option func(*VM)

// WithWriter sets the output writer for print builtins
func WithWriter(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithMaxSteps sets a maximum number of dispatched instructions before the
// run aborts with ErrMaxStepsExceeded
func WithMaxSteps(n int) Option {
	return func(vm *VM) { vm.maxSteps = n }
}

// WithMaxDepth bounds nested calls
func WithMaxDepth(n int) Option {
	return func(vm *VM) { vm.maxDepth = n }
}

// WithTrace logs every dispatched instruction at debug level
func WithTrace(enabled bool) Option {
	return func(vm *VM) { vm.trace = enabled }
}

// WithLogger replaces the default logger
func WithLogger(l *log.Logger) Option {
	return func(vm *VM) { vm.logger = l }
}

// New creates a new VM instance
func New(opts ...Option) *VM {
	vm := &VM{
		stack:    stack.New[Value](),
		maxDepth: DefaultMaxDepth,
	}

	for _, o := range opts {
		o(vm)
	}

	if vm.out == nil {
		vm.out = os.Stdout
	}
	if vm.logger == nil {
		vm.logger = log.Default()
	}

	return vm
}

// Steps returns the number of instructions dispatched so far
func (vm *VM) Steps() int {
	return vm.steps
}

// Depth returns the current evaluation stack height
func (vm *VM) Depth() int {
	return vm.stack.Size()
}

// Reset clears runtime state (stack, counters)
func (vm *VM) Reset() {
	vm.stack = stack.New[Value]()
	vm.steps = 0
	vm.depth = 0
}

// Run executes c against frame until the stream is exhausted or a signal is
// produced. It is the only entry point: errors come back as *diag.Error, and
// a return, break or continue that reaches this level had no boundary to
// consume it and is reported as a flow leak.
func (vm *VM) Run(c *chunk.Chunk, frame *Frame) error {
	if c == nil {
		return diag.Wrap(diag.Internal, diag.Address{}, diag.ErrMalformedChunk, "nil chunk")
	}
	if frame == nil {
		frame = NewFrame()
	}

	flow := vm.exec(c, frame)
	if flow == nil {
		return nil
	}

	if flow.Kind == FlowError {
		vm.logger.Debug("run failed", "kind", flow.Err.Kind, "addr", flow.Err.Addr.String(), "error", flow.Err.Message)
		return flow.Err
	}

	vm.logger.Warn("control signal escaped", "signal", flow.Kind, "addr", flow.Addr.String())
	return leak(flow)
}

func (vm *VM) push(v Value) {
	vm.stack.Push(v)
}

// pop removes the top value. An empty stack means the chunk broke its own
// stack discipline, which aborts the run.
func (vm *VM) pop(addr diag.Address) (Value, *Flow) {
	v, ok := vm.stack.Pop()
	if !ok {
		return Nil, fatal(addr, diag.ErrStackUnderflow, "the instruction stream pops more values than it pushed.")
	}
	return v, nil
}

// popN removes n values and returns them in push order
func (vm *VM) popN(addr diag.Address, n int) ([]Value, *Flow) {
	vs, ok := vm.stack.PopN(n)
	if !ok {
		return nil, fatal(addr, diag.ErrStackUnderflow, "the instruction stream pops more values than it pushed.")
	}
	return vs, nil
}

// tick accounts for one unit of work against the step limit
func (vm *VM) tick(addr diag.Address) *Flow {
	if vm.maxSteps > 0 && vm.steps >= vm.maxSteps {
		return fatal(addr, ErrMaxStepsExceeded, "raise the step limit or check for an endless loop.")
	}
	vm.steps++
	return nil
}
