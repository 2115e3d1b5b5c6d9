package vm_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"gecko/pkg/asm"
	"gecko/pkg/chunk"
	"gecko/pkg/diag"
	"gecko/pkg/vm"
)

// run assembles src and executes it against fresh globals
func run(t *testing.T, src string, opts ...vm.Option) (*vm.Frame, string, error) {
	t.Helper()

	c, err := asm.Assemble("test.gka", src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	var out bytes.Buffer
	machine := vm.New(append([]vm.Option{vm.WithWriter(&out)}, opts...)...)
	globals := vm.NewGlobals()

	err = machine.Run(c, globals)
	return globals, out.String(), err
}

func TestTypeMethodCall(t *testing.T) {
	src := `type T
  fun hi n
    push "Hi, "
    get n
    bin +
    ret
  end
end
def T
get T
new 0
push "X"
callm hi 1
def result
`
	globals, _, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := mustLookup(t, globals, "result"); got.Kind != vm.KindString || got.Str != "Hi, X" {
		t.Errorf("expected \"Hi, X\", got %s", got.Inspect())
	}
}

func TestClosureCapturesByReference(t *testing.T) {
	src := `push 5
def y
fun read
  get y
  ret
end
def read
fun bump
  get y
  push 1
  bin +
  set y
end
def bump
push 9
set y
get read
call 0
def seen
get bump
call 0
pop
`
	globals, _, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := mustLookup(t, globals, "seen"); got.I64 != 9 {
		t.Errorf("closure should observe the later assignment, got %s", got)
	}
	if got := mustLookup(t, globals, "y"); got.I64 != 10 {
		t.Errorf("closure assignment should reach the captured binding, got %s", got)
	}
}

func TestArityMismatch(t *testing.T) {
	src := `fun f a b
  push 1
  ret
end
def f
get f
push 1
call 1
`
	globals, _, err := run(t, src)
	if err == nil {
		t.Fatal("expected an arity error")
	}

	e, ok := diag.As(err)
	if !ok || e.Kind != diag.Argument {
		t.Fatalf("expected an argument error, got %v", err)
	}
	if e.Addr.Line != 8 || e.Addr.Column != 1 || e.Addr.File != "test.gka" {
		t.Errorf("expected the call site test.gka:8:1, got %s", e.Addr)
	}
	if !strings.Contains(e.Message, "expected 2 arguments, got 1") {
		t.Errorf("unexpected message %q", e.Message)
	}
	if globals.Has("a") || globals.Has("b") {
		t.Error("parameters must not leak into the caller")
	}
}

func TestFlowLeak(t *testing.T) {
	tests := []struct {
		description string
		src         string
		signal      string
	}{
		{"bare break", "brk", "break"},
		{"bare continue", "cont", "continue"},
		{"top-level return", "push 1\nret", "return"},
		{"break in block", "block\n  brk\nend", "break"},
		{"break inside try", "try e\n  brk\ncatch\n  push 1\n  pop\nend", "break"},
		{"break from a call inside try", "fun f\n  brk\nend\ndef f\ntry e\n  get f\n  call 0\n  pop\ncatch\n  push 1\n  pop\nend", "break"},
		{"continue from a call", "fun f\n  cont\nend\ndef f\nget f\ncall 0", "continue"},
	}

	for _, test := range tests {
		_, _, err := run(t, test.src)
		if err == nil {
			t.Errorf("%s: expected a flow leak", test.description)
			continue
		}
		if !errors.Is(err, vm.ErrFlowLeak) {
			t.Errorf("%s: expected ErrFlowLeak, got %v", test.description, err)
		}
		if !diag.IsKind(err, diag.Runtime) {
			t.Errorf("%s: expected a runtime error, got %v", test.description, err)
		}
		if !strings.Contains(err.Error(), "flow leak: "+test.signal) {
			t.Errorf("%s: unexpected message %v", test.description, err)
		}
		if e, _ := diag.As(err); e.Hint != "check your code." {
			t.Errorf("%s: unexpected hint %q", test.description, e.Hint)
		}
	}
}

func TestSignalsCrossCallBoundaries(t *testing.T) {
	src := `push 0
def n
fun stop
  brk
end
def stop
fun skip
  cont
end
def skip
loop
  get n
  push 1
  bin +
  set n
  get n
  push 2
  bin ==
  jmpf next
  get skip
  call 0
  pop
  label next
  get n
  push 4
  bin ==
  jmpf again
  get stop
  call 0
  pop
  label again
end
`
	globals, _, err := run(t, src)
	if err != nil {
		t.Fatalf("a break raised inside a called function should end the caller's loop: %v", err)
	}
	if got := mustLookup(t, globals, "n"); got.I64 != 4 {
		t.Errorf("expected the loop to stop at 4, got %s", got)
	}
}

func TestBinaryTypeError(t *testing.T) {
	_, _, err := run(t, "push 1\npush \"a\"\nbin +")
	if err == nil {
		t.Fatal("expected a type error")
	}

	if !diag.IsKind(err, diag.Type) {
		t.Errorf("expected a type error, got %v", err)
	}
	for _, part := range []string{"int", "string", "+"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("expected %q in %q", part, err.Error())
		}
	}
}

func TestLoops(t *testing.T) {
	tests := []struct {
		description string
		src         string
		name        string
		expected    int64
	}{
		{"while with continue", `push 0
def i
push 0
def sum
while
  get i
  push 5
  bin <
do
  get i
  push 1
  bin +
  set i
  get i
  push 3
  bin ==
  jmpf add
  cont
  label add
  get sum
  get i
  bin +
  set sum
end
`, "sum", 12},
		{"loop with break", `push 0
def i
loop
  get i
  push 1
  bin +
  set i
  get i
  push 3
  bin ==
  jmpf next
  brk
  label next
end
`, "i", 3},
		{"fresh frame per iteration", `push 0
def n
while
  get n
  push 3
  bin <
do
  push 1
  def step
  get n
  get step
  bin +
  set n
end
`, "n", 3},
		{"return from inside a loop", `fun first
  loop
    push 7
    ret
  end
  push 0
  ret
end
def first
get first
call 0
def r
`, "r", 7},
	}

	for _, test := range tests {
		globals, _, err := run(t, test.src)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.description, err)
			continue
		}
		if got := mustLookup(t, globals, test.name); got.I64 != test.expected {
			t.Errorf("%s: expected %s = %d, got %s", test.description, test.name, test.expected, got)
		}
		if globals.Has("step") {
			t.Errorf("%s: loop locals must not escape", test.description)
		}
	}
}

func TestTryCatch(t *testing.T) {
	tests := []struct {
		description string
		body        string
		contains    string
	}{
		{"type error", "push 1\npush \"a\"\nbin +", "unsupported operand types for +"},
		{"raised value", "push \"boom\"\nraise", "boom"},
		{"unbound name", "get nope", `not found: "nope"`},
		{"division by zero", "push 1\npush 0\nbin /", "division by zero"},
		{"arity", "get len\ncall 0", "expected 1 arguments"},
	}

	for _, test := range tests {
		src := "push nil\ndef caught\ntry e\n" + test.body + "\ncatch\n  get e\n  set caught\nend\n"
		globals, _, err := run(t, src)
		if err != nil {
			t.Errorf("%s: error should have been handled: %v", test.description, err)
			continue
		}

		got := mustLookup(t, globals, "caught")
		if got.Kind != vm.KindString || !strings.Contains(got.Str, test.contains) {
			t.Errorf("%s: expected message containing %q, got %s", test.description, test.contains, got.Inspect())
		}
		if globals.Has("e") {
			t.Errorf("%s: the error binding must stay in the handler", test.description)
		}
	}
}

func TestFatalErrorsAreNotCaught(t *testing.T) {
	src := "try e\n  pop\ncatch\n  push 1\n  def handled\nend\n"
	_, _, err := run(t, src)
	if err == nil {
		t.Fatal("expected stack underflow")
	}

	if !errors.Is(err, diag.ErrStackUnderflow) {
		t.Errorf("expected ErrStackUnderflow, got %v", err)
	}
	if !diag.IsKind(err, diag.Internal) {
		t.Errorf("expected an internal error, got %v", err)
	}
}

func TestStepLimit(t *testing.T) {
	machine := vm.New(vm.WithMaxSteps(100))
	c := chunk.NewBuilder("spin", "spin.gka").
		Loop(nil, chunk.NewBuilder("body", "spin.gka").MustBuild()).
		MustBuild()

	err := machine.Run(c, vm.NewFrame())
	if !errors.Is(err, vm.ErrMaxStepsExceeded) {
		t.Fatalf("expected ErrMaxStepsExceeded, got %v", err)
	}
	if machine.Steps() != 100 {
		t.Errorf("expected exactly 100 steps, got %d", machine.Steps())
	}
}

func TestCallDepthLimit(t *testing.T) {
	src := `fun f
  get f
  call 0
  ret
end
def f
get f
call 0
`
	_, _, err := run(t, src, vm.WithMaxDepth(16))
	if !errors.Is(err, vm.ErrMaxDepthExceeded) {
		t.Fatalf("expected ErrMaxDepthExceeded, got %v", err)
	}
	if !diag.IsKind(err, diag.Runtime) {
		t.Errorf("expected a runtime error, got %v", err)
	}
}

func TestTraceSelfReferencingInstance(t *testing.T) {
	src := `type Node me
end
def Node
get Node
new 0
def n
get n
get n
setf me
get n
get n
`
	var logs bytes.Buffer
	logger := log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel})

	globals, _, err := run(t, src, vm.WithTrace(true), vm.WithLogger(logger))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n := mustLookup(t, globals, "n")
	if got := n.Inspect(); got != "Node{me: <Node instance>}" {
		t.Errorf("unexpected rendering %q", got)
	}
	if !strings.Contains(logs.String(), "Node{me: <Node instance>}") {
		t.Errorf("expected the trace to render the cyclic instance, got:\n%s", logs.String())
	}
}

func TestInstances(t *testing.T) {
	src := `push "global"
def origin
type Point x y
  fun init a b
    get self
    get a
    setf x
    get self
    get b
    setf y
  end
  fun sum
    get self
    getf x
    get self
    getf y
    bin +
    ret
  end
  fun bare
    get x
    ret
  end
  fun which
    get origin
    ret
  end
end
def Point
get Point
push 3
push 4
new 2
def p
get p
callm sum 0
def total
get p
callm bare 0
def bare
get p
callm which 0
def which
get p
push 10
setf x
get p
getf x
def moved
`
	globals, _, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		expected string
	}{
		{"total", "7"},
		{"bare", "3"},
		{"which", "global"},
		{"moved", "10"},
	}
	for _, test := range tests {
		if got := mustLookup(t, globals, test.name).String(); got != test.expected {
			t.Errorf("%s: expected %s, got %s", test.name, test.expected, got)
		}
	}

	if got := mustLookup(t, globals, "p"); got.TypeName() != "Point" {
		t.Errorf("instance should report its type, got %s", got.TypeName())
	}
}

func TestInstanceErrors(t *testing.T) {
	tests := []struct {
		description string
		src         string
		kind        diag.Kind
		contains    string
	}{
		{"unknown method", "type T\nend\ndef T\nget T\nnew 0\ncallm nope 0", diag.Runtime, "not found: T.nope"},
		{"args without init", "type T\nend\ndef T\nget T\npush 1\nnew 1", diag.Argument, "takes no arguments"},
		{"method on primitive", "push 1\ncallm hi 0", diag.Type, "cannot call method hi on int"},
		{"calling a type", "type T\nend\ndef T\nget T\ncall 0", diag.Type, "not callable"},
		{"unknown field", "type T\nend\ndef T\nget T\nnew 0\ngetf nope", diag.Runtime, `not found: "nope"`},
	}

	for _, test := range tests {
		_, _, err := run(t, test.src)
		if err == nil {
			t.Errorf("%s: expected an error", test.description)
			continue
		}
		if !diag.IsKind(err, test.kind) {
			t.Errorf("%s: expected %s error, got %v", test.description, test.kind, err)
		}
		if !strings.Contains(err.Error(), test.contains) {
			t.Errorf("%s: expected %q in %v", test.description, test.contains, err)
		}
	}
}

func TestBuiltins(t *testing.T) {
	src := `get println
push 1
push "a"
push 2.0
push true
push nil
call 5
pop
get print
get len
push "héllo"
call 1
call 1
pop
get print
get type_of
get type_of
call 1
call 1
pop
`
	_, out, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if expected := "1 a 2.0 true nil\n5builtin"; out != expected {
		t.Errorf("expected output %q, got %q", expected, out)
	}
}

func TestRunStackUnderflow(t *testing.T) {
	_, _, err := run(t, "bin +")
	if !errors.Is(err, diag.ErrStackUnderflow) {
		t.Fatalf("expected ErrStackUnderflow, got %v", err)
	}

	e, _ := diag.As(err)
	if e.Addr.Line != 1 {
		t.Errorf("expected the faulting instruction's address, got %s", e.Addr)
	}
}

func TestReset(t *testing.T) {
	machine := vm.New(vm.WithWriter(&bytes.Buffer{}))
	c := chunk.NewBuilder("main", "reset.gka").PushInt(1).PushInt(2).MustBuild()

	if err := machine.Run(c, vm.NewFrame()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if machine.Depth() != 2 || machine.Steps() != 2 {
		t.Errorf("expected 2 values after 2 steps, got depth %d steps %d", machine.Depth(), machine.Steps())
	}

	machine.Reset()
	if machine.Depth() != 0 || machine.Steps() != 0 {
		t.Errorf("reset should clear state, got depth %d steps %d", machine.Depth(), machine.Steps())
	}
}
