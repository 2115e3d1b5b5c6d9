package runner_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gecko/internal/runner"
	"gecko/pkg/color"
	"gecko/pkg/diag"
	"gecko/pkg/vm"
)

const hello = `type T
  fun hi n
    push "Hi, "
    get n
    bin +
    ret
  end
end
def T
get println
get T
new 0
push "X"
callm hi 1
call 1
pop
`

func write(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecuteSource(t *testing.T) {
	color.EnableColor(false)
	path := write(t, t.TempDir(), "hello.gka", hello)

	var out bytes.Buffer
	r := runner.Runner{SourceFile: path, MaxSteps: -1, Stdout: &out}
	if err := r.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.String() != "Hi, X\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestBuildThenRunImage(t *testing.T) {
	color.EnableColor(false)
	dir := t.TempDir()
	path := write(t, dir, "hello.gka", hello)

	var out bytes.Buffer
	build := runner.Runner{SourceFile: path, ShouldBuild: true, MaxSteps: -1, Stdout: &out}
	if err := build.Execute(); err != nil {
		t.Fatalf("build: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("build alone should not run, got %q", out.String())
	}

	image := filepath.Join(dir, "hello.gkc")
	if _, err := os.Stat(image); err != nil {
		t.Fatalf("image not written: %v", err)
	}

	run := runner.Runner{SourceFile: image, MaxSteps: -1, Stdout: &out}
	if err := run.Execute(); err != nil {
		t.Fatalf("run image: %v", err)
	}
	if out.String() != "Hi, X\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestConfigStepLimit(t *testing.T) {
	color.EnableColor(false)
	dir := t.TempDir()
	write(t, dir, "gecko.toml", "[run]\nmax_steps = 50\n")
	path := write(t, dir, "spin.gka", "loop\nend\n")

	r := runner.Runner{SourceFile: path, MaxSteps: -1, Stdout: &bytes.Buffer{}}
	err := r.Execute()
	if !errors.Is(err, vm.ErrMaxStepsExceeded) {
		t.Fatalf("expected the configured step limit to stop the run, got %v", err)
	}

	r = runner.Runner{SourceFile: path, MaxSteps: 10, Stdout: &bytes.Buffer{}}
	if err := r.Execute(); !errors.Is(err, vm.ErrMaxStepsExceeded) {
		t.Fatalf("expected the flag to override the file, got %v", err)
	}
}

func TestConfigDepthLimit(t *testing.T) {
	color.EnableColor(false)
	dir := t.TempDir()
	write(t, dir, "gecko.toml", "[run]\nmax_depth = 8\n")
	path := write(t, dir, "deep.gka", "fun f\n  get f\n  call 0\n  ret\nend\ndef f\nget f\ncall 0\n")

	r := runner.Runner{SourceFile: path, MaxSteps: -1, Stdout: &bytes.Buffer{}}
	if err := r.Execute(); !errors.Is(err, vm.ErrMaxDepthExceeded) {
		t.Fatalf("expected the configured depth limit to stop the run, got %v", err)
	}
	if r.MaxDepth != 8 {
		t.Errorf("expected depth 8 from the file, got %d", r.MaxDepth)
	}

	r = runner.Runner{SourceFile: path, MaxSteps: -1, MaxDepth: 3, Stdout: &bytes.Buffer{}}
	if err := r.Execute(); !errors.Is(err, vm.ErrMaxDepthExceeded) {
		t.Fatalf("expected ErrMaxDepthExceeded, got %v", err)
	}
	if r.MaxDepth != 3 {
		t.Errorf("expected the flag to override the file, got %d", r.MaxDepth)
	}
}

func TestDisassembleListing(t *testing.T) {
	color.EnableColor(false)
	path := write(t, t.TempDir(), "hello.gka", hello)

	var out bytes.Buffer
	r := runner.Runner{SourceFile: path, Disassemble: true, ShouldBuild: true, OutputFile: filepath.Join(t.TempDir(), "x.gkc"), MaxSteps: -1, Stdout: &out}
	if err := r.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	listing := out.String()
	for _, want := range []string{"=== Disassembly of main ===", "[hi]", "callm hi 1", "hello.gka:14:1"} {
		if !strings.Contains(listing, want) {
			t.Errorf("expected %q in listing:\n%s", want, listing)
		}
	}

	effects := map[string]string{"callm hi 1": "; -2+1 ", "call  1": "; -2+1 ", "new   0": "; -1+1 ", "def   T": "; -1+0 "}
	for _, line := range strings.Split(listing, "\n") {
		for op, effect := range effects {
			if strings.Contains(line, op) && !strings.Contains(line, effect) {
				t.Errorf("expected %q on the %s row, got %q", effect, op, line)
			}
		}
	}
}

func TestReport(t *testing.T) {
	color.EnableColor(false)
	path := write(t, t.TempDir(), "bad.gka", "frob\nget\n")

	r := runner.Runner{SourceFile: path, MaxSteps: -1, Stdout: &bytes.Buffer{}}
	err := r.Execute()
	if err == nil {
		t.Fatal("expected assembly to fail")
	}
	if n := len(runner.Flatten(err)); n != 2 {
		t.Errorf("expected 2 errors, got %d", n)
	}

	var buf bytes.Buffer
	runner.Report(&buf, err)
	out := buf.String()
	if strings.Count(out, "Syntax error at") != 2 || !strings.Contains(out, "bad.gka:1:1") {
		t.Errorf("unexpected report:\n%s", out)
	}

	buf.Reset()
	runner.Report(&buf, errors.New("plain"))
	if strings.TrimSpace(buf.String()) != "plain" {
		t.Errorf("unexpected plain report %q", buf.String())
	}
}

func TestRuntimeErrorReport(t *testing.T) {
	color.EnableColor(false)
	path := write(t, t.TempDir(), "type.gka", "push 1\npush \"a\"\nbin +\n")

	r := runner.Runner{SourceFile: path, MaxSteps: -1, Stdout: &bytes.Buffer{}}
	err := r.Execute()
	if !diag.IsKind(err, diag.Type) {
		t.Fatalf("expected a type error, got %v", err)
	}

	var buf bytes.Buffer
	runner.Report(&buf, err)
	if !strings.Contains(buf.String(), "type.gka:3:1") || !strings.Contains(buf.String(), "hint:") {
		t.Errorf("unexpected report:\n%s", buf.String())
	}
}
