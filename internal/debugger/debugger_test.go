package debugger

import (
	"bytes"
	"strings"
	"testing"

	"mepa/internal/compiler"
	"mepa/internal/vm"
)

func machineFor(t *testing.T, src string) *vm.Machine {
	t.Helper()
	code, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return vm.NewWithInput(code, nil)
}

func TestRunToCompletionWithoutBreakpoints(t *testing.T) {
	m := machineFor(t, "fn main(){ int x; x=1+2; print(x); return 0; }")
	var out bytes.Buffer
	d := New(m, strings.NewReader(""), &out)
	d.state = Running // skip the initial pause; nothing to debug interactively here

	trace, err := d.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(trace) != 1 || trace[0] != 3 {
		t.Fatalf("trace = %v, want [3]", trace)
	}
}

func TestBreakpointPausesAndContinueResumes(t *testing.T) {
	m := machineFor(t, "fn main(){ int x; x=1; print(x); x=2; print(x); return 0; }")
	var out bytes.Buffer
	// Scripted session: set a breakpoint at address 1 (just after INPP),
	// continue, then quit once paused a second time (if ever).
	in := strings.NewReader("break 1\ncontinue\nquit\n")
	d := New(m, in, &out)

	trace, err := d.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(d.breakpoints) != 1 {
		t.Fatalf("breakpoints = %d, want 1", len(d.breakpoints))
	}
	if !strings.Contains(out.String(), "breakpoint 1 set at 1") {
		t.Errorf("output missing breakpoint confirmation: %q", out.String())
	}
	if !strings.Contains(out.String(), "breakpoint 1 hit at 1") {
		t.Errorf("output missing breakpoint hit: %q", out.String())
	}
	_ = trace // program may or may not finish depending on whether quit aborts early
}

func TestAddAndRemoveBreakpoint(t *testing.T) {
	m := machineFor(t, "fn main(){ return 0; }")
	var out bytes.Buffer
	d := New(m, strings.NewReader(""), &out)

	id := d.AddBreakpoint(5)
	if len(d.breakpoints) != 1 {
		t.Fatalf("breakpoints after add = %d, want 1", len(d.breakpoints))
	}
	if !d.RemoveBreakpoint(id) {
		t.Fatal("RemoveBreakpoint should report success for a known id")
	}
	if len(d.breakpoints) != 0 {
		t.Fatalf("breakpoints after remove = %d, want 0", len(d.breakpoints))
	}
	if d.RemoveBreakpoint(id) {
		t.Error("RemoveBreakpoint should report failure for an already-removed id")
	}
}

func TestWatchAndUnwatch(t *testing.T) {
	m := machineFor(t, "fn main(){ return 0; }")
	var out bytes.Buffer
	d := New(m, strings.NewReader(""), &out)

	d.AddWatch("0 2")
	if !d.watches["0 2"] {
		t.Fatal("expected watch \"0 2\" to be registered")
	}
	d.RemoveWatch("0 2")
	if d.watches["0 2"] {
		t.Fatal("expected watch \"0 2\" to be removed")
	}
}

func TestCallStackTrackingAcrossCall(t *testing.T) {
	m := machineFor(t, "fn f(int n){ return n+1; } fn main(){ print(f(1)); return 0; }")
	var out bytes.Buffer
	d := New(m, strings.NewReader(""), &out)
	d.state = Running

	if _, err := d.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// By the time the program halts, every pushed frame must have been
	// popped by its matching RTPR.
	if len(d.callStack) != 0 {
		t.Errorf("callStack = %v, want empty after the program halts", d.callStack)
	}
}
