package compiler

import (
	"strings"
	"testing"

	"mepa/internal/vm"
)

func compileAndRun(t *testing.T, src string, input []int32) []int32 {
	t.Helper()
	code, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	out, err := vm.Run(code, input)
	if err != nil {
		t.Fatalf("vm.Run: %v (output so far %v)", err, out)
	}
	return out
}

func assertTrace(t *testing.T, got, want []int32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("trace = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("trace = %v, want %v", got, want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	out := compileAndRun(t, "fn main(){ int x; x=1+2*3; print(x); return 0; }", nil)
	assertTrace(t, out, []int32{7})
}

func TestArrayLoop(t *testing.T) {
	src := "fn main(){ int a[3]; a[0]=10;a[1]=20;a[2]=30; int i; i=0; " +
		"while(i<3){print(a[i]); i=i+1;} return 0;}"
	out := compileAndRun(t, src, nil)
	assertTrace(t, out, []int32{10, 20, 30})
}

func TestReadPrint(t *testing.T) {
	out := compileAndRun(t, "fn main(){ int x; read(x); print(x*2); return 0;}", []int32{21})
	assertTrace(t, out, []int32{42})
}

// TestFibonacciNestedReturn exercises the nested-return grammar extension
// (see this package's doc comment on functionDef/returnCommand): the
// recursive call returns from inside a bare 'if' before the function's own
// trailing return.
func TestFibonacciNestedReturn(t *testing.T) {
	src := "fn f(int n){ if(n<2) return n; return f(n-1)+f(n-2); } fn main(){ print(f(10)); return 0;}"
	out := compileAndRun(t, src, nil)
	assertTrace(t, out, []int32{55})
}

func TestPointerIncrement(t *testing.T) {
	src := "fn main(){ int x; ptr p; x=5; p=&x; *p=*p+1; print(x); return 0;}"
	out := compileAndRun(t, src, nil)
	assertTrace(t, out, []int32{6})
}

func TestFallthroughReturnsZero(t *testing.T) {
	src := "fn f(){ int x; x=1; } fn main(){ print(f()); return 0;}"
	out := compileAndRun(t, src, nil)
	assertTrace(t, out, []int32{0})
}

func TestUndeclaredVariableIsSemanticError(t *testing.T) {
	_, err := Compile("fn main(){ x=1; return 0;}")
	if err == nil {
		t.Fatal("expected a semantic error for an undeclared variable")
	}
}

func TestRedeclaredFunctionIsSemanticError(t *testing.T) {
	_, err := Compile("fn f(){ return 0;} fn f(){ return 0;} fn main(){ return 0;}")
	if err == nil {
		t.Fatal("expected a semantic error for a redeclared function")
	}
	// spec.md §4.2: "each error carries the offending line" — the second
	// "fn f" starts on line 1, so the error must carry a real location, not
	// the zero value that means "no location".
	if !strings.Contains(err.Error(), " at ") {
		t.Errorf("error %q should carry a source location", err.Error())
	}
}

func TestRedeclaredVariableIsSemanticError(t *testing.T) {
	_, err := Compile("fn main(){ int x; int x; return 0;}")
	if err == nil {
		t.Fatal("expected a semantic error for a redeclared variable")
	}
	if !strings.Contains(err.Error(), " at ") {
		t.Errorf("error %q should carry a source location", err.Error())
	}
}

func TestMissingSemicolonIsSyntacticError(t *testing.T) {
	_, err := Compile("fn main(){ int x; x=1 print(x); return 0;}")
	if err == nil {
		t.Fatal("expected a syntactic error for a missing ';'")
	}
}

func TestMissingMainIsSemanticError(t *testing.T) {
	_, err := Compile("fn f(){ return 0; }")
	if err == nil {
		t.Fatal("expected a semantic error when 'main' is not defined")
	}
}
