package optimizer

import (
	"testing"

	"mepa/internal/compiler"
	"mepa/internal/vm"
)

func TestSearchPassOrderPreservesBehavior(t *testing.T) {
	src := "fn f(int n){ if(n<2) return n; return f(n-1)+f(n-2); } fn main(){ print(f(8)); return 0;}"
	code, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want, err := vm.Run(code, nil)
	if err != nil {
		t.Fatalf("vm.Run: %v", err)
	}

	searched, err := SearchPassOrder(code, 123)
	if err != nil {
		t.Fatalf("SearchPassOrder: %v", err)
	}
	got, err := vm.Run(searched, nil)
	if err != nil {
		t.Fatalf("vm.Run(searched): %v", err)
	}
	assertEqualTrace(t, got, want)
}

func TestSearchPassOrderNeverIncreasesInstructionCount(t *testing.T) {
	src := "fn main(){ int a[4]; int i; i=0; while(i<4){a[i]=i*i; print(a[i]); i=i+1;} return 0;}"
	code, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	before := code.Len()

	searched, err := SearchPassOrder(code, 99)
	if err != nil {
		t.Fatalf("SearchPassOrder: %v", err)
	}
	if searched.Len() > before {
		t.Errorf("SearchPassOrder grew the program: %d -> %d instructions", before, searched.Len())
	}
}
