package cfg

import (
	"strconv"
	"strings"
	"testing"

	"mepa/internal/compiler"
)

func buildFrom(t *testing.T, src string) *Graph {
	t.Helper()
	code, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	norm, err := code.NormalizeLabels()
	if err != nil {
		t.Fatalf("NormalizeLabels: %v", err)
	}
	g, err := Build(norm)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestBuildCoversEveryInstruction(t *testing.T) {
	g := buildFrom(t, "fn main(){ int x; x=1; print(x); return 0; }")
	covered := make([]bool, g.Code.Len())
	for _, b := range g.Blocks {
		for addr := b.Start; addr < b.End; addr++ {
			if covered[addr] {
				t.Fatalf("instruction %d covered by more than one block", addr)
			}
			covered[addr] = true
		}
	}
	for addr, ok := range covered {
		if !ok {
			t.Errorf("instruction %d not covered by any block", addr)
		}
	}
}

func TestWhileLoopHasBackEdge(t *testing.T) {
	g := buildFrom(t, "fn main(){ int i; i=0; while(i<3){ print(i); i=i+1; } return 0; }")
	// Some block must have a successor that starts at or before its own
	// start address — the loop's back edge.
	found := false
	for bi, succs := range g.Succ {
		for _, s := range succs {
			if g.Blocks[s].Start <= g.Blocks[bi].Start {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected a back edge somewhere in a while loop's CFG")
	}
}

// TestCHPRIsNotAnIntraProceduralEdge asserts spec.md §4.5's rule that CHPR
// never wires a caller->callee or callee->caller edge: the only successor a
// CHPR block has is its ordinary fall-through block, never the callee's
// entry block.
func TestCHPRIsNotAnIntraProceduralEdge(t *testing.T) {
	g := buildFrom(t, "fn f(int n){ return n+1; } fn main(){ print(f(1)); return 0; }")
	for bi := range g.Blocks {
		for addr := g.Blocks[bi].Start; addr < g.Blocks[bi].End; addr++ {
			if g.Code.At(addr).Instruction.Op.String() != "CHPR" {
				continue
			}
			callee := g.Code.At(addr).Instruction.LabelArg.Index()
			for _, s := range g.Succ[bi] {
				if g.Blocks[s].Start == callee {
					t.Errorf("block %d has a CHPR edge into callee entry %d; CHPR must not be an intra-procedural edge", bi, callee)
				}
			}
		}
	}
}

func TestDOTRendersAllBlocks(t *testing.T) {
	g := buildFrom(t, "fn main(){ int x; x=1; return 0; }")
	dot := g.DOT()
	if !strings.HasPrefix(dot, "digraph CFG") {
		t.Errorf("DOT() missing digraph header: %q", dot)
	}
	for i := range g.Blocks {
		want := "n" + strconv.Itoa(i) + " "
		if !strings.Contains(dot, want) {
			t.Errorf("DOT() missing node for block %d", i)
		}
	}
}
