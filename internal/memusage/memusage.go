// Package memusage computes the stack-depth/allocation dataflow mapping
// spec.md §4.6 describes: for every instruction, the stack depth (s value)
// immediately before it executes, derived purely from the CFG rather than
// by actually running the program. It is grounded on the reference
// implementation's CodeGraph memory-usage DFS (original_source/src/
// otimizador/grafo.rs, the `memory_usage`/`inconsistent_memory_usage`
// walk), reusing mepa.Instruction.Delta for the generic per-opcode Δs and
// special-casing CHPR the same way the original does: a call's local
// effect is not Delta()'s +1 (the return-address push) but
// -(callee's declared argument count), since the callee consumes its
// arguments off the caller's stack before ever executing its own ENPR.
package memusage

import (
	"fmt"

	"mepa/internal/cfg"
	"mepa/internal/mepa"
)

// funcInfo records one function's entry instruction address (its ENPR) and
// declared argument count (from the matching RTPR's second operand).
type funcInfo struct {
	enprAddr int
	args     int
}

// Result is the outcome of mapping stack depth across the whole program.
type Result struct {
	// Depth[i] is the stack depth immediately before instruction i runs.
	Depth []int
	// Consistent is false if two control-flow paths reaching the same
	// block disagree on its entry depth — the walk stops recording at the
	// first such conflict and dataflow-dependent optimizer passes must not
	// trust Depth's content in that case (spec.md §9 Open Question).
	Consistent bool
}

// Map walks g's blocks by DFS from the program entry (block 0, depth 0)
// and from every function's entry block (also depth 0 at the ENPR
// instruction itself, matching the original), propagating each block's
// computed exit depth to every successor's entry depth.
func Map(g *cfg.Graph) (*Result, error) {
	funcs := findFunctions(g.Code)

	res := &Result{Depth: make([]int, g.Code.Len()), Consistent: true}
	entryDepth := make([]int, len(g.Blocks)) // entry depth per block
	known := make([]bool, len(g.Blocks))

	roots := []int{}
	if b, ok := blockAt(g, 0); ok {
		roots = append(roots, b)
	}
	for _, f := range funcs {
		if b, ok := blockAt(g, f.enprAddr); ok {
			roots = append(roots, b)
		}
	}

	for _, root := range roots {
		entryDepth[root] = 0
		known[root] = true
		if !walk(g, root, funcs, entryDepth, known, res) {
			res.Consistent = false
			return res, nil
		}
	}
	return res, nil
}

func blockAt(g *cfg.Graph, addr int) (int, bool) {
	for i, b := range g.Blocks {
		if addr >= b.Start && addr < b.End {
			return i, true
		}
	}
	return 0, false
}

func findFunctions(code *mepa.Code) []funcInfo {
	var funcs []funcInfo
	enpr := -1
	for i := 0; i < code.Len(); i++ {
		in := code.At(i).Instruction
		switch in.Op {
		case mepa.ENPR:
			enpr = i
		case mepa.RTPR:
			if enpr >= 0 {
				funcs = append(funcs, funcInfo{enprAddr: enpr, args: int(in.B)})
			}
		}
	}
	return funcs
}

func argsForCallee(funcs []funcInfo, calleeEnpr int) (int, bool) {
	for _, f := range funcs {
		if f.enprAddr == calleeEnpr {
			return f.args, true
		}
	}
	return 0, false
}

// walk processes a block's instructions in order, filling Depth, then
// recurses (iteratively, via an explicit worklist) into every successor,
// propagating the exit depth as that successor's entry depth. Returns
// false the moment two paths disagree on a block's entry depth.
func walk(g *cfg.Graph, start int, funcs []funcInfo, entryDepth []int, known []bool, res *Result) bool {
	stack := []int{start}
	visited := map[int]bool{}

	for len(stack) > 0 {
		bi := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[bi] {
			continue
		}
		visited[bi] = true

		b := g.Blocks[bi]
		depth := entryDepth[bi]
		for addr := b.Start; addr < b.End; addr++ {
			res.Depth[addr] = depth
			in := g.Code.At(addr).Instruction
			if in.Op == mepa.CHPR {
				args, ok := argsForCallee(funcs, in.LabelArg.Index())
				if !ok {
					return false
				}
				depth -= args
			} else {
				depth += in.Delta()
			}
		}

		for _, succ := range g.Succ[bi] {
			if known[succ] {
				if entryDepth[succ] != depth {
					return false
				}
				continue
			}
			entryDepth[succ] = depth
			known[succ] = true
			stack = append(stack, succ)
		}
	}
	return true
}

// String renders a compact "addr: depth" table for debugging.
func (r *Result) String() string {
	if !r.Consistent {
		return "memusage: inconsistent"
	}
	s := ""
	for i, d := range r.Depth {
		s += fmt.Sprintf("%d: %d\n", i, d)
	}
	return s
}
