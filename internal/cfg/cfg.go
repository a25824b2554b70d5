// Package cfg builds the control-flow graph the optimizer and memory
// mapper both walk (spec.md §4.5). It is grounded on the reference
// implementation's map_code_to_graph (original_source/src/otimizador/
// grafo.rs), re-shaped as a hand-rolled arena of blocks with integer-index
// edges rather than a graph library — nothing in the retrieval pack's Go
// examples pulls in one, so the arena-of-blocks/edge-list shape is the
// idiomatic Go substitute spec.md §9 calls for.
package cfg

import (
	"fmt"
	"sort"

	"mepa/internal/mepa"
)

// Block is a maximal straight-line run of instructions [Start, End).
type Block struct {
	Start, End int
}

// Len reports the number of instructions the block spans.
func (b Block) Len() int { return b.End - b.Start }

// Graph is the arena of blocks plus their successor edges. Block indices
// are stable array offsets into Blocks, not pointers.
type Graph struct {
	Code   *mepa.Code // label-normalized: every DSVS/DSVF/CHPR target is Literal
	Blocks []Block
	Succ   [][]int // Succ[i] lists the blocks block i can fall into or jump to
}

// Build constructs the CFG for code. code must already have symbolic
// labels resolved and NADA rows removed (mepa.Code.NormalizeLabels does
// both); Build does not mutate its argument.
func Build(code *mepa.Code) (*Graph, error) {
	leaders := findLeaders(code)
	blocks := make([]Block, 0, len(leaders))
	for idx, start := range leaders {
		end := code.Len()
		if idx+1 < len(leaders) {
			end = leaders[idx+1]
		}
		blocks = append(blocks, Block{Start: start, End: end})
	}

	g := &Graph{Code: code, Blocks: blocks, Succ: make([][]int, len(blocks))}
	if err := g.wireEdges(); err != nil {
		return nil, err
	}
	return g, nil
}

// findLeaders computes the set of leader instruction indices: 0, every
// instruction immediately after a DSVS/DSVF/CHPR/RTPR, and every literal
// jump target of a DSVS/DSVF/CHPR.
func findLeaders(code *mepa.Code) []int {
	set := map[int]bool{0: true}
	for i := 0; i < code.Len(); i++ {
		in := code.At(i).Instruction
		switch in.Op {
		case mepa.DSVF, mepa.DSVS, mepa.CHPR:
			set[i+1] = true
			set[in.LabelArg.Index()] = true
		case mepa.RTPR:
			set[i+1] = true
		}
	}
	leaders := make([]int, 0, len(set))
	for l := range set {
		if l < code.Len() {
			leaders = append(leaders, l)
		}
	}
	sort.Ints(leaders)
	return leaders
}

// blockContaining returns the index of the block spanning addr.
func (g *Graph) blockContaining(addr int) (int, bool) {
	for i, b := range g.Blocks {
		if addr >= b.Start && addr < b.End {
			return i, true
		}
	}
	return 0, false
}

func (g *Graph) addEdge(from, to int) {
	for _, s := range g.Succ[from] {
		if s == to {
			return
		}
	}
	g.Succ[from] = append(g.Succ[from], to)
}

// wireEdges adds successor edges per spec.md §4.5: DSVS is an
// unconditional jump, DSVF is conditional (jump-target + fallthrough),
// PARA/RTPR end a block with no successors. CHPR is not an intra-procedural
// edge (spec.md §4.5, §9): each function is modeled separately, so a CHPR
// only falls through to the next block like any other non-terminal
// instruction — it never wires a caller->callee or callee->caller edge.
// Any other instruction at the end of a block falls through to the next one.
func (g *Graph) wireEdges() error {
	for bi, b := range g.Blocks {
		for addr := b.Start; addr < b.End; addr++ {
			in := g.Code.At(addr).Instruction
			switch in.Op {
			case mepa.DSVS:
				target, ok := g.blockContaining(in.LabelArg.Index())
				if !ok {
					return fmt.Errorf("cfg: DSVS target %d not in any block", in.LabelArg.Index())
				}
				g.addEdge(bi, target)

			case mepa.DSVF:
				target, ok := g.blockContaining(in.LabelArg.Index())
				if !ok {
					return fmt.Errorf("cfg: DSVF target %d not in any block", in.LabelArg.Index())
				}
				g.addEdge(bi, target)
				if next, ok := g.blockContaining(b.End); ok {
					g.addEdge(bi, next)
				}

			case mepa.PARA, mepa.RTPR:
				// terminal within the block: no successor.

			default:
				if addr+1 == b.End {
					if next, ok := g.blockContaining(b.End); ok {
						g.addEdge(bi, next)
					}
				}
			}
		}
	}
	return nil
}

// DOT renders the graph in Graphviz dot format, one node per block
// labelled with its instruction range (served by cfgserver's /graph.dot
// route behind the CLI's `serve`, spec.md §4.14).
func (g *Graph) DOT() string {
	s := "digraph CFG {\n"
	for i, b := range g.Blocks {
		s += fmt.Sprintf("  n%d [label=\"%d: [%d,%d)\\l", i, i, b.Start, b.End)
		for addr := b.Start; addr < b.End; addr++ {
			s += fmt.Sprintf("%d: %s\\l", addr, g.Code.At(addr).Instruction.String())
		}
		s += "\"];\n"
	}
	for from, succs := range g.Succ {
		for _, to := range succs {
			s += fmt.Sprintf("  n%d -> n%d;\n", from, to)
		}
	}
	s += "}\n"
	return s
}
