// Package optimizer implements the fixed-point pass driver and the four
// required passes of spec.md §4.7. Jump-threading and unreachable-block
// elimination are grounded on the reference implementation's `fluxo` and
// `elimidar_codigo_morto` (original_source/src/otimizador/otimizador.rs);
// constant propagation and dead-store elimination have no equivalent in
// original_source — the reference compiler never implemented them — so
// both are designed directly from spec.md §4.7's prose, scoped down to the
// cases that prose states unambiguously (see each pass's doc comment for
// what is deliberately left out and why).
package optimizer

import (
	"mepa/internal/cfg"
	"mepa/internal/mepa"
	"mepa/internal/memusage"
)

// maxOuterIterations is the safety cap spec.md §5 recommends against a
// pass driver that in practice always reaches its fixed point in a handful
// of iterations.
const maxOuterIterations = 1000

// Optimize runs every pass to a fixed point: each pass returns whether it
// changed the code; on any change the next pass starts from the new code,
// and the whole pass list reruns until nothing changes in a full round.
func Optimize(code *mepa.Code) (*mepa.Code, error) {
	code, err := code.NormalizeLabels()
	if err != nil {
		return nil, err
	}

	for iter := 0; iter < maxOuterIterations; iter++ {
		changedThisRound := false

		for _, p := range []func(*mepa.Code) (*mepa.Code, bool, error){
			jumpThreading,
			unreachableBlockElimination,
			constantPropagation,
			deadStoreElimination,
		} {
			for {
				next, changed, err := p(code)
				if err != nil {
					// spec.md §4.8: on detected inconsistency, leave the
					// code unchanged for this pass and move on.
					break
				}
				if !changed {
					break
				}
				code = next
				changedThisRound = true
			}
		}

		if !changedThisRound {
			break
		}
	}
	return code, nil
}

// jumpThreading rewrites any DSVS whose literal target is itself a DSVS,
// following the chain to its final destination in one hop per call (the
// outer fixed-point loop re-invokes until no more hops are found, which is
// equivalent to spec.md's "pre-pass resolves transitive chains" — each
// call here collapses one level, and repeated calls collapse the rest).
func jumpThreading(code *mepa.Code) (*mepa.Code, bool, error) {
	next := cloneCode(code)
	changed := false

	for i := 0; i < next.Len(); i++ {
		in := next.At(i).Instruction
		if in.Op != mepa.DSVS || !in.LabelArg.IsLiteral() {
			continue
		}
		target := in.LabelArg.Index()
		if target < 0 || target >= next.Len() {
			continue
		}
		targetIn := next.At(target).Instruction
		if targetIn.Op != mepa.DSVS || !targetIn.LabelArg.IsLiteral() {
			continue
		}
		newTarget := targetIn.LabelArg.Index()
		if newTarget == target {
			continue
		}
		row := next.At(i)
		row.Instruction = mepa.NewDSVS(mepa.Literal(newTarget))
		next.Set(i, row)
		changed = true
	}

	if !changed {
		return code, false, nil
	}
	return next, true, nil
}

// unreachableBlockElimination removes a block iff spec.md §4.7 rule 2's
// three clauses all hold: (a) it is not the entry block, (b) it has no
// incoming CFG edge, and (c) it is not the entry of a function that still
// has call sites. CHPR is not a CFG edge (spec.md §4.5, §9), so clause (c)
// cannot ride on the incoming-edge count the way (a)/(b) do: a block is a
// live function entry when some CHPR elsewhere in the code still targets
// it, tracked here directly from the instruction stream rather than from
// g.Succ/incoming.
func unreachableBlockElimination(code *mepa.Code) (*mepa.Code, bool, error) {
	g, err := cfg.Build(code)
	if err != nil {
		return nil, false, err
	}

	incoming := make([]int, len(g.Blocks))
	for _, succs := range g.Succ {
		for _, s := range succs {
			incoming[s]++
		}
	}

	callTargets := make(map[int]bool)
	for i := 0; i < g.Code.Len(); i++ {
		in := g.Code.At(i).Instruction
		if in.Op == mepa.CHPR {
			callTargets[in.LabelArg.Index()] = true
		}
	}

	for bi, b := range g.Blocks {
		if bi == 0 || incoming[bi] > 0 || callTargets[b.Start] {
			continue
		}
		next := cloneCode(code)
		for addr := b.End - 1; addr >= b.Start; addr-- {
			next.RemoveInstruction(addr)
		}
		return next, true, nil
	}
	return code, false, nil
}

// cell identifies one addressable (level, offset) storage location scoped
// to the function activation it lives in. Raw (m,n) alone is not a unique
// cell identity: every function's locals start at offset 2 (compiler.go's
// acc := int32(2)) and run at lexical level 1 uniformly (compiler.go's
// level() always returns 1 inside a function), so two unrelated functions'
// locals routinely share the same (m,n) pair. owner disambiguates them: the
// address of the enclosing function's ENPR, or globalOwner for code outside
// any function body. Scoping by owner is required for constantPropagation
// and deadStoreElimination to be sound — without it either pass can
// propagate or eliminate across function boundaries that happen to reuse
// the same frame offset.
type cell struct {
	m, n  int32
	owner int
}

const globalOwner = -1

// ownerOf maps every instruction address to the address of the ENPR that
// opens its enclosing function body, or globalOwner if the address falls
// outside any function (the program prologue/epilogue and the per-function
// DSVS-over-body skip jumps compiler.go emits before each ENPR).
func ownerOf(code *mepa.Code) []int {
	owners := make([]int, code.Len())
	owner := globalOwner
	for i := 0; i < code.Len(); i++ {
		in := code.At(i).Instruction
		if in.Op == mepa.ENPR {
			owner = i
		}
		owners[i] = owner
		if in.Op == mepa.RTPR {
			owner = globalOwner
		}
	}
	return owners
}

// constantPropagation rewrites CRVL m n to CRCT k wherever cell (m,n,owner)
// has exactly one store anywhere in that owning scope, that store is a
// CRCT k immediately followed by the ARMZ m n (so the stored value is a
// known compile-time constant), and the cell's address is never taken (no
// CREN m n appears in that scope, ruling out aliasing through a pointer).
// This is the safe subset of spec.md §4.7 rule 3: the full rule
// additionally allows a constant reaching a cell through
// control-flow-dependent single assignment (still exactly one static ARMZ,
// reached along every path); this implementation requires the CRCT to be
// the immediate predecessor of the ARMZ — a strictly narrower but
// always-correct special case of it.
func constantPropagation(code *mepa.Code) (*mepa.Code, bool, error) {
	mapping, err := computeDepthMapping(code)
	if err != nil || mapping == nil || !mapping.Consistent {
		return nil, false, mepaErrNotConsistent
	}

	owners := ownerOf(code)
	stores := map[cell][]int{}   // cell -> ARMZ indices
	addrTaken := map[cell]bool{} // cell -> CREN seen

	for i := 0; i < code.Len(); i++ {
		in := code.At(i).Instruction
		switch in.Op {
		case mepa.ARMZ:
			c := cell{in.A, in.B, owners[i]}
			stores[c] = append(stores[c], i)
		case mepa.CREN:
			addrTaken[cell{in.A, in.B, owners[i]}] = true
		}
	}

	next := cloneCode(code)
	changed := false

	for c, sites := range stores {
		if len(sites) != 1 || addrTaken[c] {
			continue
		}
		store := sites[0]
		if store == 0 {
			continue
		}
		producer := code.At(store - 1).Instruction
		if producer.Op != mepa.CRCT {
			continue
		}
		k := producer.A
		for i := 0; i < next.Len(); i++ {
			in := next.At(i).Instruction
			if in.Op == mepa.CRVL && in.A == c.m && in.B == c.n && owners[i] == c.owner {
				row := next.At(i)
				row.Instruction = mepa.NewCRCT(k)
				next.Set(i, row)
				changed = true
			}
		}
	}

	if !changed {
		return code, false, nil
	}
	return next, true, nil
}

// deadStoreElimination implements the primary rule of spec.md §4.7 rule 4:
// a cell with no uses (no CRVL/CRVI of it) and no refs (no CREN of it, so
// its address is never taken) is dead — its stores carry a value nothing
// ever reads. Each ARMZ to that cell is replaced with DMEM 1 (same net
// stack effect, discards instead of storing). Cells at a negative offset
// (the caller's return slot and arguments) are never treated as dead,
// since the caller reads them after the function returns. Cells are
// scoped per enclosing function (see the cell/ownerOf doc comment above
// constantPropagation) so a dead cell in one function can never be
// confused with a live, same-offset cell in another. The
// allocation-shrinking extension (decrementing AMEM/DMEM and renumbering
// higher offsets when a cell has no CHPR-sourced store either) is left
// unimplemented — spec.md's own wording flags it as optional follow-on
// compaction once the cell is already fully dead, and getting its offset
// renumbering provably right across every live cell above it needs the
// fuller per-allocation tracking spec.md §4.6 describes, which this pass
// does not build out.
func deadStoreElimination(code *mepa.Code) (*mepa.Code, bool, error) {
	mapping, err := computeDepthMapping(code)
	if err != nil || mapping == nil || !mapping.Consistent {
		return nil, false, mepaErrNotConsistent
	}

	owners := ownerOf(code)
	uses := map[cell]bool{}
	refs := map[cell]bool{}
	stores := map[cell][]int{}

	for i := 0; i < code.Len(); i++ {
		in := code.At(i).Instruction
		switch in.Op {
		case mepa.CRVL, mepa.CRVI:
			uses[cell{in.A, in.B, owners[i]}] = true
		case mepa.CREN:
			refs[cell{in.A, in.B, owners[i]}] = true
		case mepa.ARMZ:
			c := cell{in.A, in.B, owners[i]}
			stores[c] = append(stores[c], i)
		}
	}

	next := cloneCode(code)
	changed := false

	for c, sites := range stores {
		// Negative offsets are the caller-owned return slot and arguments:
		// the caller reads them after RTPR, outside this owner's scope.
		if uses[c] || refs[c] || c.n < 0 {
			continue
		}
		for _, i := range sites {
			row := next.At(i)
			if row.Instruction.Op != mepa.ARMZ {
				continue
			}
			row.Instruction = mepa.NewDMEM(1)
			next.Set(i, row)
			changed = true
		}
	}

	if !changed {
		return code, false, nil
	}
	return next, true, nil
}

func computeDepthMapping(code *mepa.Code) (*memusage.Result, error) {
	g, err := cfg.Build(code)
	if err != nil {
		return nil, err
	}
	return memusage.Map(g)
}

func cloneCode(code *mepa.Code) *mepa.Code {
	next := mepa.NewCode()
	for i := 0; i < code.Len(); i++ {
		next.Append(code.At(i).Instruction)
	}
	return next
}

type notConsistentError struct{}

func (notConsistentError) Error() string { return "optimizer: stack-depth mapping inconsistent" }

var mepaErrNotConsistent = notConsistentError{}
