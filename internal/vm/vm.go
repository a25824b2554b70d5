// Package vm implements the MEPA execution model (spec.md §4.4): a main
// memory array M, a stack-top index s, a display D[] indexed by lexical
// level, and an instruction pointer i. It is grounded line-for-line on the
// original reference interpreter's execute_step (original_source/src/mepa/
// machine.rs), re-shaped into the cooperative, non-blocking step interface
// spec.md §5/§9 calls for: Step never blocks on I/O. When LEIT needs a
// value that hasn't been supplied yet, Step returns NeedsInput instead of
// reading stdin itself, and the caller re-drives Step after calling
// ProvideInput.
package vm

import (
	"fmt"

	mepaerrors "mepa/internal/errors"
	"mepa/internal/mepa"
)

const (
	memSize     = 1 << 16 // main memory M
	displaySize = 256      // display D, indexed by lexical level
)

// StepStatus discriminates what happened during one Step call.
type StepStatus int

const (
	// NeedsInput means execution stopped at a LEIT instruction awaiting a
	// value; call ProvideInput then Step again to resume at the same i.
	NeedsInput StepStatus = iota
	// Produced means an IMPR instruction ran; Output carries the printed
	// value.
	Produced
	// Halted means PARA was reached; the machine will not advance further.
	Halted
	// Continuing means an ordinary instruction executed with nothing to
	// report; call Step again.
	Continuing
	// Failed means execution cannot continue; Err carries the cause.
	Failed
)

// StepResult is the outcome of a single Step call.
type StepResult struct {
	Status StepStatus
	Output int32 // valid when Status == Produced
	Err    error // valid when Status == Failed
}

// Machine is one MEPA program's live execution state.
type Machine struct {
	code *mepa.Code
	m    []int32
	d    []int32
	i    int
	s    int

	pendingInput []int32
}

// New builds a Machine ready to execute code from its first instruction
// (normally INPP at index 0). Callers that want deterministic, pre-supplied
// input should use NewWithInput instead.
func New(code *mepa.Code) *Machine {
	return &Machine{
		code: code,
		m:    make([]int32, memSize),
		d:    make([]int32, displaySize),
		i:    0,
		s:    -1,
	}
}

// NewWithInput builds a Machine whose LEIT instructions are satisfied from
// a pre-supplied queue before ever reporting NeedsInput.
func NewWithInput(code *mepa.Code, input []int32) *Machine {
	m := New(code)
	m.pendingInput = append([]int32(nil), input...)
	return m
}

// ProvideInput supplies the value requested by a prior NeedsInput result.
// Call Step again immediately afterwards.
func (vm *Machine) ProvideInput(v int32) {
	vm.pendingInput = append(vm.pendingInput, v)
}

// IP returns the current instruction pointer, for debugger/CFG tooling.
func (vm *Machine) IP() int { return vm.i }

// Code returns the program this Machine is executing, for debugger/CFG
// tooling that needs to disassemble around the current instruction
// pointer.
func (vm *Machine) Code() *mepa.Code { return vm.code }

// StackTop returns the current stack-top index s (−1 when empty).
func (vm *Machine) StackTop() int { return vm.s }

// Peek returns M[s-depth] without modifying state (depth 0 is the top).
func (vm *Machine) Peek(depth int) (int32, bool) {
	idx := vm.s - depth
	if idx < 0 || idx >= len(vm.m) {
		return 0, false
	}
	return vm.m[idx], true
}

// Display returns a copy of the display register array, for inspection.
func (vm *Machine) Display() []int32 {
	out := make([]int32, len(vm.d))
	copy(out, vm.d)
	return out
}

// Ended reports whether the instruction about to execute is PARA.
func (vm *Machine) Ended() bool {
	if vm.i < 0 || vm.i >= vm.code.Len() {
		return false
	}
	return vm.code.At(vm.i).Instruction.Op == mepa.PARA
}

func (vm *Machine) boundsErr(what string, idx int) error {
	return mepaerrors.NewRuntime("%s out of bounds: %d (i=%d)", what, idx, vm.i)
}

// Step executes exactly one instruction, or reports that one more piece of
// input is needed before it can. It never touches stdin/stdout directly;
// callers own all I/O (spec.md §5).
func (vm *Machine) Step() StepResult {
	if vm.i < 0 || vm.i >= vm.code.Len() {
		return StepResult{Status: Failed, Err: mepaerrors.NewRuntime("end of instructions without PARA")}
	}
	in := vm.code.At(vm.i).Instruction
	op := in.Op

	if op == mepa.LEIT && len(vm.pendingInput) == 0 {
		return StepResult{Status: NeedsInput}
	}

	switch op {
	case mepa.CRCT:
		vm.s++
		if err := vm.checkM(vm.s); err != nil {
			return fail(err)
		}
		vm.m[vm.s] = in.A

	case mepa.CRVL:
		addr := int(vm.d[in.A]) + int(in.B)
		if err := vm.checkM(addr); err != nil {
			return fail(err)
		}
		vm.s++
		if err := vm.checkM(vm.s); err != nil {
			return fail(err)
		}
		vm.m[vm.s] = vm.m[addr]

	case mepa.CREN:
		vm.s++
		if err := vm.checkM(vm.s); err != nil {
			return fail(err)
		}
		vm.m[vm.s] = vm.d[in.A] + in.B

	case mepa.ARMZ:
		addr := int(vm.d[in.A]) + int(in.B)
		if err := vm.checkS(); err != nil {
			return fail(err)
		}
		if err := vm.checkM(addr); err != nil {
			return fail(err)
		}
		vm.m[addr] = vm.m[vm.s]
		vm.s--

	case mepa.CRVI:
		addr := int(vm.d[in.A]) + int(in.B)
		if err := vm.checkM(addr); err != nil {
			return fail(err)
		}
		target := int(vm.m[addr])
		if err := vm.checkM(target); err != nil {
			return fail(err)
		}
		vm.s++
		if err := vm.checkM(vm.s); err != nil {
			return fail(err)
		}
		vm.m[vm.s] = vm.m[target]

	case mepa.ARMI:
		addr := int(vm.d[in.A]) + int(in.B)
		if err := vm.checkM(addr); err != nil {
			return fail(err)
		}
		target := int(vm.m[addr])
		if err := vm.checkS(); err != nil {
			return fail(err)
		}
		if err := vm.checkM(target); err != nil {
			return fail(err)
		}
		vm.m[target] = vm.m[vm.s]
		vm.s--

	case mepa.SOMA:
		if err := vm.checkBinary(); err != nil {
			return fail(err)
		}
		vm.m[vm.s-1] = vm.m[vm.s-1] + vm.m[vm.s]
		vm.s--

	case mepa.SUBT:
		if err := vm.checkBinary(); err != nil {
			return fail(err)
		}
		vm.m[vm.s-1] = vm.m[vm.s-1] - vm.m[vm.s]
		vm.s--

	case mepa.MULT:
		if err := vm.checkBinary(); err != nil {
			return fail(err)
		}
		vm.m[vm.s-1] = vm.m[vm.s-1] * vm.m[vm.s]
		vm.s--

	case mepa.DIVI:
		if err := vm.checkBinary(); err != nil {
			return fail(err)
		}
		if vm.m[vm.s] == 0 {
			return fail(mepaerrors.NewRuntime("division by zero at i=%d", vm.i))
		}
		// Euclidean division: remainder is always non-negative, matching
		// spec.md §4.4's stated semantics (the original Rust interpreter
		// instead uses plain truncating '/'; that discrepancy is recorded
		// in DESIGN.md — spec.md is the authority here).
		vm.m[vm.s-1] = euclideanDiv(vm.m[vm.s-1], vm.m[vm.s])
		vm.s--

	case mepa.INVR:
		if err := vm.checkS(); err != nil {
			return fail(err)
		}
		vm.m[vm.s] = -vm.m[vm.s]

	case mepa.CONJ:
		if err := vm.checkBinary(); err != nil {
			return fail(err)
		}
		vm.m[vm.s-1] = boolToInt(vm.m[vm.s-1] != 0 && vm.m[vm.s] != 0)
		vm.s--

	case mepa.DISJ:
		if err := vm.checkBinary(); err != nil {
			return fail(err)
		}
		vm.m[vm.s-1] = boolToInt(vm.m[vm.s-1] != 0 || vm.m[vm.s] != 0)
		vm.s--

	case mepa.NEGA:
		if err := vm.checkS(); err != nil {
			return fail(err)
		}
		vm.m[vm.s] = boolToInt(vm.m[vm.s] == 0)

	case mepa.CMME:
		if err := vm.checkBinary(); err != nil {
			return fail(err)
		}
		vm.m[vm.s-1] = boolToInt(vm.m[vm.s-1] < vm.m[vm.s])
		vm.s--

	case mepa.CMMA:
		if err := vm.checkBinary(); err != nil {
			return fail(err)
		}
		vm.m[vm.s-1] = boolToInt(vm.m[vm.s-1] > vm.m[vm.s])
		vm.s--

	case mepa.CMIG:
		if err := vm.checkBinary(); err != nil {
			return fail(err)
		}
		vm.m[vm.s-1] = boolToInt(vm.m[vm.s-1] == vm.m[vm.s])
		vm.s--

	case mepa.CMDG:
		if err := vm.checkBinary(); err != nil {
			return fail(err)
		}
		vm.m[vm.s-1] = boolToInt(vm.m[vm.s-1] != vm.m[vm.s])
		vm.s--

	case mepa.CMEG:
		if err := vm.checkBinary(); err != nil {
			return fail(err)
		}
		vm.m[vm.s-1] = boolToInt(vm.m[vm.s-1] <= vm.m[vm.s])
		vm.s--

	case mepa.CMAG:
		if err := vm.checkBinary(); err != nil {
			return fail(err)
		}
		vm.m[vm.s-1] = boolToInt(vm.m[vm.s-1] >= vm.m[vm.s])
		vm.s--

	case mepa.DSVS:
		target, ok := in.LabelArg.Locate(vm.code)
		if !ok {
			return fail(mepaerrors.NewRuntime("unresolved jump target at i=%d", vm.i))
		}
		vm.i = target
		return StepResult{Status: vm.continuingOrHalted()}

	case mepa.DSVF:
		if err := vm.checkS(); err != nil {
			return fail(err)
		}
		top := vm.m[vm.s]
		vm.s--
		if top == 0 {
			target, ok := in.LabelArg.Locate(vm.code)
			if !ok {
				return fail(mepaerrors.NewRuntime("unresolved jump target at i=%d", vm.i))
			}
			vm.i = target
		} else {
			vm.i++
		}
		return StepResult{Status: vm.continuingOrHalted()}

	case mepa.NADA:
		vm.i++
		return StepResult{Status: vm.continuingOrHalted()}

	case mepa.PARA:
		return StepResult{Status: Halted}

	case mepa.LEIT:
		// spec.md §3/§6: input is popped from the front, but once a single
		// element remains it is returned repeatedly instead of exhausting
		// the queue (original_source/src/mepa/machine.rs:245-256).
		v := vm.pendingInput[0]
		if len(vm.pendingInput) > 1 {
			vm.pendingInput = vm.pendingInput[1:]
		}
		vm.s++
		if err := vm.checkM(vm.s); err != nil {
			return fail(err)
		}
		vm.m[vm.s] = v

	case mepa.IMPR:
		if err := vm.checkS(); err != nil {
			return fail(err)
		}
		out := vm.m[vm.s]
		vm.s--
		vm.i++
		return StepResult{Status: Produced, Output: out}

	case mepa.AMEM:
		vm.s += int(in.A)

	case mepa.DMEM:
		vm.s -= int(in.A)

	case mepa.INPP:
		vm.s = -1
		vm.d[0] = 0
		vm.i = 1
		return StepResult{Status: vm.continuingOrHalted()}

	case mepa.CHPR:
		target, ok := in.LabelArg.Locate(vm.code)
		if !ok {
			return fail(mepaerrors.NewRuntime("unresolved call target at i=%d", vm.i))
		}
		vm.s++
		if err := vm.checkM(vm.s); err != nil {
			return fail(err)
		}
		vm.m[vm.s] = int32(vm.i + 1)
		vm.i = target
		return StepResult{Status: vm.continuingOrHalted()}

	case mepa.ENPR:
		k := int(in.A)
		if err := vm.checkDisplay(k); err != nil {
			return fail(err)
		}
		vm.s++
		if err := vm.checkM(vm.s); err != nil {
			return fail(err)
		}
		vm.m[vm.s] = vm.d[k]
		vm.d[k] = int32(vm.s + 1)

	case mepa.RTPR:
		k, n := int(in.A), int(in.B)
		if err := vm.checkDisplay(k); err != nil {
			return fail(err)
		}
		if err := vm.checkS(); err != nil {
			return fail(err)
		}
		vm.d[k] = vm.m[vm.s]
		if vm.s-1 < 0 {
			return fail(vm.boundsErr("return address", vm.s-1))
		}
		vm.i = int(vm.m[vm.s-1])
		vm.s -= n + 2
		return StepResult{Status: vm.continuingOrHalted()}

	default:
		return fail(mepaerrors.NewRuntime("unhandled opcode %s at i=%d", op, vm.i))
	}

	vm.i++
	return StepResult{Status: vm.continuingOrHalted()}
}

// continuingOrHalted lets Step report Halted the moment i lands on PARA, so
// callers don't need a redundant extra Step to discover termination.
func (vm *Machine) continuingOrHalted() StepStatus {
	if vm.Ended() {
		return Halted
	}
	return Continuing
}

func fail(err error) StepResult { return StepResult{Status: Failed, Err: err} }

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// euclideanDiv implements Euclidean division: the remainder a - q*b is
// always in [0, |b|), unlike Go's native '/' which truncates toward zero.
func euclideanDiv(a, b int32) int32 {
	q := a / b
	r := a % b
	if r < 0 {
		if b > 0 {
			q--
		} else {
			q++
		}
	}
	return q
}

func (vm *Machine) checkS() error {
	if vm.s < 0 || vm.s >= len(vm.m) {
		return vm.boundsErr("stack pointer", vm.s)
	}
	return nil
}

func (vm *Machine) checkBinary() error {
	if vm.s-1 < 0 || vm.s >= len(vm.m) {
		return vm.boundsErr("stack pointer", vm.s)
	}
	return nil
}

func (vm *Machine) checkM(addr int) error {
	if addr < 0 || addr >= len(vm.m) {
		return vm.boundsErr("memory address", addr)
	}
	return nil
}

func (vm *Machine) checkDisplay(level int) error {
	if level < 0 || level >= len(vm.d) {
		return vm.boundsErr("display level", level)
	}
	return nil
}

// Run drives Step to completion for programs that need no further input
// beyond what was supplied at construction, collecting every IMPR output in
// order. It is a convenience for tests and the CLI's non-interactive `run`
// mode; interactive/debugger callers should drive Step themselves.
func Run(code *mepa.Code, input []int32) ([]int32, error) {
	m := NewWithInput(code, input)
	var out []int32
	for {
		res := m.Step()
		switch res.Status {
		case Produced:
			out = append(out, res.Output)
		case Halted:
			return out, nil
		case Failed:
			return out, res.Err
		case NeedsInput:
			return out, mepaerrors.NewRuntime("program requested input but none was supplied")
		case Continuing:
			// keep going
		default:
			return out, fmt.Errorf("unknown step status %d", res.Status)
		}
	}
}
