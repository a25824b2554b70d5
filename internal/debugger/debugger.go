// Package debugger implements spec.md §4.12's interactive stepper: a
// breakpoint-and-watch REPL driven off internal/vm.Machine.Step(), grounded
// on the teacher's internal/debugger package (its Debugger/Breakpoint/
// DebugState shape and command loop), adapted from the teacher's
// file:line source breakpoints to MEPA instruction-address breakpoints —
// MEPA programs carry no source-line debug info, only addresses and
// symbolic labels resolved at NormalizeLabels time.
package debugger

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mepa/internal/mepa"
	"mepa/internal/vm"
)

// DebugState represents the current debugging state.
type DebugState int

const (
	Running DebugState = iota
	Paused
	StepInto
	StepOut
	Terminated
)

// Breakpoint is a debug breakpoint at a fixed instruction address.
type Breakpoint struct {
	ID       int
	Addr     int
	Enabled  bool
	HitCount int
}

// StackFrame is one live activation, tracked by watching CHPR/RTPR as the
// machine steps (MEPA's own state carries no call stack, only the display
// registers, so the debugger reconstructs one for display purposes).
type StackFrame struct {
	CallAddr int // address of the CHPR that created this frame
	Level    int
}

// Debugger wraps a vm.Machine and drives it one instruction at a time,
// pausing for breakpoints and step commands via an interactive command
// loop read from in and written to out.
type Debugger struct {
	m    *vm.Machine
	code *mepa.Code

	breakpoints map[int]*Breakpoint
	nextBpID    int
	state       DebugState
	watches     map[string]bool
	callStack   []StackFrame

	in     *bufio.Reader
	out    io.Writer
	output func(int32) // unused: Run takes its output callback as a parameter
}

// New builds a Debugger around m, starting Paused.
func New(m *vm.Machine, in io.Reader, out io.Writer) *Debugger {
	return &Debugger{
		m:           m,
		code:        m.Code(),
		breakpoints: make(map[int]*Breakpoint),
		nextBpID:    1,
		state:       Paused,
		watches:     make(map[string]bool),
		in:          bufio.NewReader(in),
		out:         out,
	}
}

// AddBreakpoint sets a breakpoint at an instruction address.
func (d *Debugger) AddBreakpoint(addr int) int {
	bp := &Breakpoint{ID: d.nextBpID, Addr: addr, Enabled: true}
	d.breakpoints[d.nextBpID] = bp
	d.nextBpID++
	fmt.Fprintf(d.out, "breakpoint %d set at %d\n", bp.ID, addr)
	return bp.ID
}

// RemoveBreakpoint removes a breakpoint by ID.
func (d *Debugger) RemoveBreakpoint(id int) bool {
	if bp, ok := d.breakpoints[id]; ok {
		delete(d.breakpoints, id)
		fmt.Fprintf(d.out, "breakpoint %d removed (was at %d)\n", bp.ID, bp.Addr)
		return true
	}
	fmt.Fprintf(d.out, "breakpoint %d not found\n", id)
	return false
}

// ListBreakpoints prints every breakpoint.
func (d *Debugger) ListBreakpoints() {
	if len(d.breakpoints) == 0 {
		fmt.Fprintln(d.out, "no breakpoints set")
		return
	}
	for _, bp := range d.breakpoints {
		status := "enabled"
		if !bp.Enabled {
			status = "disabled"
		}
		fmt.Fprintf(d.out, "  %d: addr %d (%s) hits: %d\n", bp.ID, bp.Addr, status, bp.HitCount)
	}
}

// checkBreakpoint reports whether execution should pause at addr.
func (d *Debugger) checkBreakpoint(addr int) bool {
	for _, bp := range d.breakpoints {
		if bp.Enabled && bp.Addr == addr {
			bp.HitCount++
			fmt.Fprintf(d.out, "\nbreakpoint %d hit at %d (hit count %d)\n", bp.ID, addr, bp.HitCount)
			return true
		}
	}
	return false
}

// showLocation disassembles a small window of code around addr.
func (d *Debugger) showLocation(addr int) {
	fmt.Fprintf(d.out, "\n-> %d\n", addr)
	start := max(0, addr-2)
	end := min(d.code.Len(), addr+3)
	for i := start; i < end; i++ {
		marker := "   "
		if i == addr {
			marker = "-> "
		}
		fmt.Fprintf(d.out, "%s%4d | %s\n", marker, i, d.code.At(i).Instruction.String())
	}
}

// AddWatch adds a stack-cell expression ("m n", matching CRVL's operands)
// to the watch list, reported on every pause.
func (d *Debugger) AddWatch(expr string) {
	d.watches[expr] = true
	fmt.Fprintf(d.out, "watching %s\n", expr)
}

// RemoveWatch removes a watch.
func (d *Debugger) RemoveWatch(expr string) {
	if d.watches[expr] {
		delete(d.watches, expr)
		fmt.Fprintf(d.out, "unwatched %s\n", expr)
		return
	}
	fmt.Fprintf(d.out, "watch not found: %s\n", expr)
}

// showWatches evaluates and prints every watched cell against the
// machine's current display.
func (d *Debugger) showWatches() {
	if len(d.watches) == 0 {
		fmt.Fprintln(d.out, "no watches set")
		return
	}
	display := d.m.Display()
	for expr := range d.watches {
		var level, offset int
		if _, err := fmt.Sscanf(expr, "%d %d", &level, &offset); err != nil {
			fmt.Fprintf(d.out, "  %s = <invalid: want \"level offset\">\n", expr)
			continue
		}
		if level < 0 || level >= len(display) {
			fmt.Fprintf(d.out, "  %s = <out of range>\n", expr)
			continue
		}
		addr := int(display[level]) + offset
		v, ok := d.m.Peek(d.m.StackTop() - addr)
		if !ok {
			fmt.Fprintf(d.out, "  %s = <out of range>\n", expr)
			continue
		}
		fmt.Fprintf(d.out, "  %s = %d (addr %d)\n", expr, v, addr)
	}
}

// showCallStack prints the reconstructed call stack.
func (d *Debugger) showCallStack() {
	fmt.Fprintln(d.out, "call stack:")
	for i, f := range d.callStack {
		fmt.Fprintf(d.out, "  %d: called from %d (level %d)\n", i, f.CallAddr, f.Level)
	}
	fmt.Fprintf(d.out, "  ip=%d sp=%d\n", d.m.IP(), d.m.StackTop())
}

// Run drives the machine to completion, pausing for breakpoints, step
// commands, and NeedsInput. Output produced by IMPR is both collected and
// handed to onOutput (if non-nil). Returns the accumulated output trace.
func (d *Debugger) Run(onOutput func(int32)) ([]int32, error) {
	var trace []int32
	finishDepth := 0 // call-stack depth that "finish" runs until it drops below
	for {
		addr := d.m.IP()
		in := d.code.At(addr).Instruction
		d.trackCallStack(addr, in)

		shouldPause := d.checkBreakpoint(addr) || d.state == StepInto || d.state == StepOut && len(d.callStack) < finishDepth
		if shouldPause {
			d.state = Paused
		}
		if d.state == Paused {
			d.showLocation(addr)
			d.showWatches()
			d.repl()
			finishDepth = len(d.callStack)
			switch in.Op {
			case mepa.CHPR:
				finishDepth-- // the frame just pushed is the callee's, not the current call
			case mepa.RTPR:
				finishDepth++ // the frame just popped is still the current call
			}
		}
		if d.state == Terminated {
			return trace, nil
		}

		result := d.m.Step()
		switch result.Status {
		case vm.Produced:
			trace = append(trace, result.Output)
			if onOutput != nil {
				onOutput(result.Output)
			}
		case vm.Halted:
			return trace, nil
		case vm.Failed:
			return trace, result.Err
		case vm.NeedsInput:
			fmt.Fprint(d.out, "input> ")
			line, err := d.in.ReadString('\n')
			if err != nil {
				return trace, err
			}
			v, err := strconv.ParseInt(strings.TrimSpace(line), 10, 32)
			if err != nil {
				return trace, err
			}
			d.m.ProvideInput(int32(v))
		}
	}
}

// trackCallStack keeps a reconstructed call stack in sync: a CHPR about to
// execute pushes a frame (the RTPR that later unwinds it pops one). This
// is display-only; it does not affect Step's own behavior.
func (d *Debugger) trackCallStack(addr int, in mepa.Instruction) {
	switch in.Op {
	case mepa.CHPR:
		d.callStack = append(d.callStack, StackFrame{CallAddr: addr, Level: len(d.callStack)})
	case mepa.RTPR:
		if len(d.callStack) > 0 {
			d.callStack = d.callStack[:len(d.callStack)-1]
		}
	}
}

// repl reads and executes one debugger command at a time until one of
// them resumes execution (continue/step/finish/quit).
func (d *Debugger) repl() {
	for {
		fmt.Fprint(d.out, "(mepa-debug) ")
		line, err := d.in.ReadString('\n')
		if err != nil {
			d.state = Terminated
			return
		}
		if d.executeCommand(strings.TrimSpace(line)) {
			return
		}
	}
}

// executeCommand runs one command; it returns true when the command
// resumes execution (so repl should stop reading more commands).
func (d *Debugger) executeCommand(command string) bool {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "help", "h":
		d.showHelp()
	case "break", "b":
		if len(args) >= 1 {
			addr, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Fprintf(d.out, "invalid address: %s\n", args[0])
				return false
			}
			d.AddBreakpoint(addr)
		} else {
			fmt.Fprintln(d.out, "usage: break <addr>")
		}
	case "delete", "d":
		if len(args) >= 1 {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Fprintf(d.out, "invalid breakpoint id: %s\n", args[0])
				return false
			}
			d.RemoveBreakpoint(id)
		} else {
			fmt.Fprintln(d.out, "usage: delete <id>")
		}
	case "list", "l":
		d.ListBreakpoints()
	case "continue", "c":
		d.state = Running
		return true
	case "step", "s":
		d.state = StepInto
		return true
	case "finish", "f":
		d.state = StepOut
		return true
	case "where", "w":
		d.showCallStack()
	case "watch":
		if len(args) >= 1 {
			d.AddWatch(strings.Join(args, " "))
		} else {
			d.showWatches()
		}
	case "unwatch":
		if len(args) >= 1 {
			d.RemoveWatch(strings.Join(args, " "))
		} else {
			fmt.Fprintln(d.out, "usage: unwatch <level offset>")
		}
	case "print", "p":
		if len(args) >= 1 {
			var level, offset int
			if _, err := fmt.Sscanf(strings.Join(args, " "), "%d %d", &level, &offset); err == nil {
				display := d.m.Display()
				if level >= 0 && level < len(display) {
					fmt.Fprintf(d.out, "base(%d)=%d\n", level, display[level])
				}
			} else {
				fmt.Fprintln(d.out, "usage: print <level> <offset>")
			}
		} else {
			fmt.Fprintln(d.out, "usage: print <level> <offset>")
		}
	case "quit", "q":
		d.state = Terminated
		return true
	default:
		fmt.Fprintf(d.out, "unknown command: %s (type 'help')\n", cmd)
	}
	return false
}

func (d *Debugger) showHelp() {
	fmt.Fprintln(d.out, "available commands:")
	fmt.Fprintln(d.out, "  help, h               show this help")
	fmt.Fprintln(d.out, "  break, b <addr>       set breakpoint at instruction address")
	fmt.Fprintln(d.out, "  delete, d <id>        remove breakpoint by id")
	fmt.Fprintln(d.out, "  list, l               list breakpoints")
	fmt.Fprintln(d.out, "  continue, c           resume execution")
	fmt.Fprintln(d.out, "  step, s               execute one instruction")
	fmt.Fprintln(d.out, "  finish, f             run until the current call returns")
	fmt.Fprintln(d.out, "  where, w              show the reconstructed call stack")
	fmt.Fprintln(d.out, "  watch <level> <off>   watch a display(level)+offset cell")
	fmt.Fprintln(d.out, "  unwatch <level> <off> stop watching a cell")
	fmt.Fprintln(d.out, "  print, p <lvl> <off>  print a display base")
	fmt.Fprintln(d.out, "  quit, q               end the debugging session")
}

// State returns the current debug state.
func (d *Debugger) State() DebugState { return d.state }

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
