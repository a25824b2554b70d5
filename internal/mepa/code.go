package mepa

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Row is one (optional label, instruction) pair, the Code container's unit.
type Row struct {
	Label       *Label
	Instruction Instruction
}

// Code is the finite ordered sequence of (optional Label, Instruction)
// pairs that a compiled unit consists of (spec.md §3). The first
// instruction is INPP; exactly one PARA terminates straight-line
// fall-through of the main body; ENPR/RTPR pair each function.
type Code struct {
	rows []Row
}

// NewCode returns an empty Code container.
func NewCode() *Code { return &Code{} }

// Len returns the number of instructions.
func (c *Code) Len() int { return len(c.rows) }

// At returns the row at index i.
func (c *Code) At(i int) Row { return c.rows[i] }

// Set replaces the row at index i.
func (c *Code) Set(i int, r Row) { c.rows[i] = r }

// Rows returns the underlying slice (read-write; callers that mutate it are
// responsible for keeping labels and jump targets consistent).
func (c *Code) Rows() []Row { return c.rows }

// Append adds an unlabeled instruction and returns its index.
func (c *Code) Append(in Instruction) int {
	c.rows = append(c.rows, Row{Instruction: in})
	return len(c.rows) - 1
}

// AppendLabeled adds a labeled instruction and returns its index.
func (c *Code) AppendLabeled(l Label, in Instruction) int {
	lbl := l
	c.rows = append(c.rows, Row{Label: &lbl, Instruction: in})
	return len(c.rows) - 1
}

// LabelIndex finds the index of the row carrying symbolic label name, or -1.
func (c *Code) LabelIndex(name string) int {
	for i, r := range c.rows {
		if r.Label != nil && !r.Label.isLit && r.Label.symbolic == name {
			return i
		}
	}
	return -1
}

// RemoveInstruction removes the row at index and fixes up every numeric
// literal jump target greater than index by decrementing it by one;
// symbolic labels are unaffected (spec.md §8 property 6).
func (c *Code) RemoveInstruction(index int) {
	c.rows = append(c.rows[:index], c.rows[index+1:]...)
	for i, r := range c.rows {
		in := &c.rows[i].Instruction
		switch in.Op {
		case DSVS, DSVF, CHPR:
			if in.LabelArg.isLit && in.LabelArg.literal > index {
				in.LabelArg = Literal(in.LabelArg.literal - 1)
			}
		}
		_ = r
	}
}

var delimiters = func() map[rune]bool {
	m := map[rune]bool{}
	for _, r := range []rune{',', ' ', '\t', ';', ':'} {
		m[r] = true
	}
	return m
}()

func stripComment(line string) string {
	end := len(line)
	if i := strings.Index(line, "#"); i >= 0 && i < end {
		end = i
	}
	if i := strings.Index(line, "//"); i >= 0 && i < end {
		end = i
	}
	return line[:end]
}

func splitTokens(line string) []string {
	fields := strings.FieldsFunc(line, func(r rune) bool { return delimiters[r] })
	return fields
}

// Parse reads the whitespace-delimited MEPA text form (spec.md §6): one
// instruction per line, optional leading label, mnemonic, 0-2 integer
// operands, `#`/`//` comments to end of line.
func Parse(r io.Reader) (*Code, error) {
	c := NewCode()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		tokens := splitTokens(line)
		if len(tokens) == 0 {
			continue
		}

		var label *Label
		rest := tokens
		if _, known := mnemonicToOp[tokens[0]]; !known {
			l, err := ParseLabel(tokens[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			label = &l
			rest = tokens[1:]
		}

		in, err := ParseInstruction(rest)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		c.rows = append(c.rows, Row{Label: label, Instruction: in})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Write emits the text form, column-padded so each field aligns; an absent
// label is emitted as three spaces (spec.md §6).
func Write(w io.Writer, c *Code) error {
	rowsFields := make([][]string, len(c.rows))
	for i, row := range c.rows {
		var label string
		if row.Label != nil {
			label = row.Label.String() + ":"
		} else {
			label = "   "
		}
		rowsFields[i] = append([]string{label}, row.Instruction.Fields()...)
	}

	widths := map[int]int{}
	for _, fields := range rowsFields {
		for col, f := range fields {
			if len(f) > widths[col] {
				widths[col] = len(f)
			}
		}
	}

	for _, fields := range rowsFields {
		line := ""
		for col, f := range fields {
			if col > 0 {
				line += " "
			}
			line += f
			if col < len(fields)-1 {
				line += strings.Repeat(" ", widths[col]-len(f))
			}
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// String renders the code via Write into a string (used by the CLI/debugger
// for quick inspection without an explicit io.Writer).
func (c *Code) String() string {
	var sb strings.Builder
	_ = Write(&sb, c)
	return sb.String()
}

// NormalizeLabels resolves every symbolic label reference to a Literal
// index and drops NADA rows, fixing up subsequent numeric targets — the
// first pass of CFG construction (spec.md §4.5). It returns a new Code; the
// receiver is left unmodified.
func (c *Code) NormalizeLabels() (*Code, error) {
	working := &Code{rows: append([]Row(nil), c.rows...)}

	// Resolve all label references against the *original* row indices
	// first, since NADA removal shifts indices as we go.
	for i, r := range working.rows {
		switch r.Instruction.Op {
		case DSVS, DSVF, CHPR:
			if !r.Instruction.LabelArg.isLit {
				idx, ok := r.Instruction.LabelArg.Locate(working)
				if !ok {
					return nil, fmt.Errorf("unresolved label %q", r.Instruction.LabelArg.String())
				}
				working.rows[i].Instruction.LabelArg = Literal(idx)
			}
		}
	}

	// Drop NADA rows one at a time, letting RemoveInstruction's renumbering
	// fix up every literal target that follows.
	for i := 0; i < len(working.rows); {
		if working.rows[i].Instruction.Op == NADA {
			working.RemoveInstruction(i)
			continue
		}
		i++
	}

	return working, nil
}
