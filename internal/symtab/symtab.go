// Package symtab implements the compiler's scoped symbol table: a
// monotonically increasing label counter, a function-name registry, and
// per-scope variable lists (scope = a function name, or global).
package symtab

import (
	"fmt"

	mepaerrors "mepa/internal/errors"
)

// Variable is a declared name and its frame-relative offset.
type Variable struct {
	Name    string
	Offset  int32
	IsArray bool
}

type level struct {
	functionName string // "" means global
	isGlobal     bool
	variables    []Variable
}

// Table is the symbol table owned by the compiler for the duration of one
// compilation; discarded after emission.
type Table struct {
	labelCount int
	functions  []funcEntry
	levels     []level
}

type funcEntry struct {
	name  string
	label int
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{}
}

// NewLabel allocates a fresh, monotonically increasing label id.
func (t *Table) NewLabel() int {
	n := t.labelCount
	t.labelCount++
	return n
}

func (t *Table) findLevel(functionName string, isGlobal bool) *level {
	for i := range t.levels {
		lv := &t.levels[i]
		if lv.isGlobal == isGlobal && (isGlobal || lv.functionName == functionName) {
			return lv
		}
	}
	return nil
}

// NewVariable declares a variable in the given scope ("" + isGlobal=true
// for globals, a function name otherwise). Fails if the name is already
// declared in that scope. line is the source line to attach to a
// redeclaration error (spec.md §4.2: "each error carries the offending
// line"); callers pass their current lexer line.
func (t *Table) NewVariable(functionName string, isGlobal bool, v Variable, line int) error {
	lv := t.findLevel(functionName, isGlobal)
	if lv == nil {
		t.levels = append(t.levels, level{functionName: functionName, isGlobal: isGlobal})
		lv = &t.levels[len(t.levels)-1]
	}
	for _, existing := range lv.variables {
		if existing.Name == v.Name {
			return mepaerrors.NewSemantic(line, "redeclaration of variable '%s'", v.Name)
		}
	}
	lv.variables = append(lv.variables, v)
	return nil
}

// NewFunction registers function name at a freshly allocated label. Fails
// if the name is already registered globally. line is the source line to
// attach to a redeclaration error, per spec.md §4.2.
func (t *Table) NewFunction(name string, line int) (int, error) {
	for _, f := range t.functions {
		if f.name == name {
			return 0, mepaerrors.NewSemantic(line, "redeclaration of function '%s'", name)
		}
	}
	l := t.NewLabel()
	t.functions = append(t.functions, funcEntry{name: name, label: l})
	return l, nil
}

// Lookup returns (lexical level, offset, isArray) for var, searching the
// named function's scope first and falling back to global. Lexical level is
// 1 if found in the function scope, 0 if found in global scope.
func (t *Table) Lookup(name string, functionName string) (level int32, offset int32, isArray bool, ok bool) {
	if functionName != "" {
		if lv := t.findLevel(functionName, false); lv != nil {
			for _, v := range lv.variables {
				if v.Name == name {
					return 1, v.Offset, v.IsArray, true
				}
			}
		}
	}
	if lv := t.findLevel("", true); lv != nil {
		for _, v := range lv.variables {
			if v.Name == name {
				return 0, v.Offset, v.IsArray, true
			}
		}
	}
	return 0, 0, false, false
}

// GetFunctionLabel returns the label id registered for a function name.
func (t *Table) GetFunctionLabel(name string) (int, bool) {
	for _, f := range t.functions {
		if f.name == name {
			return f.label, true
		}
	}
	return 0, false
}

// String renders the table for debugging.
func (t *Table) String() string {
	return fmt.Sprintf("symtab{labels=%d functions=%d levels=%d}", t.labelCount, len(t.functions), len(t.levels))
}
