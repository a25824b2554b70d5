package symtab

import (
	"strings"
	"testing"
)

func TestNewVariableAndLookupScoping(t *testing.T) {
	tab := New()
	if err := tab.NewVariable("", true, Variable{Name: "g", Offset: 2}, 1); err != nil {
		t.Fatalf("NewVariable(global): %v", err)
	}
	if err := tab.NewVariable("f", false, Variable{Name: "x", Offset: 2}, 1); err != nil {
		t.Fatalf("NewVariable(f.x): %v", err)
	}

	level, offset, _, ok := tab.Lookup("x", "f")
	if !ok || level != 1 || offset != 2 {
		t.Errorf("Lookup(x, f) = (%d, %d, %v), want (1, 2, true)", level, offset, ok)
	}

	level, offset, _, ok = tab.Lookup("g", "f")
	if !ok || level != 0 || offset != 2 {
		t.Errorf("Lookup(g, f) falling back to global = (%d, %d, %v), want (0, 2, true)", level, offset, ok)
	}

	if _, _, _, ok := tab.Lookup("x", ""); ok {
		t.Error("Lookup(x, \"\") should not see f's local scope")
	}
}

func TestNewVariableRedeclaration(t *testing.T) {
	tab := New()
	if err := tab.NewVariable("f", false, Variable{Name: "x"}, 1); err != nil {
		t.Fatalf("first declaration: %v", err)
	}
	if err := tab.NewVariable("f", false, Variable{Name: "x"}, 1); err == nil {
		t.Error("redeclaring 'x' in the same scope should fail")
	}
}

// TestNewVariableRedeclarationCarriesLine checks spec.md §4.2's "each error
// carries the offending line" for variable-redeclaration errors: the line
// passed to NewVariable must show up in the returned error's message.
func TestNewVariableRedeclarationCarriesLine(t *testing.T) {
	tab := New()
	if err := tab.NewVariable("f", false, Variable{Name: "x"}, 3); err != nil {
		t.Fatalf("first declaration: %v", err)
	}
	err := tab.NewVariable("f", false, Variable{Name: "x"}, 7)
	if err == nil {
		t.Fatal("redeclaring 'x' in the same scope should fail")
	}
	if !strings.Contains(err.Error(), "7") {
		t.Errorf("error %q does not mention the offending line 7", err.Error())
	}
}

func TestNewFunctionAndLabel(t *testing.T) {
	tab := New()
	label, err := tab.NewFunction("main", 1)
	if err != nil {
		t.Fatalf("NewFunction: %v", err)
	}
	got, ok := tab.GetFunctionLabel("main")
	if !ok || got != label {
		t.Errorf("GetFunctionLabel(main) = (%d, %v), want (%d, true)", got, ok, label)
	}
	if _, err := tab.NewFunction("main", 1); err == nil {
		t.Error("redeclaring function 'main' should fail")
	}
}

// TestNewFunctionRedeclarationCarriesLine checks spec.md §4.2's "each error
// carries the offending line" for function-redeclaration errors.
func TestNewFunctionRedeclarationCarriesLine(t *testing.T) {
	tab := New()
	if _, err := tab.NewFunction("main", 1); err != nil {
		t.Fatalf("first declaration: %v", err)
	}
	_, err := tab.NewFunction("main", 12)
	if err == nil {
		t.Fatal("redeclaring function 'main' should fail")
	}
	if !strings.Contains(err.Error(), "12") {
		t.Errorf("error %q does not mention the offending line 12", err.Error())
	}
}

func TestNewLabelMonotonic(t *testing.T) {
	tab := New()
	a := tab.NewLabel()
	b := tab.NewLabel()
	if b != a+1 {
		t.Errorf("NewLabel() not monotonic: %d then %d", a, b)
	}
}
