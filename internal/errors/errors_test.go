package errors

import (
	"strings"
	"testing"
)

func TestCompilerErrorMessage(t *testing.T) {
	err := NewSyntactic(12, "expected %s, got %s", "';'", "EOF")
	if err.Kind != Syntactic {
		t.Errorf("Kind = %s, want %s", err.Kind, Syntactic)
	}
	msg := err.Error()
	if !strings.Contains(msg, "SyntacticError") || !strings.Contains(msg, ":12") {
		t.Errorf("Error() = %q, missing kind or line", msg)
	}
}

func TestCompilerErrorWithSource(t *testing.T) {
	err := NewSemantic(3, "undeclared variable 'x'").WithSource("x = 1;")
	msg := err.Error()
	if !strings.Contains(msg, "x = 1;") {
		t.Errorf("Error() = %q, missing attached source", msg)
	}
}

func TestRuntimeAndIOHaveNoLocation(t *testing.T) {
	rt := NewRuntime("division by zero")
	if strings.Contains(rt.Error(), " at ") {
		t.Errorf("runtime error should carry no location: %q", rt.Error())
	}
	io := NewIO("could not open file")
	if io.Kind != IOErr {
		t.Errorf("Kind = %s, want %s", io.Kind, IOErr)
	}
	if strings.Contains(io.Error(), " at ") {
		t.Errorf("IO error should carry no location: %q", io.Error())
	}
}
