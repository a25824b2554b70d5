// internal/errors/errors.go
package errors

import (
	"fmt"
	"strings"
)

// Kind is the error category, per the five kinds the toolchain reports:
// lexical, syntactic, semantic, IO and runtime errors.
type Kind string

const (
	Lexical   Kind = "LexicalError"
	Syntactic Kind = "SyntacticError"
	Semantic  Kind = "SemanticError"
	IOErr     Kind = "IOError"
	Runtime   Kind = "RuntimeError"
)

// SourceLocation represents a location in source code.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// CompilerError is the error type returned by the lexer, parser, compiler
// and VM failure paths; the optimizer and the bytecode text reader return
// plain errors.
type CompilerError struct {
	Kind     Kind
	Message  string
	Location SourceLocation
	Source   string // the source line where the error occurred, if known
}

// Error implements the error interface.
func (e *CompilerError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))

	if e.Location.Line > 0 || e.Location.File != "" {
		file := e.Location.File
		if file == "" {
			file = "<input>"
		}
		if e.Location.Column > 0 {
			sb.WriteString(fmt.Sprintf(" at %s:%d:%d", file, e.Location.Line, e.Location.Column))
		} else {
			sb.WriteString(fmt.Sprintf(" at %s:%d", file, e.Location.Line))
		}
	}

	if e.Source != "" {
		sb.WriteString(fmt.Sprintf("\n  %d | %s", e.Location.Line, e.Source))
	}

	return sb.String()
}

// WithSource attaches the offending source line for display.
func (e *CompilerError) WithSource(source string) *CompilerError {
	e.Source = source
	return e
}

func newAt(kind Kind, line, column int, format string, args ...interface{}) *CompilerError {
	return &CompilerError{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: SourceLocation{Line: line, Column: column},
	}
}

// NewLexical reports a lexical error at the given line.
func NewLexical(line int, format string, args ...interface{}) *CompilerError {
	return newAt(Lexical, line, 0, format, args...)
}

// NewSyntactic reports a syntactic error at the given line.
func NewSyntactic(line int, format string, args ...interface{}) *CompilerError {
	return newAt(Syntactic, line, 0, format, args...)
}

// NewSemantic reports a semantic error at the given line.
func NewSemantic(line int, format string, args ...interface{}) *CompilerError {
	return newAt(Semantic, line, 0, format, args...)
}

// NewRuntime reports a VM runtime error (no source line: it happens during
// execution, not compilation).
func NewRuntime(format string, args ...interface{}) *CompilerError {
	return newAt(Runtime, 0, 0, format, args...)
}

// NewIO reports a propagated file I/O error.
func NewIO(format string, args ...interface{}) *CompilerError {
	return newAt(IOErr, 0, 0, format, args...)
}
