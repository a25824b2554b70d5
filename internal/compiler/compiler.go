// Package compiler implements the single-pass recursive-descent parser and
// code generator (spec.md §4.2): it walks the grammar once, emitting MEPA
// instructions directly with no intermediate AST, grounded on
// original_source/src/compiler/compiler.rs's exact emission schemata.
package compiler

import (
	"strconv"

	mepaerrors "mepa/internal/errors"
	"mepa/internal/lexer"
	"mepa/internal/mepa"
	"mepa/internal/symtab"
)

type varType int

const (
	varInt varType = iota
	varPtr
	varArray
)

type declEntry struct {
	kind varType
	name string
	size int32
}

type param struct{ name string }

// Compiler owns all per-compilation state: the token stream, the symbol
// table, and the code being emitted. Errors short-circuit the pipeline.
type Compiler struct {
	lex             *lexer.Lexer
	symbols         *symtab.Table
	code            *mepa.Code
	currentFunction string // "" denotes global scope

	// currentEpilogue and currentArgCount track the enclosing function_def
	// so a nested return command (see returnCommand) can store its value
	// at the right caller-frame slot and jump to the shared epilogue
	// instead of duplicating the frame-teardown sequence at every exit
	// point.
	currentEpilogue mepa.Label
	currentArgCount int32
}

// New builds a Compiler over source text.
func New(source string) (*Compiler, error) {
	lx, err := lexer.New(source)
	if err != nil {
		return nil, err
	}
	return &Compiler{lex: lx, symbols: symtab.New(), code: mepa.NewCode()}, nil
}

// Compile compiles a complete source unit and returns the emitted code.
func Compile(source string) (*mepa.Code, error) {
	c, err := New(source)
	if err != nil {
		return nil, err
	}
	if err := c.program(); err != nil {
		return nil, err
	}
	return c.code, nil
}

func (c *Compiler) level() int32 {
	if c.currentFunction == "" {
		return 0
	}
	return 1
}

func (c *Compiler) expect(tt lexer.TokenType) (lexer.Token, error) {
	tok := c.lex.Next()
	if tok.Type != tt {
		return lexer.Token{}, mepaerrors.NewSyntactic(c.lex.CurrentLine(), "expected %s, got %s", tt, tok.Type)
	}
	return c.lex.Consume()
}

func (c *Compiler) lookupVar(name string) (int32, int32, error) {
	m, n, _, ok := c.symbols.Lookup(name, c.currentFunction)
	if !ok {
		return 0, 0, mepaerrors.NewSemantic(c.lex.CurrentLine(), "variable '%s' was not declared in this scope", name)
	}
	return m, n, nil
}

// program ::= declarations { function_def }
func (c *Compiler) program() error {
	c.code.Append(mepa.NewINPP())

	globalVars, err := c.declarations()
	if err != nil {
		return err
	}

	for c.lex.Next().Type == lexer.TokenFn {
		if err := c.functionDef(); err != nil {
			return err
		}
	}

	if c.lex.Next().Type != lexer.TokenEOF {
		return mepaerrors.NewSyntactic(c.lex.CurrentLine(), "extra tokens after end of program")
	}

	mainLabel, ok := c.symbols.GetFunctionLabel("main")
	if !ok {
		return mepaerrors.NewSemantic(0, "function 'main' not found")
	}
	c.code.Append(mepa.NewAMEM(1))
	c.code.Append(mepa.NewCHPR(mepa.NewSymbolicLabel(mainLabel)))
	c.code.Append(mepa.NewDMEM(globalVars + 3))
	c.code.Append(mepa.NewPARA())
	return nil
}

// function_def ::= 'fn' IDENT '(' [ param { ',' param } ] ')' '{'
//
//	declarations commands [ 'return' expr ';' ] '}'
//
// The grammar's single trailing return is generalized here to allow
// 'return' as a nested command reachable from anywhere in the body
// (spec.md §8's fibonacci seed scenario returns from inside a bare
// 'if'): every return command — trailing or nested — stores its value
// at the caller-reserved slot and jumps to a per-function epilogue
// label; falling off the end of the body without an explicit return
// stores an implicit 0 and flows directly into that same epilogue, so
// exactly one frame-teardown sequence exists per function regardless
// of how many return points it has.
func (c *Compiler) functionDef() error {
	if _, err := c.expect(lexer.TokenFn); err != nil {
		return err
	}
	nameTok, err := c.expect(lexer.TokenIdent)
	if err != nil {
		return err
	}
	name := nameTok.Lexeme
	c.currentFunction = name

	initLabelID, err := c.symbols.NewFunction(name, c.lex.CurrentLine())
	if err != nil {
		return err
	}
	endLabelID := c.symbols.NewLabel()
	labelInit := mepa.NewSymbolicLabel(initLabelID)
	labelEnd := mepa.NewSymbolicLabel(endLabelID)

	c.code.Append(mepa.NewDSVS(labelEnd))
	c.code.AppendLabeled(labelInit, mepa.NewENPR(1))

	if _, err := c.expect(lexer.TokenLParen); err != nil {
		return err
	}
	params, err := c.parameterList()
	if err != nil {
		return err
	}
	L := int32(len(params))
	for i, p := range params {
		offset := int32(i) - (2 + L)
		if err := c.symbols.NewVariable(name, false, symtab.Variable{Name: p.name, Offset: offset}, c.lex.CurrentLine()); err != nil {
			return err
		}
	}
	if _, err := c.expect(lexer.TokenRParen); err != nil {
		return err
	}
	if _, err := c.expect(lexer.TokenLBrace); err != nil {
		return err
	}

	localVars, err := c.declarations()
	if err != nil {
		return err
	}

	epilogue := mepa.NewSymbolicLabel(c.symbols.NewLabel())
	outerEpilogue, outerArgs := c.currentEpilogue, c.currentArgCount
	c.currentEpilogue, c.currentArgCount = epilogue, L

	if err := c.commandsStmt(); err != nil {
		return err
	}

	// implicit fallthrough: no return was taken, so the result is 0
	c.code.Append(mepa.NewCRCT(0))
	c.code.Append(mepa.NewARMZ(1, -(3 + L)))
	c.code.AppendLabeled(epilogue, mepa.NewNADA())

	c.currentEpilogue, c.currentArgCount = outerEpilogue, outerArgs

	if _, err := c.expect(lexer.TokenRBrace); err != nil {
		return err
	}
	c.currentFunction = ""

	c.code.Append(mepa.NewDMEM(localVars + 2))
	c.code.Append(mepa.NewRTPR(1, L))
	c.code.AppendLabeled(labelEnd, mepa.NewNADA())
	return nil
}

func (c *Compiler) parameterList() ([]param, error) {
	var params []param
	if c.lex.Next().Type == lexer.TokenInt || c.lex.Next().Type == lexer.TokenPtr {
		if _, err := c.vartype(); err != nil {
			return nil, err
		}
		tok, err := c.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		params = append(params, param{name: tok.Lexeme})

		for c.lex.Next().Type == lexer.TokenComma {
			c.lex.Consume()
			if _, err := c.vartype(); err != nil {
				return nil, err
			}
			tok, err := c.expect(lexer.TokenIdent)
			if err != nil {
				return nil, err
			}
			params = append(params, param{name: tok.Lexeme})
		}
	}
	return params, nil
}

func (c *Compiler) vartype() (varType, error) {
	tok := c.lex.Next()
	switch tok.Type {
	case lexer.TokenInt:
		c.lex.Consume()
		return varInt, nil
	case lexer.TokenPtr:
		c.lex.Consume()
		return varPtr, nil
	default:
		return 0, mepaerrors.NewSyntactic(c.lex.CurrentLine(), "expected a type, got %s", tok.Type)
	}
}

// declarations ::= { type IDENT [ '[' NUM ']' ] { ',' IDENT [ '[' NUM ']' ] } ';' }
//
// Computes total slots T, emits AMEM T+2 (two scratch cells reserved for
// array-index lvalue computation), assigns offsets from base 2, and for
// every array emits the descriptor self-reference (CREN + ARMZ).
func (c *Compiler) declarations() (int32, error) {
	var entries []declEntry
	for c.lex.Next().Type == lexer.TokenInt || c.lex.Next().Type == lexer.TokenPtr {
		ds, err := c.declaration()
		if err != nil {
			return 0, err
		}
		entries = append(entries, ds...)
	}

	var total int32
	for _, e := range entries {
		total += e.size
	}
	c.code.Append(mepa.NewAMEM(total + 2))

	acc := int32(2)
	isGlobal := c.currentFunction == ""
	for _, e := range entries {
		v := symtab.Variable{Name: e.name, Offset: acc, IsArray: e.kind == varArray}
		if err := c.symbols.NewVariable(c.currentFunction, isGlobal, v, c.lex.CurrentLine()); err != nil {
			return 0, err
		}
		if e.kind == varArray {
			c.code.Append(mepa.NewCREN(c.level(), acc+1))
			c.code.Append(mepa.NewARMZ(c.level(), acc))
		}
		acc += e.size
	}
	return total, nil
}

func (c *Compiler) declaration() ([]declEntry, error) {
	vt, err := c.vartype()
	if err != nil {
		return nil, err
	}
	var entries []declEntry
	for {
		tok, err := c.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		kind := vt
		size := int32(1)
		if c.lex.Next().Type == lexer.TokenLBracket {
			c.lex.Consume()
			numTok, err := c.expect(lexer.TokenNumber)
			if err != nil {
				return nil, err
			}
			n, _ := strconv.ParseInt(numTok.Lexeme, 10, 32)
			if _, err := c.expect(lexer.TokenRBracket); err != nil {
				return nil, err
			}
			size = int32(n) + 1
			kind = varArray
		}
		entries = append(entries, declEntry{kind: kind, name: tok.Lexeme, size: size})

		if c.lex.Next().Type == lexer.TokenComma {
			c.lex.Consume()
			continue
		}
		break
	}
	if _, err := c.expect(lexer.TokenSemi); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Compiler) startsCommand() bool {
	switch c.lex.Next().Type {
	case lexer.TokenLBrace, lexer.TokenIdent, lexer.TokenStar,
		lexer.TokenIf, lexer.TokenWhile, lexer.TokenPrint, lexer.TokenRead,
		lexer.TokenReturn, lexer.TokenSemi:
		return true
	default:
		return false
	}
}

func (c *Compiler) commandsStmt() error {
	for c.startsCommand() {
		if err := c.command(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) commandBlock() error {
	if _, err := c.expect(lexer.TokenLBrace); err != nil {
		return err
	}
	if err := c.commandsStmt(); err != nil {
		return err
	}
	_, err := c.expect(lexer.TokenRBrace)
	return err
}

// command ::= block | assignment ';' | if | while | print ';' | read ';' | call ';' | return | ';'
func (c *Compiler) command() error {
	switch c.lex.Next().Type {
	case lexer.TokenLBrace:
		return c.commandBlock()
	case lexer.TokenStar:
		if err := c.attribution(); err != nil {
			return err
		}
		_, err := c.expect(lexer.TokenSemi)
		return err
	case lexer.TokenIdent:
		if c.lex.NextToNext().Type == lexer.TokenLParen {
			if err := c.functionCall(); err != nil {
				return err
			}
			c.code.Append(mepa.NewDMEM(1))
			_, err := c.expect(lexer.TokenSemi)
			return err
		}
		if err := c.attribution(); err != nil {
			return err
		}
		_, err := c.expect(lexer.TokenSemi)
		return err
	case lexer.TokenIf:
		return c.ifCommand()
	case lexer.TokenWhile:
		return c.whileCommand()
	case lexer.TokenPrint:
		if err := c.printCommand(); err != nil {
			return err
		}
		_, err := c.expect(lexer.TokenSemi)
		return err
	case lexer.TokenRead:
		if err := c.readCommand(); err != nil {
			return err
		}
		_, err := c.expect(lexer.TokenSemi)
		return err
	case lexer.TokenReturn:
		return c.returnCommand()
	default:
		_, err := c.expect(lexer.TokenSemi)
		return err
	}
}

// assignment ::= [ '*' ] IDENT [ '[' expr ']' ] '=' expr
func (c *Compiler) attribution() error {
	indirect := false
	if c.lex.Next().Type == lexer.TokenStar {
		c.lex.Consume()
		indirect = true
	}
	tok, err := c.expect(lexer.TokenIdent)
	if err != nil {
		return err
	}
	m, n, err := c.lookupVar(tok.Lexeme)
	if err != nil {
		return err
	}

	if c.lex.Next().Type == lexer.TokenLBracket {
		c.lex.Consume()
		c.code.Append(mepa.NewCRVL(m, n))
		if err := c.expression(); err != nil {
			return err
		}
		c.code.Append(mepa.NewSOMA())
		c.code.Append(mepa.NewARMZ(c.level(), 1))
		if indirect {
			c.code.Append(mepa.NewCRVI(c.level(), 1))
			c.code.Append(mepa.NewARMZ(c.level(), 1))
		}
		if _, err := c.expect(lexer.TokenRBracket); err != nil {
			return err
		}
		if _, err := c.expect(lexer.TokenAssign); err != nil {
			return err
		}
		if err := c.expression(); err != nil {
			return err
		}
		c.code.Append(mepa.NewARMI(c.level(), 1))
		return nil
	}

	if _, err := c.expect(lexer.TokenAssign); err != nil {
		return err
	}
	if err := c.expression(); err != nil {
		return err
	}
	if indirect {
		c.code.Append(mepa.NewARMI(m, n))
	} else {
		c.code.Append(mepa.NewARMZ(m, n))
	}
	return nil
}

func (c *Compiler) ifCommand() error {
	if _, err := c.expect(lexer.TokenIf); err != nil {
		return err
	}
	labelIf := mepa.NewSymbolicLabel(c.symbols.NewLabel())

	if _, err := c.expect(lexer.TokenLParen); err != nil {
		return err
	}
	if err := c.expression(); err != nil {
		return err
	}
	if _, err := c.expect(lexer.TokenRParen); err != nil {
		return err
	}
	c.code.Append(mepa.NewDSVF(labelIf))
	if err := c.command(); err != nil {
		return err
	}

	if c.lex.Next().Type == lexer.TokenElse {
		labelElse := mepa.NewSymbolicLabel(c.symbols.NewLabel())
		c.code.Append(mepa.NewDSVS(labelElse))
		c.code.AppendLabeled(labelIf, mepa.NewNADA())
		c.lex.Consume()
		if err := c.command(); err != nil {
			return err
		}
		c.code.AppendLabeled(labelElse, mepa.NewNADA())
	} else {
		c.code.AppendLabeled(labelIf, mepa.NewNADA())
	}
	return nil
}

func (c *Compiler) whileCommand() error {
	if _, err := c.expect(lexer.TokenWhile); err != nil {
		return err
	}
	labelInit := mepa.NewSymbolicLabel(c.symbols.NewLabel())
	labelEnd := mepa.NewSymbolicLabel(c.symbols.NewLabel())
	c.code.AppendLabeled(labelInit, mepa.NewNADA())

	if _, err := c.expect(lexer.TokenLParen); err != nil {
		return err
	}
	if err := c.expression(); err != nil {
		return err
	}
	c.code.Append(mepa.NewDSVF(labelEnd))
	if _, err := c.expect(lexer.TokenRParen); err != nil {
		return err
	}
	if err := c.command(); err != nil {
		return err
	}
	c.code.Append(mepa.NewDSVS(labelInit))
	c.code.AppendLabeled(labelEnd, mepa.NewNADA())
	return nil
}

func (c *Compiler) readCommand() error {
	if _, err := c.expect(lexer.TokenRead); err != nil {
		return err
	}
	if _, err := c.expect(lexer.TokenLParen); err != nil {
		return err
	}
	tok, err := c.expect(lexer.TokenIdent)
	if err != nil {
		return err
	}
	m, n, err := c.lookupVar(tok.Lexeme)
	if err != nil {
		return err
	}

	if c.lex.Next().Type == lexer.TokenLBracket {
		c.lex.Consume()
		c.code.Append(mepa.NewCRVL(m, n))
		if err := c.expression(); err != nil {
			return err
		}
		c.code.Append(mepa.NewSOMA())
		c.code.Append(mepa.NewARMZ(c.level(), 0))
		c.code.Append(mepa.NewLEIT())
		c.code.Append(mepa.NewARMI(c.level(), 0))
		if _, err := c.expect(lexer.TokenRBracket); err != nil {
			return err
		}
	} else {
		c.code.Append(mepa.NewLEIT())
		c.code.Append(mepa.NewARMZ(m, n))
	}
	_, err = c.expect(lexer.TokenRParen)
	return err
}

// returnCommand ::= 'return' expr ';'
//
// Stores the expression's value at the caller-reserved result slot and
// jumps to the enclosing function's epilogue (see functionDef); this is
// reachable from anywhere a command is, not only as the body's last
// statement.
func (c *Compiler) returnCommand() error {
	if _, err := c.expect(lexer.TokenReturn); err != nil {
		return err
	}
	if err := c.expression(); err != nil {
		return err
	}
	if _, err := c.expect(lexer.TokenSemi); err != nil {
		return err
	}
	c.code.Append(mepa.NewARMZ(1, -(3 + c.currentArgCount)))
	c.code.Append(mepa.NewDSVS(c.currentEpilogue))
	return nil
}

// print compiles every argument expression first, then emits one IMPR per
// argument — since the stack is LIFO, output order is the reverse of
// argument order, exactly as the original emits it.
func (c *Compiler) printCommand() error {
	if _, err := c.expect(lexer.TokenPrint); err != nil {
		return err
	}
	if _, err := c.expect(lexer.TokenLParen); err != nil {
		return err
	}
	count, err := c.argumentList()
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		c.code.Append(mepa.NewIMPR())
	}
	_, err = c.expect(lexer.TokenRParen)
	return err
}

func (c *Compiler) functionCall() error {
	tok, err := c.expect(lexer.TokenIdent)
	if err != nil {
		return err
	}
	labelID, ok := c.symbols.GetFunctionLabel(tok.Lexeme)
	if !ok {
		return mepaerrors.NewSemantic(c.lex.CurrentLine(), "function %q was not declared", tok.Lexeme)
	}
	if _, err := c.expect(lexer.TokenLParen); err != nil {
		return err
	}
	c.code.Append(mepa.NewAMEM(1)) // reserve the return-value slot
	if _, err := c.argumentList(); err != nil {
		return err
	}
	if _, err := c.expect(lexer.TokenRParen); err != nil {
		return err
	}
	c.code.Append(mepa.NewCHPR(mepa.NewSymbolicLabel(labelID)))
	return nil
}

func (c *Compiler) argumentList() (int, error) {
	count := 0
	if c.lex.Next().Type != lexer.TokenRParen {
		if err := c.expression(); err != nil {
			return 0, err
		}
		count++
		for c.lex.Next().Type == lexer.TokenComma {
			c.lex.Consume()
			if err := c.expression(); err != nil {
				return 0, err
			}
			count++
		}
	}
	return count, nil
}

func (c *Compiler) expression() error {
	if err := c.logicExpr(); err != nil {
		return err
	}
	for c.lex.Next().Type == lexer.TokenOrOr {
		c.lex.Consume()
		if err := c.logicExpr(); err != nil {
			return err
		}
		c.code.Append(mepa.NewDISJ())
	}
	return nil
}

func (c *Compiler) logicExpr() error {
	if err := c.relationalExpr(); err != nil {
		return err
	}
	for c.lex.Next().Type == lexer.TokenAndAnd {
		c.lex.Consume()
		if err := c.relationalExpr(); err != nil {
			return err
		}
		c.code.Append(mepa.NewCONJ())
	}
	return nil
}

func (c *Compiler) relationalExpr() error {
	if err := c.sum(); err != nil {
		return err
	}
	switch c.lex.Next().Type {
	case lexer.TokenLt, lexer.TokenGt, lexer.TokenLe, lexer.TokenGe, lexer.TokenEqEq, lexer.TokenNeq:
		op := c.lex.Next().Type
		c.lex.Consume()
		if err := c.sum(); err != nil {
			return err
		}
		switch op {
		case lexer.TokenLt:
			c.code.Append(mepa.NewCMME())
		case lexer.TokenGt:
			c.code.Append(mepa.NewCMMA())
		case lexer.TokenLe:
			c.code.Append(mepa.NewCMEG())
		case lexer.TokenGe:
			c.code.Append(mepa.NewCMAG())
		case lexer.TokenEqEq:
			c.code.Append(mepa.NewCMIG())
		case lexer.TokenNeq:
			c.code.Append(mepa.NewCMDG())
		}
	}
	return nil
}

func (c *Compiler) sum() error {
	if err := c.factor(); err != nil {
		return err
	}
	for c.lex.Next().Type == lexer.TokenPlus || c.lex.Next().Type == lexer.TokenMinus {
		op := c.lex.Next().Type
		c.lex.Consume()
		if err := c.factor(); err != nil {
			return err
		}
		if op == lexer.TokenPlus {
			c.code.Append(mepa.NewSOMA())
		} else {
			c.code.Append(mepa.NewSUBT())
		}
	}
	return nil
}

func (c *Compiler) factor() error {
	if err := c.operand(); err != nil {
		return err
	}
	for c.lex.Next().Type == lexer.TokenStar || c.lex.Next().Type == lexer.TokenSlash {
		op := c.lex.Next().Type
		c.lex.Consume()
		if err := c.operand(); err != nil {
			return err
		}
		if op == lexer.TokenStar {
			c.code.Append(mepa.NewMULT())
		} else {
			c.code.Append(mepa.NewDIVI())
		}
	}
	return nil
}

// oper ::= NUM | '(' expr ')' | '-' oper | '!' oper
//
//	| '&' IDENT [ '[' expr ']' ]
//	| '*' IDENT [ '[' expr ']' ]
//	| IDENT [ '[' expr ']' ] | call
func (c *Compiler) operand() error {
	tok := c.lex.Next()
	switch tok.Type {
	case lexer.TokenIdent:
		if c.lex.NextToNext().Type == lexer.TokenLParen {
			return c.functionCall()
		}
		c.lex.Consume()
		m, n, err := c.lookupVar(tok.Lexeme)
		if err != nil {
			return err
		}
		if c.lex.Next().Type == lexer.TokenLBracket {
			c.lex.Consume()
			c.code.Append(mepa.NewCRVL(m, n))
			if err := c.expression(); err != nil {
				return err
			}
			c.code.Append(mepa.NewSOMA())
			c.code.Append(mepa.NewARMZ(c.level(), 0))
			c.code.Append(mepa.NewCRVI(c.level(), 0))
			if _, err := c.expect(lexer.TokenRBracket); err != nil {
				return err
			}
		} else {
			c.code.Append(mepa.NewCRVL(m, n))
		}
		return nil

	case lexer.TokenNumber:
		c.lex.Consume()
		v, _ := strconv.ParseInt(tok.Lexeme, 10, 32)
		c.code.Append(mepa.NewCRCT(int32(v)))
		return nil

	case lexer.TokenLParen:
		c.lex.Consume()
		if err := c.expression(); err != nil {
			return err
		}
		_, err := c.expect(lexer.TokenRParen)
		return err

	case lexer.TokenMinus:
		c.lex.Consume()
		if err := c.operand(); err != nil {
			return err
		}
		c.code.Append(mepa.NewINVR())
		return nil

	case lexer.TokenNot:
		c.lex.Consume()
		if err := c.operand(); err != nil {
			return err
		}
		c.code.Append(mepa.NewNEGA())
		return nil

	case lexer.TokenAmp:
		c.lex.Consume()
		idTok, err := c.expect(lexer.TokenIdent)
		if err != nil {
			return err
		}
		m, n, err := c.lookupVar(idTok.Lexeme)
		if err != nil {
			return err
		}
		if c.lex.Next().Type == lexer.TokenLBracket {
			c.lex.Consume()
			c.code.Append(mepa.NewCRVL(m, n))
			if err := c.expression(); err != nil {
				return err
			}
			c.code.Append(mepa.NewSOMA())
			_, err := c.expect(lexer.TokenRBracket)
			if err != nil {
				return err
			}
		} else {
			c.code.Append(mepa.NewCREN(m, n))
		}
		return nil

	case lexer.TokenStar:
		c.lex.Consume()
		idTok, err := c.expect(lexer.TokenIdent)
		if err != nil {
			return err
		}
		m, n, err := c.lookupVar(idTok.Lexeme)
		if err != nil {
			return err
		}
		if c.lex.Next().Type == lexer.TokenLBracket {
			c.lex.Consume()
			c.code.Append(mepa.NewCRVL(m, n))
			if err := c.expression(); err != nil {
				return err
			}
			c.code.Append(mepa.NewSOMA())
			c.code.Append(mepa.NewARMZ(c.level(), 0))
			c.code.Append(mepa.NewCRVI(c.level(), 0))
			c.code.Append(mepa.NewARMZ(c.level(), 0))
			c.code.Append(mepa.NewCRVI(c.level(), 0))
			if _, err := c.expect(lexer.TokenRBracket); err != nil {
				return err
			}
		} else {
			c.code.Append(mepa.NewCRVI(m, n))
		}
		return nil

	default:
		return mepaerrors.NewSyntactic(c.lex.CurrentLine(), "unexpected token %s in expression", tok.Type)
	}
}
