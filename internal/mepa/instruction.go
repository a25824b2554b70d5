package mepa

import (
	"strconv"
)

// Op is the MEPA opcode, a closed set of 32 constructors (spec.md §3).
// Exhaustive switches over Op are required wherever instructions are
// interpreted, so that adding an opcode is caught at every call site.
type Op int

const (
	CRCT Op = iota
	CRVL
	CREN
	ARMZ
	CRVI
	ARMI
	SOMA
	SUBT
	MULT
	DIVI
	INVR
	CONJ
	DISJ
	NEGA
	CMME
	CMMA
	CMIG
	CMDG
	CMEG
	CMAG
	DSVS
	DSVF
	NADA
	PARA
	LEIT
	IMPR
	AMEM
	DMEM
	INPP
	CHPR
	ENPR
	RTPR
)

var mnemonics = [...]string{
	CRCT: "CRCT", CRVL: "CRVL", CREN: "CREN", ARMZ: "ARMZ", CRVI: "CRVI", ARMI: "ARMI",
	SOMA: "SOMA", SUBT: "SUBT", MULT: "MULT", DIVI: "DIVI", INVR: "INVR",
	CONJ: "CONJ", DISJ: "DISJ", NEGA: "NEGA",
	CMME: "CMME", CMMA: "CMMA", CMIG: "CMIG", CMDG: "CMDG", CMEG: "CMEG", CMAG: "CMAG",
	DSVS: "DSVS", DSVF: "DSVF", NADA: "NADA", PARA: "PARA",
	LEIT: "LEIT", IMPR: "IMPR", AMEM: "AMEM", DMEM: "DMEM", INPP: "INPP",
	CHPR: "CHPR", ENPR: "ENPR", RTPR: "RTPR",
}

func (op Op) String() string { return mnemonics[op] }

var mnemonicToOp = func() map[string]Op {
	m := make(map[string]Op, len(mnemonics))
	for op, name := range mnemonics {
		m[name] = Op(op)
	}
	return m
}()

// kind distinguishes how an instruction's operands are shaped, driving both
// Parse and String.
type kind int

const (
	kindNone       kind = iota // SOMA, SUBT, ..., NADA, PARA, LEIT, IMPR, INPP
	kindOneInt                 // CRCT k, AMEM n, DMEM n, ENPR k
	kindTwoInt                 // RTPR k n
	kindLabel                  // DSVS L, DSVF L, CHPR L
	kindOneOrTwoInt            // CRVL/CREN/ARMZ/CRVI/ARMI accept a lenient 1-operand text form
)

func opKind(op Op) kind {
	switch op {
	case CRCT, AMEM, DMEM, ENPR:
		return kindOneInt
	case CRVL, CREN, ARMZ, CRVI, ARMI:
		return kindOneOrTwoInt
	case RTPR:
		return kindTwoInt
	case DSVS, DSVF, CHPR:
		return kindLabel
	default:
		return kindNone
	}
}

// Instruction is a tagged variant of all 32 MEPA opcodes. Immediate operands
// (A, B) are valid according to opKind(Op); LabelArg is valid only for
// DSVS/DSVF/CHPR.
type Instruction struct {
	Op       Op
	A, B     int32
	LabelArg Label
}

func oneInt(op Op, a int32) Instruction        { return Instruction{Op: op, A: a} }
func twoInt(op Op, a, b int32) Instruction     { return Instruction{Op: op, A: a, B: b} }
func labeled(op Op, l Label) Instruction       { return Instruction{Op: op, LabelArg: l} }
func bare(op Op) Instruction                   { return Instruction{Op: op} }

// Constructors, one per opcode, mirroring the original enum's constructors.
func NewCRCT(k int32) Instruction      { return oneInt(CRCT, k) }
func NewCRVL(m, n int32) Instruction   { return twoInt(CRVL, m, n) }
func NewCREN(m, n int32) Instruction   { return twoInt(CREN, m, n) }
func NewARMZ(m, n int32) Instruction   { return twoInt(ARMZ, m, n) }
func NewCRVI(m, n int32) Instruction   { return twoInt(CRVI, m, n) }
func NewARMI(m, n int32) Instruction   { return twoInt(ARMI, m, n) }
func NewSOMA() Instruction             { return bare(SOMA) }
func NewSUBT() Instruction             { return bare(SUBT) }
func NewMULT() Instruction             { return bare(MULT) }
func NewDIVI() Instruction             { return bare(DIVI) }
func NewINVR() Instruction             { return bare(INVR) }
func NewCONJ() Instruction             { return bare(CONJ) }
func NewDISJ() Instruction             { return bare(DISJ) }
func NewNEGA() Instruction             { return bare(NEGA) }
func NewCMME() Instruction             { return bare(CMME) }
func NewCMMA() Instruction             { return bare(CMMA) }
func NewCMIG() Instruction             { return bare(CMIG) }
func NewCMDG() Instruction             { return bare(CMDG) }
func NewCMEG() Instruction             { return bare(CMEG) }
func NewCMAG() Instruction             { return bare(CMAG) }
func NewDSVS(l Label) Instruction      { return labeled(DSVS, l) }
func NewDSVF(l Label) Instruction      { return labeled(DSVF, l) }
func NewNADA() Instruction             { return bare(NADA) }
func NewPARA() Instruction             { return bare(PARA) }
func NewLEIT() Instruction             { return bare(LEIT) }
func NewIMPR() Instruction             { return bare(IMPR) }
func NewAMEM(n int32) Instruction      { return oneInt(AMEM, n) }
func NewDMEM(n int32) Instruction      { return oneInt(DMEM, n) }
func NewINPP() Instruction             { return bare(INPP) }
func NewCHPR(l Label) Instruction      { return labeled(CHPR, l) }
func NewENPR(k int32) Instruction      { return oneInt(ENPR, k) }
func NewRTPR(k, n int32) Instruction   { return twoInt(RTPR, k, n) }

// Fields returns the mnemonic plus operand strings, the text-form row for
// this instruction (mirrors the original's to_string_vec).
func (in Instruction) Fields() []string {
	switch opKind(in.Op) {
	case kindOneInt:
		return []string{in.Op.String(), strconv.Itoa(int(in.A))}
	case kindTwoInt, kindOneOrTwoInt:
		return []string{in.Op.String(), strconv.Itoa(int(in.A)), strconv.Itoa(int(in.B))}
	case kindLabel:
		return []string{in.Op.String(), in.LabelArg.String()}
	default:
		return []string{in.Op.String()}
	}
}

func (in Instruction) String() string {
	fields := in.Fields()
	s := fields[0]
	for _, f := range fields[1:] {
		s += " " + f
	}
	return s
}

// ParseInstruction parses a token row (mnemonic plus operand tokens, no
// label token) into an Instruction. It accepts the lenient one-operand form
// for CRVL/CREN/ARMZ/CRVI/ARMI (defaulting the lexical level to 0), per
// spec.md §3's bytecode-text clarification.
func ParseInstruction(tokens []string) (Instruction, error) {
	if len(tokens) == 0 {
		return Instruction{}, parseErr("empty instruction")
	}
	op, ok := mnemonicToOp[tokens[0]]
	if !ok {
		return Instruction{}, parseErr("unknown instruction " + tokens[0])
	}
	args := tokens[1:]

	parseInt := func(i int) (int32, error) {
		if i >= len(args) {
			return 0, parseErr("missing argument")
		}
		n, err := strconv.ParseInt(args[i], 10, 32)
		if err != nil {
			return 0, parseErr("failed to parse argument " + args[i])
		}
		return int32(n), nil
	}
	parseLbl := func(i int) (Label, error) {
		if i >= len(args) {
			return Label{}, parseErr("missing argument")
		}
		return ParseLabel(args[i])
	}

	switch opKind(op) {
	case kindOneInt:
		a, err := parseInt(0)
		if err != nil {
			return Instruction{}, err
		}
		return oneInt(op, a), nil
	case kindTwoInt:
		a, err := parseInt(0)
		if err != nil {
			return Instruction{}, err
		}
		b, err := parseInt(1)
		if err != nil {
			return Instruction{}, err
		}
		return twoInt(op, a, b), nil
	case kindOneOrTwoInt:
		if len(args) == 1 {
			n, err := parseInt(0)
			if err != nil {
				return Instruction{}, err
			}
			return twoInt(op, 0, n), nil
		}
		a, err := parseInt(0)
		if err != nil {
			return Instruction{}, err
		}
		b, err := parseInt(1)
		if err != nil {
			return Instruction{}, err
		}
		return twoInt(op, a, b), nil
	case kindLabel:
		l, err := parseLbl(0)
		if err != nil {
			return Instruction{}, err
		}
		return labeled(op, l), nil
	default:
		return bare(op), nil
	}
}

type parseErr string

func (e parseErr) Error() string { return string(e) }

// Delta returns the stack-depth delta (Δs) of the opcode, as given by
// spec.md §4.4 — used by the memory-usage mapper. For CHPR, Delta reports
// only the local +1 of pushing the return address; the callee's argument
// count, and so the call's caller-side net effect, is accounted for
// separately by the memory-usage mapper.
func (in Instruction) Delta() int {
	switch in.Op {
	case CRCT, CRVL, CREN, CRVI, LEIT, CHPR, ENPR:
		return 1
	case ARMZ, ARMI, SOMA, SUBT, MULT, DIVI, CONJ, DISJ,
		CMME, CMMA, CMIG, CMDG, CMEG, CMAG, DSVF, IMPR:
		return -1
	case AMEM:
		return int(in.A)
	case DMEM:
		return -int(in.A)
	case RTPR:
		return -(int(in.B) + 2)
	case INVR, NEGA, DSVS, NADA, PARA, INPP:
		return 0
	default:
		return 0
	}
}
