package mepa

import "testing"

func TestInstructionFieldsAndString(t *testing.T) {
	cases := []struct {
		name string
		in   Instruction
		want string
	}{
		{"bare", NewSOMA(), "SOMA"},
		{"oneInt", NewCRCT(42), "CRCT 42"},
		{"twoInt", NewRTPR(1, 2), "RTPR 1 2"},
		{"label literal", NewDSVS(Literal(7)), "DSVS 7"},
		{"label symbolic", NewCHPR(NewSymbolicLabel(3)), "CHPR L3"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.in.String(); got != c.want {
				t.Errorf("String() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestParseInstructionRoundTrip(t *testing.T) {
	cases := []struct {
		tokens []string
		want   Instruction
	}{
		{[]string{"CRCT", "5"}, NewCRCT(5)},
		{[]string{"CRVL", "0", "3"}, NewCRVL(0, 3)},
		{[]string{"CRVL", "3"}, NewCRVL(0, 3)}, // lenient one-operand form
		{[]string{"SOMA"}, NewSOMA()},
		{[]string{"RTPR", "1", "2"}, NewRTPR(1, 2)},
	}
	for _, c := range cases {
		got, err := ParseInstruction(c.tokens)
		if err != nil {
			t.Fatalf("ParseInstruction(%v): %v", c.tokens, err)
		}
		if got.Op != c.want.Op || got.A != c.want.A || got.B != c.want.B {
			t.Errorf("ParseInstruction(%v) = %+v, want %+v", c.tokens, got, c.want)
		}
	}
}

func TestParseInstructionErrors(t *testing.T) {
	cases := [][]string{
		{},
		{"BOGUS"},
		{"CRCT"},
		{"CRCT", "not-a-number"},
	}
	for _, tokens := range cases {
		if _, err := ParseInstruction(tokens); err == nil {
			t.Errorf("ParseInstruction(%v): expected error, got nil", tokens)
		}
	}
}

func TestDelta(t *testing.T) {
	cases := []struct {
		in   Instruction
		want int
	}{
		{NewCRCT(0), 1},
		{NewARMZ(0, 0), -1},
		{NewAMEM(5), 5},
		{NewDMEM(5), -5},
		{NewRTPR(1, 3), -5},
		{NewNADA(), 0},
		{NewDSVS(Literal(0)), 0},
	}
	for _, c := range cases {
		if got := c.in.Delta(); got != c.want {
			t.Errorf("%s.Delta() = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestOpString(t *testing.T) {
	if CRCT.String() != "CRCT" {
		t.Errorf("CRCT.String() = %q", CRCT.String())
	}
	if RTPR.String() != "RTPR" {
		t.Errorf("RTPR.String() = %q", RTPR.String())
	}
}
