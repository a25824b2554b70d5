package vm

import (
	"testing"

	"mepa/internal/mepa"
)

func programSimpleAddAndPrint() *mepa.Code {
	c := mepa.NewCode()
	c.Append(mepa.NewINPP())
	c.Append(mepa.NewCRCT(2))
	c.Append(mepa.NewCRCT(3))
	c.Append(mepa.NewSOMA())
	c.Append(mepa.NewIMPR())
	c.Append(mepa.NewPARA())
	return c
}

func TestRunBasicArithmetic(t *testing.T) {
	out, err := Run(programSimpleAddAndPrint(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != 5 {
		t.Fatalf("out = %v, want [5]", out)
	}
}

func TestStepNeedsInputThenProvide(t *testing.T) {
	c := mepa.NewCode()
	c.Append(mepa.NewINPP())
	c.Append(mepa.NewLEIT())
	c.Append(mepa.NewIMPR())
	c.Append(mepa.NewPARA())

	m := New(c)
	m.Step() // INPP

	res := m.Step() // LEIT with no input
	if res.Status != NeedsInput {
		t.Fatalf("Status = %v, want NeedsInput", res.Status)
	}

	m.ProvideInput(99)
	res = m.Step() // LEIT, now satisfied
	if res.Status != Continuing {
		t.Fatalf("Status after ProvideInput = %v, want Continuing", res.Status)
	}

	res = m.Step() // IMPR
	if res.Status != Produced || res.Output != 99 {
		t.Fatalf("res = %+v, want Produced 99", res)
	}
}

func TestDivisionIsEuclidean(t *testing.T) {
	c := mepa.NewCode()
	c.Append(mepa.NewINPP())
	c.Append(mepa.NewCRCT(-7))
	c.Append(mepa.NewCRCT(2))
	c.Append(mepa.NewDIVI())
	c.Append(mepa.NewIMPR())
	c.Append(mepa.NewPARA())

	out, err := Run(c, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Euclidean division of -7 by 2 is -4 (remainder 1, not -1).
	if len(out) != 1 || out[0] != -4 {
		t.Fatalf("out = %v, want [-4]", out)
	}
}

func TestDivisionByZeroFails(t *testing.T) {
	c := mepa.NewCode()
	c.Append(mepa.NewINPP())
	c.Append(mepa.NewCRCT(1))
	c.Append(mepa.NewCRCT(0))
	c.Append(mepa.NewDIVI())
	c.Append(mepa.NewPARA())

	if _, err := Run(c, nil); err == nil {
		t.Fatal("expected a division-by-zero runtime error")
	}
}

func TestHaltsOnPARAWithoutExtraStep(t *testing.T) {
	c := mepa.NewCode()
	c.Append(mepa.NewINPP())
	c.Append(mepa.NewPARA())

	m := New(c)
	m.Step() // INPP
	if !m.Ended() {
		t.Fatal("Ended() should report true once IP is on PARA")
	}
}

func TestRunFailsWhenInputExhausted(t *testing.T) {
	c := mepa.NewCode()
	c.Append(mepa.NewINPP())
	c.Append(mepa.NewLEIT())
	c.Append(mepa.NewPARA())

	_, err := Run(c, nil)
	if err == nil {
		t.Fatal("Run should fail when LEIT needs input that was never supplied")
	}
}

// TestLeitRepeatsLastInputWhenExhausted exercises spec.md §3/§6: once the
// pending-input queue is down to its last element, further LEIT reads
// return that same element again instead of exhausting the queue.
func TestLeitRepeatsLastInputWhenExhausted(t *testing.T) {
	c := mepa.NewCode()
	c.Append(mepa.NewINPP())
	c.Append(mepa.NewLEIT())
	c.Append(mepa.NewIMPR())
	c.Append(mepa.NewLEIT())
	c.Append(mepa.NewIMPR())
	c.Append(mepa.NewLEIT())
	c.Append(mepa.NewIMPR())
	c.Append(mepa.NewPARA())

	out, err := Run(c, []int32{7})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []int32{7, 7, 7}
	if len(out) != len(want) {
		t.Fatalf("out = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out = %v, want %v", out, want)
		}
	}
}

func TestComparisonOpsProduceBooleanInts(t *testing.T) {
	c := mepa.NewCode()
	c.Append(mepa.NewINPP())
	c.Append(mepa.NewCRCT(3))
	c.Append(mepa.NewCRCT(5))
	c.Append(mepa.NewCMME()) // 3 < 5
	c.Append(mepa.NewIMPR())
	c.Append(mepa.NewPARA())

	out, err := Run(c, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != 1 {
		t.Fatalf("out = %v, want [1]", out)
	}
}
