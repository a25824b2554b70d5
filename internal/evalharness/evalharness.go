// Package evalharness implements the regression evaluator of SPEC_FULL.md
// §4.13: a battery of named source-in/output-out scenarios run against the
// compiler, VM, and optimizer, reporting pass/fail the
// way a CI smoke suite would. It is grounded on the teacher's internal/
// testing package (framework.go's TestRunner/TestSuite/TestReporter shape,
// reporters.go's Text/JSON output), narrowed from a general-purpose
// in-language test framework to this module's one concrete use: replaying
// spec.md §8's seed scenarios (and any caller-supplied ones) end to end.
package evalharness

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"mepa/internal/compiler"
	"mepa/internal/optimizer"
	"mepa/internal/vm"
)

// Scenario is one end-to-end case: compile Source, run it against Input,
// and expect the IMPR trace to equal Expected.
type Scenario struct {
	Name     string
	Source   string
	Input    []int32
	Expected []int32
}

// Result is the outcome of running one Scenario.
type Result struct {
	Name               string
	Passed             bool
	Actual             []int32
	Err                error
	Duration           time.Duration
	OptimizerPreserved bool // true if optimized code produced the same trace
}

// Stats summarizes a whole run.
type Stats struct {
	Total, Passed, Failed int
	TotalTime             time.Duration
}

// Reporter receives Results as they complete and a Stats summary at the
// end (mirrors the teacher's TestReporter interface).
type Reporter interface {
	Start(name string)
	Report(Result)
	Summary(Stats)
}

// Run compiles and executes every scenario, checking the optimizer
// preserves behavior (spec.md §8's optimizer-preservation property), and
// reports through r.
func Run(scenarios []Scenario, r Reporter) Stats {
	start := time.Now()
	stats := Stats{}

	for _, sc := range scenarios {
		r.Start(sc.Name)
		t0 := time.Now()
		result := runOne(sc)
		result.Duration = time.Since(t0)

		stats.Total++
		if result.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
		r.Report(result)
	}

	stats.TotalTime = time.Since(start)
	r.Summary(stats)
	return stats
}

func runOne(sc Scenario) Result {
	code, err := compiler.Compile(sc.Source)
	if err != nil {
		return Result{Name: sc.Name, Err: err}
	}

	actual, err := vm.Run(code, sc.Input)
	if err != nil {
		return Result{Name: sc.Name, Err: err}
	}

	passed := equalTrace(actual, sc.Expected)
	result := Result{Name: sc.Name, Passed: passed, Actual: actual}

	optimized, err := optimizer.Optimize(code)
	if err == nil {
		optActual, err := vm.Run(optimized, sc.Input)
		result.OptimizerPreserved = err == nil && equalTrace(optActual, sc.Expected)
	}

	return result
}

func equalTrace(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TextReporter prints a human-readable line per scenario plus a summary,
// in the teacher's TextReporter style.
type TextReporter struct {
	w io.Writer
}

func NewTextReporter(w io.Writer) *TextReporter { return &TextReporter{w: w} }

func (t *TextReporter) Start(name string) { fmt.Fprintf(t.w, "running %s... ", name) }

func (t *TextReporter) Report(r Result) {
	switch {
	case r.Err != nil:
		fmt.Fprintf(t.w, "ERROR (%v)\n", r.Err)
	case !r.Passed:
		fmt.Fprintf(t.w, "FAIL got=%v\n", r.Actual)
	default:
		preserved := "optimizer preserved"
		if !r.OptimizerPreserved {
			preserved = "optimizer DIVERGED"
		}
		fmt.Fprintf(t.w, "ok (%s) %s\n", r.Duration, preserved)
	}
}

func (t *TextReporter) Summary(s Stats) {
	fmt.Fprintf(t.w, "%d/%d passed in %s\n", s.Passed, s.Total, s.TotalTime)
}

// JSONReporter writes one JSON object per Report call and a final summary
// object, each as its own line (JSON Lines) as soon as it is made, for machine
// consumption by the CLI's `eval --format json`.
type JSONReporter struct {
	w    io.Writer
	enc  *json.Encoder
}

func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{w: w, enc: json.NewEncoder(w)}
}

func (j *JSONReporter) Start(name string) {}

func (j *JSONReporter) Report(r Result) {
	errMsg := ""
	if r.Err != nil {
		errMsg = r.Err.Error()
	}
	_ = j.enc.Encode(map[string]any{
		"name":                r.Name,
		"passed":              r.Passed,
		"actual":              r.Actual,
		"error":               errMsg,
		"duration_ms":         r.Duration.Milliseconds(),
		"optimizer_preserved": r.OptimizerPreserved,
	})
}

func (j *JSONReporter) Summary(s Stats) {
	_ = j.enc.Encode(map[string]any{
		"total": s.Total, "passed": s.Passed, "failed": s.Failed,
		"total_ms": s.TotalTime.Milliseconds(),
	})
}

// SeedScenarios returns the five literal end-to-end scenarios spec.md §8
// specifies, plus the optimizer-preservation property exercised by Run
// itself against each one.
func SeedScenarios() []Scenario {
	return []Scenario{
		{
			Name:     "arithmetic",
			Source:   "fn main(){ int x; x=1+2*3; print(x); return 0; }",
			Expected: []int32{7},
		},
		{
			Name:     "array-loop",
			Source:   "fn main(){ int a[3]; a[0]=10;a[1]=20;a[2]=30; int i; i=0; while(i<3){print(a[i]); i=i+1;} return 0;}",
			Expected: []int32{10, 20, 30},
		},
		{
			Name:     "read-print",
			Source:   "fn main(){ int x; read(x); print(x*2); return 0;}",
			Input:    []int32{21},
			Expected: []int32{42},
		},
		{
			Name:     "fibonacci",
			Source:   "fn f(int n){ if(n<2) return n; return f(n-1)+f(n-2); } fn main(){ print(f(10)); return 0;}",
			Expected: []int32{55},
		},
		{
			Name:     "pointer-increment",
			Source:   "fn main(){ int x; ptr p; x=5; p=&x; *p=*p+1; print(x); return 0;}",
			Expected: []int32{6},
		},
	}
}
