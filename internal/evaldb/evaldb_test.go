package evaldb

import (
	"testing"
	"time"

	"mepa/internal/evalharness"
)

func TestDriverNameMapping(t *testing.T) {
	cases := map[string]string{
		"sqlite":     "sqlite",
		"sqlite3":    "sqlite",
		"postgres":   "postgres",
		"postgresql": "postgres",
		"mysql":      "mysql",
		"sqlserver":  "sqlserver",
		"mssql":      "sqlserver",
	}
	for in, want := range cases {
		got, err := driverName(in)
		if err != nil {
			t.Fatalf("driverName(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("driverName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDriverNameRejectsUnknown(t *testing.T) {
	if _, err := driverName("oracle"); err == nil {
		t.Error("driverName(\"oracle\") should fail: no driver wired for it")
	}
}

// TestOpenAndRecordRunAgainstSQLite exercises the full Store lifecycle
// against the in-process SQLite driver: migration, recording one run with a
// mixed pass/fail result set, and reading it back via History.
func TestOpenAndRecordRunAgainstSQLite(t *testing.T) {
	store, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	stats := evalharness.Stats{Total: 2, Passed: 1, Failed: 1, TotalTime: 50 * time.Millisecond}
	results := []evalharness.Result{
		{Name: "ok-scenario", Passed: true, OptimizerPreserved: true, Duration: 20 * time.Millisecond},
		{Name: "bad-scenario", Passed: false, Duration: 30 * time.Millisecond},
	}

	runID, err := store.RecordRun(time.Now(), stats, results)
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if runID == 0 {
		t.Fatal("RecordRun returned a zero run id")
	}

	history, err := store.History(5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("History returned %d rows, want 1", len(history))
	}
	if history[0].Total != 2 || history[0].Passed != 1 || history[0].Failed != 1 {
		t.Errorf("history[0] = %+v, want Total=2 Passed=1 Failed=1", history[0])
	}
}
