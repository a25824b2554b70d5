// Package evaldb persists internal/evalharness run history (spec.md §4.13's
// regression evaluator, out of scope for the core toolchain but carried as
// an ambient/domain component per SPEC_FULL.md §4.13). It is grounded on
// the teacher's internal/database/db_manager.go: the same database/sql
// driver-name mapping and connection lifecycle, narrowed from a
// multi-connection manager to the single store this package's one job
// needs. The driver mapping wires the same three SQL drivers the teacher
// blank-imports (modernc.org/sqlite, lib/pq, go-sql-driver/mysql) plus
// denisenkom/go-mssqldb for SQL Server, present in the wider example
// corpus but unused by the teacher itself.
package evaldb

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"mepa/internal/evalharness"
)

// Store persists evaluator runs to a SQL database.
type Store struct {
	db *sql.DB
}

// driverName maps evaldb's own type names to the database/sql driver
// registered by the blank imports above (mirrors db_manager.go's Connect).
func driverName(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlserver", "mssql":
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("evaldb: unsupported database type %q", dbType)
	}
}

// Open connects to dbType/dsn, verifies the connection, and ensures the
// schema exists.
func Open(dbType, dsn string) (*Store, error) {
	driver, err := driverName(dbType)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("evaldb: failed to open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("evaldb: failed to ping %s: %w", driver, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at  DATETIME NOT NULL,
			total       INTEGER NOT NULL,
			passed      INTEGER NOT NULL,
			failed      INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("evaldb: migrate runs: %w", err)
	}
	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS scenario_results (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id              INTEGER NOT NULL,
			name                TEXT NOT NULL,
			passed              INTEGER NOT NULL,
			error               TEXT,
			duration_ms         INTEGER NOT NULL,
			optimizer_preserved INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("evaldb: migrate scenario_results: %w", err)
	}
	return nil
}

// RecordRun persists one evalharness.Run invocation's stats and per-scenario
// results as a single transaction, grounded on db_manager.go's Transaction
// helper.
func (s *Store) RecordRun(startedAt time.Time, stats evalharness.Stats, results []evalharness.Result) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("evaldb: begin: %w", err)
	}

	res, err := tx.Exec(
		`INSERT INTO runs (started_at, total, passed, failed, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		startedAt, stats.Total, stats.Passed, stats.Failed, stats.TotalTime.Milliseconds(),
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("evaldb: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	for _, r := range results {
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
		}
		if _, err := tx.Exec(
			`INSERT INTO scenario_results (run_id, name, passed, error, duration_ms, optimizer_preserved)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, r.Name, r.Passed, errMsg, r.Duration.Milliseconds(), r.OptimizerPreserved,
		); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("evaldb: insert scenario result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("evaldb: commit: %w", err)
	}
	return runID, nil
}

// RunSummary is one historical run's aggregate stats.
type RunSummary struct {
	ID         int64
	StartedAt  time.Time
	Total      int
	Passed     int
	Failed     int
	DurationMS int64
}

// History returns the most recent runs, newest first, up to limit.
func (s *Store) History(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, total, passed, failed, duration_ms
		 FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("evaldb: query history: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Total, &r.Passed, &r.Failed, &r.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }
