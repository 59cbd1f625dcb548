// Package indexdb keeps an optional SQLite index of finished runs: one
// row per run plus one per worker. It is a secondary record for later
// inspection — the simulation never reads from it.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"repairtown.ai/internal/protocol"
)

type SQLiteIndex struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL is a fair
	// durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			seed INTEGER NOT NULL,
			rows INTEGER NOT NULL,
			cols INTEGER NOT NULL,
			repairmen INTEGER NOT NULL,
			broken INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			all_fixed INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);`,
		`CREATE TABLE IF NOT EXISTS run_workers (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			worker_id TEXT NOT NULL,
			repaired INTEGER NOT NULL,
			belief INTEGER NOT NULL,
			visits INTEGER NOT NULL,
			PRIMARY KEY (run_id, worker_id)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error { return s.db.Close() }

// RecordRun inserts a finished run and its worker rows in one
// transaction and returns the run id.
func (s *SQLiteIndex) RecordRun(ctx context.Context, report protocol.RunReport, rawJSON []byte) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	p := report.WorldParams
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, seed, rows, cols, repairmen, broken, elapsed_ms, all_fixed, raw_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.StartedAt, p.Seed, p.Rows, p.Cols, p.Repairmen, p.BrokenAtStart,
		report.ElapsedMs, boolToInt(report.AllFixed), string(rawJSON))
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, w := range report.Workers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_workers (run_id, worker_id, repaired, belief, visits) VALUES (?, ?, ?, ?, ?)`,
			runID, w.ID, w.Repaired, w.Belief, w.Visits); err != nil {
			return 0, err
		}
	}
	return runID, tx.Commit()
}

// RunRow is a summary row from the runs table.
type RunRow struct {
	ID        int64
	StartedAt string
	Seed      int64
	Rows      int
	Cols      int
	Repairmen int
	Broken    int
	ElapsedMs int64
	AllFixed  bool
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLiteIndex) RecentRuns(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, seed, rows, cols, repairmen, broken, elapsed_ms, all_fixed
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		var fixed int
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Seed, &r.Rows, &r.Cols, &r.Repairmen, &r.Broken, &r.ElapsedMs, &fixed); err != nil {
			return nil, err
		}
		r.AllFixed = fixed != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
