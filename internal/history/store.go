// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite record of every batch conversion run and
// the outcome of each file in it.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/nconvert-bash/pkg/types"
)

// DefaultLimit is the number of runs Recent returns when n is not positive.
const DefaultLimit = 20

// timeLayout is fixed-width so start times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded batch.
type Run struct {
	ID        string        `json:"id" yaml:"id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Folder    string        `json:"folder" yaml:"folder"`
	Source    types.Format  `json:"source" yaml:"source"`
	Target    types.Format  `json:"target" yaml:"target"`
	Total     int           `json:"total" yaml:"total"`
	Succeeded int           `json:"succeeded" yaml:"succeeded"`
	Failed    int           `json:"failed" yaml:"failed"`
	Deleted   int           `json:"deleted" yaml:"deleted"`
	Message   string        `json:"message,omitempty" yaml:"message,omitempty"`
}

// Store is the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			folder TEXT NOT NULL,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			total INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			deleted INTEGER NOT NULL,
			message TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			input TEXT NOT NULL,
			output TEXT NOT NULL,
			success INTEGER NOT NULL,
			error TEXT,
			duration_ms INTEGER NOT NULL,
			deleted INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished batch and its outcomes in one transaction.
func (s *Store) Record(ctx context.Context, job types.ConversionJob, sum types.Summary, startedAt time.Time, dur time.Duration) error {
	if sum.RunID == "" {
		return fmt.Errorf("summary has no run id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, folder, source, target, total, succeeded, failed, deleted, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, startedAt.UTC().Format(timeLayout), dur.Milliseconds(), job.Folder,
		string(job.Source), string(job.Target), sum.Total, sum.Succeeded, sum.Failed, sum.Deleted, sum.Message,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", sum.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, seq, input, output, success, error, duration_ms, deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing outcome insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range sum.Outcomes {
		if _, err := stmt.ExecContext(ctx, sum.RunID, i, o.Input, o.Output,
			o.Success, o.Error, o.Duration.Milliseconds(), o.Deleted); err != nil {
			return fmt.Errorf("inserting outcome %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, folder, source, target, total, succeeded, failed, deleted, COALESCE(message, '')
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started string
			ms      int64
			src     string
			dst     string
		)
		if err := rows.Scan(&r.ID, &started, &ms, &r.Folder, &src, &dst,
			&r.Total, &r.Succeeded, &r.Failed, &r.Deleted, &r.Message); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, err = time.Parse(timeLayout, started)
		if err != nil {
			return nil, fmt.Errorf("parsing start time of run %s: %w", r.ID, err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		r.Source, r.Target = types.Format(src), types.Format(dst)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Outcomes returns the per-file outcomes of a run in batch order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]types.ConversionOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT input, output, success, COALESCE(error, ''), duration_ms, deleted
		 FROM outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var out []types.ConversionOutcome
	for rows.Next() {
		var (
			o  types.ConversionOutcome
			ms int64
		)
		if err := rows.Scan(&o.Input, &o.Output, &o.Success, &o.Error, &ms, &o.Deleted); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, o)
	}
	return out, rows.Err()
}

// WriteTable prints runs as aligned text.
func WriteTable(w io.Writer, runs []Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no conversion runs recorded")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %s→%s  total %d, ok %d, failed %d, deleted %d  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.ID[:min(8, len(r.ID))],
			r.Source, r.Target, r.Total, r.Succeeded, r.Failed, r.Deleted, r.Folder)
	}
}

// WriteJSON encodes runs as an indented JSON array.
func WriteJSON(w io.Writer, runs []Run) error {
	if runs == nil {
		runs = []Run{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}

// WriteYAML encodes runs as a YAML sequence.
func WriteYAML(w io.Writer, runs []Run) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(runs); err != nil {
		return err
	}
	return enc.Close()
}
