// Package store keeps the history of classification runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"logclassifier/pkg/contracts/domain"
)

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore persists runs and their rows
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path with WAL mode enabled
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	total INTEGER NOT NULL,
	processing_seconds REAL NOT NULL,
	header_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

CREATE TABLE IF NOT EXISTS results (
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	source TEXT NOT NULL,
	log_message TEXT NOT NULL,
	target_label TEXT NOT NULL,
	stage TEXT NOT NULL,
	confidence REAL NOT NULL,
	error TEXT,
	extra_json TEXT,
	PRIMARY KEY(run_id, position),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveRun stores a run and all its rows in one transaction
func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.Run) error {
	header, err := json.Marshal(run.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs(id, file_name, created_at, total, processing_seconds, header_json) VALUES(?, ?, ?, ?, ?, ?)`,
		run.ID, run.FileName, run.CreatedAt.UTC().Format(time.RFC3339Nano), run.Total, run.ProcessingSeconds, string(header),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results(run_id, position, source, log_message, target_label, stage, confidence, error, extra_json) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare results: %w", err)
	}
	defer stmt.Close()

	for i, l := range run.Logs {
		var extra sql.NullString
		if len(l.Extra) > 0 {
			b, err := json.Marshal(l.Extra)
			if err != nil {
				return fmt.Errorf("encode row %d: %w", i, err)
			}
			extra = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, l.Source, l.LogMessage, l.TargetLabel, l.Stage, l.Confidence, l.Error, extra); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, created_at, total, processing_seconds FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []domain.RunSummary{}
	for rows.Next() {
		var (
			r       domain.RunSummary
			created string
		)
		if err := rows.Scan(&r.ID, &r.FileName, &created, &r.Total, &r.ProcessingSeconds); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at of run %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun loads a run with all its rows in their original order
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	var (
		run     domain.Run
		created string
		header  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, created_at, total, processing_seconds, header_json FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.FileName, &created, &run.Total, &run.ProcessingSeconds, &header)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at of run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(header), &run.Header); err != nil {
		return nil, fmt.Errorf("decode header of run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source, log_message, target_label, stage, confidence, error, extra_json FROM results WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get rows of run %s: %w", id, err)
	}
	defer rows.Close()

	run.Logs = make([]domain.ClassifiedLog, 0, run.Total)
	for rows.Next() {
		var (
			l        domain.ClassifiedLog
			errText  sql.NullString
			extraRaw sql.NullString
		)
		if err := rows.Scan(&l.Source, &l.LogMessage, &l.TargetLabel, &l.Stage, &l.Confidence, &errText, &extraRaw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		l.Error = errText.String
		if extraRaw.Valid {
			if err := json.Unmarshal([]byte(extraRaw.String), &l.Extra); err != nil {
				return nil, fmt.Errorf("decode row of run %s: %w", id, err)
			}
		}
		run.Logs = append(run.Logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}

// DeleteRun removes a run and its rows
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}
