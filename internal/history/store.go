// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package history keeps a SQLite log of calibration runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/relabs-tech/accumen_camera/internal/calibration"
)

const schema = `
CREATE TABLE IF NOT EXISTS calibration_runs (
	run_id                TEXT PRIMARY KEY,
	source                TEXT NOT NULL,
	started_at            TEXT NOT NULL,
	finished_at           TEXT NOT NULL,
	phase                 TEXT NOT NULL,
	converged             INTEGER NOT NULL,
	attempts              INTEGER NOT NULL,
	exposure              INTEGER NOT NULL,
	contrast_control      INTEGER NOT NULL,
	brightness            REAL NOT NULL,
	contrast              REAL NOT NULL,
	hue                   REAL NOT NULL,
	single_color_fraction REAL NOT NULL,
	single_color          INTEGER NOT NULL,
	path                  TEXT,
	error                 TEXT
);

CREATE INDEX IF NOT EXISTS idx_calibration_runs_started ON calibration_runs(started_at);
`

// timeLayout is fixed width so that text ordering of started_at is
// chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("history: run not found")

// Run is one stored calibration attempt sequence. Failed runs are stored
// too, with Error set and the measurement fields zero.
type Run struct {
	ID                  string    `json:"run_id"`
	Trigger             string    `json:"trigger"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
	Phase               string    `json:"phase"`
	Converged           bool      `json:"converged"`
	Attempts            int       `json:"attempts"`
	Exposure            int       `json:"exposure"`
	ContrastControl     int       `json:"contrast_control"`
	Brightness          float64   `json:"brightness"`
	Contrast            float64   `json:"contrast"`
	Hue                 float64   `json:"hue"`
	SingleColorFraction float64   `json:"single_color_fraction"`
	SingleColor         bool      `json:"single_color"`
	Path                string    `json:"path,omitempty"`
	Error               string    `json:"error,omitempty"`
}

// NewID returns a fresh run identifier.
func NewID() string {
	return uuid.New().String()
}

// FromResult fills the measurement fields of r from a finished run.
func (r *Run) FromResult(res calibration.Result) {
	r.Phase = string(res.Phase)
	r.Converged = res.Converged
	r.Attempts = res.Attempts
	r.Exposure = res.FinalExposure
	r.ContrastControl = res.FinalContrast
	r.Brightness = res.Sample.Brightness
	r.Contrast = res.Sample.Contrast
	r.Hue = res.Sample.Hue
	r.SingleColorFraction = res.Sample.SingleColorFraction
	r.SingleColor = res.Sample.SingleColor
}

// Store manages the run log in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts run. An empty ID is replaced with a new one, which is returned.
func (s *Store) Record(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = NewID()
	}
	if run.Phase == "" {
		run.Phase = "failed"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calibration_runs (
			run_id, source, started_at, finished_at, phase, converged, attempts,
			exposure, contrast_control, brightness, contrast, hue,
			single_color_fraction, single_color, path, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Trigger,
		run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		run.Phase, run.Converged, run.Attempts,
		run.Exposure, run.ContrastControl, run.Brightness, run.Contrast, run.Hue,
		run.SingleColorFraction, run.SingleColor, nullString(run.Path), nullString(run.Error),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return run.ID, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM calibration_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM calibration_runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

const columns = `run_id, source, started_at, finished_at, phase, converged, attempts,
	exposure, contrast_control, brightness, contrast, hue,
	single_color_fraction, single_color, path, error`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                 Run
		started, finished string
		path, msg         sql.NullString
	)
	err := sc.Scan(&r.ID, &r.Trigger, &started, &finished, &r.Phase, &r.Converged, &r.Attempts,
		&r.Exposure, &r.ContrastControl, &r.Brightness, &r.Contrast, &r.Hue,
		&r.SingleColorFraction, &r.SingleColor, &path, &msg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	r.Path = path.String
	r.Error = msg.String
	return r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
