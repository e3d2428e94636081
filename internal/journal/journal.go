// Package journal records conversion runs in a SQLite database.
package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/surveyxml/core/errors"
	"github.com/FocuswithJustin/surveyxml/core/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		input      TEXT NOT NULL,
		output     TEXT NOT NULL,
		records    INTEGER NOT NULL,
		errors     INTEGER NOT NULL,
		sha256     TEXT NOT NULL DEFAULT '',
		blake3     TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at)`,
}

// Run is one conversion.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Records   int       `json:"records"`
	Errors    int       `json:"errors"`
	SHA256    string    `json:"sha256,omitempty"`
	BLAKE3    string    `json:"blake3,omitempty"`
}

// Journal is an open run journal.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if err := sqlite.Migrate(ctx, db, schema...); err != nil {
		db.Close()
		return nil, errors.NewIO("migrate", path, err)
	}
	return &Journal{db: db}, nil
}

// OpenReadOnly opens an existing journal for reading. It fails with a not
// found error when path holds no runs table.
func OpenReadOnly(ctx context.Context, path string) (*Journal, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	var n int
	err = db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'runs'`).Scan(&n)
	if err != nil {
		db.Close()
		return nil, errors.NewIO("read", path, err)
	}
	if n == 0 {
		db.Close()
		return nil, errors.NewNotFound("journal", path)
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores run and returns it with its ID and start time filled in
// when they were empty.
func (j *Journal) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, input, output, records, errors, sha256, blake3)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(time.RFC3339Nano), run.Input, run.Output,
		run.Records, run.Errors, run.SHA256, run.BLAKE3,
	)
	if err != nil {
		return Run{}, errors.Wrapf(err, "record run %s", run.ID)
	}
	return run, nil
}

// Get returns the run with the given ID.
func (j *Journal) Get(ctx context.Context, id string) (Run, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, started_at, input, output, records, errors, sha256, blake3
		 FROM runs WHERE id = ?`, id)
	run, err := scan(row)
	if err == sql.ErrNoRows {
		return Run{}, errors.NewNotFound("run", id)
	}
	return run, err
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (j *Journal) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, started_at, input, output, records, errors, sha256, blake3
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (Run, error) {
	var run Run
	var started string
	err := s.Scan(&run.ID, &started, &run.Input, &run.Output,
		&run.Records, &run.Errors, &run.SHA256, &run.BLAKE3)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt, err = time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Run{}, errors.NewParse("timestamp", "", err.Error())
	}
	return run, nil
}
