// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history keeps a SQLite record of finished search runs.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/filefinder/pkg/operation"
	"github.com/walteh/filefinder/pkg/status"
)

//go:embed schema.sql
var schemaSQL string

// DefaultLimit is how many runs List returns when limit is not positive
const DefaultLimit = 20

// 📝 Run is a stored run summary
type Run struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	NamesFile      string    `json:"names_file"`
	Destination    string    `json:"destination"`
	Roots          []string  `json:"roots"`
	FilesScanned   int64     `json:"files_scanned"`
	TotalMatches   int64     `json:"total_matches"`
	FilesCopied    int64     `json:"files_copied"`
	FailedCopies   int64     `json:"failed_copies"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Failures       []Failure `json:"failures,omitempty"`
}

// Failure is one file that could not be copied during a run
type Failure struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Cause       string `json:"cause"`
}

// 🗄️ Store wraps the history database
type Store struct {
	db   *sql.DB
	path string
}

// 🎯 Open opens (creating if needed) the history database at path
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Errorf("opening history database: %w", err)
	}
	// one connection keeps :memory: databases alive across calls
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, errors.Errorf("creating history schema: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("history database ready")

	return &Store{db: db, path: path}, nil
}

// Path returns the database location
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// 📝 Record stores a finished run and its copy failures in one transaction
func (s *Store) Record(ctx context.Context, report *status.FinalReport, req *operation.SearchRequest) error {
	if report == nil || req == nil {
		return errors.New("report and request are required")
	}

	roots, err := json.Marshal(req.Roots)
	if err != nil {
		return errors.Errorf("marshaling roots: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, started_at, finished_at, names_file, destination, roots,
		 files_scanned, total_matches, files_copied, failed_copies, elapsed_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.StartedAt.UTC(), report.FinishedAt.UTC(), req.NameListPath, req.Destination, string(roots),
		report.FilesScanned, report.TotalMatches, report.FilesCopied, report.FailedCopies, report.ElapsedSeconds)
	if err != nil {
		return errors.Errorf("inserting run %s: %w", report.RunID, err)
	}

	for _, ce := range report.Errors {
		cause := ""
		if ce.Cause != nil {
			cause = ce.Cause.Error()
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO failures (run_id, source, destination, cause) VALUES (?, ?, ?, ?)`,
			report.RunID, ce.Path, ce.Dest, cause)
		if err != nil {
			return errors.Errorf("inserting failure for %s: %w", ce.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Errorf("committing run %s: %w", report.RunID, err)
	}
	return nil
}

// 🔍 List returns the most recent runs first, with their failures
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `SELECT run_id, started_at, finished_at, names_file, destination, roots,
		files_scanned, total_matches, files_copied, failed_copies, elapsed_seconds
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var roots string
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.NamesFile, &r.Destination, &roots,
			&r.FilesScanned, &r.TotalMatches, &r.FilesCopied, &r.FailedCopies, &r.ElapsedSeconds); err != nil {
			return nil, errors.Errorf("scanning run: %w", err)
		}
		if err := json.Unmarshal([]byte(roots), &r.Roots); err != nil {
			return nil, errors.Errorf("decoding roots of run %s: %w", r.RunID, err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("iterating runs: %w", err)
	}
	rows.Close()

	for _, r := range runs {
		failures, err := s.failures(ctx, r.RunID)
		if err != nil {
			return nil, err
		}
		r.Failures = failures
	}

	return runs, nil
}

func (s *Store) failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, destination, cause FROM failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, errors.Errorf("querying failures of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.Source, &f.Destination, &f.Cause); err != nil {
			return nil, errors.Errorf("scanning failure: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
