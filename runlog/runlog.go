// Package runlog keeps a SQLite ledger of teardown runs.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"profile_teardown/model"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run is one ledger row.
type Run struct {
	ID           string
	SubjectDir   string
	StartedAt    time.Time
	Duration     time.Duration
	ResumedFrom  string
	ContentCount int
	Score        int
	Passed       bool
	States       map[model.ContentKey]model.State
}

// Store is safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the ledger. ":memory:" gives a private in-process
// database; file databases use WAL.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		connStr = "file::memory:?cache=shared"
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create runlog dir: %w", err)
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		subject_dir TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		resumed_from TEXT,
		content_count INTEGER NOT NULL,
		score INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		states TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_subject ON runs(subject_dir);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Record inserts or replaces the run.
func (s *Store) Record(ctx context.Context, r Run) error {
	if r.ID == "" {
		return errors.New("run id is required")
	}
	states, err := json.Marshal(r.States)
	if err != nil {
		return fmt.Errorf("encode states: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, subject_dir, started_at, duration_ms, resumed_from, content_count, score, passed, states)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SubjectDir, r.StartedAt.UTC(), r.Duration.Milliseconds(), r.ResumedFrom,
		r.ContentCount, r.Score, r.Passed, string(states))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// List returns the most recent runs first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, subject_dir, started_at, duration_ms, resumed_from, content_count, score, passed, states
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, subject_dir, started_at, duration_ms, resumed_from, content_count, score, passed, states
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r          Run
		durationMS int64
		resumed    sql.NullString
		passed     int
		states     string
	)
	if err := sc.Scan(&r.ID, &r.SubjectDir, &r.StartedAt, &durationMS, &resumed, &r.ContentCount, &r.Score, &passed, &states); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.ResumedFrom = resumed.String
	r.Passed = passed != 0
	if err := json.Unmarshal([]byte(states), &r.States); err != nil {
		return Run{}, fmt.Errorf("decode states for %s: %w", r.ID, err)
	}
	return r, nil
}
