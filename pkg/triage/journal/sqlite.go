package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteColumns = `run_id, graph, input, solution, path, error, duration_ns, created_at`

var sqliteSchema = []string{
	`PRAGMA journal_mode=WAL`,
	`CREATE TABLE IF NOT EXISTS runs (
		run_id      TEXT PRIMARY KEY,
		graph       TEXT NOT NULL,
		input       TEXT NOT NULL,
		solution    TEXT NOT NULL DEFAULT '',
		path        TEXT NOT NULL,
		error       TEXT NOT NULL DEFAULT '',
		duration_ns INTEGER NOT NULL,
		created_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

// SQLiteStore is the single-node durable journal. Paths are stored as a
// JSON array and times as Unix nanoseconds.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens path, creating the schema when missing. ":memory:"
// gives a private database pinned to one connection.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("prepare schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	rec, err := prepare(rec)
	if err != nil {
		return err
	}
	path, err := json.Marshal(pathOrEmpty(rec.Path))
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	// Upsert in place so the row keeps its rowid.
	_, err = s.db.ExecContext(ctx, `INSERT INTO runs (`+sqliteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			graph = excluded.graph, input = excluded.input,
			solution = excluded.solution, path = excluded.path,
			error = excluded.error, duration_ns = excluded.duration_ns,
			created_at = excluded.created_at`,
		rec.RunID, rec.Graph, rec.Input, rec.Solution, string(path), rec.Error,
		rec.Duration.Nanoseconds(), rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save run record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, runID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM runs WHERE run_id = ?`, runID)
	rec, err := scanSQLite(row.Scan)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Record{}, ErrNotFound
	case err != nil:
		return Record{}, fmt.Errorf("load run record: %w", err)
	}
	return rec, nil
}

// List orders by created_at, then by insertion for equal timestamps.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list run records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanSQLite(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close is idempotent.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func scanSQLite(scan func(dest ...any) error) (Record, error) {
	var (
		rec           Record
		path          string
		nanos, unixNs int64
	)
	if err := scan(&rec.RunID, &rec.Graph, &rec.Input, &rec.Solution, &path, &rec.Error, &nanos, &unixNs); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(path), &rec.Path); err != nil {
		return Record{}, fmt.Errorf("decode path: %w", err)
	}
	rec.Duration = time.Duration(nanos)
	rec.CreatedAt = time.Unix(0, unixNs).UTC()
	return rec, nil
}

func pathOrEmpty(path []string) []string {
	if path == nil {
		return []string{}
	}
	return path
}
