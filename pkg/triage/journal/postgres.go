package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists records to a PostgreSQL table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

// NewPostgresStore connects with connString and creates the table if needed.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.setup(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) setup(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS triage_runs (
			run_id TEXT PRIMARY KEY,
			graph TEXT NOT NULL,
			input TEXT NOT NULL,
			solution TEXT NOT NULL DEFAULT '',
			path JSONB NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			duration_ns BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_triage_runs_created_at
			ON triage_runs(created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	rec, err := prepare(rec)
	if err != nil {
		return err
	}
	path, err := json.Marshal(pathOrEmpty(rec.Path))
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO triage_runs (run_id, graph, input, solution, path, error, duration_ns, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO UPDATE SET
			graph = EXCLUDED.graph,
			input = EXCLUDED.input,
			solution = EXCLUDED.solution,
			path = EXCLUDED.path,
			error = EXCLUDED.error,
			duration_ns = EXCLUDED.duration_ns,
			created_at = EXCLUDED.created_at
	`, rec.RunID, rec.Graph, rec.Input, rec.Solution, string(path), rec.Error,
		int64(rec.Duration), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save run record: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, runID string) (Record, error) {
	if s.closed.Load() {
		return Record{}, ErrStoreClosed
	}

	row := s.pool.QueryRow(ctx, `
		SELECT run_id, graph, input, solution, path, error, duration_ns, created_at
		FROM triage_runs WHERE run_id = $1
	`, runID)
	rec, err := scanPgRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load run record: %w", err)
	}
	return rec, nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Record, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	rows, err := s.pool.Query(ctx, `
		SELECT run_id, graph, input, solution, path, error, duration_ns, created_at
		FROM triage_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list run records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run records: %w", err)
	}
	return out, nil
}

// Truncate deletes every record.
func (s *PostgresStore) Truncate(ctx context.Context) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE triage_runs`); err != nil {
		return fmt.Errorf("truncate run records: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.pool.Close()
	return nil
}

func scanPgRecord(row pgx.Row) (Record, error) {
	var (
		rec      Record
		path     []byte
		duration int64
	)
	if err := row.Scan(&rec.RunID, &rec.Graph, &rec.Input, &rec.Solution, &path, &rec.Error, &duration, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(path, &rec.Path); err != nil {
		return Record{}, fmt.Errorf("decode path: %w", err)
	}
	rec.Duration = time.Duration(duration)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
