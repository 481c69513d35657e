package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	plan       TEXT NOT NULL,
	plan_hash  TEXT NOT NULL,
	status     TEXT NOT NULL,
	scenes     INTEGER NOT NULL,
	elements   INTEGER NOT NULL,
	collisions INTEGER NOT NULL,
	unresolved INTEGER NOT NULL,
	reflows    INTEGER NOT NULL,
	result     BLOB
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
`

// SQLiteStore keeps runs in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// Save inserts run, replacing any run with the same ID.
func (s *SQLiteStore) Save(ctx context.Context, run *Run) error {
	if err := prepare(run); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO runs
	(id, created_at, plan, plan_hash, status, scenes, elements, collisions, unresolved, reflows, result)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.Plan, run.PlanHash, run.Status,
		run.Scenes, run.Elements, run.Collisions, run.Unresolved, run.Reflows, []byte(run.Result))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Get loads a run by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Run, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, created_at, plan, plan_hash, status, scenes, elements, collisions, unresolved, reflows, result
FROM runs WHERE id = ?`, id)

	var (
		run     Run
		created int64
		result  []byte
	)
	err := row.Scan(&run.ID, &created, &run.Plan, &run.PlanHash, &run.Status,
		&run.Scenes, &run.Elements, &run.Collisions, &run.Unresolved, &run.Reflows, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	if len(result) > 0 {
		run.Result = result
	}
	return &run, nil
}

// List returns the newest runs first, without their result payload.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, created_at, plan, plan_hash, status, scenes, elements, collisions, unresolved, reflows
FROM runs ORDER BY created_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run     Run
			created int64
		)
		if err := rows.Scan(&run.ID, &created, &run.Plan, &run.PlanHash, &run.Status,
			&run.Scenes, &run.Elements, &run.Collisions, &run.Unresolved, &run.Reflows); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.CreatedAt = time.Unix(0, created).UTC()
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Delete removes a run.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(id)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
