package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS extraction_runs (
	run_id          TEXT PRIMARY KEY,
	course_id       TEXT NOT NULL,
	course_url      TEXT NOT NULL,
	status          TEXT NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ,
	activities      INTEGER NOT NULL DEFAULT 0,
	questions       INTEGER NOT NULL DEFAULT 0,
	images          INTEGER NOT NULL DEFAULT 0,
	output_path     TEXT NOT NULL DEFAULT '',
	failure_reason  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_extraction_runs_started_at ON extraction_runs (started_at DESC);

CREATE TABLE IF NOT EXISTS failed_downloads (
	id                BIGSERIAL PRIMARY KEY,
	run_id            TEXT NOT NULL,
	activity_id       TEXT NOT NULL,
	question_number   INTEGER NOT NULL,
	image_url         TEXT NOT NULL,
	reason            TEXT NOT NULL,
	http_status_code  INTEGER NOT NULL DEFAULT 0,
	attempted_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_failed_downloads_run_id ON failed_downloads (run_id);
`

// NewPool connects to PostgreSQL and makes sure the tables exist.
func NewPool(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the run history tables if they are missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
