package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS agent_calls (
	call_id      uuid PRIMARY KEY,
	session_id   text,
	fingerprint  text NOT NULL,
	query        text NOT NULL,
	provider     text,
	model        text,
	status       text NOT NULL,
	error_type   text,
	steps        integer NOT NULL DEFAULT 0,
	latency_ms   bigint NOT NULL DEFAULT 0,
	created_at   timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS agent_calls_fingerprint_idx ON agent_calls(fingerprint);
CREATE INDEX IF NOT EXISTS agent_calls_created_at_idx ON agent_calls(created_at DESC);`

// EnsureSchema creates the audit table when it does not exist.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}
