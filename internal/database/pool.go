package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/elevenfingers/internal/config"
)

// Schema creates the recorder tables if they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	game_id     UUID PRIMARY KEY,
	room        TEXT NOT NULL,
	text        TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS placements (
	game_id     UUID NOT NULL REFERENCES games (game_id),
	player_id   TEXT NOT NULL,
	username    TEXT NOT NULL,
	position    INTEGER NOT NULL,
	wpm         DOUBLE PRECISION NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, player_id)
);
`

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
