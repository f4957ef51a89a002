// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps the Postgres pool shared by the server and the historian.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for url and pings it.
func Connect(ctx context.Context, url string) (*Store, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id            SERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	decks         JSONB NOT NULL DEFAULT '[]',
	rating        DOUBLE PRECISION NOT NULL DEFAULT 1500,
	rating_rd     DOUBLE PRECISION NOT NULL DEFAULT 350,
	volatility    DOUBLE PRECISION NOT NULL DEFAULT 0.06,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS matches (
	id          UUID PRIMARY KEY,
	lobby_id    INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	player_left BOOLEAN NOT NULL DEFAULT FALSE,
	start_time  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time    TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS match_players (
	match_id  UUID NOT NULL REFERENCES matches (id) ON DELETE CASCADE,
	seat      INTEGER NOT NULL,
	player_id INTEGER NOT NULL,
	name      TEXT NOT NULL,
	did_win   BOOLEAN NOT NULL,
	PRIMARY KEY (match_id, seat)
);
CREATE TABLE IF NOT EXISTS match_actions (
	match_id       UUID NOT NULL REFERENCES matches (id) ON DELETE CASCADE,
	action_index   INTEGER NOT NULL,
	seat           INTEGER NOT NULL,
	actor_id       INTEGER NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (match_id, action_index)
);
ALTER TABLE players ADD COLUMN IF NOT EXISTS rating DOUBLE PRECISION NOT NULL DEFAULT 1500;
ALTER TABLE players ADD COLUMN IF NOT EXISTS rating_rd DOUBLE PRECISION NOT NULL DEFAULT 350;
ALTER TABLE players ADD COLUMN IF NOT EXISTS volatility DOUBLE PRECISION NOT NULL DEFAULT 0.06;
`

// EnsureSchema creates the tables this repository uses if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
