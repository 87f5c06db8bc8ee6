package refdata

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/symptomrx/internal/engine"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS descriptions (
	id          BIGSERIAL PRIMARY KEY,
	disease     TEXT NOT NULL,
	description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS precautions (
	id           BIGSERIAL PRIMARY KEY,
	disease      TEXT NOT NULL,
	precaution_1 TEXT,
	precaution_2 TEXT,
	precaution_3 TEXT,
	precaution_4 TEXT
);

CREATE TABLE IF NOT EXISTS medications (
	id         BIGSERIAL PRIMARY KEY,
	disease    TEXT NOT NULL,
	medication TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS diets (
	id      BIGSERIAL PRIMARY KEY,
	disease TEXT NOT NULL,
	diet    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS workouts (
	id      BIGSERIAL PRIMARY KEY,
	disease TEXT NOT NULL,
	workout TEXT NOT NULL
);
`

// PostgresStore keeps reference tables in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. The pool stays owned by the caller.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the reference tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Load reads all reference tables.
func (s *PostgresStore) Load(ctx context.Context) (*engine.Tables, error) {
	return loadTables(ctx, func(ctx context.Context, q string) (rows, func(), error) {
		r, err := s.pool.Query(ctx, q)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	})
}

// Replace swaps the stored tables for t in a single transaction.
func (s *PostgresStore) Replace(ctx context.Context, t *engine.Tables) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		exec := func(ctx context.Context, q string, args ...any) error {
			_, err := tx.Exec(ctx, q, args...)
			return err
		}
		return writeTables(ctx, exec, func(n int) string { return "$" + strconv.Itoa(n) }, t)
	})
}
