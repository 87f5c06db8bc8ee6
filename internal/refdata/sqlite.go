package refdata

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Skufu/symptomrx/internal/engine"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS descriptions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	disease     TEXT NOT NULL,
	description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS precautions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	disease      TEXT NOT NULL,
	precaution_1 TEXT,
	precaution_2 TEXT,
	precaution_3 TEXT,
	precaution_4 TEXT
);

CREATE TABLE IF NOT EXISTS medications (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	disease    TEXT NOT NULL,
	medication TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS diets (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	disease TEXT NOT NULL,
	diet    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS workouts (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	disease TEXT NOT NULL,
	workout TEXT NOT NULL
);
`

// SQLiteStore keeps reference tables in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load reads all reference tables.
func (s *SQLiteStore) Load(ctx context.Context) (*engine.Tables, error) {
	return loadTables(ctx, func(ctx context.Context, q string) (rows, func(), error) {
		r, err := s.db.QueryContext(ctx, q)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	})
}

// Replace swaps the stored tables for t in a single transaction.
func (s *SQLiteStore) Replace(ctx context.Context, t *engine.Tables) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	exec := func(ctx context.Context, q string, args ...any) error {
		_, err := tx.ExecContext(ctx, q, args...)
		return err
	}
	if err := writeTables(ctx, exec, func(int) string { return "?" }, t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
