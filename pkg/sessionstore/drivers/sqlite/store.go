// Package sqlite is the durable session store, backed by a single SQLite
// file. It is the default driver for the CLI.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/rollcall/pkg/sessionstore"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
}

// DSN builds a connection string for path with the pragmas the store expects.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

// NewStore opens dsn. Call ApplyMigrations before first use.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

// Open opens the database file at path and applies migrations.
func Open(path string) (*Store, error) {
	s, err := NewStore(DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := s.ApplyMigrations(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to apply session database migrations: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Get(ctx context.Context, key sessionstore.Key) (string, error) {
	if err := sessionstore.CheckKey(key); err != nil {
		return "", err
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_tokens WHERE key = ?`,
		key.String(),
	).Scan(&value)
	if err != nil {
		return "", mapNotFound(err)
	}

	return value, nil
}

func (s *Store) Set(ctx context.Context, key sessionstore.Key, value string) error {
	if err := sessionstore.CheckKey(key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_tokens (key, value, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key.String(), value,
	)
	return err
}

func (s *Store) Clear(ctx context.Context, key sessionstore.Key) error {
	if err := sessionstore.CheckKey(key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM session_tokens WHERE key = ?`, key.String())
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sessionstore.ErrNotFound
	}
	return err
}
