package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates a PostgreSQL connection pool.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Store bundles the repositories backed by one database.
type Store struct {
	Users    UserRepository
	Contacts ContactRepository
	Messages EmailMessageRepository
	Sessions SessionRepository

	Driver string
	db     DB
	close  func() error
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// IsPostgresURL reports whether databaseURL selects the PostgreSQL store.
func IsPostgresURL(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}

// Open connects to databaseURL. postgres:// and postgresql:// URLs use the
// pgx pool; anything else is treated as a SQLite path (an optional
// "sqlite:" prefix is stripped, empty means in-memory).
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if IsPostgresURL(databaseURL) {
		pool, err := NewPool(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return NewPgStore(pool), nil
	}

	db, err := OpenSQLite(ctx, strings.TrimPrefix(databaseURL, "sqlite:"))
	if err != nil {
		return nil, err
	}
	if err := EnsureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLiteStore(db), nil
}

// NewPgStore wires the PostgreSQL repositories over pool.
func NewPgStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Users:    NewPgUserRepository(pool),
		Contacts: NewPgContactRepository(pool),
		Messages: NewPgEmailMessageRepository(pool),
		Sessions: NewPgSessionRepository(pool),
		Driver:   "postgres",
		db:       pool,
		close: func() error {
			pool.Close()
			return nil
		},
	}
}

// pgErr maps driver errors onto the repository sentinels.
func pgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		switch pe.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pe.ConstraintName)
		case "23503":
			// referenced parent row is gone
			return ErrNotFound
		}
	}
	return err
}
