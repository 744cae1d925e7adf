// Package ledger is the Postgres persistence layer for categories and
// transactions created by the import pipeline.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUniqueViolation means an insert collided with an existing row under
	// a unique constraint.
	ErrUniqueViolation = errors.New("unique constraint violation")
)

// uniqueViolationCode is PostgreSQL SQLSTATE 23505.
const uniqueViolationCode = "23505"

// querier is the query surface Store uses. Satisfied by pgxpool.Pool and by
// scripted stand-ins in tests.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Store struct {
	pool *pgxpool.Pool
	db   querier
}

// NewStore opens a connection pool against connString and verifies it with a
// ping before returning.
func NewStore(ctx context.Context, connString string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("NewStore: parsing database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("NewStore: pinging database: %w", err)
	}

	return &Store{pool: pool, db: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable. Used by the health
// endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique-constraint violation,
// however deeply wrapped.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
