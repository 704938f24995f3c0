// Package postgres persists probe run history in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// unique_violation, the code behind run_id conflicts
const pgErrUniqueViolation = "23505"

// Pool wraps pgxpool.Pool so stores depend on one injectable handle.
type Pool struct {
	*pgxpool.Pool
}

// NewPool opens a connection pool for the given DSN and verifies it with a
// ping before returning.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close releases the pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// isDuplicateKeyError reports whether err is a unique constraint violation,
// which the run store maps to storage.ErrDuplicateKey.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// isNotFoundError reports whether err means the query matched no rows.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
