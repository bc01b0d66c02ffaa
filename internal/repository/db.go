package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const pgUniqueViolation = "23505"

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// Duplicate account errors; both wrap ErrDuplicate.
var (
	ErrDuplicateEmail    = fmt.Errorf("email: %w", ErrDuplicate)
	ErrDuplicateUsername = fmt.Errorf("username: %w", ErrDuplicate)
)

// Beginner is satisfied by *pgxpool.Pool and pgxmock pools.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type transactor struct {
	db     Beginner
	logger zerolog.Logger
}

// NewTransactor creates a Transactor backed by a connection pool.
func NewTransactor(db Beginner, logger zerolog.Logger) Transactor {
	return &transactor{
		db:     db,
		logger: logger.With().Str("repository", "tx").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (t *transactor) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// violatedConstraint returns the constraint named by a unique violation.
func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}

// isNoRows reports whether err means the query matched nothing.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
