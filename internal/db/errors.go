package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stackit/stackit/internal/engine"
)

// SQLSTATE codes that indicate a unit of work may succeed if run again
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateQueryCanceled        = "57014"
	sqlStateUniqueViolation      = "23505"
)

// classify maps a storage error onto the engine taxonomy. Errors that already
// carry a taxonomy sentinel pass through unchanged.
func classify(err error) error {
	if err == nil || engine.Classified(err) {
		return err
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %v", engine.ErrTransient, err)
	}
	return fmt.Errorf("%w: %v", engine.ErrInternal, err)
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable,
			sqlStateQueryCanceled, sqlStateUniqueViolation:
			return true
		}
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		pgconn.Timeout(err) ||
		pgconn.SafeToRetry(err)
}

// isUniqueViolation reports whether err is a unique constraint violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation
}
