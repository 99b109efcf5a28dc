package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"novaerp/internal/core/apperror"
)

// PostgreSQL error codes the services care about.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgCheckViolation       = "23514"
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
	pgAdminShutdown        = "57P01"
	pgTooManyConnections   = "53300"
)

// TranslateError maps driver errors onto the application error classes.
// Lock conflicts that the database resolved by aborting a transaction
// become ConcurrentModification; timeouts and lost connections become
// transient errors. Anything else is returned unchanged.
func TranslateError(err error) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgSerializationFailure, pgErr.Code == pgDeadlockDetected:
			return apperror.NewConcurrentModification(pgErr.TableName, nil).WithCause(err)
		case pgErr.Code == pgCheckViolation:
			// stock_quantity >= 0 guards against a debit that slipped past the row lock
			return apperror.NewConcurrentModification(pgErr.TableName, nil).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgErr.Code == pgUniqueViolation:
			return apperror.NewConflict("duplicate entry").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgErr.Code == pgForeignKeyViolation:
			// Detail reads "... is still referenced from table ..." on delete
			// and "... is not present in table ..." on insert.
			if strings.Contains(pgErr.Detail, "still referenced") {
				return apperror.NewInUse(pgErr.TableName, nil).
					WithDetail("constraint", pgErr.ConstraintName).
					WithCause(err)
			}
			return apperror.NewNotFound("referenced record", nil).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgErr.Code == pgLockNotAvailable:
			return apperror.NewTimeout("lock wait").WithCause(err)
		case pgErr.Code == pgQueryCanceled:
			return apperror.NewTimeout("statement").WithCause(err)
		case pgErr.Code == pgAdminShutdown, pgErr.Code == pgTooManyConnections,
			strings.HasPrefix(pgErr.Code, "08"):
			return apperror.NewUnavailable(err)
		}
		return err
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return apperror.NewTimeout("database operation").WithCause(err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return apperror.NewUnavailable(err)
	}

	return err
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
