package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the item operations care about
const (
	PgErrForeignKeyViolation = "23503"
	PgErrCheckViolation      = "23514"
	PgErrQueryCanceled       = "57014"
)

const (
	CodeDatabaseError = "DATABASE_ERROR"
	CodeTimeout       = "TIMEOUT"
)

var (
	// ErrLimitExceeded is returned before any SQL is built when a batch is larger than MaxBatchItems.
	ErrLimitExceeded = errors.New("batch item limit exceeded")
	// ErrNotFound is returned when a single-row read matches nothing.
	ErrNotFound = errors.New("item not found")
)

// ValidationError reports malformed input that never reached the database.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// RepositoryError represents a failure of the store itself (connection, statement, constraint).
type RepositoryError struct {
	Op      string
	Code    string
	Message string
	Detail  string
	Err     error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// storeError tags err with the operation name and, when possible, the Postgres error code.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}

	repoErr := &RepositoryError{
		Op:      op,
		Code:    CodeDatabaseError,
		Message: "Database error occured",
		Detail:  err.Error(),
		Err:     err,
	}

	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		repoErr.Code = CodeTimeout
		repoErr.Message = "Operation timed out or was canceled"
	case errors.As(err, &pgErr):
		if pgErr.Code == PgErrQueryCanceled {
			repoErr.Code = CodeTimeout
		} else {
			repoErr.Code = pgErr.Code
		}
		repoErr.Message = pgErr.Message
		repoErr.Detail = pgErr.Detail
	}

	return repoErr
}

// ErrorCode returns the RepositoryError code carried by err, or "" if there is none.
func ErrorCode(err error) string {
	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.Code
	}
	return ""
}
