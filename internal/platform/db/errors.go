package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/motorhub/motorhub/internal/shared"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeNotNullViolation     = "23502"
)

// MapError translates driver errors into the shared taxonomy: a missing row becomes
// ErrNotFound, a serialization failure or deadlock becomes ErrConcurrentModification, and
// a dangling reference or missing required column becomes a ValidationError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", shared.ErrConcurrentModification, pgErr.Message)
		case codeForeignKeyViolation:
			return &shared.ValidationError{Field: constraintField(pgErr), Reason: "references a record that does not exist"}
		case codeNotNullViolation:
			return &shared.ValidationError{Field: pgErr.ColumnName, Reason: "is required"}
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// CheckVersioned returns ErrConcurrentModification when a conditional update touched no rows.
func CheckVersioned(tag pgconn.CommandTag, entity string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s changed since it was read", shared.ErrConcurrentModification, entity)
	}
	return nil
}

// constraintField recovers the column from a default constraint name such as
// bookings_provider_id_fkey.
func constraintField(pgErr *pgconn.PgError) string {
	name := strings.TrimSuffix(pgErr.ConstraintName, "_fkey")
	if pgErr.TableName != "" {
		name = strings.TrimPrefix(name, pgErr.TableName+"_")
	}
	return name
}
