package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	// UniqueViolationCode indicates a unique constraint violation.
	UniqueViolationCode = "23505"
	// NotNullViolationCode indicates a NULL in a NOT NULL column.
	NotNullViolationCode = "23502"
	// CheckViolationCode indicates a check constraint violation.
	CheckViolationCode = "23514"
	// NumericOutOfRangeCode is raised when an amount does not fit the column.
	NumericOutOfRangeCode = "22003"
)

// AsPgError unwraps err down to the Postgres error that caused it, if any.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsConstraintViolation reports whether err came from an integrity or data
// constraint the database enforced on a write.
func IsConstraintViolation(err error) bool {
	pe, ok := AsPgError(err)
	if !ok {
		return false
	}
	switch pe.Code {
	case UniqueViolationCode, NotNullViolationCode, CheckViolationCode, NumericOutOfRangeCode:
		return true
	}
	return false
}

// ErrorFields extracts the Postgres details worth logging. It returns nil when
// err did not come from the server.
func ErrorFields(err error) map[string]any {
	pe, ok := AsPgError(err)
	if !ok {
		return nil
	}
	fields := map[string]any{
		"sqlstate": pe.Code,
		"severity": pe.Severity,
	}
	if pe.TableName != "" {
		fields["table"] = pe.TableName
	}
	if pe.ColumnName != "" {
		fields["column"] = pe.ColumnName
	}
	if pe.ConstraintName != "" {
		fields["constraint"] = pe.ConstraintName
	}
	return fields
}
