package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrorHelpers(t *testing.T) {
	pe := &pgconn.PgError{Code: NumericOutOfRangeCode, Severity: "ERROR", TableName: "earnings", ColumnName: "amount"}
	wrapped := fmt.Errorf("create earning: %w", pe)

	got, ok := AsPgError(wrapped)
	assert.True(t, ok)
	assert.Same(t, pe, got)
	assert.True(t, IsConstraintViolation(wrapped))
	assert.Equal(t, map[string]any{
		"sqlstate": NumericOutOfRangeCode,
		"severity": "ERROR",
		"table":    "earnings",
		"column":   "amount",
	}, ErrorFields(wrapped))

	plain := errors.New("dial tcp: connection refused")
	_, ok = AsPgError(plain)
	assert.False(t, ok)
	assert.False(t, IsConstraintViolation(plain))
	assert.Nil(t, ErrorFields(plain))
	assert.False(t, IsConstraintViolation(&pgconn.PgError{Code: "42P01"}))
}
