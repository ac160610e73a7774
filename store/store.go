// Package store owns access to the earnings table. A Store is opened once per
// process; every request borrows a short-lived Session from it and closes the
// session when the request is done.
package store

import (
	"context"
	"errors"
	"math"

	"earnings/models"
)

var (
	// ErrNotFound is returned by Session.Get when no row has the given id.
	ErrNotFound = errors.New("earning not found")
	// ErrSessionClosed is returned by every Session method after Close.
	ErrSessionClosed = errors.New("session already closed")
)

// inRange reports whether id can exist in the bigserial id column. Larger
// values are treated as unknown ids rather than sent to the database.
func inRange(id uint) bool {
	return uint64(id) <= math.MaxInt64
}

// Store is the process-wide handle to the database.
type Store interface {
	// Session returns a handle bound to ctx, meant for one unit of work.
	Session(ctx context.Context) Session
	Ping(ctx context.Context) error
	Close() error
}

// Session runs queries for a single request. Mutations run in their own
// transaction and are committed before the method returns.
type Session interface {
	// List returns all rows, most recent date first.
	List() ([]models.Earning, error)
	// ListRange returns rows with start <= date <= end in List order.
	ListRange(start, end models.Date) ([]models.Earning, error)
	Get(id uint) (models.Earning, error)
	// Create inserts e and fills in its assigned id.
	Create(e *models.Earning) error
	// CreateAll inserts every row in one transaction; on error none are kept.
	CreateAll(es []models.Earning) error
	// Delete removes the row with the given id and reports how many rows went
	// away (0 when the id did not exist).
	Delete(id uint) (int64, error)
	// Clear removes every row.
	Clear() (int64, error)
	// Stats aggregates all rows. Goal fields are left for the caller.
	Stats() (models.Stats, error)
	Close() error
}
