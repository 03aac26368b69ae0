package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a point query matches no row.
	ErrNotFound = errors.New("not found")

	// ErrSerializationFailure is returned when Postgres aborts a
	// transaction to preserve serializable isolation. The transaction
	// can be retried from the top.
	ErrSerializationFailure = errors.New("serialization failure")
)

// isSerializationFailure reports whether err is a conflict the store
// raised under serializable isolation. Postgres signals these as
// SQLSTATE 40001 (serialization_failure) or 40P01 (deadlock_detected).
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
