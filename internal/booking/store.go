package booking

import (
	"context"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
)

// Store is the slice of the relational store the engine consumes. Every
// transaction it opens runs at serializable isolation; the store is
// responsible for detecting conflicts between concurrent transactions
// and aborting one side.
type Store interface {
	BeginSerializable(ctx context.Context) (Tx, error)
	BeginReadOnly(ctx context.Context) (Tx, error)
}

// Tx is one open transaction. It always ends in exactly one Commit or
// Rollback before the public operation that opened it returns.
type Tx interface {
	FlightByID(ctx context.Context, fid int64) (*database.Flight, error)
	ReservationsForDay(ctx context.Context, username string, day int) ([]database.Reservation, error)
	ReservationCountForDay(ctx context.Context, username string, day int) (int, error)
	ReservationsByUser(ctx context.Context, username string) ([]database.Reservation, error)
	InsertReservation(ctx context.Context, username string, fid int64, day int) (int64, error)
	DeleteReservation(ctx context.Context, rid int64) error
	AddBooked(ctx context.Context, fid int64, delta int) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// PgxStore adapts the pgx-backed store to the engine's Store contract.
type PgxStore struct {
	DB *database.Store
}

func (p PgxStore) BeginSerializable(ctx context.Context) (Tx, error) {
	return p.DB.BeginSerializable(ctx)
}

func (p PgxStore) BeginReadOnly(ctx context.Context) (Tx, error) {
	return p.DB.BeginReadOnly(ctx)
}
