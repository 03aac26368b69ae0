package database

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the relational store adapter. Every booking-path mutation
// runs inside a Tx obtained from BeginSerializable; reads that feed the
// reservation list use BeginReadOnly.
type Store struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// NewStore creates a Store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// BeginSerializable opens a read-write transaction at serializable
// isolation.
func (s *Store) BeginSerializable(ctx context.Context) (*Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx, sb: s.sb}, nil
}

// BeginReadOnly opens a read-only transaction at serializable isolation.
func (s *Store) BeginReadOnly(ctx context.Context) (*Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	return &Tx{tx: tx, sb: s.sb}, nil
}

// Tx wraps one open transaction with the point queries the booking
// engine needs. A Tx always ends in exactly one Commit or Rollback.
type Tx struct {
	tx pgx.Tx
	sb sq.StatementBuilderType
}

// Commit commits the transaction. A serialization conflict detected at
// commit time surfaces as ErrSerializationFailure.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return ErrSerializationFailure
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls the transaction back. Rolling back an already-closed
// transaction is not an error.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// wrap maps driver errors onto the store's sentinel errors.
func wrap(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case isSerializationFailure(err):
		return ErrSerializationFailure
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

var flightColumns = []string{
	"fid", "year", "month", "day_of_month", "carrier_id", "flight_num",
	"origin_city", "dest_city", "actual_time", "capacity", "booked",
}

func scanFlight(row pgx.Row) (*Flight, error) {
	var f Flight
	err := row.Scan(
		&f.FID, &f.Year, &f.Month, &f.DayOfMonth, &f.CarrierID, &f.FlightNum,
		&f.OriginCity, &f.DestCity, &f.ActualTime, &f.Capacity, &f.Booked,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FlightByID returns the flight with the given fid.
func (t *Tx) FlightByID(ctx context.Context, fid int64) (*Flight, error) {
	sqlStr, args, err := t.sb.
		Select(flightColumns...).
		From("flights").
		Where(sq.Eq{"fid": fid}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build flight query: %w", err)
	}

	f, err := scanFlight(t.tx.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return nil, wrap("get flight", err)
	}
	return f, nil
}

// ReservationsForDay returns the user's reservations on the given day of
// month, oldest first.
func (t *Tx) ReservationsForDay(ctx context.Context, username string, day int) ([]Reservation, error) {
	sqlStr, args, err := t.sb.
		Select("rid", "username", "fid", "day_of_month").
		From("reservations").
		Where(sq.Eq{"username": username, "day_of_month": day}).
		OrderBy("rid ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build reservations query: %w", err)
	}

	rows, err := t.tx.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, wrap("query reservations for day", err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var r Reservation
		if err := rows.Scan(&r.RID, &r.Username, &r.FID, &r.DayOfMonth); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("read reservations for day", err)
	}
	return out, nil
}

// ReservationCountForDay returns how many reservations the user holds on
// the given day of month.
func (t *Tx) ReservationCountForDay(ctx context.Context, username string, day int) (int, error) {
	sqlStr, args, err := t.sb.
		Select("COUNT(*)").
		From("reservations").
		Where(sq.Eq{"username": username, "day_of_month": day}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build reservation count query: %w", err)
	}

	var count int
	if err := t.tx.QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, wrap("count reservations", err)
	}
	return count, nil
}

// ReservationsByUser returns all of the user's reservations ordered by
// rid.
func (t *Tx) ReservationsByUser(ctx context.Context, username string) ([]Reservation, error) {
	sqlStr, args, err := t.sb.
		Select("rid", "username", "fid", "day_of_month").
		From("reservations").
		Where(sq.Eq{"username": username}).
		OrderBy("rid ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build reservations query: %w", err)
	}

	rows, err := t.tx.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, wrap("query reservations", err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var r Reservation
		if err := rows.Scan(&r.RID, &r.Username, &r.FID, &r.DayOfMonth); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("read reservations", err)
	}
	return out, nil
}

// InsertReservation inserts a reservation row and returns the
// store-assigned rid.
func (t *Tx) InsertReservation(ctx context.Context, username string, fid int64, day int) (int64, error) {
	sqlStr, args, err := t.sb.
		Insert("reservations").
		Columns("username", "fid", "day_of_month").
		Values(username, fid, day).
		Suffix("RETURNING rid").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build reservation insert: %w", err)
	}

	var rid int64
	if err := t.tx.QueryRow(ctx, sqlStr, args...).Scan(&rid); err != nil {
		return 0, wrap("insert reservation", err)
	}
	return rid, nil
}

// DeleteReservation deletes the reservation with the given rid.
func (t *Tx) DeleteReservation(ctx context.Context, rid int64) error {
	sqlStr, args, err := t.sb.
		Delete("reservations").
		Where(sq.Eq{"rid": rid}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build reservation delete: %w", err)
	}

	tag, err := t.tx.Exec(ctx, sqlStr, args...)
	if err != nil {
		return wrap("delete reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddBooked adjusts a flight's booked-seat count by delta. The caller is
// responsible for having checked the capacity ceiling in this same
// transaction.
func (t *Tx) AddBooked(ctx context.Context, fid int64, delta int) error {
	sqlStr, args, err := t.sb.
		Update("flights").
		Set("booked", sq.Expr("booked + ?", delta)).
		Where(sq.Eq{"fid": fid}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build booked update: %w", err)
	}

	tag, err := t.tx.Exec(ctx, sqlStr, args...)
	if err != nil {
		return wrap("update booked count", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
