package booking

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/session"
)

// Engine runs the transactional booking protocol. Each public operation
// checks its preconditions, opens exactly one transaction, and always
// reaches commit or rollback before returning.
type Engine struct {
	store Store
	log   *logrus.Logger
}

// NewEngine creates an Engine over the given store.
func NewEngine(store Store, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{store: store, log: log}
}

// Receipt describes a committed booking. A two-hop itinerary produces
// two reservation ids, in flying order.
type Receipt struct {
	ItineraryIndex int     `json:"itineraryIndex"`
	ReservationIDs []int64 `json:"reservationIds"`
	FlightIDs      []int64 `json:"flightIds"`
	DayOfMonth     int     `json:"dayOfMonth"`
}

// ReservationDetail is one row of a user's reservation list.
type ReservationDetail struct {
	RID    int64           `json:"rid"`
	Flight database.Flight `json:"flight"`
}

// Book books the itinerary at the 0-based index of the session's cached
// search result. Every leg is booked inside a single serializable
// transaction, so a two-hop itinerary either commits both legs or
// leaves no trace.
func (e *Engine) Book(ctx context.Context, sess *session.Session, index int) (*Receipt, error) {
	username, ok := sess.Username()
	if !ok {
		return nil, ErrNotLoggedIn
	}

	it, searched, inRange := sess.Itinerary(index)
	if !searched {
		return nil, ErrNoSearchPerformed
	}
	if !inRange {
		return nil, ErrInvalidItinerary
	}

	tx, err := e.store.BeginSerializable(ctx)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	receipt := &Receipt{ItineraryIndex: index}
	for _, fid := range it.Legs {
		rid, day, err := e.bookLeg(ctx, tx, username, fid)
		if err != nil {
			e.rollback(ctx, tx, "book", username)
			return nil, err
		}
		receipt.ReservationIDs = append(receipt.ReservationIDs, rid)
		receipt.FlightIDs = append(receipt.FlightIDs, fid)
		receipt.DayOfMonth = day
	}

	if err := tx.Commit(ctx); err != nil {
		e.rollback(ctx, tx, "book", username)
		return nil, mapStoreErr(err)
	}

	e.log.WithFields(logrus.Fields{
		"username": username,
		"flights":  receipt.FlightIDs,
		"rids":     receipt.ReservationIDs,
	}).Info("itinerary booked")

	return receipt, nil
}

// bookLeg books one flight leg inside the open transaction: capacity
// guard, daily-reservation guard, then the row insert.
func (e *Engine) bookLeg(ctx context.Context, tx Tx, username string, fid int64) (int64, int, error) {
	flight, err := tx.FlightByID(ctx, fid)
	if err != nil {
		return 0, 0, mapStoreErr(err)
	}

	if err := reserveSeat(ctx, tx, flight); err != nil {
		return 0, 0, mapStoreErr(err)
	}
	if err := checkDailyLimit(ctx, tx, username, flight); err != nil {
		return 0, 0, mapStoreErr(err)
	}

	rid, err := tx.InsertReservation(ctx, username, fid, flight.DayOfMonth)
	if err != nil {
		return 0, 0, mapStoreErr(err)
	}
	return rid, flight.DayOfMonth, nil
}

// ListReservations returns the user's reservations with flight details,
// ordered by rid, inside a read-only transaction. As a side effect it
// refreshes the session's rid cache, which Cancel indexes into.
func (e *Engine) ListReservations(ctx context.Context, sess *session.Session) ([]ReservationDetail, error) {
	username, ok := sess.Username()
	if !ok {
		return nil, ErrNotLoggedIn
	}

	tx, err := e.store.BeginReadOnly(ctx)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	rows, err := tx.ReservationsByUser(ctx, username)
	if err != nil {
		e.rollback(ctx, tx, "list reservations", username)
		return nil, mapStoreErr(err)
	}

	details := make([]ReservationDetail, 0, len(rows))
	rids := make([]int64, 0, len(rows))
	for _, r := range rows {
		flight, err := tx.FlightByID(ctx, r.FID)
		if err != nil {
			e.rollback(ctx, tx, "list reservations", username)
			return nil, mapStoreErr(err)
		}
		details = append(details, ReservationDetail{RID: r.RID, Flight: *flight})
		rids = append(rids, r.RID)
	}

	if err := tx.Commit(ctx); err != nil {
		e.rollback(ctx, tx, "list reservations", username)
		return nil, mapStoreErr(err)
	}

	sess.SetReservationIDs(rids)
	return details, nil
}

// Cancellation identifies a committed cancellation.
type Cancellation struct {
	RID int64 `json:"rid"`
	FID int64 `json:"fid"`
}

// Cancel deletes the reservation at the 1-based index of the session's
// cached reservation list and returns the seat to the flight, in one
// transaction.
func (e *Engine) Cancel(ctx context.Context, sess *session.Session, index int) (*Cancellation, error) {
	username, ok := sess.Username()
	if !ok {
		return nil, ErrNotLoggedIn
	}

	rid, fetched, inRange := sess.ReservationID(index)
	if !fetched {
		return nil, ErrNoReservationList
	}
	if !inRange {
		return nil, ErrInvalidReservation
	}

	tx, err := e.store.BeginSerializable(ctx)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	rows, err := tx.ReservationsByUser(ctx, username)
	if err != nil {
		e.rollback(ctx, tx, "cancel", username)
		return nil, mapStoreErr(err)
	}

	var fid int64
	found := false
	for _, r := range rows {
		if r.RID == rid {
			fid = r.FID
			found = true
			break
		}
	}
	if !found {
		// The cached list is stale; the reservation is already gone.
		e.rollback(ctx, tx, "cancel", username)
		return nil, ErrInvalidReservation
	}

	if err := tx.DeleteReservation(ctx, rid); err != nil {
		e.rollback(ctx, tx, "cancel", username)
		return nil, mapStoreErr(err)
	}
	if err := tx.AddBooked(ctx, fid, -1); err != nil {
		e.rollback(ctx, tx, "cancel", username)
		return nil, mapStoreErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		e.rollback(ctx, tx, "cancel", username)
		return nil, mapStoreErr(err)
	}

	e.log.WithFields(logrus.Fields{
		"username": username,
		"rid":      rid,
		"fid":      fid,
	}).Info("reservation cancelled")

	return &Cancellation{RID: rid, FID: fid}, nil
}

// BookWithRetry re-invokes Book while the store reports a transient
// conflict, up to attempts tries. Business-rule and precondition
// failures are never retried.
func (e *Engine) BookWithRetry(ctx context.Context, sess *session.Session, index, attempts int) (*Receipt, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		receipt, err := e.Book(ctx, sess, index)
		if !errors.Is(err, ErrTransientConflict) {
			return receipt, err
		}
		lastErr = err
		e.log.WithField("attempt", i+1).Debug("booking retried after conflict")
	}
	return nil, lastErr
}

// rollback rolls the transaction back best-effort. A rollback failure is
// logged rather than returned so it never masks the primary error.
func (e *Engine) rollback(ctx context.Context, tx Tx, op, username string) {
	if err := tx.Rollback(ctx); err != nil {
		e.log.WithFields(logrus.Fields{
			"op":       op,
			"username": username,
		}).WithError(err).Warn("rollback failed")
	}
}

// mapStoreErr translates store sentinel errors into the engine's error
// taxonomy. Guard errors pass through unchanged.
func mapStoreErr(err error) error {
	if errors.Is(err, database.ErrSerializationFailure) {
		return ErrTransientConflict
	}
	return err
}
