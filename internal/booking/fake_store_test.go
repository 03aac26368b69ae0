package booking

import (
	"context"
	"sync"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
)

// fakeStore is an in-memory Store with serializable semantics: a
// transaction holds the store lock from begin to commit/rollback and
// works on a snapshot, so concurrent transactions serialize exactly.
type fakeStore struct {
	mu           sync.Mutex
	flights      map[int64]database.Flight
	reservations map[int64]database.Reservation
	nextRID      int64

	// failCommits makes the next N read-write commits report a
	// serialization failure without applying the snapshot.
	failCommits int

	// rollbackErr is returned by every Rollback when set.
	rollbackErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		flights:      make(map[int64]database.Flight),
		reservations: make(map[int64]database.Reservation),
		nextRID:      1,
	}
}

func (s *fakeStore) addFlight(f database.Flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flights[f.FID] = f
}

func (s *fakeStore) flight(fid int64) database.Flight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flights[fid]
}

func (s *fakeStore) reservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

func (s *fakeStore) begin(readOnly bool) *fakeTx {
	s.mu.Lock()

	tx := &fakeTx{
		s:            s,
		readOnly:     readOnly,
		flights:      make(map[int64]database.Flight, len(s.flights)),
		reservations: make(map[int64]database.Reservation, len(s.reservations)),
		nextRID:      s.nextRID,
	}
	for k, v := range s.flights {
		tx.flights[k] = v
	}
	for k, v := range s.reservations {
		tx.reservations[k] = v
	}
	return tx
}

func (s *fakeStore) BeginSerializable(ctx context.Context) (Tx, error) {
	return s.begin(false), nil
}

func (s *fakeStore) BeginReadOnly(ctx context.Context) (Tx, error) {
	return s.begin(true), nil
}

// fakeTx operates on a snapshot of the store while holding its lock.
type fakeTx struct {
	s            *fakeStore
	readOnly     bool
	done         bool
	flights      map[int64]database.Flight
	reservations map[int64]database.Reservation
	nextRID      int64
}

func (t *fakeTx) finish() {
	t.done = true
	t.s.mu.Unlock()
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	if !t.readOnly && t.s.failCommits > 0 {
		t.s.failCommits--
		t.finish()
		return database.ErrSerializationFailure
	}
	if !t.readOnly {
		t.s.flights = t.flights
		t.s.reservations = t.reservations
		t.s.nextRID = t.nextRID
	}
	t.finish()
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	err := t.s.rollbackErr
	t.finish()
	return err
}

func (t *fakeTx) FlightByID(ctx context.Context, fid int64) (*database.Flight, error) {
	f, ok := t.flights[fid]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &f, nil
}

func (t *fakeTx) ReservationsForDay(ctx context.Context, username string, day int) ([]database.Reservation, error) {
	return t.selectReservations(func(r database.Reservation) bool {
		return r.Username == username && r.DayOfMonth == day
	}), nil
}

func (t *fakeTx) ReservationCountForDay(ctx context.Context, username string, day int) (int, error) {
	rows, _ := t.ReservationsForDay(ctx, username, day)
	return len(rows), nil
}

func (t *fakeTx) ReservationsByUser(ctx context.Context, username string) ([]database.Reservation, error) {
	return t.selectReservations(func(r database.Reservation) bool {
		return r.Username == username
	}), nil
}

func (t *fakeTx) selectReservations(keep func(database.Reservation) bool) []database.Reservation {
	var out []database.Reservation
	for rid := int64(1); rid < t.nextRID; rid++ {
		if r, ok := t.reservations[rid]; ok && keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (t *fakeTx) InsertReservation(ctx context.Context, username string, fid int64, day int) (int64, error) {
	rid := t.nextRID
	t.nextRID++
	t.reservations[rid] = database.Reservation{
		RID:        rid,
		Username:   username,
		FID:        fid,
		DayOfMonth: day,
	}
	return rid, nil
}

func (t *fakeTx) DeleteReservation(ctx context.Context, rid int64) error {
	if _, ok := t.reservations[rid]; !ok {
		return database.ErrNotFound
	}
	delete(t.reservations, rid)
	return nil
}

func (t *fakeTx) AddBooked(ctx context.Context, fid int64, delta int) error {
	f, ok := t.flights[fid]
	if !ok {
		return database.ErrNotFound
	}
	f.Booked += delta
	t.flights[fid] = f
	return nil
}
