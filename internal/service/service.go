package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/auth"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/booking"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/search"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/session"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/ws"
)

// ErrInvalidCredentials is returned by Login for a bad username or
// password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ReservationService is the application surface the HTTP layer calls.
type ReservationService interface {
	Login(ctx context.Context, username, password string) (string, error)
	Logout(token string)
	Session(token string) (*session.Session, bool)
	Search(ctx context.Context, sess *session.Session, p search.Params) (*search.Result, error)
	Book(ctx context.Context, sess *session.Session, itineraryIndex int) (*booking.Receipt, error)
	ListReservations(ctx context.Context, sess *session.Session) ([]booking.ReservationDetail, error)
	Cancel(ctx context.Context, sess *session.Session, index int) (*booking.Cancellation, error)
	Flight(ctx context.Context, fid int64) (*database.Flight, error)
}

// Config carries service-level policy.
type Config struct {
	// BookRetryAttempts bounds how many times a booking is re-attempted
	// after a transient conflict. 1 means no retry.
	BookRetryAttempts int
}

type reservationService struct {
	store    booking.Store
	auth     *auth.Service
	search   *search.Service
	engine   *booking.Engine
	sessions *session.Manager
	hub      *ws.Hub
	cfg      Config
	log      *logrus.Logger
}

// NewReservationService wires the collaborators into a ReservationService.
// hub may be nil to disable availability broadcasts.
func NewReservationService(
	store booking.Store,
	authSvc *auth.Service,
	searchSvc *search.Service,
	engine *booking.Engine,
	sessions *session.Manager,
	hub *ws.Hub,
	cfg Config,
	log *logrus.Logger,
) ReservationService {
	if cfg.BookRetryAttempts < 1 {
		cfg.BookRetryAttempts = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &reservationService{
		store:    store,
		auth:     authSvc,
		search:   searchSvc,
		engine:   engine,
		sessions: sessions,
		hub:      hub,
		cfg:      cfg,
		log:      log,
	}
}

func (s *reservationService) Login(ctx context.Context, username, password string) (string, error) {
	ok, err := s.auth.Authenticate(ctx, username, password)
	if err != nil {
		return "", fmt.Errorf("failed to authenticate: %w", err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	token, sess := s.sessions.Create()
	sess.Login(username)
	s.log.WithField("username", username).Info("logged in")
	return token, nil
}

func (s *reservationService) Logout(token string) {
	s.sessions.Drop(token)
}

func (s *reservationService) Session(token string) (*session.Session, bool) {
	return s.sessions.Get(token)
}

// Search runs the flight search and replaces the session's itinerary
// cache with the result.
func (s *reservationService) Search(ctx context.Context, sess *session.Session, p search.Params) (*search.Result, error) {
	res, err := s.search.Search(ctx, p)
	if err != nil {
		return nil, err
	}
	sess.SetSearch(res.Itineraries(), res.DirectDivider)
	return res, nil
}

func (s *reservationService) Book(ctx context.Context, sess *session.Session, itineraryIndex int) (*booking.Receipt, error) {
	receipt, err := s.engine.BookWithRetry(ctx, sess, itineraryIndex, s.cfg.BookRetryAttempts)
	if err != nil {
		return nil, err
	}
	s.notifyAvailability(ctx, receipt.FlightIDs...)
	return receipt, nil
}

func (s *reservationService) ListReservations(ctx context.Context, sess *session.Session) ([]booking.ReservationDetail, error) {
	return s.engine.ListReservations(ctx, sess)
}

func (s *reservationService) Cancel(ctx context.Context, sess *session.Session, index int) (*booking.Cancellation, error) {
	c, err := s.engine.Cancel(ctx, sess, index)
	if err != nil {
		return nil, err
	}
	s.notifyAvailability(ctx, c.FID)
	return c, nil
}

func (s *reservationService) Flight(ctx context.Context, fid int64) (*database.Flight, error) {
	tx, err := s.store.BeginReadOnly(ctx)
	if err != nil {
		return nil, err
	}

	flight, err := tx.FlightByID(ctx, fid)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.log.WithError(rbErr).Warn("rollback failed")
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return flight, nil
}

// notifyAvailability pushes the flights' current counts to the hub.
// Broadcast failures only cost freshness, so errors are logged and
// dropped.
func (s *reservationService) notifyAvailability(ctx context.Context, fids ...int64) {
	if s.hub == nil {
		return
	}
	for _, fid := range fids {
		flight, err := s.Flight(ctx, fid)
		if err != nil {
			s.log.WithField("fid", fid).WithError(err).Warn("availability lookup failed")
			continue
		}
		s.hub.BroadcastAvailability(flight.FID, flight.Booked, flight.Capacity)
	}
}
