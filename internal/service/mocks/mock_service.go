package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/booking"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/search"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/session"
)

// MockReservationService is a mock implementation of
// service.ReservationService.
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *MockReservationService) Logout(token string) {
	m.Called(token)
}

func (m *MockReservationService) Session(token string) (*session.Session, bool) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*session.Session), args.Bool(1)
}

func (m *MockReservationService) Search(ctx context.Context, sess *session.Session, p search.Params) (*search.Result, error) {
	args := m.Called(ctx, sess, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Result), args.Error(1)
}

func (m *MockReservationService) Book(ctx context.Context, sess *session.Session, itineraryIndex int) (*booking.Receipt, error) {
	args := m.Called(ctx, sess, itineraryIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Receipt), args.Error(1)
}

func (m *MockReservationService) ListReservations(ctx context.Context, sess *session.Session) ([]booking.ReservationDetail, error) {
	args := m.Called(ctx, sess)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.ReservationDetail), args.Error(1)
}

func (m *MockReservationService) Cancel(ctx context.Context, sess *session.Session, index int) (*booking.Cancellation, error) {
	args := m.Called(ctx, sess, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Cancellation), args.Error(1)
}

func (m *MockReservationService) Flight(ctx context.Context, fid int64) (*database.Flight, error) {
	args := m.Called(ctx, fid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.Flight), args.Error(1)
}
