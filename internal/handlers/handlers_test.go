package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/booking"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/search"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/service"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/service/mocks"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/session"
)

func setupTestRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	api.HandleFunc("/flights/{fid}", h.GetFlight).Methods(http.MethodGet)
	api.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	api.HandleFunc("/bookings", h.Book).Methods(http.MethodPost)
	api.HandleFunc("/reservations", h.ListReservations).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{index}", h.CancelReservation).Methods(http.MethodDelete)
	return r
}

func TestHandler_Login(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockToken      string
		mockError      error
		expectCall     bool
		expectedStatus int
	}{
		{
			name:           "valid credentials",
			body:           `{"username":"alice","password":"secret"}`,
			mockToken:      "token-1",
			expectCall:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid credentials",
			body:           `{"username":"alice","password":"wrong"}`,
			mockError:      service.ErrInvalidCredentials,
			expectCall:     true,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing fields",
			body:           `{"username":"alice"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed body",
			body:           `not json`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockReservationService)
			handler := NewHandler(mockService)
			router := setupTestRouter(handler)

			if tt.expectCall {
				mockService.On("Login", mock.Anything, "alice", mock.Anything).
					Return(tt.mockToken, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tt.mockToken, resp["token"])
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_Logout(t *testing.T) {
	mockService := new(mocks.MockReservationService)
	handler := NewHandler(mockService)
	router := setupTestRouter(handler)

	mockService.On("Logout", "token-1").Return()

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.Header.Set(SessionTokenHeader, "token-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_GetFlight(t *testing.T) {
	tests := []struct {
		name           string
		fid            string
		mockReturn     *database.Flight
		mockError      error
		expectCall     bool
		expectedStatus int
	}{
		{
			name:           "flight found",
			fid:            "7",
			mockReturn:     &database.Flight{FID: 7, CarrierID: "AA", FlightNum: "123"},
			expectCall:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "flight not found",
			fid:            "99",
			mockError:      database.ErrNotFound,
			expectCall:     true,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid id",
			fid:            "abc",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockReservationService)
			handler := NewHandler(mockService)
			router := setupTestRouter(handler)

			if tt.expectCall {
				mockService.On("Flight", mock.Anything, mock.Anything).
					Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/flights/"+tt.fid, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_Search(t *testing.T) {
	mockService := new(mocks.MockReservationService)
	handler := NewHandler(mockService)
	router := setupTestRouter(handler)

	sess := session.New()
	mockService.On("Session", "token-1").Return(sess, true)

	expected := &search.Result{
		Options: []search.Option{
			{Legs: []database.Flight{{FID: 1, OriginCity: "Seattle WA", DestCity: "Boston MA"}}, TotalTime: 300},
		},
		DirectDivider: 1,
	}
	mockService.On("Search", mock.Anything, sess, search.Params{
		Origin:      "Seattle WA",
		Destination: "Boston MA",
		DayOfMonth:  14,
		DirectOnly:  true,
		Limit:       5,
	}).Return(expected, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/search?origin=Seattle+WA&destination=Boston+MA&day=14&limit=5&direct=true", nil)
	req.Header.Set(SessionTokenHeader, "token-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp search.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Options, 1)
	assert.Equal(t, 1, resp.DirectDivider)

	mockService.AssertExpectations(t)
}

func TestHandler_Search_BadParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "missing cities", query: "day=14"},
		{name: "missing day", query: "origin=A&destination=B"},
		{name: "bad limit", query: "origin=A&destination=B&day=14&limit=x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockReservationService)
			handler := NewHandler(mockService)
			router := setupTestRouter(handler)

			mockService.On("Session", "token-1").Return(session.New(), true)

			req := httptest.NewRequest(http.MethodGet, "/api/search?"+tt.query, nil)
			req.Header.Set(SessionTokenHeader, "token-1")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandler_SessionToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		known  bool
	}{
		{name: "missing token", header: ""},
		{name: "unknown token", header: "stale", known: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockReservationService)
			handler := NewHandler(mockService)
			router := setupTestRouter(handler)

			if tt.header != "" {
				mockService.On("Session", tt.header).Return(nil, tt.known)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
			if tt.header != "" {
				req.Header.Set(SessionTokenHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_Book(t *testing.T) {
	tests := []struct {
		name           string
		mockReceipt    *booking.Receipt
		mockError      error
		expectedStatus int
		wantRetryAfter bool
	}{
		{
			name: "booked",
			mockReceipt: &booking.Receipt{
				ItineraryIndex: 0,
				ReservationIDs: []int64{1},
				FlightIDs:      []int64{7},
				DayOfMonth:     14,
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "not logged in",
			mockError:      booking.ErrNotLoggedIn,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "no search",
			mockError:      booking.ErrNoSearchPerformed,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "flight full",
			mockError:      booking.ErrCapacityExceeded,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "second itinerary same day",
			mockError:      booking.ErrDailyLimitExceeded,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "transient conflict",
			mockError:      booking.ErrTransientConflict,
			expectedStatus: http.StatusServiceUnavailable,
			wantRetryAfter: true,
		},
		{
			name:           "storage failure",
			mockError:      errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockReservationService)
			handler := NewHandler(mockService)
			router := setupTestRouter(handler)

			sess := session.New()
			mockService.On("Session", "token-1").Return(sess, true)
			mockService.On("Book", mock.Anything, sess, 0).Return(tt.mockReceipt, tt.mockError)

			req := httptest.NewRequest(http.MethodPost, "/api/bookings",
				bytes.NewBufferString(`{"itineraryIndex":0}`))
			req.Header.Set(SessionTokenHeader, "token-1")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.wantRetryAfter {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
			if tt.expectedStatus == http.StatusCreated {
				var resp booking.Receipt
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, []int64{1}, resp.ReservationIDs)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_ListReservations(t *testing.T) {
	mockService := new(mocks.MockReservationService)
	handler := NewHandler(mockService)
	router := setupTestRouter(handler)

	sess := session.New()
	mockService.On("Session", "token-1").Return(sess, true)

	details := []booking.ReservationDetail{
		{RID: 5, Flight: database.Flight{FID: 7, OriginCity: "Seattle WA", DestCity: "Boston MA"}},
	}
	mockService.On("ListReservations", mock.Anything, sess).Return(details, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
	req.Header.Set(SessionTokenHeader, "token-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp []booking.ReservationDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, int64(5), resp[0].RID)

	mockService.AssertExpectations(t)
}

func TestHandler_CancelReservation(t *testing.T) {
	tests := []struct {
		name           string
		index          string
		mockReturn     *booking.Cancellation
		mockError      error
		expectCall     bool
		expectedStatus int
	}{
		{
			name:           "cancelled",
			index:          "1",
			mockReturn:     &booking.Cancellation{RID: 5, FID: 7},
			expectCall:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "no list fetched",
			index:          "1",
			mockError:      booking.ErrNoReservationList,
			expectCall:     true,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "index out of range",
			index:          "9",
			mockError:      booking.ErrInvalidReservation,
			expectCall:     true,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid index",
			index:          "abc",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockReservationService)
			handler := NewHandler(mockService)
			router := setupTestRouter(handler)

			sess := session.New()
			mockService.On("Session", "token-1").Return(sess, true)
			if tt.expectCall {
				mockService.On("Cancel", mock.Anything, sess, mock.Anything).
					Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodDelete, "/api/reservations/"+tt.index, nil)
			req.Header.Set(SessionTokenHeader, "token-1")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}
