package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/booking"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/search"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/service"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/session"
)

// SessionTokenHeader carries the session token issued by login.
const SessionTokenHeader = "X-Session-Token"

// Handler contains HTTP handlers for the API.
type Handler struct {
	svc service.ReservationService
}

// NewHandler creates a new Handler instance.
func NewHandler(svc service.ReservationService) *Handler {
	return &Handler{svc: svc}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the service error taxonomy onto HTTP status
// codes: precondition failures are client errors, business-rule
// rejections are conflicts, and transient conflicts ask the client to
// retry.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, booking.ErrNotLoggedIn):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, booking.ErrNoSearchPerformed),
		errors.Is(err, booking.ErrNoReservationList),
		errors.Is(err, booking.ErrInvalidItinerary),
		errors.Is(err, booking.ErrInvalidReservation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrCapacityExceeded),
		errors.Is(err, booking.ErrDailyLimitExceeded):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrTransientConflict):
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// sessionFromRequest resolves the request's session token. A missing or
// unknown token yields a 401.
func (h *Handler) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	token := r.Header.Get(SessionTokenHeader)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing session token")
		return nil, false
	}
	sess, ok := h.svc.Session(token)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unknown session token")
		return nil, false
	}
	return sess, true
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout handles POST /api/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := r.Header.Get(SessionTokenHeader); token != "" {
		h.svc.Logout(token)
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// GetFlight handles GET /api/flights/{fid}.
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	fid, err := strconv.ParseInt(mux.Vars(r)["fid"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid flight id")
		return
	}

	flight, err := h.svc.Flight(r.Context(), fid)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, flight)
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	p := search.Params{
		Origin:      q.Get("origin"),
		Destination: q.Get("destination"),
	}
	if p.Origin == "" || p.Destination == "" {
		respondError(w, http.StatusBadRequest, "origin and destination are required")
		return
	}

	day, err := strconv.Atoi(q.Get("day"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid day of month")
		return
	}
	p.DayOfMonth = day

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		p.Limit = limit
	}
	p.DirectOnly = q.Get("direct") == "true"

	res, err := h.svc.Search(r.Context(), sess, p)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// BookRequest is the body of POST /api/bookings.
type BookRequest struct {
	ItineraryIndex int `json:"itineraryIndex"`
}

// Book handles POST /api/bookings.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.svc.Book(r.Context(), sess, req.ItineraryIndex)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, receipt)
}

// ListReservations handles GET /api/reservations.
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	details, err := h.svc.ListReservations(r.Context(), sess)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// CancelReservation handles DELETE /api/reservations/{index}. The index
// is the 1-based position in the most recently listed reservations.
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid reservation index")
		return
	}

	c, err := h.svc.Cancel(r.Context(), sess, index)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}
