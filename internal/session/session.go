package session

import (
	"sync"

	"github.com/google/uuid"
)

// Itinerary is one bookable travel plan from a search result: a direct
// flight (one leg) or a two-hop connection (two legs, in flying order).
type Itinerary struct {
	Legs []int64
}

// Direct reports whether the itinerary is a single direct flight.
func (it Itinerary) Direct() bool {
	return len(it.Legs) == 1
}

// Session carries the per-user state the booking engine reads: login
// state, the most recent search result, and the reservation ids as last
// listed. Each session is owned by one user; concurrent sessions never
// share state.
type Session struct {
	mu sync.Mutex

	username string
	loggedIn bool

	itineraries   []Itinerary
	directDivider int
	hasSearch     bool

	reservationIDs []int64
	hasList        bool
}

// New returns an unauthenticated session.
func New() *Session {
	return &Session{}
}

// Login marks the session authenticated as username.
func (s *Session) Login(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.loggedIn = true
}

// Username returns the authenticated username and whether the session is
// logged in.
func (s *Session) Username() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username, s.loggedIn
}

// SetSearch replaces the cached search result. The divider is the index
// of the first two-hop itinerary; everything before it is direct.
func (s *Session) SetSearch(itineraries []Itinerary, directDivider int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itineraries = itineraries
	s.directDivider = directDivider
	s.hasSearch = true
}

// Itinerary returns the cached itinerary at the 0-based index. ok is
// false when no search has been performed; inRange is false when the
// index is outside the cached result.
func (s *Session) Itinerary(index int) (it Itinerary, ok, inRange bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSearch {
		return Itinerary{}, false, false
	}
	if index < 0 || index >= len(s.itineraries) {
		return Itinerary{}, true, false
	}
	return s.itineraries[index], true, true
}

// DirectDivider returns the cached direct divider.
func (s *Session) DirectDivider() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directDivider
}

// SetReservationIDs replaces the cached reservation-id list used to
// translate 1-based cancellation indexes into rids.
func (s *Session) SetReservationIDs(rids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservationIDs = rids
	s.hasList = true
}

// ReservationID returns the rid at the 1-based index. ok is false when
// no list has been fetched this session; inRange is false when the index
// is outside the cached list.
func (s *Session) ReservationID(index int) (rid int64, ok, inRange bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasList {
		return 0, false, false
	}
	if index < 1 || index > len(s.reservationIDs) {
		return 0, true, false
	}
	return s.reservationIDs[index-1], true, true
}

// Manager issues session tokens and resolves them back to sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create registers a new session and returns its token.
func (m *Manager) Create() (string, *Session) {
	token := uuid.New().String()
	sess := New()

	m.mu.Lock()
	m.sessions[token] = sess
	m.mu.Unlock()

	return token, sess
}

// Get resolves a token to its session.
func (m *Manager) Get(token string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[token]
	return sess, ok
}

// Drop ends a session.
func (m *Manager) Drop(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}
