package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Login(t *testing.T) {
	sess := New()

	_, ok := sess.Username()
	assert.False(t, ok)

	sess.Login("alice")
	username, ok := sess.Username()
	assert.True(t, ok)
	assert.Equal(t, "alice", username)
}

func TestSession_ItineraryCache(t *testing.T) {
	sess := New()

	_, ok, _ := sess.Itinerary(0)
	assert.False(t, ok, "no search yet")

	sess.SetSearch([]Itinerary{
		{Legs: []int64{10}},
		{Legs: []int64{20, 30}},
	}, 1)

	it, ok, inRange := sess.Itinerary(0)
	require.True(t, ok)
	require.True(t, inRange)
	assert.True(t, it.Direct())
	assert.Equal(t, []int64{10}, it.Legs)

	it, _, inRange = sess.Itinerary(1)
	require.True(t, inRange)
	assert.False(t, it.Direct())
	assert.Equal(t, []int64{20, 30}, it.Legs)

	_, ok, inRange = sess.Itinerary(2)
	assert.True(t, ok)
	assert.False(t, inRange)
	_, _, inRange = sess.Itinerary(-1)
	assert.False(t, inRange)

	assert.Equal(t, 1, sess.DirectDivider())

	// A new search replaces the cache entirely.
	sess.SetSearch([]Itinerary{{Legs: []int64{40}}}, 1)
	_, _, inRange = sess.Itinerary(1)
	assert.False(t, inRange)
}

func TestSession_ReservationCache(t *testing.T) {
	sess := New()

	_, ok, _ := sess.ReservationID(1)
	assert.False(t, ok, "no list fetched yet")

	sess.SetReservationIDs([]int64{101, 102})

	rid, ok, inRange := sess.ReservationID(1)
	require.True(t, ok)
	require.True(t, inRange)
	assert.Equal(t, int64(101), rid)

	rid, _, inRange = sess.ReservationID(2)
	require.True(t, inRange)
	assert.Equal(t, int64(102), rid)

	_, _, inRange = sess.ReservationID(0)
	assert.False(t, inRange)
	_, _, inRange = sess.ReservationID(3)
	assert.False(t, inRange)
}

func TestManager(t *testing.T) {
	m := NewManager()

	token, sess := m.Create()
	require.NotEmpty(t, token)
	sess.Login("alice")

	got, ok := m.Get(token)
	require.True(t, ok)
	assert.Same(t, sess, got)

	// Sessions are independent.
	token2, sess2 := m.Create()
	assert.NotEqual(t, token, token2)
	_, loggedIn := sess2.Username()
	assert.False(t, loggedIn)

	m.Drop(token)
	_, ok = m.Get(token)
	assert.False(t, ok)
}
