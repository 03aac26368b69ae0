package booking

import "errors"

// Precondition errors. These are detected before any transaction is
// opened and involve no store interaction.
var (
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrNoSearchPerformed  = errors.New("no search performed")
	ErrNoReservationList  = errors.New("reservation list not fetched")
	ErrInvalidItinerary   = errors.New("invalid itinerary index")
	ErrInvalidReservation = errors.New("invalid reservation index")
)

// Business-rule errors. These are detected inside an open transaction;
// the transaction is rolled back before they are reported.
var (
	ErrCapacityExceeded   = errors.New("flight capacity exceeded")
	ErrDailyLimitExceeded = errors.New("only one itinerary per day")
)

// ErrTransientConflict reports that the store aborted the transaction to
// preserve serializable isolation. The booking itself is not invalid;
// callers may retry the whole operation.
var ErrTransientConflict = errors.New("transient conflict")
