package booking

import (
	"context"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
)

// reserveSeat enforces the capacity ceiling for one flight inside the
// caller's open transaction. At the ceiling it performs no write;
// otherwise it takes one seat. Under serializable isolation two
// transactions racing past this check cannot both commit.
func reserveSeat(ctx context.Context, tx Tx, flight *database.Flight) error {
	if flight.Booked >= flight.Capacity {
		return ErrCapacityExceeded
	}
	return tx.AddBooked(ctx, flight.FID, 1)
}

// checkDailyLimit enforces the one-itinerary-per-day rule inside the
// caller's open transaction:
//
//	0 existing reservations on the flight's day: allowed.
//	1 existing: allowed only when the new flight continues the existing
//	  one, i.e. the existing flight lands where the new one departs.
//	2 or more: rejected.
//
// Running this in the same transaction as the insert is what stops two
// concurrent bookings from both observing zero existing reservations.
func checkDailyLimit(ctx context.Context, tx Tx, username string, flight *database.Flight) error {
	count, err := tx.ReservationCountForDay(ctx, username, flight.DayOfMonth)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	if count >= 2 {
		return ErrDailyLimitExceeded
	}

	existing, err := tx.ReservationsForDay(ctx, username, flight.DayOfMonth)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}

	prev, err := tx.FlightByID(ctx, existing[0].FID)
	if err != nil {
		return err
	}
	if prev.DestCity != flight.OriginCity {
		return ErrDailyLimitExceeded
	}
	return nil
}
