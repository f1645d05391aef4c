package booking

import (
	"context"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// MaxTicketsPerEvent caps the non-cancelled seats one user may hold for one
// event.
const MaxTicketsPerEvent = 10

func (e *Engine) checkEligibility(ctx context.Context, tx Tx, ev *model.Event, userID string, requested int) error {
	mine, err := tx.ListBookings(ctx, Filter{EventID: ev.ID, UserID: userID})
	if err != nil {
		return wrapStore("load user bookings", err)
	}
	if err := checkQuota(heldSeats(mine), requested); err != nil {
		return err
	}

	elapsed, err := clock.Elapsed(e.clock, ev.Date, ev.Time)
	if err != nil {
		return &Error{kind: ErrInternal, msg: "event has a malformed date", cause: err}
	}
	if elapsed {
		return newError(ErrEventExpired, "cannot book tickets for an event that has already taken place")
	}
	return nil
}

// heldSeats counts seats across non-cancelled bookings.
func heldSeats(bookings []model.Booking) int {
	n := 0
	for i := range bookings {
		if bookings[i].Status != model.StatusCancelled {
			n += len(bookings[i].Seats)
		}
	}
	return n
}

func checkQuota(existing, requested int) error {
	if existing+requested > MaxTicketsPerEvent {
		return newError(ErrQuotaExceeded,
			"cannot book more than %d tickets per event, you already have %d ticket(s) booked for this event",
			MaxTicketsPerEvent, existing)
	}
	return nil
}
