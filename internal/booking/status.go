package booking

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/logger"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// mutation changes b (and possibly ev, which is nil when the event no longer
// exists) inside the transaction and reports which change it made.
type mutation func(ctx context.Context, tx Tx, b *model.Booking, ev *model.Event) (Change, error)

// Cancel moves a booking to cancelled and gives its seats back to the event.
// Seats are not restored when the event has been deleted.
func (e *Engine) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	return e.transition(ctx, "cancel", id, func(ctx context.Context, tx Tx, b *model.Booking, ev *model.Event) (Change, error) {
		if b.Status == model.StatusCancelled {
			return "", newError(ErrAlreadyCancelled, "booking is already cancelled")
		}
		b.Status = model.StatusCancelled
		if ev == nil {
			return ChangeCancelled, nil
		}
		release(ev, countByTier(b.Seats))
		ev.UpdatedAt = clock.Timestamp(e.clock)
		if err := tx.UpdateEventSeats(ctx, ev); err != nil {
			return "", wrapStore("update event seats", err)
		}
		return ChangeCancelled, nil
	})
}

// MarkUsed records that the tickets were presented at the venue.
func (e *Engine) MarkUsed(ctx context.Context, id string) (*model.Booking, error) {
	return e.transition(ctx, "mark_used", id, func(_ context.Context, _ Tx, b *model.Booking, _ *model.Event) (Change, error) {
		switch b.Status {
		case model.StatusCancelled:
			return "", newError(ErrInvalidState, "cannot mark a cancelled booking as used")
		case model.StatusUsed:
			return "", newError(ErrAlreadyUsed, "booking is already marked as used")
		}
		b.Status = model.StatusUsed
		return ChangeUsed, nil
	})
}

// SetStatus overwrites the status with any valid value. It is an
// administrative escape hatch: no transition guard applies and capacity is
// never touched, so it must not be used to cancel bookings.
func (e *Engine) SetStatus(ctx context.Context, id, status string) (*model.Booking, error) {
	st, ok := model.ParseStatus(status)
	if !ok {
		return nil, newError(ErrInvalidValue, "invalid status %q, expected one of confirmed, used, cancelled, passed", status)
	}
	return e.transition(ctx, "set_status", id, func(_ context.Context, _ Tx, b *model.Booking, _ *model.Event) (Change, error) {
		b.Status = st
		return ChangeStatus, nil
	})
}

// ExpireToPassed settles a confirmed booking whose event has taken place.
func (e *Engine) ExpireToPassed(ctx context.Context, id string) (*model.Booking, error) {
	return e.transition(ctx, "expire", id, func(_ context.Context, _ Tx, b *model.Booking, ev *model.Event) (Change, error) {
		if b.Status != model.StatusConfirmed {
			return "", newError(ErrInvalidState, "only confirmed bookings can be marked as passed, booking is %s", b.Status)
		}
		if ev == nil {
			return "", newError(ErrInvalidState, "event of booking no longer exists")
		}
		elapsed, err := clock.Elapsed(e.clock, ev.Date, ev.Time)
		if err != nil {
			return "", &Error{kind: ErrInternal, msg: "event has a malformed date", cause: err}
		}
		if !elapsed {
			return "", newError(ErrInvalidState, "event has not taken place yet")
		}
		b.Status = model.StatusPassed
		return ChangePassed, nil
	})
}

// ExpireElapsed promotes every confirmed booking of elapsed events to
// passed. Bookings that changed concurrently are skipped.
func (e *Engine) ExpireElapsed(ctx context.Context) ([]model.Booking, error) {
	ids, err := e.store.ElapsedConfirmed(ctx, clock.Minute(e.clock.Now()))
	if err != nil {
		return nil, wrapStore("list elapsed bookings", err)
	}
	var (
		passed []model.Booking
		errs   []error
	)
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		b, err := e.ExpireToPassed(ctx, id)
		switch {
		case err == nil:
			passed = append(passed, *b)
		case errors.Is(err, ErrInvalidState), errors.Is(err, ErrNotFound):
		default:
			errs = append(errs, err)
		}
	}
	return passed, errors.Join(errs...)
}

func (e *Engine) transition(ctx context.Context, op, id string, mutate mutation) (*model.Booking, error) {
	peek, err := e.store.GetBooking(ctx, id)
	if err != nil {
		return nil, wrapStore("load booking", err)
	}

	unlock, err := e.locker.Lock(ctx, eventKey(peek.EventID))
	if err != nil {
		return nil, wrapStore("lock event", err)
	}
	defer unlock()

	var (
		out    model.Booking
		change Change
	)
	err = wrapStore("booking transaction", e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		ev, err := tx.LockEvent(ctx, peek.EventID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				return wrapStore("load event", err)
			}
			ev = nil
		}
		b, err := tx.LockBooking(ctx, id)
		if err != nil {
			return wrapStore("load booking", err)
		}
		change, err = mutate(ctx, tx, b, ev)
		if err != nil {
			return err
		}
		if err := tx.UpdateBookingStatus(ctx, b); err != nil {
			return wrapStore("update booking", err)
		}
		out = b.Clone()
		return nil
	}))
	if err != nil {
		e.logFailure(ctx, op, peek.EventID, id, err)
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id": out.ID,
		"event_id":   out.EventID,
		"status":     out.Status,
	}).Info("booking " + op)
	e.notifier.BookingChanged(ctx, change, out.Clone())
	return &out, nil
}
