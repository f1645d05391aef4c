// Package booking implements the reservation workflow: eligibility, seat
// conflict detection, the per-tier capacity ledger and booking status
// transitions. All mutations of one event run under a per-event lock and
// inside a single store transaction.
package booking

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/lock"
	"github.com/iliyamo/event-ticketing/internal/logger"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// Engine is safe for concurrent use.
type Engine struct {
	store    Store
	locker   Locker
	clock    clock.Clock
	notifier Notifier
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the UTC+8 wall clock.
func WithClock(c clock.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithLocker replaces the in-process per-event lock.
func WithLocker(l Locker) Option { return func(e *Engine) { e.locker = l } }

// WithNotifier registers a receiver for committed booking changes.
func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		locker:   lock.NewLocal(),
		clock:    clock.New(),
		notifier: nopNotifier{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SeatRequest is a seat asked for by a customer.
type SeatRequest struct {
	Tier       string `json:"seatType"`
	SeatNumber int    `json:"seatNumber"`
}

// CreateRequest carries everything needed to book seats.
type CreateRequest struct {
	EventID       string
	UserID        string
	UserName      string
	UserEmail     string
	Seats         []SeatRequest
	PaymentMethod string
}

func eventKey(eventID string) string { return "event:" + eventID }

// Create books the requested seats. Checks run in order: event exists,
// per-user quota, event not in the past, no seat conflict, enough capacity.
// The booking insert and the capacity update commit together.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	req.EventID = strings.TrimSpace(req.EventID)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.EventID == "" || req.UserID == "" {
		return nil, newError(ErrInvalidValue, "event id and user id are required")
	}
	seats, err := normalizeSeats(req.Seats)
	if err != nil {
		return nil, err
	}

	unlock, err := e.locker.Lock(ctx, eventKey(req.EventID))
	if err != nil {
		return nil, wrapStore("lock event", err)
	}
	defer unlock()

	var created model.Booking
	err = wrapStore("booking transaction", e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		ev, err := tx.LockEvent(ctx, req.EventID)
		if err != nil {
			return wrapStore("load event", err)
		}
		if err := e.checkEligibility(ctx, tx, ev, req.UserID, len(seats)); err != nil {
			return err
		}

		confirmed, err := tx.ListBookings(ctx, Filter{EventID: ev.ID, Statuses: []model.Status{model.StatusConfirmed}})
		if err != nil {
			return wrapStore("load bookings", err)
		}
		if err := checkConflicts(occupiedSeats(confirmed), seats); err != nil {
			return err
		}

		if err := reserve(ev, countByTier(seats)); err != nil {
			return err
		}

		now := clock.Timestamp(e.clock)
		total := 0.0
		for i := range seats {
			seats[i].Price = ev.Tier(seats[i].Tier).Price
			total += seats[i].Price
		}
		created = model.Booking{
			ID:            uuid.NewString(),
			EventID:       ev.ID,
			UserID:        req.UserID,
			UserName:      req.UserName,
			UserEmail:     req.UserEmail,
			Seats:         seats,
			TotalPrice:    total,
			BookingDate:   now,
			Status:        model.StatusConfirmed,
			PaymentMethod: req.PaymentMethod,
		}
		if err := tx.InsertBooking(ctx, &created); err != nil {
			return wrapStore("insert booking", err)
		}
		ev.UpdatedAt = now
		if err := tx.UpdateEventSeats(ctx, ev); err != nil {
			return wrapStore("update event seats", err)
		}
		return nil
	}))
	if err != nil {
		e.logFailure(ctx, "create", req.EventID, "", err)
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id": created.ID,
		"event_id":   created.EventID,
		"user_id":    created.UserID,
		"seats":      len(created.Seats),
	}).Info("booking confirmed")
	e.notifier.BookingChanged(ctx, ChangeConfirmed, created.Clone())
	return &created, nil
}

// Get returns one booking.
func (e *Engine) Get(ctx context.Context, id string) (*model.Booking, error) {
	b, err := e.store.GetBooking(ctx, id)
	if err != nil {
		return nil, wrapStore("load booking", err)
	}
	return b, nil
}

// ListAll returns every booking.
func (e *Engine) ListAll(ctx context.Context) ([]model.Booking, error) {
	out, err := e.store.ListBookings(ctx, Filter{})
	return out, wrapStore("list bookings", err)
}

// ListByUser returns every booking of a user regardless of status.
func (e *Engine) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	out, err := e.store.ListBookings(ctx, Filter{UserID: userID})
	return out, wrapStore("list bookings", err)
}

// ListByEvent returns every booking of an event regardless of status.
func (e *Engine) ListByEvent(ctx context.Context, eventID string) ([]model.Booking, error) {
	out, err := e.store.ListBookings(ctx, Filter{EventID: eventID})
	return out, wrapStore("list bookings", err)
}

// BookedSeats reports occupied seat numbers per tier, ascending. Confirmed
// and used bookings both count as occupied here. Every tier is present.
func (e *Engine) BookedSeats(ctx context.Context, eventID string) (map[model.Tier][]int, error) {
	bs, err := e.store.ListBookings(ctx, Filter{
		EventID:  eventID,
		Statuses: []model.Status{model.StatusConfirmed, model.StatusUsed},
	})
	if err != nil {
		return nil, wrapStore("list bookings", err)
	}
	out := make(map[model.Tier][]int, len(model.Tiers))
	for _, t := range model.Tiers {
		out[t] = []int{}
	}
	for tier, set := range occupiedSeats(bs) {
		nums := make([]int, 0, len(set))
		for n := range set {
			nums = append(nums, n)
		}
		sort.Ints(nums)
		out[tier] = nums
	}
	return out, nil
}

func (e *Engine) logFailure(ctx context.Context, op, eventID, bookingID string, err error) {
	entry := logger.FromContext(ctx).WithFields(logrus.Fields{
		"op":         op,
		"event_id":   eventID,
		"booking_id": bookingID,
	})
	if KindOf(err) == ErrInternal {
		entry.WithError(err).Error("booking operation failed")
		return
	}
	entry.WithField("reason", err.Error()).Info("booking operation rejected")
}
