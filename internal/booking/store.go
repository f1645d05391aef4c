package booking

import (
	"context"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// Filter selects bookings. Empty fields do not constrain the result.
type Filter struct {
	EventID  string
	UserID   string
	Statuses []model.Status
}

// Store is the persistence contract of the engine.
//
// Missing events or bookings are reported with an error matching
// ErrNotFound. A seat tuple that is already held by another non-cancelled
// booking is reported with an error matching ErrSeatConflict, both on insert
// and when a status change re-activates a cancelled booking.
type Store interface {
	// WithinTx runs fn in one atomic unit: either every write made through
	// tx is persisted or none is.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	ListBookings(ctx context.Context, f Filter) ([]model.Booking, error)
	// ElapsedConfirmed returns ids of confirmed bookings whose event moment
	// is before cutoff ("YYYY-MM-DD HH:MM", UTC+8).
	ElapsedConfirmed(ctx context.Context, cutoff string) ([]string, error)
}

// Tx is the transactional view handed to WithinTx callbacks. Lock* methods
// hold the row until the unit completes.
type Tx interface {
	LockEvent(ctx context.Context, id string) (*model.Event, error)
	LockBooking(ctx context.Context, id string) (*model.Booking, error)
	ListBookings(ctx context.Context, f Filter) ([]model.Booking, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	UpdateBookingStatus(ctx context.Context, b *model.Booking) error
	UpdateEventSeats(ctx context.Context, ev *model.Event) error
}

// Locker serializes work per key across goroutines (and, for distributed
// implementations, across processes).
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Change is the kind of booking lifecycle event handed to a Notifier.
type Change string

const (
	ChangeConfirmed Change = "confirmed"
	ChangeCancelled Change = "cancelled"
	ChangeUsed      Change = "used"
	ChangePassed    Change = "passed"
	ChangeStatus    Change = "status"
)

// Notifier is told about committed booking changes. Implementations must not
// block for long; failures are theirs to log.
type Notifier interface {
	BookingChanged(ctx context.Context, change Change, b model.Booking)
}

type nopNotifier struct{}

func (nopNotifier) BookingChanged(context.Context, Change, model.Booking) {}
