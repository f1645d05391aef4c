package booking

import (
	"errors"
	"fmt"
)

// Error kinds returned by the engine. Compare with errors.Is; the concrete
// error's message is safe to show to the end user.
var (
	ErrNotFound             = errors.New("not found")
	ErrQuotaExceeded        = errors.New("ticket quota exceeded")
	ErrEventExpired         = errors.New("event has already taken place")
	ErrSeatConflict         = errors.New("seat already booked")
	ErrInsufficientCapacity = errors.New("not enough seats available")
	ErrAlreadyCancelled     = errors.New("booking already cancelled")
	ErrAlreadyUsed          = errors.New("booking already used")
	ErrInvalidState         = errors.New("invalid booking state")
	ErrInvalidValue         = errors.New("invalid value")
	ErrInternal             = errors.New("internal failure")
)

var kinds = []error{
	ErrNotFound, ErrQuotaExceeded, ErrEventExpired, ErrSeatConflict,
	ErrInsufficientCapacity, ErrAlreadyCancelled, ErrAlreadyUsed,
	ErrInvalidState, ErrInvalidValue, ErrInternal,
}

// Error carries a kind plus a user-facing message and an optional cause.
type Error struct {
	kind  error
	msg   string
	cause error
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Kind returns the sentinel this error belongs to.
func (e *Error) Kind() error { return e.kind }

func newError(kind error, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds an ErrNotFound for store implementations.
func NotFoundf(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

// SeatTakenf builds an ErrSeatConflict for store implementations that detect
// a duplicate seat tuple at the storage level.
func SeatTakenf(format string, args ...any) error {
	return newError(ErrSeatConflict, format, args...)
}

// KindOf returns the sentinel kind of err, or ErrInternal when err does not
// belong to any known kind.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// wrapStore passes domain errors through and turns everything else into an
// internal failure that keeps the cause for logging.
func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}
	return &Error{kind: ErrInternal, msg: op + " failed", cause: err}
}
