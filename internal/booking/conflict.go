package booking

import (
	"github.com/iliyamo/event-ticketing/internal/model"
)

// normalizeSeats validates a seat request and resolves tier names.
func normalizeSeats(in []SeatRequest) ([]model.SeatBooking, error) {
	if len(in) == 0 {
		return nil, newError(ErrInvalidValue, "at least one seat is required")
	}
	out := make([]model.SeatBooking, 0, len(in))
	for _, s := range in {
		tier, ok := model.ParseTier(s.Tier)
		if !ok {
			return nil, newError(ErrInvalidValue, "unknown seat type %q", s.Tier)
		}
		if s.SeatNumber <= 0 {
			return nil, newError(ErrInvalidValue, "seat number must be positive, got %d", s.SeatNumber)
		}
		out = append(out, model.SeatBooking{Tier: tier, SeatNumber: s.SeatNumber})
	}
	return out, nil
}

// occupiedSeats maps tier to the set of seat numbers held by bookings.
func occupiedSeats(bookings []model.Booking) map[model.Tier]map[int]struct{} {
	out := make(map[model.Tier]map[int]struct{})
	for i := range bookings {
		for _, s := range bookings[i].Seats {
			set, ok := out[s.Tier]
			if !ok {
				set = make(map[int]struct{})
				out[s.Tier] = set
			}
			set[s.SeatNumber] = struct{}{}
		}
	}
	return out
}

// checkConflicts fails on the first requested seat that is already occupied
// or requested twice.
func checkConflicts(occupied map[model.Tier]map[int]struct{}, seats []model.SeatBooking) error {
	seen := make(map[model.Tier]map[int]struct{}, len(model.Tiers))
	for _, s := range seats {
		if _, taken := occupied[s.Tier][s.SeatNumber]; taken {
			return newError(ErrSeatConflict, "seat %s-%d is already booked", s.Tier, s.SeatNumber)
		}
		if _, dup := seen[s.Tier][s.SeatNumber]; dup {
			return newError(ErrSeatConflict, "seat %s-%d is requested more than once", s.Tier, s.SeatNumber)
		}
		if seen[s.Tier] == nil {
			seen[s.Tier] = make(map[int]struct{})
		}
		seen[s.Tier][s.SeatNumber] = struct{}{}
	}
	return nil
}
