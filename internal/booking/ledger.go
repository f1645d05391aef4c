package booking

import (
	"github.com/iliyamo/event-ticketing/internal/model"
)

func countByTier(seats []model.SeatBooking) map[model.Tier]int {
	out := make(map[model.Tier]int, len(model.Tiers))
	for _, s := range seats {
		out[s.Tier]++
	}
	return out
}

// reserve subtracts counts from the event's available seats. Nothing is
// changed unless every tier has room.
func reserve(ev *model.Event, counts map[model.Tier]int) error {
	for _, t := range model.Tiers {
		n := counts[t]
		if n == 0 {
			continue
		}
		if ev.Tier(t).Available-n < 0 {
			return newError(ErrInsufficientCapacity, "not enough %s seats available", t)
		}
	}
	for _, t := range model.Tiers {
		ev.Tier(t).Available -= counts[t]
	}
	return nil
}

// release adds counts back. There is no upper bound against Total.
func release(ev *model.Event, counts map[model.Tier]int) {
	for _, t := range model.Tiers {
		ev.Tier(t).Available += counts[t]
	}
}
