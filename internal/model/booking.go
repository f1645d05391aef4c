package model

import "strings"

// Status is the lifecycle state of a booking. It is a closed set; use
// ParseStatus to turn untrusted input into a Status.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusUsed      Status = "used"
	StatusCancelled Status = "cancelled"
	StatusPassed    Status = "passed"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusConfirmed, StatusUsed, StatusCancelled, StatusPassed}

// ParseStatus validates s against the closed status set. Matching ignores
// case and surrounding whitespace.
func ParseStatus(s string) (Status, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Tier names a seating category of an event.
type Tier string

const (
	TierVIP        Tier = "VIP"
	TierStandard   Tier = "Standard"
	TierConcession Tier = "Concession"
)

// Tiers lists every tier in display order.
var Tiers = []Tier{TierVIP, TierStandard, TierConcession}

// ParseTier resolves a tier name case-insensitively to its canonical form.
func ParseTier(s string) (Tier, bool) {
	s = strings.TrimSpace(s)
	for _, t := range Tiers {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// SeatBooking is one seat inside a booking. Seat numbers are scoped to the
// tier, so (tier, number) identifies a seat within an event.
type SeatBooking struct {
	Tier       Tier    `json:"seatType"`
	SeatNumber int     `json:"seatNumber"`
	Price      float64 `json:"price"`
}

// Booking is a customer's purchase of one or more seats for an event.
//
// Fields:
//
//	ID            – booking identifier (uuid).
//	EventID       – event the seats belong to.
//	UserID        – customer who booked.
//	UserName      – customer name at booking time.
//	UserEmail     – customer email at booking time.
//	Seats         – booked seats in request order.
//	TotalPrice    – sum of seat prices.
//	BookingDate   – UTC+8 timestamp string of creation.
//	Status        – lifecycle state.
//	PaymentMethod – free-form payment method label.
type Booking struct {
	ID            string        `json:"id"`
	EventID       string        `json:"eventId"`
	UserID        string        `json:"userId"`
	UserName      string        `json:"userName"`
	UserEmail     string        `json:"userEmail"`
	Seats         []SeatBooking `json:"seats"`
	TotalPrice    float64       `json:"totalPrice"`
	BookingDate   string        `json:"bookingDate"`
	Status        Status        `json:"status"`
	PaymentMethod string        `json:"paymentMethod"`
}

// SeatCount returns the number of seats held by the booking.
func (b *Booking) SeatCount() int { return len(b.Seats) }

// Clone returns a deep copy of b.
func (b Booking) Clone() Booking {
	b.Seats = append([]SeatBooking(nil), b.Seats...)
	return b
}
