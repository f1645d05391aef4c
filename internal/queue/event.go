// Package queue defines the booking event payload exchanged over RabbitMQ
// and the consumer that appends those events to the audit log.
package queue

import (
	"fmt"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// DefaultExchange is the topic exchange booking events are published to.
const DefaultExchange = "bookings"

// BookingEvent is published after a booking change commits. It carries
// enough for downstream consumers to log or notify without querying the
// primary database.
type BookingEvent struct {
	Type          string   `json:"type"`
	BookingID     string   `json:"booking_id"`
	EventID       string   `json:"event_id"`
	UserID        string   `json:"user_id"`
	UserEmail     string   `json:"user_email,omitempty"`
	Status        string   `json:"status"`
	Seats         []string `json:"seats"`
	TotalPrice    float64  `json:"total_price"`
	PaymentMethod string   `json:"payment_method,omitempty"`
	OccurredAt    string   `json:"occurred_at"`
}

// RoutingKey is booking.<type>, e.g. booking.confirmed.
func (e BookingEvent) RoutingKey() string { return "booking." + e.Type }

// NewBookingEvent builds the payload for change on b.
func NewBookingEvent(change string, b model.Booking, occurredAt string) BookingEvent {
	seats := make([]string, 0, len(b.Seats))
	for _, s := range b.Seats {
		seats = append(seats, fmt.Sprintf("%s-%d", s.Tier, s.SeatNumber))
	}
	return BookingEvent{
		Type:          change,
		BookingID:     b.ID,
		EventID:       b.EventID,
		UserID:        b.UserID,
		UserEmail:     b.UserEmail,
		Status:        string(b.Status),
		Seats:         seats,
		TotalPrice:    b.TotalPrice,
		PaymentMethod: b.PaymentMethod,
		OccurredAt:    occurredAt,
	}
}
