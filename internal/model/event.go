package model

// SeatTier is the capacity ledger and price of one tier of an event.
// At rest 0 <= Available <= Total.
type SeatTier struct {
	Total     int     `json:"totalSeats"`
	Available int     `json:"availableSeats"`
	Price     float64 `json:"price"`
}

// Event is a ticketed happening created by an organizer. Date is
// "YYYY-MM-DD" and Time, when set, is "HH:MM"; both are UTC+8 wall clock.
//
// Fields:
//
//	ID          – event identifier (uuid).
//	Name        – display name.
//	Location    – venue text.
//	Category    – free-form category.
//	Description – long description.
//	Image       – base64 encoded image.
//	OrganizerID – user that owns the event.
//	Date, Time  – when the event takes place.
//	VIP, Standard, Concession – per tier ledger.
//	CreatedAt, UpdatedAt – UTC+8 timestamp strings.
type Event struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Image       string   `json:"eventImage"`
	OrganizerID string   `json:"organizerId"`
	Date        string   `json:"eventDate"`
	Time        string   `json:"eventTime"`
	VIP         SeatTier `json:"vipSeats"`
	Standard    SeatTier `json:"standardSeats"`
	Concession  SeatTier `json:"concessionSeats"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// Tier returns a pointer to the ledger of tier t, or nil for an unknown tier.
func (e *Event) Tier(t Tier) *SeatTier {
	switch t {
	case TierVIP:
		return &e.VIP
	case TierStandard:
		return &e.Standard
	case TierConcession:
		return &e.Concession
	}
	return nil
}
