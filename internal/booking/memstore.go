package booking

import (
	"context"
	"sync"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// MemoryStore is an in-process Store. Transactions run one at a time against
// a private copy of the data that replaces the live copy only on success,
// and it enforces the same seat-tuple uniqueness as the SQL schema.
type MemoryStore struct {
	mu   sync.Mutex
	data memData
}

type memData struct {
	events   map[string]model.Event
	bookings map[string]model.Booking
	order    []string
}

func (d memData) clone() memData {
	out := memData{
		events:   make(map[string]model.Event, len(d.events)),
		bookings: make(map[string]model.Booking, len(d.bookings)),
		order:    append([]string(nil), d.order...),
	}
	for k, v := range d.events {
		out.events[k] = v
	}
	for k, v := range d.bookings {
		out.bookings[k] = v.Clone()
	}
	return out
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: memData{
		events:   make(map[string]model.Event),
		bookings: make(map[string]model.Booking),
	}}
}

// PutEvent inserts or replaces an event.
func (m *MemoryStore) PutEvent(ev model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.events[ev.ID] = ev
}

// Event returns a copy of the stored event.
func (m *MemoryStore) Event(id string) (model.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.data.events[id]
	return ev, ok
}

// DeleteEvent removes an event and leaves its bookings in place.
func (m *MemoryStore) DeleteEvent(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data.events, id)
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{data: m.data.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.data = tx.data
	return nil
}

func (m *MemoryStore) GetBooking(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data.bookings[id]
	if !ok {
		return nil, NotFoundf("booking %s not found", id)
	}
	b = b.Clone()
	return &b, nil
}

func (m *MemoryStore) ListBookings(_ context.Context, f Filter) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.list(f), nil
}

func (m *MemoryStore) ElapsedConfirmed(_ context.Context, cutoff string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, id := range m.data.order {
		b := m.data.bookings[id]
		if b.Status != model.StatusConfirmed {
			continue
		}
		ev, ok := m.data.events[b.EventID]
		if !ok {
			continue
		}
		moment, err := clock.EventMoment(ev.Date, ev.Time)
		if err != nil {
			continue
		}
		if clock.Minute(moment) < cutoff {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (d memData) list(f Filter) []model.Booking {
	out := []model.Booking{}
	for _, id := range d.order {
		b := d.bookings[id]
		if f.EventID != "" && b.EventID != f.EventID {
			continue
		}
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, b.Status) {
			continue
		}
		out = append(out, b.Clone())
	}
	return out
}

func hasStatus(list []model.Status, s model.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type memTx struct {
	data memData
}

func (t *memTx) LockEvent(_ context.Context, id string) (*model.Event, error) {
	ev, ok := t.data.events[id]
	if !ok {
		return nil, NotFoundf("event %s not found", id)
	}
	return &ev, nil
}

func (t *memTx) LockBooking(_ context.Context, id string) (*model.Booking, error) {
	b, ok := t.data.bookings[id]
	if !ok {
		return nil, NotFoundf("booking %s not found", id)
	}
	b = b.Clone()
	return &b, nil
}

func (t *memTx) ListBookings(_ context.Context, f Filter) ([]model.Booking, error) {
	return t.data.list(f), nil
}

// seatTaken reports a seat of b that another non-cancelled booking holds.
func (t *memTx) seatTaken(b *model.Booking) (model.SeatBooking, bool) {
	for _, id := range t.data.order {
		other := t.data.bookings[id]
		if other.ID == b.ID || other.EventID != b.EventID || other.Status == model.StatusCancelled {
			continue
		}
		for _, s := range b.Seats {
			for _, o := range other.Seats {
				if s.Tier == o.Tier && s.SeatNumber == o.SeatNumber {
					return s, true
				}
			}
		}
	}
	return model.SeatBooking{}, false
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	if _, exists := t.data.bookings[b.ID]; exists {
		return &Error{kind: ErrInternal, msg: "duplicate booking id " + b.ID}
	}
	if s, taken := t.seatTaken(b); taken {
		return SeatTakenf("seat %s-%d is already booked", s.Tier, s.SeatNumber)
	}
	t.data.bookings[b.ID] = b.Clone()
	t.data.order = append(t.data.order, b.ID)
	return nil
}

func (t *memTx) UpdateBookingStatus(_ context.Context, b *model.Booking) error {
	cur, ok := t.data.bookings[b.ID]
	if !ok {
		return NotFoundf("booking %s not found", b.ID)
	}
	if cur.Status == model.StatusCancelled && b.Status != model.StatusCancelled {
		if s, taken := t.seatTaken(b); taken {
			return SeatTakenf("seat %s-%d is already booked", s.Tier, s.SeatNumber)
		}
	}
	cur.Status = b.Status
	t.data.bookings[b.ID] = cur
	return nil
}

func (t *memTx) UpdateEventSeats(_ context.Context, ev *model.Event) error {
	cur, ok := t.data.events[ev.ID]
	if !ok {
		return NotFoundf("event %s not found", ev.ID)
	}
	cur.VIP.Available = ev.VIP.Available
	cur.Standard.Available = ev.Standard.Available
	cur.Concession.Available = ev.Concession.Available
	cur.UpdatedAt = ev.UpdatedAt
	t.data.events[ev.ID] = cur
	return nil
}
