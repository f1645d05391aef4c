package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// EventRepo provides CRUD and search over the events table. Seat ledgers
// are stored flat as <tier>_total/<tier>_available/<tier>_price columns.
type EventRepo struct {
	db *sqlx.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sqlx.DB) *EventRepo { return &EventRepo{db: db} }

// eventRow mirrors the events table.
type eventRow struct {
	ID                  string         `db:"id"`
	Name                string         `db:"name"`
	Location            string         `db:"location"`
	Category            string         `db:"category"`
	Description         sql.NullString `db:"description"`
	Image               sql.NullString `db:"event_image"`
	OrganizerID         string         `db:"organizer_id"`
	Date                string         `db:"event_date"`
	Time                string         `db:"event_time"`
	VIPTotal            int            `db:"vip_total"`
	VIPAvailable        int            `db:"vip_available"`
	VIPPrice            float64        `db:"vip_price"`
	StandardTotal       int            `db:"standard_total"`
	StandardAvailable   int            `db:"standard_available"`
	StandardPrice       float64        `db:"standard_price"`
	ConcessionTotal     int            `db:"concession_total"`
	ConcessionAvailable int            `db:"concession_available"`
	ConcessionPrice     float64        `db:"concession_price"`
	CreatedAt           string         `db:"created_at"`
	UpdatedAt           string         `db:"updated_at"`
}

const eventColumns = `id, name, location, category, description, event_image, organizer_id,
	event_date, event_time,
	vip_total, vip_available, vip_price,
	standard_total, standard_available, standard_price,
	concession_total, concession_available, concession_price,
	created_at, updated_at`

func (r eventRow) toModel() model.Event {
	return model.Event{
		ID:          r.ID,
		Name:        r.Name,
		Location:    r.Location,
		Category:    r.Category,
		Description: r.Description.String,
		Image:       r.Image.String,
		OrganizerID: r.OrganizerID,
		Date:        r.Date,
		Time:        r.Time,
		VIP:         model.SeatTier{Total: r.VIPTotal, Available: r.VIPAvailable, Price: r.VIPPrice},
		Standard:    model.SeatTier{Total: r.StandardTotal, Available: r.StandardAvailable, Price: r.StandardPrice},
		Concession:  model.SeatTier{Total: r.ConcessionTotal, Available: r.ConcessionAvailable, Price: r.ConcessionPrice},
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func eventRowFrom(e *model.Event) eventRow {
	return eventRow{
		ID:                  e.ID,
		Name:                e.Name,
		Location:            e.Location,
		Category:            e.Category,
		Description:         sql.NullString{String: e.Description, Valid: true},
		Image:               sql.NullString{String: e.Image, Valid: true},
		OrganizerID:         e.OrganizerID,
		Date:                e.Date,
		Time:                e.Time,
		VIPTotal:            e.VIP.Total,
		VIPAvailable:        e.VIP.Available,
		VIPPrice:            e.VIP.Price,
		StandardTotal:       e.Standard.Total,
		StandardAvailable:   e.Standard.Available,
		StandardPrice:       e.Standard.Price,
		ConcessionTotal:     e.Concession.Total,
		ConcessionAvailable: e.Concession.Available,
		ConcessionPrice:     e.Concession.Price,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

func toEvents(rows []eventRow) []model.Event {
	out := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out
}

// List returns every event ordered by when it takes place.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+eventColumns+" FROM events ORDER BY event_date, event_time, name")
	if err != nil {
		return nil, err
	}
	return toEvents(rows), nil
}

// SearchByName matches events whose name contains q, ignoring case.
func (r *EventRepo) SearchByName(ctx context.Context, q string) ([]model.Event, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(q))) + "%"
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+eventColumns+" FROM events WHERE LOWER(name) LIKE ? ORDER BY event_date, event_time, name",
		pattern)
	if err != nil {
		return nil, err
	}
	return toEvents(rows), nil
}

// ListByOrganizer returns the events owned by one organizer.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID string) ([]model.Event, error) {
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+eventColumns+" FROM events WHERE organizer_id = ? ORDER BY event_date, event_time, name",
		organizerID)
	if err != nil {
		return nil, err
	}
	return toEvents(rows), nil
}

// GetByID fetches one event.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var row eventRow
	err := r.db.GetContext(ctx, &row, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ev := row.toModel()
	return &ev, nil
}

// Create inserts a new event. The caller assigns ID and timestamps.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO events (`+eventColumns+`) VALUES (
		:id, :name, :location, :category, :description, :event_image, :organizer_id,
		:event_date, :event_time,
		:vip_total, :vip_available, :vip_price,
		:standard_total, :standard_available, :standard_price,
		:concession_total, :concession_available, :concession_price,
		:created_at, :updated_at)`, eventRowFrom(e))
	return err
}

// Update applies fn to the current row under a row lock and writes the
// result back. The lock serializes the edit with booking transactions that
// adjust available seats.
func (r *EventRepo) Update(ctx context.Context, id string, fn func(e *model.Event) error) (*model.Event, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var row eventRow
	err = tx.GetContext(ctx, &row, "SELECT "+eventColumns+" FROM events WHERE id = ? FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ev := row.toModel()
	if err := fn(&ev); err != nil {
		return nil, err
	}
	ev.ID = id
	_, err = tx.NamedExecContext(ctx, `UPDATE events SET
		name = :name, location = :location, category = :category,
		description = :description, event_image = :event_image,
		event_date = :event_date, event_time = :event_time,
		vip_total = :vip_total, vip_available = :vip_available, vip_price = :vip_price,
		standard_total = :standard_total, standard_available = :standard_available, standard_price = :standard_price,
		concession_total = :concession_total, concession_available = :concession_available, concession_price = :concession_price,
		updated_at = :updated_at
		WHERE id = :id`, eventRowFrom(&ev))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &ev, nil
}

// Delete removes an event. Bookings of the event are kept.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
