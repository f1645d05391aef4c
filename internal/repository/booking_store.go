package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-ticketing/internal/booking"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// BookingStore is the MySQL implementation of booking.Store. Seats live in
// booking_seats; the unique key over (event, tier, seat, active) makes the
// database reject a second live holder of a seat even if a caller bypasses
// the engine's checks.
type BookingStore struct {
	db *sqlx.DB
}

var _ booking.Store = (*BookingStore)(nil)

func NewBookingStore(db *sqlx.DB) *BookingStore { return &BookingStore{db: db} }

type bookingRow struct {
	ID            string  `db:"id"`
	EventID       string  `db:"event_id"`
	UserID        string  `db:"user_id"`
	UserName      string  `db:"user_name"`
	UserEmail     string  `db:"user_email"`
	TotalPrice    float64 `db:"total_price"`
	BookingDate   string  `db:"booking_date"`
	Status        string  `db:"status"`
	PaymentMethod string  `db:"payment_method"`
}

type seatRow struct {
	BookingID  string  `db:"booking_id"`
	Tier       string  `db:"seat_tier"`
	SeatNumber int     `db:"seat_number"`
	Price      float64 `db:"price"`
}

const bookingColumns = `id, event_id, user_id, user_name, user_email, total_price, booking_date, status, payment_method`

func (r bookingRow) toModel(seats []model.SeatBooking) model.Booking {
	if seats == nil {
		seats = []model.SeatBooking{}
	}
	return model.Booking{
		ID:            r.ID,
		EventID:       r.EventID,
		UserID:        r.UserID,
		UserName:      r.UserName,
		UserEmail:     r.UserEmail,
		Seats:         seats,
		TotalPrice:    r.TotalPrice,
		BookingDate:   r.BookingDate,
		Status:        model.Status(r.Status),
		PaymentMethod: r.PaymentMethod,
	}
}

// activeFlag is the booking_seats.active value for a booking status.
func activeFlag(s model.Status) sql.NullInt64 {
	if s == model.StatusCancelled {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: 1, Valid: true}
}

// WithinTx runs fn inside one database transaction.
func (s *BookingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(ctx, &bookingTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *BookingStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return getBooking(ctx, s.db, id, false)
}

func (s *BookingStore) ListBookings(ctx context.Context, f booking.Filter) ([]model.Booking, error) {
	return listBookings(ctx, s.db, f)
}

// ElapsedConfirmed compares the event moment as "YYYY-MM-DD HH:MM" text; a
// missing event time counts as 23:59.
func (s *BookingStore) ElapsedConfirmed(ctx context.Context, cutoff string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `SELECT b.id FROM bookings b
		JOIN events e ON e.id = b.event_id
		WHERE b.status = ?
		  AND CONCAT(e.event_date, ' ', COALESCE(NULLIF(e.event_time, ''), '23:59')) < ?
		ORDER BY b.booking_date, b.id`, string(model.StatusConfirmed), cutoff)
	return ids, err
}

type bookingTx struct {
	tx *sqlx.Tx
}

func (t *bookingTx) LockEvent(ctx context.Context, id string) (*model.Event, error) {
	var row eventRow
	err := t.tx.GetContext(ctx, &row, "SELECT "+eventColumns+" FROM events WHERE id = ? FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.NotFoundf("event %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	ev := row.toModel()
	return &ev, nil
}

func (t *bookingTx) LockBooking(ctx context.Context, id string) (*model.Booking, error) {
	return getBooking(ctx, t.tx, id, true)
}

func (t *bookingTx) ListBookings(ctx context.Context, f booking.Filter) ([]model.Booking, error) {
	return listBookings(ctx, t.tx, f)
}

func (t *bookingTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO bookings ("+bookingColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		b.ID, b.EventID, b.UserID, b.UserName, b.UserEmail, b.TotalPrice, b.BookingDate, string(b.Status), b.PaymentMethod)
	if err != nil {
		return err
	}
	if len(b.Seats) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO booking_seats (booking_id, event_id, seat_tier, seat_number, price, active) VALUES ")
	args := make([]interface{}, 0, len(b.Seats)*6)
	flag := activeFlag(b.Status)
	for i, s := range b.Seats {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, b.ID, b.EventID, string(s.Tier), s.SeatNumber, s.Price, flag)
	}
	if _, err := t.tx.ExecContext(ctx, sb.String(), args...); err != nil {
		if isDuplicate(err) {
			return booking.SeatTakenf("one of the requested seats is already booked")
		}
		return err
	}
	return nil
}

// UpdateBookingStatus writes the status and flips the seats' live flag so
// cancelled seats stop occupying the unique key.
func (t *bookingTx) UpdateBookingStatus(ctx context.Context, b *model.Booking) error {
	res, err := t.tx.ExecContext(ctx, "UPDATE bookings SET status = ? WHERE id = ?", string(b.Status), b.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for a no-op write, so only fail when the row is gone.
		var one int
		if err := t.tx.GetContext(ctx, &one, "SELECT 1 FROM bookings WHERE id = ?", b.ID); errors.Is(err, sql.ErrNoRows) {
			return booking.NotFoundf("booking %s not found", b.ID)
		}
	}
	_, err = t.tx.ExecContext(ctx, "UPDATE booking_seats SET active = ? WHERE booking_id = ?", activeFlag(b.Status), b.ID)
	if isDuplicate(err) {
		return booking.SeatTakenf("a seat of booking %s has been booked by someone else", b.ID)
	}
	return err
}

func (t *bookingTx) UpdateEventSeats(ctx context.Context, ev *model.Event) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE events SET
		vip_available = ?, standard_available = ?, concession_available = ?, updated_at = ?
		WHERE id = ?`,
		ev.VIP.Available, ev.Standard.Available, ev.Concession.Available, ev.UpdatedAt, ev.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var one int
		if err := t.tx.GetContext(ctx, &one, "SELECT 1 FROM events WHERE id = ?", ev.ID); errors.Is(err, sql.ErrNoRows) {
			return booking.NotFoundf("event %s not found", ev.ID)
		}
	}
	return nil
}

func getBooking(ctx context.Context, q sqlx.QueryerContext, id string, forUpdate bool) (*model.Booking, error) {
	query := "SELECT " + bookingColumns + " FROM bookings WHERE id = ?"
	if forUpdate {
		query += " FOR UPDATE"
	}
	var row bookingRow
	err := sqlx.GetContext(ctx, q, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.NotFoundf("booking %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	seats, err := loadSeats(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}
	b := row.toModel(seats[id])
	return &b, nil
}

func listBookings(ctx context.Context, q sqlx.QueryerContext, f booking.Filter) ([]model.Booking, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.EventID != "" {
		where = append(where, "event_id = ?")
		args = append(args, f.EventID)
	}
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	query := "SELECT " + bookingColumns + " FROM bookings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY booking_date, id"

	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.Booking, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	seats, err := loadSeats(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out = append(out, r.toModel(seats[r.ID]))
	}
	return out, nil
}

func loadSeats(ctx context.Context, q sqlx.QueryerContext, bookingIDs []string) (map[string][]model.SeatBooking, error) {
	query, args, err := sqlx.In(
		"SELECT booking_id, seat_tier, seat_number, price FROM booking_seats WHERE booking_id IN (?) ORDER BY id",
		bookingIDs)
	if err != nil {
		return nil, err
	}
	var rows []seatRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make(map[string][]model.SeatBooking, len(bookingIDs))
	for _, r := range rows {
		out[r.BookingID] = append(out[r.BookingID], model.SeatBooking{
			Tier:       model.Tier(r.Tier),
			SeatNumber: r.SeatNumber,
			Price:      r.Price,
		})
	}
	return out, nil
}
