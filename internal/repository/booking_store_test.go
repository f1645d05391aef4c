package repository

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/booking"
	"github.com/iliyamo/event-ticketing/internal/model"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

var (
	bookingCols = []string{"id", "event_id", "user_id", "user_name", "user_email", "total_price", "booking_date", "status", "payment_method"}
	seatCols    = []string{"booking_id", "seat_tier", "seat_number", "price"}
	eventCols   = []string{"id", "name", "location", "category", "description", "event_image", "organizer_id",
		"event_date", "event_time",
		"vip_total", "vip_available", "vip_price",
		"standard_total", "standard_available", "standard_price",
		"concession_total", "concession_available", "concession_price",
		"created_at", "updated_at"}
)

func eventRowValues(id string) []driver.Value {
	return []driver.Value{id, "Gala", "Hall A", "Music", "desc", "", "org-1",
		"2025-06-10", "20:00",
		2, 1, 150.0,
		10, 10, 80.0,
		0, 0, 0.0,
		"2025-06-01T10:00:00.000", "2025-06-01T10:00:00.000"}
}

func TestBookingStore_GetBookingLoadsSeats(t *testing.T) {
	db, mock := newMock(t)
	store := NewBookingStore(db)

	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \?`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow("b1", "e1", "u1", "Ann", "ann@example.com", 230.0, "2025-06-01T12:00:00.000", "confirmed", "card"))
	mock.ExpectQuery(`SELECT booking_id, seat_tier, seat_number, price FROM booking_seats WHERE booking_id IN \(\?\)`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow("b1", "VIP", 1, 150.0).
			AddRow("b1", "Standard", 7, 80.0))

	b, err := store.GetBooking(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	assert.Equal(t, []model.SeatBooking{
		{Tier: model.TierVIP, SeatNumber: 1, Price: 150},
		{Tier: model.TierStandard, SeatNumber: 7, Price: 80},
	}, b.Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_GetBookingNotFound(t *testing.T) {
	db, mock := newMock(t)
	store := NewBookingStore(db)

	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \?`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := store.GetBooking(context.Background(), "nope")
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_ListBookingsBuildsFilter(t *testing.T) {
	db, mock := newMock(t)
	store := NewBookingStore(db)

	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE event_id = \? AND status IN \(\?, \?\) ORDER BY booking_date, id`).
		WithArgs("e1", "confirmed", "used").
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow("b1", "e1", "u1", "", "", 150.0, "2025-06-01T12:00:00.000", "confirmed", "").
			AddRow("b2", "e1", "u2", "", "", 80.0, "2025-06-01T12:05:00.000", "used", ""))
	mock.ExpectQuery(`FROM booking_seats WHERE booking_id IN \(\?, \?\)`).
		WithArgs("b1", "b2").
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow("b1", "VIP", 2, 150.0).
			AddRow("b2", "Standard", 3, 80.0))

	got, err := store.ListBookings(context.Background(), booking.Filter{
		EventID:  "e1",
		Statuses: []model.Status{model.StatusConfirmed, model.StatusUsed},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Seats[0].SeatNumber)
	assert.Equal(t, model.StatusUsed, got[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_ListBookingsEmptySkipsSeatQuery(t *testing.T) {
	db, mock := newMock(t)
	store := NewBookingStore(db)

	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE user_id = \?`).
		WithArgs("u9").
		WillReturnRows(sqlmock.NewRows(bookingCols))

	got, err := store.ListBookings(context.Background(), booking.Filter{UserID: "u9"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_InsertDuplicateSeatIsConflict(t *testing.T) {
	db, mock := newMock(t)
	store := NewBookingStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO booking_seats`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		return tx.InsertBooking(ctx, &model.Booking{
			ID:      "b1",
			EventID: "e1",
			Status:  model.StatusConfirmed,
			Seats:   []model.SeatBooking{{Tier: model.TierVIP, SeatNumber: 1, Price: 150}},
		})
	})
	assert.ErrorIs(t, err, booking.ErrSeatConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_CancelClearsLiveFlag(t *testing.T) {
	db, mock := newMock(t)
	store := NewBookingStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookings SET status = \? WHERE id = \?`).
		WithArgs("cancelled", "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE booking_seats SET active = \? WHERE booking_id = \?`).
		WithArgs(nil, "b1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		return tx.UpdateBookingStatus(ctx, &model.Booking{ID: "b1", Status: model.StatusCancelled})
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_ReactivationConflict(t *testing.T) {
	db, mock := newMock(t)
	store := NewBookingStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookings SET status`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE booking_seats SET active`).
		WithArgs(int64(1), "b1").
		WillReturnError(&mysql.MySQLError{Number: 1062})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		return tx.UpdateBookingStatus(ctx, &model.Booking{ID: "b1", Status: model.StatusConfirmed})
	})
	assert.ErrorIs(t, err, booking.ErrSeatConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_LockEvent(t *testing.T) {
	db, mock := newMock(t)
	store := NewBookingStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM events WHERE id = \? FOR UPDATE`).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow(eventRowValues("e1")...))
	mock.ExpectQuery(`SELECT (.+) FROM events WHERE id = \? FOR UPDATE`).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows(eventCols))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		ev, err := tx.LockEvent(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, 1, ev.VIP.Available)
		assert.Equal(t, 150.0, ev.VIP.Price)

		_, err = tx.LockEvent(ctx, "gone")
		return err
	})
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_ElapsedConfirmed(t *testing.T) {
	db, mock := newMock(t)
	store := NewBookingStore(db)

	mock.ExpectQuery(`SELECT b.id FROM bookings b\s+JOIN events e`).
		WithArgs("confirmed", "2025-06-11 00:00").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("b1").AddRow("b2"))

	ids, err := store.ElapsedConfirmed(context.Background(), "2025-06-11 00:00")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
