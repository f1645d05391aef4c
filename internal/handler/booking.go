package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/booking"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// BookingService is the part of *booking.Engine the HTTP layer uses.
type BookingService interface {
	Create(ctx context.Context, req booking.CreateRequest) (*model.Booking, error)
	Get(ctx context.Context, id string) (*model.Booking, error)
	ListAll(ctx context.Context) ([]model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Booking, error)
	BookedSeats(ctx context.Context, eventID string) (map[model.Tier][]int, error)
	Cancel(ctx context.Context, id string) (*model.Booking, error)
	MarkUsed(ctx context.Context, id string) (*model.Booking, error)
	SetStatus(ctx context.Context, id, status string) (*model.Booking, error)
}

// UserLookup resolves the booker's display name and email.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// BookingHandler serves /api/bookings.
type BookingHandler struct {
	Bookings BookingService
	Users    UserLookup
}

func NewBookingHandler(b BookingService, u UserLookup) *BookingHandler {
	return &BookingHandler{Bookings: b, Users: u}
}

type createBookingReq struct {
	EventID       string                `json:"eventId"`
	UserName      string                `json:"userName"`
	UserEmail     string                `json:"userEmail"`
	Seats         []booking.SeatRequest `json:"seats"`
	PaymentMethod string                `json:"paymentMethod"`
}

type statusReq struct {
	Status string `json:"status"`
}

// Create books seats for the authenticated user.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.EventID) == "" {
		return badRequest(c, "eventId is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if (req.UserName == "" || req.UserEmail == "") && h.Users != nil {
		if u, err := h.Users.GetByID(ctx, uid); err == nil {
			if req.UserName == "" {
				req.UserName = u.Name
			}
			if req.UserEmail == "" {
				req.UserEmail = u.Email
			}
		}
	}

	b, err := h.Bookings.Create(ctx, booking.CreateRequest{
		EventID:       req.EventID,
		UserID:        uid,
		UserName:      req.UserName,
		UserEmail:     req.UserEmail,
		Seats:         req.Seats,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// List returns every booking (admin).
func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Bookings.ListAll(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one booking to its owner or to staff.
func (h *BookingHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.Get(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	if !h.canSee(c, b.UserID) {
		return forbidden(c)
	}
	return c.JSON(http.StatusOK, b)
}

// ListByUser returns a user's bookings. Customers only see their own.
func (h *BookingHandler) ListByUser(c echo.Context) error {
	userID := c.Param("userId")
	if !h.canSee(c, userID) {
		return forbidden(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Bookings.ListByUser(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListByEvent returns every booking of an event (staff).
func (h *BookingHandler) ListByEvent(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Bookings.ListByEvent(ctx, c.Param("eventId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// BookedSeats returns occupied seat numbers per tier (public).
func (h *BookingHandler) BookedSeats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Bookings.BookedSeats(ctx, c.Param("eventId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Cancel cancels a booking for its owner or for staff.
func (h *BookingHandler) Cancel(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	id := c.Param("id")
	cur, err := h.Bookings.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if !h.canSee(c, cur.UserID) {
		return forbidden(c)
	}
	b, err := h.Bookings.Cancel(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// MarkUsed records ticket redemption at the venue (staff).
func (h *BookingHandler) MarkUsed(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.MarkUsed(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// SetStatus overwrites the status (admin).
func (h *BookingHandler) SetStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.SetStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) canSee(c echo.Context, ownerID string) bool {
	if isStaff(c) {
		return true
	}
	uid, err := getUserID(c)
	return err == nil && uid == ownerID
}
