package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// EventStore is the persistence the event endpoints need.
type EventStore interface {
	List(ctx context.Context) ([]model.Event, error)
	SearchByName(ctx context.Context, q string) ([]model.Event, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Create(ctx context.Context, e *model.Event) error
	Update(ctx context.Context, id string, fn func(e *model.Event) error) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// EventHandler serves /api/events.
type EventHandler struct {
	Events EventStore
	Clock  clock.Clock
}

func NewEventHandler(s EventStore, c clock.Clock) *EventHandler {
	return &EventHandler{Events: s, Clock: c}
}

// tierReq accepts a seat tier. AvailableSeats defaults to TotalSeats on
// create when omitted.
type tierReq struct {
	TotalSeats     int     `json:"totalSeats"`
	AvailableSeats *int    `json:"availableSeats"`
	Price          float64 `json:"price"`
}

type eventReq struct {
	Name            string   `json:"name"`
	Location        string   `json:"location"`
	Category        string   `json:"category"`
	Description     *string  `json:"description"`
	EventImage      *string  `json:"eventImage"`
	OrganizerID     string   `json:"organizerId"`
	EventDate       string   `json:"eventDate"`
	EventTime       string   `json:"eventTime"`
	VIPSeats        *tierReq `json:"vipSeats"`
	StandardSeats   *tierReq `json:"standardSeats"`
	ConcessionSeats *tierReq `json:"concessionSeats"`
}

func (r *eventReq) tiers() map[model.Tier]*tierReq {
	return map[model.Tier]*tierReq{
		model.TierVIP:        r.VIPSeats,
		model.TierStandard:   r.StandardSeats,
		model.TierConcession: r.ConcessionSeats,
	}
}

func (t *tierReq) toTier() (model.SeatTier, error) {
	out := model.SeatTier{Total: t.TotalSeats, Available: t.TotalSeats, Price: t.Price}
	if t.AvailableSeats != nil {
		out.Available = *t.AvailableSeats
	}
	if out.Total < 0 || out.Price < 0 {
		return out, fmt.Errorf("seat totals and prices must not be negative")
	}
	if out.Available < 0 || out.Available > out.Total {
		return out, fmt.Errorf("available seats must be between 0 and the total")
	}
	return out, nil
}

// apply replaces cur with t. Without an explicit availableSeats the
// capacity change is carried over to the availability so sold seats stay
// sold.
func (t *tierReq) apply(cur model.SeatTier) model.SeatTier {
	out := model.SeatTier{Total: t.TotalSeats, Price: t.Price}
	if t.AvailableSeats != nil {
		out.Available = *t.AvailableSeats
		return out
	}
	out.Available = cur.Available + (t.TotalSeats - cur.Total)
	if out.Available < 0 {
		out.Available = 0
	}
	return out
}

// List returns all events.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Events.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one event.
func (h *EventHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ev, err := h.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Search matches events by name, ignoring case.
func (h *EventHandler) Search(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Events.SearchByName(ctx, c.QueryParam("name"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListByOrganizer returns the events of one organizer.
func (h *EventHandler) ListByOrganizer(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Events.ListByOrganizer(ctx, c.Param("organizerId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Create adds an event. Organizers always own what they create; admins
// name the organizer in the body.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if getRole(c) == model.RoleOrganizer {
		req.OrganizerID = uid
	}
	if strings.TrimSpace(req.OrganizerID) == "" {
		return badRequest(c, "Organizer ID is required")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.EventDate) == "" {
		return badRequest(c, "name and eventDate are required")
	}
	evTime, err := clock.NormalizeTime(req.EventTime)
	if err != nil {
		return badRequest(c, err.Error())
	}
	elapsed, err := clock.Elapsed(h.Clock, req.EventDate, evTime)
	if err != nil {
		return badRequest(c, "eventDate must be YYYY-MM-DD")
	}
	if elapsed {
		return badRequest(c, "Cannot create event in the past")
	}

	now := clock.Timestamp(h.Clock)
	ev := model.Event{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Location:    req.Location,
		Category:    req.Category,
		OrganizerID: req.OrganizerID,
		Date:        strings.TrimSpace(req.EventDate),
		Time:        evTime,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Description != nil {
		ev.Description = *req.Description
	}
	if req.EventImage != nil {
		ev.Image = *req.EventImage
	}
	for tier, t := range req.tiers() {
		if t == nil {
			continue
		}
		st, err := t.toTier()
		if err != nil {
			return badRequest(c, err.Error())
		}
		*ev.Tier(tier) = st
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Events.Create(ctx, &ev); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// Update applies a partial update: non-empty strings replace, description
// and image replace when present, tier records replace when present.
// Organizers may only edit their own events.
func (h *EventHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	evTime, err := clock.NormalizeTime(req.EventTime)
	if err != nil {
		return badRequest(c, err.Error())
	}
	req.EventDate = strings.TrimSpace(req.EventDate)
	if req.EventDate != "" {
		if _, err := clock.EventMoment(req.EventDate, evTime); err != nil {
			return badRequest(c, "eventDate must be YYYY-MM-DD")
		}
	}
	tiers := map[model.Tier]*tierReq{}
	for tier, t := range req.tiers() {
		if t == nil {
			continue
		}
		if _, err := t.toTier(); err != nil {
			return badRequest(c, err.Error())
		}
		tiers[tier] = t
	}
	role := getRole(c)

	ctx, cancel := reqCtx(c)
	defer cancel()
	ev, err := h.Events.Update(ctx, c.Param("id"), func(e *model.Event) error {
		if role == model.RoleOrganizer && e.OrganizerID != uid {
			return repository.ErrForbidden
		}
		setIfNotEmpty(&e.Name, req.Name)
		setIfNotEmpty(&e.Location, req.Location)
		setIfNotEmpty(&e.Category, req.Category)
		setIfNotEmpty(&e.Date, req.EventDate)
		setIfNotEmpty(&e.Time, evTime)
		if req.Description != nil {
			e.Description = *req.Description
		}
		if req.EventImage != nil {
			e.Image = *req.EventImage
		}
		for tier, t := range tiers {
			*e.Tier(tier) = t.apply(*e.Tier(tier))
		}
		e.UpdatedAt = clock.Timestamp(h.Clock)
		return nil
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Delete removes an event. Organizers may only delete their own events.
func (h *EventHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	id := c.Param("id")
	if getRole(c) == model.RoleOrganizer {
		ev, err := h.Events.GetByID(ctx, id)
		if err != nil {
			return writeError(c, err)
		}
		if ev.OrganizerID != uid {
			return forbidden(c)
		}
	}
	if err := h.Events.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func setIfNotEmpty(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}
