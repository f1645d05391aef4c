package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/model"
)

func newEventAPI(evs ...model.Event) (*echo.Echo, *fakeEvents) {
	store := newFakeEvents(evs...)
	h := NewEventHandler(store, clock.Fixed(testNow))
	e := newEcho()
	g := e.Group("/api/events")
	g.GET("", h.List)
	g.GET("/search", h.Search)
	g.GET("/organizer/:organizerId", h.ListByOrganizer)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return e, store
}

func existingEvent() model.Event {
	return model.Event{
		ID:          "e1",
		Name:        "Jazz Night",
		Location:    "Hall A",
		OrganizerID: organizer.id,
		Date:        "2025-06-10",
		Time:        "20:00",
		VIP:         model.SeatTier{Total: 10, Available: 6, Price: 100},
	}
}

func TestEventCreate(t *testing.T) {
	e, store := newEventAPI()

	body := `{"name":"Rock Fest","location":"Arena","eventDate":"2025-07-01","eventTime":"19:30",
		"organizerId":"someone-else","vipSeats":{"totalSeats":10,"price":100},
		"standardSeats":{"totalSeats":50,"availableSeats":40,"price":50}}`
	rec := do(e, organizer, http.MethodPost, "/api/events", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	ev := decode[model.Event](t, rec)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, organizer.id, ev.OrganizerID)
	assert.Equal(t, model.SeatTier{Total: 10, Available: 10, Price: 100}, ev.VIP)
	assert.Equal(t, 40, ev.Standard.Available)
	assert.Equal(t, "2025-06-01T12:00:00.000", ev.CreatedAt)

	stored, err := store.GetByID(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rock Fest", stored.Name)
}

func TestEventCreateRejected(t *testing.T) {
	e, _ := newEventAPI()
	cases := []struct {
		name string
		who  caller
		body string
		msg  string
	}{
		{"past", organizer, `{"name":"Old","eventDate":"2025-05-01"}`, "Cannot create event in the past"},
		{"earlier today", organizer, `{"name":"Old","eventDate":"2025-06-01","eventTime":"11:59"}`, "Cannot create event in the past"},
		{"admin without organizer", admin, `{"name":"X","eventDate":"2025-07-01"}`, "Organizer ID is required"},
		{"bad time", organizer, `{"name":"X","eventDate":"2025-07-01","eventTime":"25:99"}`, `invalid event time "25:99"`},
		{"available above total", organizer,
			`{"name":"X","eventDate":"2025-07-01","vipSeats":{"totalSeats":2,"availableSeats":3}}`,
			"available seats must be between 0 and the total"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, tc.who, http.MethodPost, "/api/events", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.msg, errorOf(t, rec))
		})
	}
}

func TestEventUpdate(t *testing.T) {
	e, _ := newEventAPI(existingEvent())

	rec := do(e, organizer, http.MethodPut, "/api/events/e1",
		`{"name":"","location":"Hall B","vipSeats":{"totalSeats":12,"price":120}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ev := decode[model.Event](t, rec)
	assert.Equal(t, "Jazz Night", ev.Name)
	assert.Equal(t, "Hall B", ev.Location)
	// four seats were sold before the resize
	assert.Equal(t, model.SeatTier{Total: 12, Available: 8, Price: 120}, ev.VIP)

	rec = do(e, admin, http.MethodPut, "/api/events/e1", `{"vipSeats":{"totalSeats":2,"price":120}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[model.Event](t, rec).VIP.Available)

	rec = do(e, organizer, http.MethodPut, "/api/events/e1", `{"eventDate":"10/06/2025"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "eventDate must be YYYY-MM-DD", errorOf(t, rec))

	rec = do(e, organizer, http.MethodPut, "/api/events/e1", `{"eventDate":" 2025-06-12 "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-06-12", decode[model.Event](t, rec).Date)
}

func TestEventOwnership(t *testing.T) {
	e, store := newEventAPI(existingEvent())
	other := caller{"org-2", model.RoleOrganizer}

	assert.Equal(t, http.StatusForbidden, do(e, other, http.MethodPut, "/api/events/e1", `{"name":"Mine"}`).Code)
	assert.Equal(t, http.StatusForbidden, do(e, other, http.MethodDelete, "/api/events/e1", "").Code)
	ev, err := store.GetByID(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", ev.Name)

	assert.Equal(t, http.StatusNotFound, do(e, admin, http.MethodPut, "/api/events/nope", `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(e, admin, http.MethodDelete, "/api/events/nope", "").Code)
	assert.Equal(t, http.StatusNoContent, do(e, organizer, http.MethodDelete, "/api/events/e1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, anon, http.MethodGet, "/api/events/e1", "").Code)
}

func TestEventReads(t *testing.T) {
	second := existingEvent()
	second.ID, second.Name, second.OrganizerID = "e2", "Blues Evening", "org-2"
	e, _ := newEventAPI(existingEvent(), second)

	rec := do(e, anon, http.MethodGet, "/api/events/search?name=JAZZ", "")
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]model.Event](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, "e1", found[0].ID)

	rec = do(e, anon, http.MethodGet, "/api/events/organizer/org-2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Event](t, rec), 1)

	rec = do(e, anon, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Event](t, rec), 2)
}
