package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, clock.Zone)

// newEcho returns an echo instance whose requests are authenticated from
// the X-Test-User and X-Test-Role headers.
func newEcho() *echo.Echo {
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid := c.Request().Header.Get("X-Test-User"); uid != "" {
				c.Set("user_id", uid)
				c.Set("role", c.Request().Header.Get("X-Test-Role"))
			}
			return next(c)
		}
	})
	return e
}

type caller struct{ id, role string }

var (
	anon      = caller{}
	admin     = caller{"admin-1", model.RoleAdmin}
	organizer = caller{"org-1", model.RoleOrganizer}
	alice     = caller{"u1", model.RoleCustomer}
	bob       = caller{"u2", model.RoleCustomer}
)

func do(e *echo.Echo, who caller, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if who.id != "" {
		req.Header.Set("X-Test-User", who.id)
		req.Header.Set("X-Test-Role", who.role)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

// fakeUsers is an in-memory UserStore.
type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]model.User{}} }

func (f *fakeUsers) add(t *testing.T, id, name, email, password, role string) {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id] = model.User{ID: id, Name: name, Email: email, PasswordHash: hash, Role: role}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range f.byID {
		if other.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	u.ID = uuid.NewString()
	u.PasswordHash = hash
	f.byID[u.ID] = *u
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) List(context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) SearchByName(_ context.Context, q string) ([]model.User, error) {
	all, _ := f.List(context.Background())
	out := []model.User{}
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Name), strings.ToLower(q)) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Email = strings.ToLower(u.Email)
	for id, other := range f.byID {
		if id != u.ID && other.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	u.PasswordHash = cur.PasswordHash
	f.byID[u.ID] = *u
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type storedToken struct {
	userID  string
	revoked bool
}

// fakeTokens is an in-memory TokenStore keyed by token hash.
type fakeTokens struct {
	mu     sync.Mutex
	byHash map[string]*storedToken
}

func newFakeTokens() *fakeTokens { return &fakeTokens{byHash: map[string]*storedToken{}} }

func (f *fakeTokens) StoreRefresh(_ context.Context, userID, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byHash[hash] = &storedToken{userID: userID}
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.byHash[hash]
	if !ok || tok.revoked {
		return "", repository.ErrNotFound
	}
	return tok.userID, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tok, ok := f.byHash[hash]; ok {
		tok.revoked = true
	}
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tok := range f.byHash {
		if tok.userID == userID {
			tok.revoked = true
		}
	}
	return nil
}

func (f *fakeTokens) active(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, tok := range f.byHash {
		if tok.userID == userID && !tok.revoked {
			n++
		}
	}
	return n
}

// fakeEvents is an in-memory EventStore.
type fakeEvents struct {
	mu   sync.Mutex
	byID map[string]model.Event
}

func newFakeEvents(evs ...model.Event) *fakeEvents {
	f := &fakeEvents{byID: map[string]model.Event{}}
	for _, ev := range evs {
		f.byID[ev.ID] = ev
	}
	return f
}

func (f *fakeEvents) List(context.Context) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Event{}
	for _, ev := range f.byID {
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeEvents) SearchByName(_ context.Context, q string) ([]model.Event, error) {
	all, _ := f.List(context.Background())
	out := []model.Event{}
	for _, ev := range all {
		if strings.Contains(strings.ToLower(ev.Name), strings.ToLower(q)) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeEvents) ListByOrganizer(_ context.Context, organizerID string) ([]model.Event, error) {
	all, _ := f.List(context.Background())
	out := []model.Event{}
	for _, ev := range all {
		if ev.OrganizerID == organizerID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeEvents) GetByID(_ context.Context, id string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ev, nil
}

func (f *fakeEvents) Create(_ context.Context, e *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[e.ID] = *e
	return nil
}

func (f *fakeEvents) Update(_ context.Context, id string, fn func(e *model.Event) error) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := fn(&ev); err != nil {
		return nil, err
	}
	f.byID[id] = ev
	return &ev, nil
}

func (f *fakeEvents) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}
