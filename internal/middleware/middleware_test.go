package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/logger"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

const secret = "test-secret"

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(CtxUserID).(string))
	}, JWTAuth(secret), RequireRole("ADMIN"))

	cases := []struct {
		name   string
		auth   string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", bearer(t, "u1", "CUSTOMER"), http.StatusForbidden},
		{"admin", bearer(t, "u1", "ADMIN"), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "u1", rec.Body.String())
			}
		})
	}
}

func TestRequestLoggerWritesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	require.NoError(t, logger.Configure("info", "json"))
	t.Cleanup(func() {
		logger.SetOutput(os.Stdout)
		_ = logger.Configure("info", "text")
	})

	e := echo.New()
	e.Use(echomw.RequestID(), RequestLogger())
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, float64(http.StatusNotFound), line["status"])
	assert.Equal(t, "/missing", line["path"])
}

func TestRedisCacheReplaysResponse(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "cache",
	}
	calls := 0
	e := echo.New()
	e.GET("/events", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewRedisCache(cfg, rdb))

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?x=1", nil))
		return rec
	}
	first := get()
	second := get()

	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)
}

func TestRedisCacheDisabledWithoutClient(t *testing.T) {
	mw := NewRedisCache(config.CacheConfig{Enabled: true}, nil)
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, mw)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/api/bookings", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, NewTokenBucket(cfg, rdb))

	var codes []int
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bookings", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestCacheInvalidatorPurgesScope(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "cache",
	}
	seats := 10
	e := echo.New()
	cache := NewRedisCache(cfg, rdb)
	purge := CacheInvalidator(cfg, rdb)
	e.GET("/api/events/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"available": seats})
	}, cache)
	e.GET("/api/advertisements", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []string{"banner"})
	}, cache)
	e.POST("/api/bookings", func(c echo.Context) error {
		seats--
		return c.NoContent(http.StatusCreated)
	}, purge("events"))
	e.POST("/api/bookings/fail", func(c echo.Context) error {
		seats--
		return c.NoContent(http.StatusConflict)
	}, purge("events"))

	serve := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	serve(http.MethodGet, "/api/events/e1")
	serve(http.MethodGet, "/api/advertisements")
	assert.Equal(t, "HIT", serve(http.MethodGet, "/api/events/e1").Header().Get("X-Cache"))

	serve(http.MethodPost, "/api/bookings/fail")
	assert.Equal(t, "HIT", serve(http.MethodGet, "/api/events/e1").Header().Get("X-Cache"))

	require.Equal(t, http.StatusCreated, serve(http.MethodPost, "/api/bookings").Code)
	rec := serve(http.MethodGet, "/api/events/e1")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"available":8}`, rec.Body.String())
	// other scopes survive
	assert.Equal(t, "HIT", serve(http.MethodGet, "/api/advertisements").Header().Get("X-Cache"))
}

func TestRedisCacheSkipsOversizedBodies(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		Prefix:       "cache",
		MaxBodyBytes: 8,
	}
	e := echo.New()
	e.GET("/big", func(c echo.Context) error {
		return c.String(http.StatusOK, "more than eight bytes")
	}, NewRedisCache(cfg, rdb))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/big", nil))
		assert.Equal(t, "more than eight bytes", rec.Body.String())
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	}
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.1.2.3")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/bookings")
	c.Set(CtxUserID, "u1")

	for strategy, want := range map[string]string{
		"ip":         "rl:ip:10.1.2.3",
		"user_route": "rl:user:u1:route:POST /api/bookings",
		"":           "rl:ip:10.1.2.3:user:u1:route:POST /api/bookings",
	} {
		got := rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		assert.Equal(t, want, got, strategy)
	}
}

func TestRequireRoleNormalizesAndExplains(t *testing.T) {
	e := echo.New()
	e.GET("/staff", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(CtxRole).(string))
	}, JWTAuth(secret), RequireRole("organizer", "ADMIN"))
	e.GET("/bare", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireRole("ADMIN"))

	serve := func(path, auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("/staff", bearer(t, "o1", "organizer"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ORGANIZER", rec.Body.String())

	rec = serve("/staff", bearer(t, "c1", "CUSTOMER"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"requires role ORGANIZER or ADMIN"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve("/bare", "").Code)
}
