package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/logger"
)

// cachedResponse is the value stored under a cache key.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// captureWriter tees the response body into buf. Bodies above limit are not
// kept, so they are never cached.
type captureWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.overflow {
		if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
			cw.overflow = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// cacheScope is the resource a route belongs to: "/api/events/:id" and
// "/api/events/search" are both "events". Writes purge whole scopes.
func cacheScope(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	if len(parts) >= 2 && parts[0] == "api" {
		return parts[1]
	}
	if parts[0] != "" {
		return parts[0]
	}
	return "root"
}

// cacheKeyFrom builds "<prefix>:<scope>:<sha1 of the strategy parts>".
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	route := c.Path()
	query := r.URL.RawQuery

	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", route}
	case "method_route":
		parts = []string{"method", r.Method, "route", route}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", route, "q", query}
	case "user_route_query":
		parts = []string{"user", userID(c), "route", route, "q", query}
	default: // "route_query"
		parts = []string{"route", route, "q", query}
	}
	// route alone is ambiguous for "/api/events/:id"; the concrete path is not
	parts = append(parts, "path", r.URL.Path)

	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%s:%x", cfg.Prefix, cacheScope(route), sum[:])
}

// NewRedisCache replays 200 responses from Redis, headers included. Only
// methods listed in cfg.Methods are cached; everything else passes through
// untouched. A Redis failure degrades to an uncached request.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Cacheable(c.Request().Method) {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			if hit, ok := loadCached(ctx, rdb, key); ok {
				h := c.Response().Header()
				for k, vals := range hit.Header {
					if strings.EqualFold(k, echo.HeaderContentLength) {
						continue
					}
					h[k] = vals
				}
				h.Set("X-Cache", "HIT")
				return c.Blob(hit.Status, h.Get(echo.HeaderContentType), hit.Body)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.overflow {
				return nil
			}

			entry := cachedResponse{Status: cw.status, Header: c.Response().Header().Clone(), Body: cw.buf.Bytes()}
			entry.Header.Del("X-Cache")
			payload, err := json.Marshal(entry)
			if err == nil {
				// the request context may already be cancelled by the client
				err = rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err()
			}
			if err != nil {
				logger.FromContext(ctx).WithError(err).Warn("response cache store failed")
			}
			return nil
		}
	}
}

func loadCached(ctx context.Context, rdb *redis.Client, key string) (cachedResponse, bool) {
	var out cachedResponse
	bs, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.FromContext(ctx).WithError(err).Warn("response cache read failed")
		}
		return out, false
	}
	if err := json.Unmarshal(bs, &out); err != nil || out.Status == 0 {
		return out, false
	}
	return out, true
}

// CacheInvalidator returns a factory for middleware that purges the given
// cache scopes after a successful write, so cached event listings do not
// show stale seat counts.
func CacheInvalidator(cfg config.CacheConfig, rdb *redis.Client) func(scopes ...string) echo.MiddlewareFunc {
	return func(scopes ...string) echo.MiddlewareFunc {
		if !cfg.Enabled || rdb == nil || len(scopes) == 0 {
			return passThrough
		}
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if err := next(c); err != nil {
					return err
				}
				if st := c.Response().Status; st < 200 || st >= 300 {
					return nil
				}
				ctx := context.WithoutCancel(c.Request().Context())
				for _, scope := range scopes {
					n, err := purgeScope(ctx, rdb, cfg.Prefix, scope)
					log := logger.FromContext(ctx).WithFields(logrus.Fields{"scope": scope, "keys": n})
					if err != nil {
						log.WithError(err).Warn("response cache purge failed")
						continue
					}
					log.Debug("response cache purged")
				}
				return nil
			}
		}
	}
}

func purgeScope(ctx context.Context, rdb *redis.Client, prefix, scope string) (int, error) {
	var keys []string
	iter := rdb.Scan(ctx, 0, prefix+":"+scope+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return len(keys), rdb.Del(ctx, keys...).Err()
}
