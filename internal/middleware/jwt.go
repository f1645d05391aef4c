// Package middleware contains the echo middleware shared by the route
// groups: authentication, role checks, request logging, response caching
// and rate limiting.
package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/logger"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// JWTAuth admits requests carrying a valid access token and stores its
// subject and role under CtxUserID and CtxRole. The user id is also added
// to the request's log entry.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			role, _ := model.NormalizeRole(claims.Role)

			c.Set(CtxUserID, claims.Subject)
			c.Set(CtxRole, role)

			ctx := c.Request().Context()
			entry := logger.FromContext(ctx).WithField("user_id", claims.Subject)
			c.SetRequest(c.Request().WithContext(logger.WithContext(ctx, entry)))
			return next(c)
		}
	}
}

// RequireRole must run after JWTAuth. It answers 401 when no identity was
// stored and 403 when the caller's role is not among roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	var allowed []string
	for _, r := range roles {
		if n, ok := model.NormalizeRole(r); ok {
			allowed = append(allowed, n)
		}
	}
	denied := "requires role " + strings.Join(allowed, " or ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			switch {
			case role == "" && userID(c) == "guest":
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			case !slices.Contains(allowed, role):
				logger.FromContext(c.Request().Context()).WithField("role", role).Debug("role check failed")
				return c.JSON(http.StatusForbidden, echo.Map{"error": denied})
			}
			return next(c)
		}
	}
}
