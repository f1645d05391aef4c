package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/booking"
	"github.com/iliyamo/event-ticketing/internal/logger"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

const requestTimeout = 5 * time.Second

var errUnauthenticated = errors.New("unauthenticated")

// reqCtx bounds the downstream calls of one request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// getUserID returns the authenticated user id stored by JWTAuth.
func getUserID(c echo.Context) (string, error) {
	if s, ok := c.Get("user_id").(string); ok && strings.TrimSpace(s) != "" {
		return s, nil
	}
	return "", errUnauthenticated
}

func getRole(c echo.Context) string {
	r, _ := c.Get("role").(string)
	return r
}

func isStaff(c echo.Context) bool {
	r := getRole(c)
	return r == model.RoleAdmin || r == model.RoleOrganizer
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// statusFor maps domain and repository errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrSeatConflict), errors.Is(err, booking.ErrAlreadyUsed),
		errors.Is(err, repository.ErrEmailExists), errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, booking.ErrInternal):
		return http.StatusInternalServerError
	case errors.Is(err, booking.ErrQuotaExceeded), errors.Is(err, booking.ErrEventExpired),
		errors.Is(err, booking.ErrInsufficientCapacity), errors.Is(err, booking.ErrAlreadyCancelled),
		errors.Is(err, booking.ErrInvalidState), errors.Is(err, booking.ErrInvalidValue):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": msg}. Server-side failures are logged
// with their cause and reported with a generic message.
func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request().Context()).WithError(err).Error("request failed")
		return c.JSON(status, echo.Map{"error": "internal server error"})
	}
	var be *booking.Error
	if errors.As(err, &be) {
		return c.JSON(status, echo.Map{"error": be.Error()})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
