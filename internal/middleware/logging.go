package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/logger"
)

// RequestLogger puts a request-scoped logrus entry into the request context
// and logs one line per request once the handler returns. It expects echo's
// RequestID middleware to run first.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = req.Header.Get(echo.HeaderXRequestID)
			}
			entry := logger.L().WithFields(logrus.Fields{
				logger.RequestID: rid,
				"method":         req.Method,
				"path":           req.URL.Path,
			})
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), entry)))

			err := next(c)
			if err != nil {
				// let echo write the error response so the status is final
				c.Error(err)
			}

			status := c.Response().Status
			done := logger.FromContext(c.Request().Context()).WithFields(logrus.Fields{
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
			})
			switch {
			case status >= 500:
				done.Error("request failed")
			case status >= 400:
				done.Warn("request rejected")
			default:
				done.Info("request served")
			}
			return nil
		}
	}
}
