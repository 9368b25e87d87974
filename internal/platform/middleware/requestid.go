package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDKey is the echo context key the request id is stored under.
// Logger and Recovery read it back when tagging their log lines.
const RequestIDKey = "request_id"

// RequestID attaches a request id to the echo context and response headers,
// honoring an X-Request-ID header supplied by the caller.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get("X-Request-ID")
			if rid == "" {
				rid = uuid.New().String()
			}
			c.Set(RequestIDKey, rid)
			c.Response().Header().Set("X-Request-ID", rid)
			return next(c)
		}
	}
}
