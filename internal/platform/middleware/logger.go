package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// Logger emits one structured line per request, tagged with the id set by
// RequestID and, on authenticated routes, the acting practitioner.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rid, _ := c.Get(RequestIDKey).(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			// The auth middleware runs inside next, so the practitioner is
			// only on the request context after it returns.
			req := c.Request()
			if pid := auth.PractitionerIDFromContext(req.Context()); pid != "" {
				evt = evt.Str("practitioner_id", pid)
			}
			if q := req.URL.RawQuery; q != "" {
				evt = evt.Str("query", q)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
