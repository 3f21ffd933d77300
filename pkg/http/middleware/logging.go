package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "StockTime/pkg/logger"
)

// RequestLogging writes one debug line per request, keyed by route so path
// params do not fan out. Requests under skip (scrapes, probes) are not logged.
func RequestLogging(l *applogger.Logger, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := skipped[c.Request().URL.Path]; ok {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			res := c.Response()
			l.Debug("http request",
				applogger.String("method", c.Request().Method),
				applogger.String("route", c.Path()),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", res.Status),
				applogger.Int64("bytes", res.Size),
				applogger.Duration("latency_ms", time.Since(start)),
			)
			return err
		}
	}
}
