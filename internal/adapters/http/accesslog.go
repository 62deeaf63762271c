package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/pkg/logging"
)

// localResultCode is the Locals key under which planning handlers leave the
// pipeline outcome for the access log.
const localResultCode = "result_code"

var quietPaths = map[string]bool{
	"/v1/health": true,
	"/v1/ready":  true,
	"/metrics":   true,
}

// AccessLogMiddleware writes one structured line per request through the
// request-scoped logger. Planning requests carry the pipeline outcome.
// Probes and scrapes log at debug level.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()

		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("route", c.Route().Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
		}
		if code, ok := c.Locals(localResultCode).(string); ok {
			attrs = append(attrs, slog.String("result", code))
		}

		level := slog.LevelInfo
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelError
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case quietPaths[path]:
			level = slog.LevelDebug
		}

		ctx := c.UserContext()
		logging.FromContext(ctx).LogAttrs(ctx, level, "request", attrs...)
		return err
	}
}

func setResultCode(c *fiber.Ctx, res domain.ParkingRouteResult) {
	code := "ok"
	if !res.OK {
		code = string(res.Error)
	}
	c.Locals(localResultCode, code)
}
