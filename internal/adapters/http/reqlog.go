package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/parkpass/internal/pkg/logging"
	"github.com/samirrijal/parkpass/internal/pkg/telemetry"
)

// RequestContextMiddleware opens the server span for the request and stores
// the request ID and a request-scoped *slog.Logger in the user context, so
// pipeline spans and log lines downstream join the request.
func RequestContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := telemetry.Tracer().Start(c.UserContext(), c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if rid, _ := c.Locals("requestid").(string); rid != "" {
			span.SetAttributes(attribute.String(telemetry.AttrRequestID, rid))
			ctx = logging.WithRequestID(ctx, rid)
			ctx = logging.WithLogger(ctx, slog.Default().With("request_id", rid))
		}
		c.SetUserContext(ctx)

		err := c.Next()

		span.SetAttributes(
			attribute.String(telemetry.AttrHTTPRoute, c.Route().Path),
			attribute.Int(telemetry.AttrHTTPStatus, c.Response().StatusCode()),
		)
		return err
	}
}
