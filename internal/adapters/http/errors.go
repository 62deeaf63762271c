package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/parkpass/internal/core/domain"
)

// APIError is the body of every non-2xx response. For pipeline failures
// Code is the pipeline error code and Message its user-facing summary.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Transport-level error codes.
const (
	codeBadRequest  = "bad_request"
	codeNotFound    = "not_found"
	codeInternal    = "internal_error"
	codeUnavailable = "unavailable"
	codeRateLimited = "rate_limited"
)

func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, codeBadRequest, msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, codeNotFound, msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, codeInternal, msg)
}

// errUnavailable reports a feature whose backend is not configured.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, codeUnavailable, msg)
}

// errPipeline reports a failed orchestration on endpoints that cannot carry
// the tagged result in their body.
func errPipeline(c *fiber.Ctx, res domain.ParkingRouteResult) error {
	return newError(c, fiber.StatusUnprocessableEntity, string(res.Error), res.Summary())
}
