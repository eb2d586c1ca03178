package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/tifprobe/internal/core/domain"
)

// APIError is the body of every non-2xx JSON response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func newError(c *fiber.Ctx, status int, code, message string) error {
	rid := RequestIDFromCtx(c.UserContext())
	if rid == "" {
		rid, _ = c.Locals("requestid").(string)
	}
	return c.Status(status).JSON(APIError{Status: status, Code: code, Message: message, RequestID: rid})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

func errUnprocessable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnprocessableEntity, "precondition_failed", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errFromDomain maps usecase errors onto HTTP statuses:
// invalid input 400, unmet precondition 422, unknown id 404, anything else 500.
func errFromDomain(c *fiber.Ctx, err error) error {
	var (
		invalid *domain.InvalidInputError
		precond *domain.PreconditionError
	)
	switch {
	case errors.As(err, &invalid):
		return errBadRequest(c, err.Error())
	case errors.As(err, &precond):
		return errUnprocessable(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	}
	LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return errInternal(c, err.Error())
}
