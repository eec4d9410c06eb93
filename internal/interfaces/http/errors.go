package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/traslados-api/internal/application/dto"
	"github.com/jhoicas/traslados-api/internal/domain"
)

// retryAfterSeconds sugerencia al cliente tras un LockTimeout.
const retryAfterSeconds = "1"

// writeError traduce un error de dominio a status HTTP + dto.ErrorResponse.
// Los errores no clasificados responden 500 sin exponer el detalle.
func writeError(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "error interno"
	}
	if code == "LOCK_TIMEOUT" {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

func classify(err error) (int, string) {
	var (
		insuf *domain.InsufficientStockError
		state *domain.InvalidStateError
	)
	switch {
	case errors.As(err, &insuf), errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusBadRequest, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.As(err, &state), errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusConflict, "INVALID_STATE"
	case errors.Is(err, domain.ErrLockTimeout):
		return fiber.StatusServiceUnavailable, "LOCK_TIMEOUT"
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
