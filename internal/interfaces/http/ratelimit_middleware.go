package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/jhoicas/traslados-api/internal/application/dto"
)

// NewRateLimiter construye el limitador en memoria a partir de un formato "<n>-<S|M|H|D>".
func NewRateLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit limita peticiones por usuario autenticado (o por IP si no hay token).
// Debe ir después de AuthMiddleware para que la llave sea el usuario.
func RateLimit(instance *limiter.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := GetUserID(c)
		if key == "" {
			key = c.IP()
		}
		lctx, err := instance.Get(c.UserContext(), key)
		if err != nil {
			// Si el store falla se deja pasar.
			return c.Next()
		}
		c.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
		if lctx.Reached {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "demasiadas peticiones, intente más tarde",
			})
		}
		return c.Next()
	}
}
