package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/brackwater/payrail/internal/merrors"
)

// WithError maps a typed merrors error to its HTTP status code and the
// {detail: message} envelope (spec.md §7). Unrecognized errors fall back
// to 500, matching the store-corrupt-on-JSON disposition.
func WithError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	switch err.(type) {
	case merrors.ValidationError:
		status = fiber.StatusBadRequest
	case merrors.UnauthorizedError:
		status = fiber.StatusUnauthorized
	case merrors.MakerCheckerError:
		status = fiber.StatusForbidden
	case merrors.NotFoundError:
		status = fiber.StatusNotFound
	case merrors.InvalidTransitionError:
		status = fiber.StatusConflict
	case merrors.IdempotencyConflictError:
		status = fiber.StatusUnprocessableEntity
	case merrors.ProviderUnavailableError, merrors.ProviderTimeoutError, merrors.ProviderError, merrors.NoProvidersAvailableError:
		status = fiber.StatusBadGateway
	case merrors.RateLimitExceededError:
		status = fiber.StatusTooManyRequests
	}

	return c.Status(status).JSON(fiber.Map{"detail": err.Error()})
}

// badRequest wraps a body-decode failure as the ambient ValidationError
// type so WithError maps it to 400 regardless of call site.
func badRequest(err error) error {
	return merrors.ValidationError{Message: err.Error()}
}
