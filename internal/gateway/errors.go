package gateway

import (
	"github.com/gofiber/fiber/v2"

	"github.com/streamforge/gateway/internal/gwerrors"
)

// statusFor maps a closed error Kind to the REST status spec §6/§7 names.
// Auth errors never leak the underlying reason; every other kind does, since
// it's operationally useful and non-sensitive.
func statusFor(kind gwerrors.Kind) int {
	switch kind {
	case gwerrors.KindNotFound:
		return fiber.StatusNotFound
	case gwerrors.KindInvalidInput:
		return fiber.StatusBadRequest
	case gwerrors.KindUnauthorized:
		return fiber.StatusUnauthorized
	case gwerrors.KindUpstreamUnavailable, gwerrors.KindProtectionChallenge:
		return fiber.StatusServiceUnavailable
	case gwerrors.KindTimeout:
		return fiber.StatusGatewayTimeout
	case gwerrors.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as a JSON error body at the status its Kind maps to.
func writeError(c *fiber.Ctx, err error) error {
	kind := gwerrors.KindOf(err)
	status := statusFor(kind)
	message := err.Error()
	if kind == gwerrors.KindUnauthorized {
		message = "unauthorized"
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}
