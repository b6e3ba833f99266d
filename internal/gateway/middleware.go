package gateway

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/streamforge/gateway/internal/gwerrors"
)

const localsUserIDKey = "userID"

// requireAuth parses and validates the bearer token, storing the caller's
// user id in fiber locals for downstream handlers. Auth errors surface with
// the standard 401 status and never leak internal reasons (spec §7).
func (g *Gateway) requireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return writeError(c, gwerrors.New(gwerrors.KindUnauthorized, "missing bearer token"))
	}

	claims, err := g.Identity.Validate(token)
	if err != nil {
		return writeError(c, gwerrors.Wrap(gwerrors.KindUnauthorized, "invalid token", err))
	}

	c.Locals(localsUserIDKey, claims.UserID)
	return c.Next()
}

func userIDFromContext(c *fiber.Ctx) string {
	id, _ := c.Locals(localsUserIDKey).(string)
	return id
}
