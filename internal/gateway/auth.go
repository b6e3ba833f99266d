package gateway

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/streamforge/gateway/internal/gwerrors"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin is POST /auth/login (unauthenticated). Bcrypt comparison
// follows the pattern seen in tomtom215-cartographus's auth package, the
// only pack repo hashing passwords; identity tokens are issued the same way
// regardless of which collaborator stores the credential.
func (g *Gateway) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil || req.Username == "" || req.Password == "" {
		return writeError(c, gwerrors.New(gwerrors.KindInvalidInput, "username and password are required"))
	}

	user, err := g.Store.GetUserByUsername(req.Username)
	if err != nil {
		return writeError(c, gwerrors.New(gwerrors.KindUnauthorized, "invalid credentials"))
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return writeError(c, gwerrors.New(gwerrors.KindUnauthorized, "invalid credentials"))
	}

	token, err := g.Identity.Issue(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return writeError(c, gwerrors.Wrap(gwerrors.KindUnknown, "issue token", err))
	}

	return c.JSON(loginResponse{Token: token})
}

type meResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// handleMe is GET /auth/me: echo the caller's identity (spec §6,
// original_source/backend/server.py's "/auth/me").
func (g *Gateway) handleMe(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	user, err := g.Store.GetUser(userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(meResponse{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin})
}

// HashPassword is used by cmd/gateway to seed the first admin user outside
// the HTTP surface (spec §6 names no registration route).
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
