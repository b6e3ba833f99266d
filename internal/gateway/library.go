package gateway

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/streamforge/gateway/internal/gwerrors"
	"github.com/streamforge/gateway/internal/store"
)

// handleListLibrary is GET /library. Per spec §9's Open Question resolution,
// entries of every type (including channels) are returned (the inclusive
// form).
func (g *Gateway) handleListLibrary(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	items, err := g.Store.ListLibrary(userID)
	if err != nil {
		return writeError(c, gwerrors.Wrap(gwerrors.KindUnknown, "list library", err))
	}
	return c.JSON(items)
}

type addLibraryRequest struct {
	ID     string `json:"id"`
	IMDBID string `json:"imdbId"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Poster string `json:"poster"`
	Year   int    `json:"year"`
}

// handleAddLibrary is POST /library.
func (g *Gateway) handleAddLibrary(c *fiber.Ctx) error {
	var req addLibraryRequest
	if err := c.BodyParser(&req); err != nil || req.ID == "" || req.Type == "" {
		return writeError(c, gwerrors.New(gwerrors.KindInvalidInput, "id and type are required"))
	}

	userID := userIDFromContext(c)
	item := store.LibraryItem{
		UserID:  userID,
		ID:      req.ID,
		IMDBID:  req.IMDBID,
		Type:    req.Type,
		Name:    req.Name,
		Poster:  req.Poster,
		Year:    req.Year,
		AddedAt: time.Now(),
	}
	if err := g.Store.AddLibraryItem(item); err != nil {
		return writeError(c, gwerrors.Wrap(gwerrors.KindUnknown, "add library item", err))
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// handleRemoveLibrary is DELETE /library/{type}/{id}.
func (g *Gateway) handleRemoveLibrary(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	itemType := c.Params("type")
	id := c.Params("id")
	if err := g.Store.RemoveLibraryItem(userID, itemType, id); err != nil {
		return writeError(c, gwerrors.Wrap(gwerrors.KindUnknown, "remove library item", err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
