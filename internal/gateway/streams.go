package gateway

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/streamforge/gateway/internal/connector"
	"github.com/streamforge/gateway/internal/gwerrors"
	"github.com/streamforge/gateway/internal/model"
)

// handleAggregatedStreams is GET /streams/{type}/{content_id:path} (spec §6,
// §4.2, §4.6). content_id may carry a ":s:e" suffix for series, be a URL
// (routed straight to the direct-resolver connector), or carry a "ustv"
// prefix (routed straight to the live-TV connector) — both bypass the
// aggregator and its fan-out/dedup/rank entirely.
func (g *Gateway) handleAggregatedStreams(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	contentType := model.ContentType(c.Params("type"))
	contentID := c.Params("*")

	fp := model.ParseFingerprint(contentType, contentID)

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	switch {
	case connector.IsDirectURLID(fp.NormalizedContentID):
		return c.JSON(fiber.Map{"streams": g.DirectResolver.Fetch(ctx, fp, "")})
	case connector.IsTVChannelID(fp.NormalizedContentID):
		return c.JSON(fiber.Map{"streams": g.LiveTV.Fetch(ctx, fp, "")})
	}

	var titleHint string
	if meta, err := g.Catalog.Resolve(c.Context(), fp); err == nil {
		titleHint = meta.Name
	}

	streams := newAggregatorFor(g, userID).Resolve(ctx, fp, titleHint)
	return c.JSON(fiber.Map{"streams": streams})
}

type subtitleEntry struct {
	Language string `json:"language"`
	URL      string `json:"url"`
}

type subtitleAddonStream struct {
	Lang string `json:"lang"`
	URL  string `json:"url"`
}

type subtitleAddonResponse struct {
	Subtitles []subtitleAddonStream `json:"subtitles"`
}

// handleSubtitles is GET /subtitles/{type}/{content_id}: delegate to the
// configured subtitles add-on, normalizing to one entry per language with
// English first (spec §6).
func (g *Gateway) handleSubtitles(c *fiber.Ctx) error {
	if g.SubtitlesAddonID == "" {
		return c.JSON(fiber.Map{"subtitles": []subtitleEntry{}})
	}

	userID := userIDFromContext(c)
	addons, err := g.Store.ListAddons(userID)
	if err != nil {
		return writeError(c, gwerrors.Wrap(gwerrors.KindUnknown, "list addons", err))
	}

	var subtitlesAddon *connectorSource
	for _, a := range addons {
		if a.Manifest.ID == g.SubtitlesAddonID {
			subtitlesAddon = &connectorSource{baseURL: addonBaseURL(a.ManifestURL), protected: isProtectedHost(a.ManifestURL)}
			break
		}
	}
	if subtitlesAddon == nil {
		return c.JSON(fiber.Map{"subtitles": []subtitleEntry{}})
	}

	contentType := c.Params("type")
	contentID := c.Params("contentId")
	path := subtitlesAddon.baseURL + "/subtitles/" + contentType + "/" + contentID + ".json"

	var payload subtitleAddonResponse
	if subtitlesAddon.protected {
		if err := g.HTTP.FetchJSON(c.Context(), path, &payload); err != nil {
			return c.JSON(fiber.Map{"subtitles": []subtitleEntry{}})
		}
	} else {
		resp, err := restyClient().R().SetContext(c.Context()).SetResult(&payload).Get(path)
		if err != nil || resp.IsError() {
			return c.JSON(fiber.Map{"subtitles": []subtitleEntry{}})
		}
	}

	return c.JSON(fiber.Map{"subtitles": normalizeSubtitles(payload.Subtitles)})
}

// normalizeSubtitles collapses to one entry per language, English first.
func normalizeSubtitles(raw []subtitleAddonStream) []subtitleEntry {
	seen := make(map[string]bool, len(raw))
	var english []subtitleEntry
	var rest []subtitleEntry
	for _, s := range raw {
		if s.Lang == "" || seen[s.Lang] {
			continue
		}
		seen[s.Lang] = true
		entry := subtitleEntry{Language: s.Lang, URL: s.URL}
		if s.Lang == "eng" || s.Lang == "en" {
			english = append(english, entry)
		} else {
			rest = append(rest, entry)
		}
	}
	return append(english, rest...)
}

type connectorSource struct {
	baseURL   string
	protected bool
}
