package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/streamforge/gateway/internal/gwerrors"
	"github.com/streamforge/gateway/internal/model"
	"github.com/streamforge/gateway/internal/store"
)

// protectedHostSubstrings flags known challenge-protected add-on hosts so
// their manifest/stream calls route through the bypass client (spec §4.1,
// §4.5).
var protectedHostSubstrings = []string{"torrentio.strem.fun"}

func isProtectedHost(rawURL string) bool {
	for _, sub := range protectedHostSubstrings {
		if strings.Contains(rawURL, sub) {
			return true
		}
	}
	return false
}

// addonBaseURL strips the trailing "/manifest.json" from an installed
// add-on's manifest URL, giving the base its resource paths hang off.
func addonBaseURL(manifestURL string) string {
	return strings.TrimSuffix(manifestURL, "/manifest.json")
}

// defaultStaticManifests is the fallback manifest table keyed by URL
// substring, used when a protected host's manifest fetch fails (spec §6,
// §8 scenario E).
func defaultStaticManifests() map[string]store.Manifest {
	return map[string]store.Manifest{
		"torrentio.strem.fun": {
			ID:        "com.stremio.torrentio.addon",
			Name:      "Torrentio",
			Version:   "0.0.0",
			Types:     []string{"movie", "series"},
			Resources: []string{"stream"},
		},
	}
}

type addonView struct {
	ID          string         `json:"id"`
	ManifestURL string         `json:"manifestUrl"`
	Manifest    store.Manifest `json:"manifest"`
	InstalledAt time.Time      `json:"installedAt"`
}

func toAddonView(a store.Addon) addonView {
	return addonView{ID: a.ID, ManifestURL: a.ManifestURL, Manifest: a.Manifest, InstalledAt: a.InstalledAt}
}

// handleListAddons is GET /addons.
func (g *Gateway) handleListAddons(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	addons, err := g.Store.ListAddons(userID)
	if err != nil {
		return writeError(c, gwerrors.Wrap(gwerrors.KindUnknown, "list addons", err))
	}
	views := make([]addonView, 0, len(addons))
	for _, a := range addons {
		views = append(views, toAddonView(a))
	}
	return c.JSON(views)
}

type installAddonRequest struct {
	ManifestURL string `json:"manifestUrl"`
}

// handleInstallAddon is POST /addons/install.
func (g *Gateway) handleInstallAddon(c *fiber.Ctx) error {
	var req installAddonRequest
	if err := c.BodyParser(&req); err != nil || req.ManifestURL == "" {
		return writeError(c, gwerrors.New(gwerrors.KindInvalidInput, "manifestUrl is required"))
	}

	userID := userIDFromContext(c)
	addon, err := g.installOne(c.Context(), userID, req.ManifestURL)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toAddonView(*addon))
}

type installMultipleRequest []string

type installResult struct {
	ManifestURL string `json:"manifestUrl"`
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
}

// handleInstallMultiple is POST /addons/install-multiple: sequential install
// with partial success (spec §6).
func (g *Gateway) handleInstallMultiple(c *fiber.Ctx) error {
	var urls installMultipleRequest
	if err := c.BodyParser(&urls); err != nil {
		return writeError(c, gwerrors.New(gwerrors.KindInvalidInput, "expected an array of manifest urls"))
	}

	userID := userIDFromContext(c)
	results := make([]installResult, 0, len(urls))
	for _, u := range urls {
		if _, err := g.installOne(c.Context(), userID, u); err != nil {
			results = append(results, installResult{ManifestURL: u, OK: false, Error: err.Error()})
			continue
		}
		results = append(results, installResult{ManifestURL: u, OK: true})
	}
	return c.JSON(results)
}

// installOne fetches (or falls back to) a manifest, validates it, and
// persists it for userID (spec §6, §7 "invalid manifest" vs "protected —
// fallback unavailable", §8 invariant #8 and scenario E).
func (g *Gateway) installOne(ctx context.Context, userID, manifestURL string) (*store.Addon, error) {
	manifest, err := g.fetchManifest(ctx, manifestURL)
	if err != nil {
		return nil, err
	}
	if manifest.ID == "" || manifest.Name == "" {
		return nil, gwerrors.New(gwerrors.KindInvalidInput, "invalid manifest: missing id or name")
	}

	addon := store.Addon{
		ID:          uuid.NewString(),
		UserID:      userID,
		ManifestURL: manifestURL,
		Manifest:    manifest,
		InstalledAt: time.Now(),
	}
	if err := g.Store.InstallAddon(addon); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindConflict, "addon already installed", err)
	}
	return &addon, nil
}

// fetchManifest tries a plain request, then the bypass client for protected
// hosts, then the static fallback table (spec §6).
func (g *Gateway) fetchManifest(ctx context.Context, manifestURL string) (store.Manifest, error) {
	var manifest store.Manifest

	if isProtectedHost(manifestURL) {
		if err := g.HTTP.FetchJSON(ctx, manifestURL, &manifest); err == nil && manifest.ID != "" {
			return manifest, nil
		}
		if fallback, ok := g.staticManifestFor(manifestURL); ok {
			log.Warnf("gateway: manifest fetch failed for protected host, using static fallback: %s", manifestURL)
			return fallback, nil
		}
		return manifest, gwerrors.New(gwerrors.KindProtectionChallenge, "protected — fallback unavailable")
	}

	resp, err := restyClient().R().SetContext(ctx).SetResult(&manifest).Get(manifestURL)
	if err != nil || resp.IsError() {
		if fallback, ok := g.staticManifestFor(manifestURL); ok {
			return fallback, nil
		}
		return manifest, gwerrors.New(gwerrors.KindInvalidInput, "invalid manifest: fetch failed")
	}
	return manifest, nil
}

func (g *Gateway) staticManifestFor(manifestURL string) (store.Manifest, bool) {
	for sub, m := range g.StaticManifests {
		if strings.Contains(manifestURL, sub) {
			return m, true
		}
	}
	return store.Manifest{}, false
}

// handleUninstallAddon is DELETE /addons/{id}.
func (g *Gateway) handleUninstallAddon(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	manifestID := c.Params("id")
	if err := g.Store.UninstallAddon(userID, manifestID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleAddonStreamPassthrough is GET /addons/{id}/stream/{type}/{content_id}:
// a single-addon stream lookup, bypassing the aggregator entirely.
func (g *Gateway) handleAddonStreamPassthrough(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	manifestID := c.Params("id")
	contentType := model.ContentType(c.Params("type"))
	contentID := c.Params("contentId")

	addons, err := g.Store.ListAddons(userID)
	if err != nil {
		return writeError(c, gwerrors.Wrap(gwerrors.KindUnknown, "list addons", err))
	}

	var target *store.Addon
	for i := range addons {
		if addons[i].Manifest.ID == manifestID {
			target = &addons[i]
			break
		}
	}
	if target == nil {
		return writeError(c, gwerrors.New(gwerrors.KindNotFound, "addon not installed"))
	}

	client := connectorFor(*target, g.HTTP)
	fp := model.ParseFingerprint(contentType, contentID)

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()
	streams := client.Fetch(ctx, fp, "")
	return c.JSON(fiber.Map{"streams": streams})
}
