// Package gateway binds the aggregator, swarm manager, media proxy and
// supporting collaborators to the external HTTP surface (spec §6). Route
// registration, middleware and masked-path logging follow cmd/server's fiber
// bootstrap; handlers use the teacher's fiber.Map error-body idiom.
package gateway

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/streamforge/gateway/internal/aggregator"
	"github.com/streamforge/gateway/internal/catalogmeta"
	"github.com/streamforge/gateway/internal/connector"
	"github.com/streamforge/gateway/internal/httpx"
	"github.com/streamforge/gateway/internal/identity"
	"github.com/streamforge/gateway/internal/mediaproxy"
	"github.com/streamforge/gateway/internal/store"
	"github.com/streamforge/gateway/internal/swarm"
)

// Gateway holds every collaborator the HTTP surface mediates between. All
// fields are constructor-injected, explicit-lifecycle collaborators (spec §9
// "globals → explicit collaborators"), never package-level singletons.
type Gateway struct {
	Store    *store.Store
	Identity *identity.Manager
	HTTP     *httpx.Client
	Catalog  *catalogmeta.Client
	Builtins []connector.Connector
	Swarm    swarm.SessionManager

	// DirectResolver and LiveTV handle the two id-shape special cases in
	// spec §4.2/§4.6 that bypass the aggregator entirely.
	DirectResolver *connector.DirectResolver
	LiveTV         *connector.LiveTV

	// Exactly one of Proxy / Forwarder is set, selecting the media-proxy
	// deployment variant (spec §4.4 "Alternate deployment").
	Proxy     *mediaproxy.Proxy
	Forwarder *mediaproxy.ForwardingProxy

	// SubtitlesAddonID names the installed add-on (by manifest id) delegated
	// to for GET /subtitles (spec §6).
	SubtitlesAddonID string

	// StaticManifests is the URL-substring-keyed fallback manifest table used
	// when an add-on's manifest fetch fails on a protected host (spec §6, §8
	// scenario E).
	StaticManifests map[string]store.Manifest
}

// New builds a Gateway from its collaborators. Callers assemble the
// connectors/swarm/proxy variants appropriate to their deployment in
// cmd/gateway/main.go.
func New(st *store.Store, idm *identity.Manager, hc *httpx.Client, catalog *catalogmeta.Client, builtins []connector.Connector, sm swarm.SessionManager) *Gateway {
	return &Gateway{
		Store:           st,
		Identity:        idm,
		HTTP:            hc,
		Catalog:         catalog,
		Builtins:        builtins,
		Swarm:           sm,
		StaticManifests: defaultStaticManifests(),
	}
}

// connectorsFor builds the per-request connector set: the static built-ins
// plus every add-on the caller has installed.
func (g *Gateway) connectorsFor(userID string) []connector.Connector {
	addons, err := g.Store.ListAddons(userID)
	if err != nil {
		addons = nil
	}
	out := make([]connector.Connector, 0, len(g.Builtins)+len(addons))
	out = append(out, g.Builtins...)
	for _, a := range addons {
		out = append(out, connectorFor(a, g.HTTP))
	}
	return out
}

// connectorFor builds the connector.AddonClient for one installed add-on.
func connectorFor(a store.Addon, bypass *httpx.Client) *connector.AddonClient {
	return connector.NewAddonClient(
		a.Manifest.ID,
		a.Manifest.Name,
		addonBaseURL(a.ManifestURL),
		isProtectedHost(a.ManifestURL),
		containsType(a.Manifest.Types, "movie"),
		containsType(a.Manifest.Types, "series"),
		bypass,
	)
}

func containsType(types []string, want string) bool {
	if len(types) == 0 {
		return true // unspecified types: assume the add-on serves everything
	}
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

// RegisterRoutes wires the full §6 HTTP surface under /api.
func (g *Gateway) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Post("/auth/login", g.handleLogin)
	api.Get("/auth/me", g.requireAuth, g.handleMe)

	api.Get("/addons", g.requireAuth, g.handleListAddons)
	api.Post("/addons/install", g.requireAuth, g.handleInstallAddon)
	api.Post("/addons/install-multiple", g.requireAuth, g.handleInstallMultiple)
	api.Delete("/addons/:id", g.requireAuth, g.handleUninstallAddon)
	api.Get("/addons/:id/stream/:type/:contentId", g.requireAuth, g.handleAddonStreamPassthrough)

	api.Get("/streams/:type/*", g.requireAuth, g.handleAggregatedStreams)
	api.Get("/subtitles/:type/:contentId", g.requireAuth, g.handleSubtitles)

	api.Get("/content/discover-organized", g.requireAuth, g.handleDiscoverOrganized)
	api.Get("/content/category/:section/:type", g.requireAuth, g.handleCategory)
	api.Get("/content/search", g.requireAuth, g.handleSearch)
	api.Get("/content/meta/:type/:contentId", g.requireAuth, g.handleMeta)

	api.Get("/library", g.requireAuth, g.handleListLibrary)
	api.Post("/library", g.requireAuth, g.handleAddLibrary)
	api.Delete("/library/:type/:id", g.requireAuth, g.handleRemoveLibrary)

	api.Post("/stream/start/:infoHash", g.requireAuth, g.handleStreamStart)
	api.Get("/stream/status/:infoHash", g.requireAuth, g.handleStreamStatus)
	api.Get("/stream/video/:infoHash", g.requireAuth, g.handleStreamVideo)
}

func newAggregatorFor(g *Gateway, userID string) *aggregator.Aggregator {
	return aggregator.New(g.connectorsFor(userID))
}

const requestTimeout = 30 * time.Second
