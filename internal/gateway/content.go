package gateway

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/streamforge/gateway/internal/aggregator"
	"github.com/streamforge/gateway/internal/gwerrors"
	"github.com/streamforge/gateway/internal/model"
	"github.com/streamforge/gateway/internal/store"
)

type catalogMetaItem struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Poster string `json:"poster"`
}

type catalogResponse struct {
	Metas []catalogMetaItem `json:"metas"`
}

// fetchCatalog calls one add-on's catalog resource.
func (g *Gateway) fetchCatalog(ctx context.Context, a store.Addon, contentType, catalogID string, skip, limit int) []catalogMetaItem {
	path := fmt.Sprintf("%s/catalog/%s/%s.json", addonBaseURL(a.ManifestURL), contentType, catalogID)
	if skip > 0 {
		path += fmt.Sprintf("?skip=%d", skip)
	}

	var payload catalogResponse
	if isProtectedHost(a.ManifestURL) {
		if err := g.HTTP.FetchJSON(ctx, path, &payload); err != nil {
			return nil
		}
	} else {
		resp, err := restyClient().R().SetContext(ctx).SetResult(&payload).Get(path)
		if err != nil || resp.IsError() {
			return nil
		}
	}
	if limit > 0 && len(payload.Metas) > limit {
		payload.Metas = payload.Metas[:limit]
	}
	return payload.Metas
}

// catalogBucket classifies a catalog by add-on-declared role, the semantic
// roles spec §6 names for the home page: popular, per-streaming-service, USA
// TV. Unmatched catalogs fall into "popular" as a safe default.
func catalogBucket(catalogID, catalogName string) string {
	lower := strings.ToLower(catalogID + " " + catalogName)
	switch {
	case strings.Contains(lower, "usa") || strings.Contains(lower, "tv"):
		return "usaTv"
	case strings.Contains(lower, "netflix"), strings.Contains(lower, "hbo"),
		strings.Contains(lower, "disney"), strings.Contains(lower, "prime"),
		strings.Contains(lower, "hulu"), strings.Contains(lower, "apple"):
		return "streamingServices"
	default:
		return "popular"
	}
}

// handleDiscoverOrganized is GET /content/discover-organized: fan out across
// every installed add-on's catalogs and bucket by semantic role (spec §6).
func (g *Gateway) handleDiscoverOrganized(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	addons, err := g.Store.ListAddons(userID)
	if err != nil {
		return writeError(c, gwerrors.Wrap(gwerrors.KindUnknown, "list addons", err))
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	buckets := map[string][]catalogMetaItem{"popular": {}, "streamingServices": {}, "usaTv": {}}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, a := range addons {
		a := a
		wg.Add(1)
		go func() {
			defer wg.Done()
			items := g.fetchCatalog(ctx, a, "movie", "top", 0, 20)
			bucket := catalogBucket("top", a.Manifest.Name)
			mu.Lock()
			buckets[bucket] = append(buckets[bucket], items...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	return c.JSON(buckets)
}

// handleCategory is GET /content/category/{section}/{type}: paginated
// catalog fetch, fanning out to every installed add-on for section (spec §6).
func (g *Gateway) handleCategory(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	section := c.Params("section")
	contentType := c.Params("type")
	skip, _ := strconv.Atoi(c.Query("skip", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	addons, err := g.Store.ListAddons(userID)
	if err != nil {
		return writeError(c, gwerrors.Wrap(gwerrors.KindUnknown, "list addons", err))
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	var items []catalogMetaItem
	for _, a := range addons {
		items = append(items, g.fetchCatalog(ctx, a, contentType, section, skip, limit)...)
	}
	return c.JSON(fiber.Map{"metas": items})
}

// titleRankClass implements spec §6's ranking order: exact-title > prefix >
// substring > all-significant-words-present.
func titleRankClass(query, title string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	t := strings.ToLower(strings.TrimSpace(title))
	switch {
	case q == t:
		return 0
	case strings.HasPrefix(t, q):
		return 1
	case strings.Contains(t, q):
		return 2
	case allWordsPresent(q, t):
		return 3
	default:
		return 4
	}
}

func allWordsPresent(query, title string) bool {
	for _, w := range strings.Fields(query) {
		if len(w) < 2 {
			continue
		}
		if !strings.Contains(title, w) {
			return false
		}
	}
	return true
}

// handleSearch is GET /content/search?q=: fan out to the metadata service,
// rank per spec §6, and drop results with zero available streams (spec §6
// "verified by a quick probe").
func (g *Gateway) handleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		return writeError(c, gwerrors.New(gwerrors.KindInvalidInput, "q is required"))
	}

	userID := userIDFromContext(c)
	addons, err := g.Store.ListAddons(userID)
	if err != nil {
		return writeError(c, gwerrors.Wrap(gwerrors.KindUnknown, "list addons", err))
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	var candidates []catalogMetaItem
	for _, a := range addons {
		candidates = append(candidates, g.fetchCatalog(ctx, a, "movie", "search", 0, 0)...)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := titleRankClass(query, candidates[i].Name), titleRankClass(query, candidates[j].Name)
		if ci != cj {
			return ci < cj
		}
		return aggregator.TitleSimilarity(query, candidates[i].Name) < aggregator.TitleSimilarity(query, candidates[j].Name)
	})

	agg := newAggregatorFor(g, userID)
	filtered := make([]catalogMetaItem, 0, len(candidates))
	for _, item := range candidates {
		fp := model.ParseFingerprint(model.ContentType(item.Type), item.ID)
		if len(agg.Resolve(ctx, fp, item.Name)) == 0 {
			continue
		}
		filtered = append(filtered, item)
	}

	return c.JSON(fiber.Map{"metas": filtered})
}

type episodeView struct {
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	Name    string `json:"name"`
}

type metaResponse struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Name     string        `json:"name"`
	Year     string        `json:"year,omitempty"`
	Episodes []episodeView `json:"episodes,omitempty"`
}

// handleMeta is GET /content/meta/{type}/{content_id}: passes through the
// resolved name and year (or year range). The episodes field is never
// populated, for series or any other type.
func (g *Gateway) handleMeta(c *fiber.Ctx) error {
	contentType := model.ContentType(c.Params("type"))
	contentID := c.Params("contentId")
	fp := model.ParseFingerprint(contentType, contentID)

	meta, err := g.Catalog.Resolve(c.Context(), fp)
	if err != nil {
		return writeError(c, err)
	}

	resp := metaResponse{ID: fp.NormalizedContentID, Type: string(contentType), Name: meta.Name}
	if meta.FromYear > 0 {
		if meta.ToYear > meta.FromYear {
			resp.Year = fmt.Sprintf("%d-%d", meta.FromYear, meta.ToYear)
		} else {
			resp.Year = strconv.Itoa(meta.FromYear)
		}
	}
	return c.JSON(resp)
}
