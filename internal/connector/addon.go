package connector

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/streamforge/gateway/internal/httpx"
	"github.com/streamforge/gateway/internal/model"
)

// AddonClient is connector kind 1: a Stremio-shaped add-on's stream resource.
type AddonClient struct {
	id          string
	displayName string
	baseURL     string
	protected   bool
	movies      bool
	series      bool

	plain   *resty.Client
	bypass  *httpx.Client
}

// NewAddonClient builds an AddonClient for one installed add-on. bypass may
// be nil if protected is always false for this deployment.
func NewAddonClient(id, displayName, baseURL string, protected, movies, series bool, bypass *httpx.Client) *AddonClient {
	return &AddonClient{
		id:          id,
		displayName: displayName,
		baseURL:     baseURL,
		protected:   protected,
		movies:      movies,
		series:      series,
		plain:       resty.New().SetBaseURL(baseURL),
		bypass:      bypass,
	}
}

func (a *AddonClient) Name() string         { return a.displayName }
func (a *AddonClient) SupportsMovies() bool { return a.movies }
func (a *AddonClient) SupportsSeries() bool { return a.series }

type addonStreamResponse struct {
	Streams []addonStream `json:"streams"`
}

type addonStream struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	InfoHash    string `json:"infoHash"`
}

func (a *AddonClient) Fetch(ctx context.Context, fp model.Fingerprint, _ string) []model.Stream {
	path := fmt.Sprintf("/stream/%s/%s.json", string(fp.ContentType), contentIDFor(fp))

	var payload addonStreamResponse
	if a.protected && a.bypass != nil {
		if err := a.bypass.FetchJSON(ctx, a.baseURL+path, &payload); err != nil {
			log.Warnf("connector %s: bypass fetch failed: %v", a.displayName, err)
			return nil
		}
	} else {
		resp, err := a.plain.R().SetContext(ctx).SetResult(&payload).Get(path)
		if err != nil {
			log.Warnf("connector %s: request failed: %v", a.displayName, err)
			return nil
		}
		if resp.IsError() {
			log.Warnf("connector %s: upstream status %d", a.displayName, resp.StatusCode())
			return nil
		}
	}

	streams := make([]model.Stream, 0, len(payload.Streams))
	for _, raw := range payload.Streams {
		title := raw.Title
		if title == "" {
			title = raw.Name
		}
		kind := model.StreamKindMagnet
		if raw.InfoHash == "" {
			kind = model.StreamKindDirectURL
		}
		s, ok := normalize(a.displayName, kind, title+" "+raw.Description, 0, raw.URL, raw.InfoHash, nil, raw.Name, title)
		if !ok {
			continue
		}
		streams = append(streams, s)
	}
	return streams
}

func contentIDFor(fp model.Fingerprint) string {
	if fp.ContentType == model.ContentTypeSeries && fp.Season > 0 {
		return fmt.Sprintf("%s:%d:%d", fp.NormalizedContentID, fp.Season, fp.Episode)
	}
	return fp.NormalizedContentID
}
