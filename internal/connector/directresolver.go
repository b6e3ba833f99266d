package connector

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/streamforge/gateway/internal/model"
)

// DirectResolver is the single-purpose connector spec §4.2/§4.6 routes a
// URL-like content id to, bypassing the aggregator entirely: it never
// interprets the URL's content, it only confirms the resource resolves and
// wraps it as a single direct_url Stream.
type DirectResolver struct {
	client *resty.Client
}

func NewDirectResolver() *DirectResolver {
	return &DirectResolver{client: resty.New()}
}

func (d *DirectResolver) Name() string         { return "direct" }
func (d *DirectResolver) SupportsMovies() bool { return true }
func (d *DirectResolver) SupportsSeries() bool { return true }

// IsDirectURLID reports whether a content id is itself a playable URL, the
// id shape spec §4.6 routes straight to this connector.
func IsDirectURLID(contentID string) bool {
	return strings.HasPrefix(contentID, "http://") || strings.HasPrefix(contentID, "https://")
}

// Fetch treats fp.NormalizedContentID as the URL itself. A failed HEAD probe
// doesn't drop the stream — some CDNs reject HEAD but serve GET fine — it's
// only logged, matching the "connectors never raise outward" contract.
func (d *DirectResolver) Fetch(ctx context.Context, fp model.Fingerprint, _ string) []model.Stream {
	url := fp.NormalizedContentID
	if !IsDirectURLID(url) {
		return nil
	}

	if resp, err := d.client.R().SetContext(ctx).Head(url); err != nil || resp.IsError() {
		log.Warnf("connector direct: %s did not confirm via HEAD, passing through unverified", url)
	}

	s, ok := normalize("direct", model.StreamKindDirectURL, "", 0, url, "", nil, url, url)
	if !ok {
		return nil
	}
	return []model.Stream{s}
}
