package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/streamforge/gateway/internal/model"
)

// LiveTV is the single-purpose connector spec §4.2/§4.6 routes
// ustv*-prefixed content ids to: it resolves one or more locator streams for
// a TV channel from a configured catalog. Locator streams carry no
// info_hash, so the aggregator's hash-based dedup never applies to them —
// here they bypass the aggregator entirely, so dedup isn't even in play.
type LiveTV struct {
	displayName string
	client      *resty.Client
}

func NewLiveTV(displayName, baseURL string) *LiveTV {
	return &LiveTV{displayName: displayName, client: resty.New().SetBaseURL(baseURL)}
}

func (l *LiveTV) Name() string         { return l.displayName }
func (l *LiveTV) SupportsMovies() bool { return false }
func (l *LiveTV) SupportsSeries() bool { return false }

// IsTVChannelID reports whether a content id names a TV channel, the id
// shape spec §4.6 routes straight to this connector.
func IsTVChannelID(contentID string) bool {
	return strings.HasPrefix(contentID, "ustv")
}

type liveTVResponse struct {
	Channels []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"channels"`
}

func (l *LiveTV) Fetch(ctx context.Context, fp model.Fingerprint, titleHint string) []model.Stream {
	channelID := fp.NormalizedContentID
	if !IsTVChannelID(channelID) {
		return nil
	}

	var payload liveTVResponse
	resp, err := l.client.R().
		SetContext(ctx).
		SetResult(&payload).
		Get(fmt.Sprintf("/channel/%s.json", channelID))
	if err != nil {
		log.Warnf("connector %s: request failed: %v", l.displayName, err)
		return nil
	}
	if resp.IsError() {
		log.Warnf("connector %s: upstream status %d", l.displayName, resp.StatusCode())
		return nil
	}

	out := make([]model.Stream, 0, len(payload.Channels))
	for _, ch := range payload.Channels {
		name := ch.Name
		if name == "" {
			name = titleHint
		}
		s, ok := normalize(l.displayName, model.StreamKindDirectURL, "", 0, ch.URL, "", nil, name, name)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return out
}
