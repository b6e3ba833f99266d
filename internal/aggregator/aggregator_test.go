package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/streamforge/gateway/internal/connector"
	"github.com/streamforge/gateway/internal/model"
)

// fakeConnector returns a fixed stream list after an optional delay, letting
// tests force a slower first connector to still win first-wins dedup.
type fakeConnector struct {
	name   string
	delay  time.Duration
	result []model.Stream
}

func (f *fakeConnector) Name() string         { return f.name }
func (f *fakeConnector) SupportsMovies() bool { return true }
func (f *fakeConnector) SupportsSeries() bool { return true }
func (f *fakeConnector) Fetch(ctx context.Context, fp model.Fingerprint, titleHint string) []model.Stream {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.result
}

func TestResolveFirstWinsIndependentOfCompletionOrder(t *testing.T) {
	const hash = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	slow := &fakeConnector{
		name:   "slow-first",
		delay:  30 * time.Millisecond,
		result: []model.Stream{streamWithHash(hash, model.Quality1080p, 50)},
	}
	fast := &fakeConnector{
		name:   "fast-second",
		result: []model.Stream{streamWithHash(hash, model.Quality1080p, 80)},
	}

	agg := New([]connector.Connector{slow, fast})
	out := agg.Resolve(context.Background(), model.Fingerprint{ContentType: model.ContentTypeMovie}, "")

	assert.Len(t, out, 1)
	assert.Equal(t, 50, out[0].Seeders)
}

func streamWithHash(hash string, tier model.QualityTier, seeders int) model.Stream {
	return model.Stream{Kind: model.StreamKindMagnet, InfoHash: hash, QualityTier: tier, Seeders: seeders}
}

func TestDedupFirstWins(t *testing.T) {
	in := []model.Stream{
		streamWithHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", model.Quality1080p, 50),
		streamWithHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", model.Quality1080p, 80),
	}
	out := dedup(in)
	assert.Len(t, out, 1)
	assert.Equal(t, 50, out[0].Seeders)
}

func TestDedupNeverDropsDirectURLs(t *testing.T) {
	in := []model.Stream{
		{Kind: model.StreamKindDirectURL, URL: "https://a"},
		{Kind: model.StreamKindDirectURL, URL: "https://a"},
	}
	out := dedup(in)
	assert.Len(t, out, 2)
}

func TestRankScenarioA(t *testing.T) {
	in := []model.Stream{
		streamWithHash("1111111111111111111111111111111111111a", model.Quality1080p, 100),
		streamWithHash("2222222222222222222222222222222222222b", model.Quality4K, 5),
		streamWithHash("3333333333333333333333333333333333333c", model.Quality720p, 500),
		streamWithHash("4444444444444444444444444444444444444d", model.QualitySD, 9999),
	}
	out := rank(dedup(in))
	assert.Equal(t, model.Quality4K, out[0].QualityTier)
	assert.Equal(t, model.Quality1080p, out[1].QualityTier)
	assert.Equal(t, model.Quality720p, out[2].QualityTier)
	assert.Equal(t, model.QualitySD, out[3].QualityTier)
}

func TestRankStableWithinScoreBucket(t *testing.T) {
	a := streamWithHash("1111111111111111111111111111111111111a", model.Quality1080p, 100)
	a.SourceTag = "first"
	b := streamWithHash("2222222222222222222222222222222222222b", model.Quality1080p, 100)
	b.SourceTag = "second"
	out := rank([]model.Stream{a, b})
	assert.Equal(t, "first", out[0].SourceTag)
	assert.Equal(t, "second", out[1].SourceTag)
}
