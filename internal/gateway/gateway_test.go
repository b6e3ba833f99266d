package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamforge/gateway/internal/gwerrors"
	"github.com/streamforge/gateway/internal/store"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 404, statusFor(gwerrors.KindNotFound))
	assert.Equal(t, 400, statusFor(gwerrors.KindInvalidInput))
	assert.Equal(t, 401, statusFor(gwerrors.KindUnauthorized))
	assert.Equal(t, 503, statusFor(gwerrors.KindUpstreamUnavailable))
	assert.Equal(t, 503, statusFor(gwerrors.KindProtectionChallenge))
	assert.Equal(t, 504, statusFor(gwerrors.KindTimeout))
	assert.Equal(t, 409, statusFor(gwerrors.KindConflict))
	assert.Equal(t, 500, statusFor(gwerrors.KindUnknown))
}

func TestIsProtectedHost(t *testing.T) {
	assert.True(t, isProtectedHost("https://torrentio.strem.fun/manifest.json"))
	assert.False(t, isProtectedHost("https://yts.mx/manifest.json"))
}

func TestStaticManifestFor(t *testing.T) {
	g := &Gateway{StaticManifests: defaultStaticManifests()}

	m, ok := g.staticManifestFor("https://torrentio.strem.fun/sort=quality/manifest.json")
	assert.True(t, ok)
	assert.Equal(t, "com.stremio.torrentio.addon", m.ID)

	_, ok = g.staticManifestFor("https://unknown.example/manifest.json")
	assert.False(t, ok)
}

func TestCatalogBucket(t *testing.T) {
	assert.Equal(t, "usaTv", catalogBucket("usa_tv", "USA TV"))
	assert.Equal(t, "streamingServices", catalogBucket("top_netflix", "Netflix"))
	assert.Equal(t, "popular", catalogBucket("top", "Popular Movies"))
}

func TestTitleRankClass(t *testing.T) {
	assert.Equal(t, 0, titleRankClass("dune", "Dune"))
	assert.Equal(t, 1, titleRankClass("dune", "Dune Part Two"))
	assert.Equal(t, 2, titleRankClass("dune", "The Dune Saga"))
	assert.Equal(t, 3, titleRankClass("dune part", "Part Two: Dune"))
	assert.Equal(t, 4, titleRankClass("dune", "Arrival"))
}

func TestAllWordsPresent(t *testing.T) {
	assert.True(t, allWordsPresent("dune part two", "dune: part two (2024)"))
	assert.False(t, allWordsPresent("dune part three", "dune: part two (2024)"))
}

func TestNormalizeSubtitlesDedupesAndOrdersEnglishFirst(t *testing.T) {
	raw := []subtitleAddonStream{
		{Lang: "fre", URL: "http://x/fre.srt"},
		{Lang: "eng", URL: "http://x/eng1.srt"},
		{Lang: "eng", URL: "http://x/eng2.srt"},
		{Lang: "", URL: "http://x/empty.srt"},
	}
	out := normalizeSubtitles(raw)
	assert.Len(t, out, 2)
	assert.Equal(t, "eng", out[0].Language)
	assert.Equal(t, "http://x/eng1.srt", out[0].URL)
	assert.Equal(t, "fre", out[1].Language)
}

func TestSeekSecondsFromRange(t *testing.T) {
	assert.Equal(t, float64(0), seekSecondsFromRange("", 1000))
	assert.Equal(t, float64(0), seekSecondsFromRange("bytes=0-", 1000))
	assert.Greater(t, seekSecondsFromRange("bytes=12500000-", 100_000_000), float64(0))
}

func TestParseRangeStart(t *testing.T) {
	assert.Equal(t, int64(0), parseRangeStart(""))
	assert.Equal(t, int64(0), parseRangeStart("bytes=-500"))
	assert.Equal(t, int64(1024), parseRangeStart("bytes=1024-2048"))
}

func TestContainsType(t *testing.T) {
	assert.True(t, containsType(nil, "movie"))
	assert.True(t, containsType([]string{"movie", "series"}, "movie"))
	assert.False(t, containsType([]string{"series"}, "movie"))
}

func TestToAddonView(t *testing.T) {
	a := store.Addon{
		ID: "a1",
		Manifest: store.Manifest{
			ID:   "com.example.addon",
			Name: "Example",
		},
	}
	v := toAddonView(a)
	assert.Equal(t, "a1", v.ID)
	assert.Equal(t, "com.example.addon", v.Manifest.ID)
}
