package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamforge/gateway/internal/model"
)

func TestNormalizeDropsInvalidInfoHash(t *testing.T) {
	_, ok := normalize("tag", model.StreamKindMagnet, "1080p", 10, "", "not-a-hash", nil, "n", "t")
	assert.False(t, ok)
}

func TestNormalizeLowercasesInfoHash(t *testing.T) {
	hash := "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	s, ok := normalize("tag", model.StreamKindMagnet, "1080p", 10, "", hash, nil, "n", "t")
	assert.True(t, ok)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", s.InfoHash)
	assert.Equal(t, model.Quality1080p, s.QualityTier)
}

func TestNormalizeNegativeSeedersClampToZero(t *testing.T) {
	hash := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	s, ok := normalize("tag", model.StreamKindMagnet, "720p", -5, "", hash, nil, "n", "t")
	assert.True(t, ok)
	assert.Equal(t, 0, s.Seeders)
}

func TestSeasonEpisodeQuery(t *testing.T) {
	assert.Equal(t, "Game of Thrones S02E03", SeasonEpisodeQuery("Game of Thrones", 2, 3))
}

func TestTrimTTPrefixStripsPrefix(t *testing.T) {
	assert.Equal(t, "0944947", trimTTPrefix("tt0944947"))
}

func TestTrimTTPrefixRejectsNonNumeric(t *testing.T) {
	assert.Equal(t, "", trimTTPrefix("ttabcdef"))
}

func TestTrimTTPrefixRejectsMissingPrefix(t *testing.T) {
	assert.Equal(t, "", trimTTPrefix("0944947"))
}

func TestRetryQueriesDropsTrailingYear(t *testing.T) {
	queries := retryQueries("The Matrix Reloaded Extended 2003")
	assert.Equal(t, "The Matrix Reloaded Extended 2003", queries[0])
	assert.Equal(t, "The Matrix Reloaded Extended", queries[1])
	assert.Equal(t, "The Matrix Reloaded", queries[2])
}

func TestRetryQueriesNoYear(t *testing.T) {
	queries := retryQueries("Some Long Movie Title Without Year Words")
	assert.Len(t, queries, 2)
}

func TestFirstNWords(t *testing.T) {
	assert.Equal(t, "a b c", firstNWords("a b c d e", 3))
	assert.Equal(t, "a b", firstNWords("a b", 5))
}

func TestIsDirectURLID(t *testing.T) {
	assert.True(t, IsDirectURLID("https://example.com/movie.mp4"))
	assert.True(t, IsDirectURLID("http://example.com/movie.mp4"))
	assert.False(t, IsDirectURLID("tt0944947"))
	assert.False(t, IsDirectURLID("ustv-abc"))
}

func TestIsTVChannelID(t *testing.T) {
	assert.True(t, IsTVChannelID("ustv-cnn"))
	assert.False(t, IsTVChannelID("tt0944947"))
	assert.False(t, IsTVChannelID("https://example.com/x.mp4"))
}
