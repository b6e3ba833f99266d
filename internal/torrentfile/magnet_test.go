package torrentfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagnetRoundTrip(t *testing.T) {
	hash := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	uri, err := BuildMagnet(hash, "Some.Movie.2024.1080p", []string{"udp://tracker.example:80"})
	require.NoError(t, err)

	m, err := ParseMagnetUri(uri)
	require.NoError(t, err)
	assert.Equal(t, hash, m.InfoHashStr())
	assert.Equal(t, "Some.Movie.2024.1080p", m.Name)
	assert.Equal(t, []string{"udp://tracker.example:80"}, m.Trackers)
}

func TestParseMagnetUriMissingExactTopic(t *testing.T) {
	_, err := ParseMagnetUri("magnet:?dn=foo")
	assert.ErrorIs(t, err, errNoExactTopic)
}

func TestParseMagnetUriNotAMagnet(t *testing.T) {
	_, err := ParseMagnetUri("https://example.com/file.torrent")
	assert.Error(t, err)
}

func TestBuildMagnetInvalidHash(t *testing.T) {
	_, err := BuildMagnet("not-a-hash", "", nil)
	assert.Error(t, err)
}
