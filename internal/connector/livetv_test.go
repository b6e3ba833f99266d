package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamforge/gateway/internal/model"
)

func TestLiveTVFetchReturnsLocatorStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channel/ustv-cnn.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"channels":[{"name":"CNN","url":"https://stream.example/cnn.m3u8"}]}`))
	}))
	defer srv.Close()

	l := NewLiveTV("USA TV", srv.URL)
	fp := model.Fingerprint{ContentType: model.ContentTypeTV, NormalizedContentID: "ustv-cnn"}
	out := l.Fetch(context.Background(), fp, "")

	assert.Len(t, out, 1)
	assert.Equal(t, model.StreamKindDirectURL, out[0].Kind)
	assert.Empty(t, out[0].InfoHash)
	assert.Equal(t, "https://stream.example/cnn.m3u8", out[0].URL)
}

func TestLiveTVFetchIgnoresNonChannelID(t *testing.T) {
	l := NewLiveTV("USA TV", "https://unused.example")
	fp := model.Fingerprint{ContentType: model.ContentTypeTV, NormalizedContentID: "tt0944947"}
	assert.Nil(t, l.Fetch(context.Background(), fp, ""))
}
