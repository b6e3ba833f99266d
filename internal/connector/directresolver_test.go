package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamforge/gateway/internal/model"
)

func TestDirectResolverFetchWrapsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDirectResolver()
	fp := model.Fingerprint{ContentType: model.ContentTypeMovie, NormalizedContentID: srv.URL + "/movie.mp4"}
	out := d.Fetch(context.Background(), fp, "")

	assert.Len(t, out, 1)
	assert.Equal(t, model.StreamKindDirectURL, out[0].Kind)
	assert.Equal(t, srv.URL+"/movie.mp4", out[0].URL)
}

func TestDirectResolverFetchIgnoresNonURLID(t *testing.T) {
	d := NewDirectResolver()
	fp := model.Fingerprint{ContentType: model.ContentTypeMovie, NormalizedContentID: "tt0944947"}
	assert.Nil(t, d.Fetch(context.Background(), fp, ""))
}

func TestDirectResolverFetchSurvivesUnreachableHost(t *testing.T) {
	d := NewDirectResolver()
	fp := model.Fingerprint{ContentType: model.ContentTypeMovie, NormalizedContentID: "http://127.0.0.1:1/movie.mp4"}
	out := d.Fetch(context.Background(), fp, "")
	assert.Len(t, out, 1)
}
