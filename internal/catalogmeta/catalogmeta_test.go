package catalogmeta

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/gateway/internal/model"
)

func TestResolveMovie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{"name":"Dune","year":"2021","imdb_id":"tt1160419"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	meta, err := c.Resolve(context.Background(), model.Fingerprint{
		ContentType:         model.ContentTypeMovie,
		NormalizedContentID: "tt1160419",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dune", meta.Name)
	assert.Equal(t, 2021, meta.FromYear)
	assert.Equal(t, 2021, meta.ToYear)
	assert.EqualValues(t, 1160419, meta.IMDBID)
}

func TestResolveSeriesYearRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{"name":"Breaking Bad","year":"2008–2013","imdb_id":"tt0903747"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	meta, err := c.Resolve(context.Background(), model.Fingerprint{
		ContentType:         model.ContentTypeSeries,
		NormalizedContentID: "tt0903747",
	})
	require.NoError(t, err)
	assert.Equal(t, 2008, meta.FromYear)
	assert.Equal(t, 2013, meta.ToYear)
}

func TestResolveCachesSecondCallDoesNotHitUpstream(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"meta":{"name":"Arrival","year":"2016","imdb_id":"tt2543164"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	fp := model.Fingerprint{ContentType: model.ContentTypeMovie, NormalizedContentID: "tt2543164"}

	_, err := c.Resolve(context.Background(), fp)
	require.NoError(t, err)
	_, err = c.Resolve(context.Background(), fp)
	require.NoError(t, err)

	assert.Equal(t, 1, hits)
}
