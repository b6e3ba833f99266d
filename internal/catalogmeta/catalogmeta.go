// Package catalogmeta resolves a Fingerprint into title metadata (name, year
// range, numeric IMDB id) via a Stremio-shaped catalog-metadata service. Kept
// almost line-for-line from the teacher's internal/cinemeta package — see
// DESIGN.md — generalized to take a configurable base URL and a context.
package catalogmeta

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/coocood/freecache"
	"github.com/go-resty/resty/v2"

	"github.com/streamforge/gateway/internal/model"
)

// cacheSize and resolveCacheTTL mirror the teacher's add.cache sizing
// (internal/addon.cacheSize) — title metadata churns far less than the
// teacher's per-download cached URLs, so it gets a longer TTL.
const (
	cacheSize      = 50 * 1024 * 1024 // 50MB
	resolveCacheTTL = 6 * time.Hour
)

// Client resolves title metadata from a Cinemeta-compatible catalog service.
type Client struct {
	http  *resty.Client
	cache *freecache.Cache
}

// New builds a Client against baseURL, e.g. "https://v3-cinemeta.strem.io".
func New(baseURL string) *Client {
	return &Client{
		http:  resty.New().SetBaseURL(baseURL),
		cache: freecache.NewCache(cacheSize),
	}
}

type metaEnvelope struct {
	Meta metaInfo `json:"meta"`
}

type metaInfo struct {
	Name   string `json:"name"`
	Year   string `json:"year"`
	IMDBID string `json:"imdb_id"`
}

// Resolve fetches title metadata for fp. fp.ContentType selects the
// movie/series endpoint shape. Results are cached by content-id + type, the
// way the teacher caches per-request download URLs in add.cache.
func (c *Client) Resolve(ctx context.Context, fp model.Fingerprint) (*model.TitleMeta, error) {
	key := []byte(string(fp.ContentType) + ":" + fp.NormalizedContentID)
	if cached, err := c.cache.Get(key); err == nil {
		var meta model.TitleMeta
		if jsonErr := json.Unmarshal(cached, &meta); jsonErr == nil {
			return &meta, nil
		}
	}

	var meta *model.TitleMeta
	var err error
	if fp.ContentType == model.ContentTypeSeries || fp.ContentType == model.ContentTypeTV {
		meta, err = c.getSeries(ctx, fp.NormalizedContentID)
	} else {
		meta, err = c.getMovie(ctx, fp.NormalizedContentID)
	}
	if err != nil {
		return nil, err
	}

	if encoded, marshalErr := json.Marshal(meta); marshalErr == nil {
		_ = c.cache.Set(key, encoded, int(resolveCacheTTL.Seconds()))
	}
	return meta, nil
}

func (c *Client) getMovie(ctx context.Context, id string) (*model.TitleMeta, error) {
	result := &metaEnvelope{}
	resp, err := c.http.R().SetContext(ctx).SetResult(result).Get("/meta/movie/" + id + ".json")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, errCatalogStatus(resp.StatusCode())
	}

	year, _ := strconv.Atoi(result.Meta.Year)
	imdbID, _ := strconv.Atoi(strings.TrimPrefix(result.Meta.IMDBID, "tt"))

	return &model.TitleMeta{
		Name:     result.Meta.Name,
		IMDBID:   uint(imdbID),
		FromYear: year,
		ToYear:   year,
	}, nil
}

func (c *Client) getSeries(ctx context.Context, id string) (*model.TitleMeta, error) {
	result := &metaEnvelope{}
	resp, err := c.http.R().SetContext(ctx).SetResult(result).Get("/meta/series/" + id + ".json")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, errCatalogStatus(resp.StatusCode())
	}

	tokens := strings.Split(result.Meta.Year, "–")
	fromYear, toYear := 0, 0
	switch {
	case len(tokens) > 1:
		fromYear, _ = strconv.Atoi(tokens[0])
		toYear, _ = strconv.Atoi(tokens[1])
	case len(tokens) == 1:
		fromYear, _ = strconv.Atoi(tokens[0])
		toYear = fromYear
	}
	imdbID, _ := strconv.Atoi(strings.TrimPrefix(result.Meta.IMDBID, "tt"))

	return &model.TitleMeta{
		Name:     result.Meta.Name,
		IMDBID:   uint(imdbID),
		FromYear: fromYear,
		ToYear:   toYear,
	}, nil
}
