package connector

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/streamforge/gateway/internal/model"
)

// MovieIndex is connector kind 2: a simple-query movie torrent index
// (GET {base}?query_term=...&limit=20).
type MovieIndex struct {
	displayName string
	client      *resty.Client
}

func NewMovieIndex(displayName, baseURL string) *MovieIndex {
	return &MovieIndex{displayName: displayName, client: resty.New().SetBaseURL(baseURL)}
}

func (m *MovieIndex) Name() string         { return m.displayName }
func (m *MovieIndex) SupportsMovies() bool { return true }
func (m *MovieIndex) SupportsSeries() bool { return false }

type movieIndexResponse struct {
	Data struct {
		Movies []struct {
			Title   string `json:"title"`
			Torrents []struct {
				Quality string `json:"quality"`
				Hash    string `json:"hash"`
				Seeds   int    `json:"seeds"`
				Size    string `json:"size"`
			} `json:"torrents"`
		} `json:"movies"`
	} `json:"data"`
}

func (m *MovieIndex) Fetch(ctx context.Context, _ model.Fingerprint, titleHint string) []model.Stream {
	if titleHint == "" {
		return nil
	}
	query := firstNWords(titleHint, 3)

	var payload movieIndexResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetQueryParam("query_term", query).
		SetQueryParam("limit", "20").
		SetResult(&payload).
		Get("")
	if err != nil {
		log.Warnf("connector %s: request failed: %v", m.displayName, err)
		return nil
	}
	if resp.IsError() {
		log.Warnf("connector %s: upstream status %d", m.displayName, resp.StatusCode())
		return nil
	}

	var out []model.Stream
	for _, movie := range payload.Data.Movies {
		for _, t := range movie.Torrents {
			s, ok := normalize(m.displayName, model.StreamKindMagnet, t.Quality, t.Seeds, "", t.Hash, nil, movie.Title, fmt.Sprintf("%s (%s, %s)", movie.Title, t.Quality, t.Size))
			if !ok {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}

// SeriesIndex is connector kind 3: an IMDB-id keyed series torrent index
// (GET {base}?imdb_id=...&limit=50).
type SeriesIndex struct {
	displayName string
	client      *resty.Client
}

func NewSeriesIndex(displayName, baseURL string) *SeriesIndex {
	return &SeriesIndex{displayName: displayName, client: resty.New().SetBaseURL(baseURL)}
}

func (s *SeriesIndex) Name() string         { return s.displayName }
func (s *SeriesIndex) SupportsMovies() bool { return false }
func (s *SeriesIndex) SupportsSeries() bool { return true }

type seriesIndexResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Hash    string `json:"hash"`
		Quality string `json:"quality"`
		Seeders int    `json:"seeders"`
		SizeB   int64  `json:"size_bytes"`
	} `json:"results"`
}

func (si *SeriesIndex) Fetch(ctx context.Context, fp model.Fingerprint, titleHint string) []model.Stream {
	imdbID := trimTTPrefix(fp.NormalizedContentID)
	if imdbID == "" {
		return nil
	}

	var payload seriesIndexResponse
	resp, err := si.client.R().
		SetContext(ctx).
		SetQueryParam("imdb_id", imdbID).
		SetQueryParam("limit", "50").
		SetResult(&payload).
		Get("")
	if err != nil {
		log.Warnf("connector %s: request failed: %v", si.displayName, err)
		return nil
	}
	if resp.IsError() {
		log.Warnf("connector %s: upstream status %d", si.displayName, resp.StatusCode())
		return nil
	}

	var out []model.Stream
	for _, r := range payload.Results {
		title := r.Title
		if title == "" {
			title = titleHint
		}
		s, ok := normalize(si.displayName, model.StreamKindMagnet, r.Quality, r.Seeders, "", r.Hash, nil, title, title)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

func trimTTPrefix(contentID string) string {
	if len(contentID) > 2 && contentID[:2] == "tt" {
		for _, r := range contentID[2:] {
			if r < '0' || r > '9' {
				return ""
			}
		}
		return contentID[2:]
	}
	return ""
}
