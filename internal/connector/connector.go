// Package connector implements the four canonical source-connector kinds
// (spec §4.1): add-on catalog client, movie torrent index, series torrent
// index, and a generic piratebay-style free-text connector. Every connector
// is a pure function of (fingerprint, title hint) that never raises outward —
// failure yields an empty stream sequence and a WARN log, mirroring the
// teacher's prowlarr/cinemeta resty-client shape.
package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/streamforge/gateway/internal/model"
)

// Connector fetches candidate streams for one fingerprint from one upstream.
type Connector interface {
	Name() string
	SupportsMovies() bool
	SupportsSeries() bool
	// Fetch never returns an error outward; failures are logged and yield nil.
	Fetch(ctx context.Context, fp model.Fingerprint, titleHint string) []model.Stream
}

// normalize applies the shared connector normalization contract (spec §4.1):
// quality tier derivation, info-hash lowercasing/validation, source tagging.
// Streams that fail the info-hash shape are dropped.
func normalize(sourceTag string, kind model.StreamKind, rawQualityText string, seeders int, url, infoHash string, trackers []string, displayName, displayTitle string) (model.Stream, bool) {
	s := model.Stream{
		Kind:         kind,
		DisplayName:  displayName,
		DisplayTitle: displayTitle,
		QualityTier:  model.DeriveQualityTier(rawQualityText),
		Seeders:      maxInt(seeders, 0),
		SourceTag:    sourceTag,
	}
	switch kind {
	case model.StreamKindDirectURL:
		s.URL = url
	case model.StreamKindMagnet:
		hash := model.NormalizeInfoHash(infoHash)
		if !model.IsInfoHash(hash) {
			return model.Stream{}, false
		}
		s.InfoHash = hash
		s.Trackers = trackers
	}
	if !s.Valid() {
		return model.Stream{}, false
	}
	return s, true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// firstNWords returns the first n whitespace-separated words of s, joined by
// single spaces.
func firstNWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

// SeasonEpisodeQuery builds the "{title} S{ss}E{ee}" query the aggregator
// passes to free-text connectors for series fingerprints (spec §4.2).
func SeasonEpisodeQuery(title string, season, episode int) string {
	return fmt.Sprintf("%s S%02dE%02d", title, season, episode)
}
