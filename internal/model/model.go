// Package model holds the closed, JSON-serializable shapes shared across the
// gateway: streams, source descriptors, fingerprints and title metadata.
package model

import (
	"regexp"
	"strings"
)

// ContentType mirrors https://github.com/Stremio/stremio-addon-sdk/blob/master/docs/api/responses/content.types.md
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
	ContentTypeTV     ContentType = "tv"
)

// QualityTier is the closed ordered set used to rank streams independently of
// bitrate.
type QualityTier string

const (
	QualitySD    QualityTier = "SD"
	Quality720p  QualityTier = "720p"
	Quality1080p QualityTier = "1080p"
	Quality4K    QualityTier = "4K"
)

var tierRank = map[QualityTier]int{
	QualitySD:    1,
	Quality720p:  2,
	Quality1080p: 3,
	Quality4K:    4,
}

// Rank returns the quality tier's ordinal rank used by the aggregator's scoring
// formula. Unknown tiers rank as 720p, per spec.
func (t QualityTier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return tierRank[Quality720p]
}

var (
	reUHD   = regexp.MustCompile(`(?i)2160p|4k|uhd`)
	re1080  = regexp.MustCompile(`(?i)1080p`)
	re720   = regexp.MustCompile(`(?i)720p`)
	reHash  = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// DeriveQualityTier implements the shared normalization contract (spec §4.1):
// case-insensitive presence of 2160p|4k|uhd -> 4K, 1080p -> 1080p, 720p -> 720p;
// any other text falls back to 720p (the "unknown" tier), so SD is never
// derived from text.
func DeriveQualityTier(text string) QualityTier {
	switch {
	case reUHD.MatchString(text):
		return Quality4K
	case re1080.MatchString(text):
		return Quality1080p
	case re720.MatchString(text):
		return Quality720p
	default:
		return Quality720p
	}
}

// StreamKind is one of {direct_url, magnet}.
type StreamKind string

const (
	StreamKindDirectURL StreamKind = "direct_url"
	StreamKindMagnet    StreamKind = "magnet"
)

// Stream is a playable candidate for one title (spec §3).
type Stream struct {
	Kind StreamKind `json:"kind"`

	URL      string   `json:"url,omitempty"`
	InfoHash string   `json:"infoHash,omitempty"`
	Trackers []string `json:"trackers,omitempty"`

	DisplayName  string `json:"displayName"`
	DisplayTitle string `json:"displayTitle"`

	QualityTier QualityTier `json:"qualityTier"`
	Seeders     int         `json:"seeders"`
	SourceTag   string      `json:"sourceTag"`
}

// Score implements the aggregator's ranking formula (spec §4.2, REDESIGN FLAG
// in spec.md §9 adopting quality*10_000+seeders over seeders-alone).
func (s Stream) Score() int {
	seeders := s.Seeders
	if seeders > 9_999 {
		seeders = 9_999
	}
	if seeders < 0 {
		seeders = 0
	}
	return s.QualityTier.Rank()*10_000 + seeders
}

// Valid reports whether the stream satisfies the §3 invariant: exactly one of
// url/info_hash is present, and a present info-hash is 40 lowercase hex chars.
func (s Stream) Valid() bool {
	hasURL := s.URL != ""
	hasHash := s.InfoHash != ""
	if hasURL == hasHash {
		return false
	}
	if hasHash && !IsInfoHash(s.InfoHash) {
		return false
	}
	return true
}

// IsInfoHash reports whether s is a 40 lowercase hex character info-hash.
func IsInfoHash(s string) bool {
	return reHash.MatchString(s)
}

// NormalizeInfoHash lowercases a candidate info-hash; callers should still
// check IsInfoHash before trusting it.
func NormalizeInfoHash(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SourceDescriptor configures one aggregator input (spec §3).
type SourceDescriptor struct {
	ID                     string `json:"id"`
	DisplayName            string `json:"displayName"`
	SupportsMovies         bool   `json:"supportsMovies"`
	SupportsSeries         bool   `json:"supportsSeries"`
	ManifestURLOrBuiltin   string `json:"manifestUrlOrBuiltinTag"`
	RequiresProtectionBypass bool `json:"requiresProtectionBypass"`
}

// Fingerprint is the content key (content_type, normalized_content_id) (spec §3).
type Fingerprint struct {
	ContentType         ContentType
	NormalizedContentID string
	Season              int
	Episode             int
}

var seriesIDPattern = regexp.MustCompile(`^(tt\d+):(\d+):(\d+)$`)

// ParseFingerprint splits a Stremio-shaped content id into a Fingerprint,
// stripping the season:episode suffix for series ids of the form
// "{imdb}:{s}:{e}".
func ParseFingerprint(contentType ContentType, contentID string) Fingerprint {
	fp := Fingerprint{ContentType: contentType, NormalizedContentID: contentID}
	if contentType == ContentTypeSeries {
		if m := seriesIDPattern.FindStringSubmatch(contentID); m != nil {
			fp.NormalizedContentID = m[1]
			fp.Season = atoiSafe(m[2])
			fp.Episode = atoiSafe(m[3])
		}
	}
	return fp
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// TitleMeta is the base metadata resolved for a fingerprint (name, year range,
// imdb numeric id). It replaces the teacher's absent internal/model.MetaInfo —
// see DESIGN.md.
type TitleMeta struct {
	Name     string
	IMDBID   uint
	FromYear int
	ToYear   int
}
