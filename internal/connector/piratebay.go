package connector

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/streamforge/gateway/internal/model"
	"github.com/streamforge/gateway/internal/titleparser"
)

// PirateBayStyle is connector kind 4: a free-text q.php-style search with a
// three-tier retry policy (spec §4.1.4).
type PirateBayStyle struct {
	displayName string
	client      *resty.Client
}

func NewPirateBayStyle(displayName, baseURL string) *PirateBayStyle {
	return &PirateBayStyle{displayName: displayName, client: resty.New().SetBaseURL(baseURL)}
}

func (p *PirateBayStyle) Name() string         { return p.displayName }
func (p *PirateBayStyle) SupportsMovies() bool { return true }
func (p *PirateBayStyle) SupportsSeries() bool { return true }

type pirateBayResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	InfoHash string `json:"info_hash"`
	Seeders string `json:"seeders"`
	Size    string `json:"size"`
}

func (p *PirateBayStyle) Fetch(ctx context.Context, _ model.Fingerprint, titleHint string) []model.Stream {
	if titleHint == "" {
		return nil
	}

	for _, query := range retryQueries(titleHint) {
		results, ok := p.search(ctx, query)
		if !ok {
			continue
		}
		return p.toStreams(results)
	}
	return nil
}

// retryQueries builds the three-tier query sequence: (a) first 5 words
// including the year; (b) if the last of those is a bare 4-digit year, drop
// it for a 4-word retry; (c) first 3 words.
func retryQueries(titleHint string) []string {
	fiveWords := firstNWords(titleHint, 5)
	queries := []string{fiveWords}

	words := strings.Fields(fiveWords)
	if len(words) > 0 && isFourDigitYear(words[len(words)-1]) {
		queries = append(queries, strings.Join(words[:len(words)-1], " "))
	}
	queries = append(queries, firstNWords(titleHint, 3))
	return queries
}

func isFourDigitYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	if _, err := strconv.Atoi(s); err != nil {
		return false
	}
	return true
}

// search returns (results, true) when the upstream answered with a non-empty,
// non-sentinel result set; (nil, false) signals "try the next tier".
func (p *PirateBayStyle) search(ctx context.Context, query string) ([]pirateBayResult, bool) {
	var results []pirateBayResult
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetResult(&results).
		Get("")
	if err != nil {
		log.Warnf("connector %s: request failed: %v", p.displayName, err)
		return nil, false
	}
	if resp.IsError() {
		log.Warnf("connector %s: upstream status %d", p.displayName, resp.StatusCode())
		return nil, false
	}
	if len(results) == 0 {
		return nil, false
	}
	if results[0].ID == "0" {
		// Sentinel for "no match" — still counts as a completed (empty) tier.
		return nil, false
	}
	return results, true
}

func (p *PirateBayStyle) toStreams(results []pirateBayResult) []model.Stream {
	var out []model.Stream
	for _, r := range results {
		seeders, _ := strconv.Atoi(r.Seeders)
		if seeders <= 0 {
			continue
		}
		s, ok := normalize(p.displayName, model.StreamKindMagnet, r.Name, seeders, "", r.InfoHash, nil, r.Name, displayTitleFor(r.Name, r.Size))
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

// displayTitleFor enriches a freetext torrent name with its parsed codec/
// audio tags — apibay-style results carry no structured quality field, so the
// display title otherwise shows nothing beyond the raw name and size.
func displayTitleFor(rawName, size string) string {
	info := titleparser.Parse(rawName)
	tags := []string{size}
	if info.Codec != "" {
		tags = append(tags, info.Codec)
	}
	if info.Audio != "" {
		tags = append(tags, info.Audio)
	}
	return rawName + " (" + strings.Join(tags, ", ") + ")"
}
