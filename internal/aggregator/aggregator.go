// Package aggregator fans out across installed add-ons and built-in
// connectors for one fingerprint, then dedupes and ranks the results (spec
// §4.2). It reuses the teacher's internal/pipe fan-out/sink shape, swapping
// the teacher's Stremio-addon-specific record for model.Stream.
package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/adrg/strutil/metrics"
	"github.com/gofiber/fiber/v2/log"

	"github.com/streamforge/gateway/internal/connector"
	"github.com/streamforge/gateway/internal/model"
	"github.com/streamforge/gateway/internal/pipe"
)

// PerSourceTimeout bounds a single connector call (spec §4.1: 10-20s internal
// deadline; §5: aggregator per-source 15-30s at the orchestration layer).
const PerSourceTimeout = 20 * time.Second

// Aggregator fans connectors out in parallel and merges their results.
type Aggregator struct {
	connectors []connector.Connector
}

// New builds an Aggregator over the given connector set (installed add-ons
// plus built-ins); callers filter by fp.ContentType before calling Resolve if
// they want to skip an unsupported connector entirely, though Resolve also
// filters defensively.
func New(connectors []connector.Connector) *Aggregator {
	return &Aggregator{connectors: connectors}
}

type streamRecord struct {
	stream model.Stream

	// connIdx/pos fix each record's place in connector-list order and
	// intra-connector result order, independent of goroutine completion
	// order, so dedup/rank are deterministic (spec §4.2 rule 1, testable
	// property #2).
	connIdx int
	pos     int
}

// Resolve runs every applicable connector for fp concurrently, each bounded
// by PerSourceTimeout, and returns the deduped, ranked stream list. It never
// errors — a connector failure silently contributes nothing.
func (a *Aggregator) Resolve(ctx context.Context, fp model.Fingerprint, titleHint string) []model.Stream {
	tasks := a.applicableConnectors(fp)
	if len(tasks) == 0 {
		return nil
	}

	source := func() ([]*streamRecord, error) {
		records := make([]*streamRecord, 0, len(tasks))
		for i, c := range tasks {
			records = append(records, &streamRecord{stream: model.Stream{SourceTag: c.Name()}, connIdx: i})
		}
		return records, nil
	}

	p := pipe.New[streamRecord](source)
	p.FanOut(func(r *streamRecord) ([]*streamRecord, error) {
		c := tasks[r.connIdx]

		taskCtx, cancel := context.WithTimeout(ctx, PerSourceTimeout)
		defer cancel()

		hint := titleHint
		if fp.ContentType == model.ContentTypeSeries && fp.Season > 0 {
			hint = seriesHint(c, titleHint, fp)
		}

		streams := c.Fetch(taskCtx, fp, hint)
		out := make([]*streamRecord, 0, len(streams))
		for pos, s := range streams {
			out = append(out, &streamRecord{stream: s, connIdx: r.connIdx, pos: pos})
		}
		return out, nil
	}, pipe.Concurrency[streamRecord](len(tasks)+1))

	var (
		mu      sync.Mutex
		records []*streamRecord
	)
	err := p.SinkWithTimeout(func(r *streamRecord) error {
		mu.Lock()
		records = append(records, r)
		mu.Unlock()
		return nil
	}, PerSourceTimeout+5*time.Second)
	if err != nil {
		log.Warnf("aggregator: pipeline error: %v", err)
	}

	// Re-impose deterministic order before dedup/rank: the sink receives
	// records in whichever order connector goroutines finish, which must
	// not influence first-wins dedup or tie-break order (spec §4.2 rule 1,
	// testable property #2).
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].connIdx != records[j].connIdx {
			return records[i].connIdx < records[j].connIdx
		}
		return records[i].pos < records[j].pos
	})
	results := make([]model.Stream, len(records))
	for i, r := range records {
		results[i] = r.stream
	}

	return rank(dedup(results))
}

// seriesHint implements the series query-shape split from spec §4.2: the
// built-in free-text connector gets "{title} S{ss}E{ee}"; the series-specific
// index gets only the base IMDB id (so it ignores the title hint).
func seriesHint(c connector.Connector, titleHint string, fp model.Fingerprint) string {
	if _, ok := c.(*connector.PirateBayStyle); ok {
		return connector.SeasonEpisodeQuery(titleHint, fp.Season, fp.Episode)
	}
	return titleHint
}

func (a *Aggregator) applicableConnectors(fp model.Fingerprint) []connector.Connector {
	out := make([]connector.Connector, 0, len(a.connectors))
	for _, c := range a.connectors {
		switch fp.ContentType {
		case model.ContentTypeMovie:
			if c.SupportsMovies() {
				out = append(out, c)
			}
		case model.ContentTypeSeries, model.ContentTypeTV:
			if c.SupportsSeries() {
				out = append(out, c)
			}
		}
	}
	return out
}

// dedup groups streams by info_hash, first-wins on duplicates; direct-URL
// streams (no info_hash) are never deduped (spec §4.2 rule 1).
func dedup(streams []model.Stream) []model.Stream {
	seen := make(map[string]struct{}, len(streams))
	out := make([]model.Stream, 0, len(streams))
	for _, s := range streams {
		if s.InfoHash == "" {
			out = append(out, s)
			continue
		}
		if _, ok := seen[s.InfoHash]; ok {
			continue
		}
		seen[s.InfoHash] = struct{}{}
		out = append(out, s)
	}
	return out
}

// rank stable-sorts descending by Stream.Score (spec §4.2 rule 2).
func rank(streams []model.Stream) []model.Stream {
	sort.SliceStable(streams, func(i, j int) bool {
		return streams[i].Score() > streams[j].Score()
	})
	return streams
}

// TitleSimilarity is the Levenshtein-distance tie-breaker reused from the
// teacher's checkTitleSimilarity, exposed here for content/search ranking
// (smaller distance = more similar).
func TitleSimilarity(left, right string) int {
	lev := &metrics.Levenshtein{
		CaseSensitive: false,
		InsertCost:    1,
		DeleteCost:    1,
		ReplaceCost:   2,
	}
	return lev.Distance(left, right)
}
