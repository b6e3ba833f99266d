package mediaproxy

import (
	"context"
	"io"
	"net/http"

	"github.com/streamforge/gateway/internal/gwerrors"
)

// hopByHopHeaders are stripped when forwarding an upstream response, per the
// standard proxy contract spec §4.4 calls out by name.
var hopByHopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// ForwardingProxy is the alternate media-proxy deployment: instead of
// spawning ffmpeg locally, it forwards Range verbatim to an external torrent-
// streaming helper's GET /stream/{hash} and relays the response byte-for-byte
// (spec §4.4 "Alternate deployment").
type ForwardingProxy struct {
	helperBaseURL string
	http          *http.Client
}

// NewForwardingProxy builds a ForwardingProxy against the helper process.
func NewForwardingProxy(helperBaseURL string) *ForwardingProxy {
	return &ForwardingProxy{
		helperBaseURL: helperBaseURL,
		http:          &http.Client{Timeout: 0}, // no read-timeout, spec §5
	}
}

// UpstreamResponse is the helper's raw response, handed back so callers (the
// gateway's fiber handler) can apply status/headers/body through whatever
// response-writer abstraction they use, without ForwardingProxy depending on
// net/http.ResponseWriter or any particular web framework.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Forward issues the proxied request to the helper's /stream/{hash}, honoring
// Range, and returns the raw upstream response for the caller to relay.
// Callers must Close Body.
func (f *ForwardingProxy) Forward(ctx context.Context, infoHash, rangeHeader string) (*UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.helperBaseURL+"/stream/"+infoHash, nil)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUnknown, "build helper forward request", err)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUpstreamUnavailable, "helper stream request failed", err)
	}

	return &UpstreamResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body}, nil
}

// IsHopByHop reports whether header is stripped when relaying an upstream
// response (spec §4.4's standard proxy contract).
func IsHopByHop(header string) bool {
	for _, h := range hopByHopHeaders {
		if header == h {
			return true
		}
	}
	return false
}
