// Package httpx is the protection-aware HTTP client (spec §4.5). It tries a
// plain resty request first; when the response looks like a challenge page
// it falls back to a headless-browser fetch, polling for the challenge to
// clear the way original_source/backend/cloudflare_bypass.py does.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/streamforge/gateway/internal/gwerrors"
)

var challengeBackoff = []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client is the gateway's outbound HTTP client for third-party sources that
// may be protected by a JS challenge page.
type Client struct {
	open *resty.Client

	bypassEnabled bool
	bypassTimeout time.Duration

	mu       sync.Mutex
	started  bool
	allocCtx context.Context
	cancel   context.CancelFunc
}

// New builds a Client. bypassEnabled toggles whether the headless-browser
// fallback is attempted at all; when false, any failed direct attempt
// (challenge page, request error or non-2xx status) is reported as
// gwerrors.ErrChallengeDetected immediately.
func New(bypassEnabled bool, bypassTimeout time.Duration) *Client {
	return &Client{
		open: resty.New().
			SetHeader("User-Agent", defaultUserAgent).
			SetTimeout(30 * time.Second),
		bypassEnabled: bypassEnabled,
		bypassTimeout: bypassTimeout,
	}
}

// FetchJSON fetches url and unmarshals the response body into out. It takes
// the direct path first; when that request errors, returns a non-2xx status,
// or its body looks like a challenge page, it escalates to the TLS-
// impersonating client and then to the headless browser.
func (c *Client) FetchJSON(ctx context.Context, url string, out any) error {
	resp, err := c.open.R().SetContext(ctx).Get(url)
	if err == nil && resp.IsSuccess() && !looksLikeChallenge(string(resp.Body())) {
		return json.Unmarshal(resp.Body(), out)
	}

	if !c.bypassEnabled {
		return gwerrors.Wrap(gwerrors.KindProtectionChallenge, "challenge detected, bypass disabled", gwerrors.ErrChallengeDetected)
	}

	if imp, ierr := newImpersonatedClient(); ierr == nil {
		body, status, gerr := imp.get(url)
		if gerr == nil && status < 400 && !looksLikeChallenge(string(body)) {
			return json.Unmarshal(body, out)
		}
	} else {
		log.Warnf("tls-client impersonation unavailable, skipping to browser fallback: %v", ierr)
	}

	raw, berr := c.fetchJSONViaBrowser(ctx, url)
	if berr != nil {
		return gwerrors.Wrap(gwerrors.KindProtectionChallenge, "bypass fetch failed", berr)
	}
	return json.Unmarshal(raw, out)
}

func looksLikeChallenge(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "cloudflare") || strings.Contains(lower, "just a moment")
}

func (c *Client) ensureStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	log.Infof("starting headless browser for protection bypass")
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(),
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("disable-web-security", true),
			chromedp.UserAgent(defaultUserAgent),
			chromedp.WindowSize(1920, 1080),
		)...,
	)
	c.allocCtx = allocCtx
	c.cancel = cancel
	c.started = true
}

// Stop releases the headless browser allocator, if one was started.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.started = false
}

const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
window.chrome = {runtime: {}, loadTimes: function() {}, csi: function() {}};
`

func (c *Client) fetchJSONViaBrowser(ctx context.Context, url string) ([]byte, error) {
	c.ensureStarted()

	browserCtx, browserCancel := chromedp.NewContext(c.allocCtx)
	defer browserCancel()

	timeoutCtx, timeoutCancel := context.WithTimeout(browserCtx, c.bypassTimeout)
	defer timeoutCancel()

	var content string
	if err := chromedp.Run(timeoutCtx,
		chromedp.Evaluate(stealthScript, nil),
		chromedp.Navigate(url),
		chromedp.OuterHTML("html", &content),
	); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	if looksLikeChallenge(content) {
		log.Infof("protection challenge detected on %s, waiting for resolution", url)
		for _, wait := range challengeBackoff {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			if err := chromedp.Run(timeoutCtx, chromedp.OuterHTML("html", &content)); err != nil {
				return nil, fmt.Errorf("poll %s: %w", url, err)
			}
			if !looksLikeChallenge(content) {
				log.Infof("protection challenge on %s cleared after %s", url, wait)
				break
			}
		}
		if looksLikeChallenge(content) {
			log.Warnf("protection challenge on %s may not be fully resolved", url)
		}
	}

	var raw string
	if err := chromedp.Run(timeoutCtx, chromedp.EvaluateAsDevTools(
		`document.querySelector("pre")?.textContent || document.body.textContent`, &raw,
	)); err != nil {
		return nil, fmt.Errorf("extract json from %s: %w", url, err)
	}
	return []byte(raw), nil
}
