package httpx

import (
	"io"
	"net/http"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// impersonatedClient wraps bogdanfinn/tls-client, giving outbound requests a
// genuine Chrome JA3 fingerprint. It sits between the plain resty attempt and
// the full headless-browser fallback: cheaper than a browser, and enough to
// clear fingerprint-only gating that doesn't require executing JS.
type impersonatedClient struct {
	http tls_client.HttpClient
}

func newImpersonatedClient() (*impersonatedClient, error) {
	opts := []tls_client.HttpClientOption{
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithNotFollowRedirects(),
	}
	cl, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), opts...)
	if err != nil {
		return nil, err
	}
	return &impersonatedClient{http: cl}, nil
}

func (c *impersonatedClient) get(url string) ([]byte, int, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
