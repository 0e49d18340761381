package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

const maxBodyBytes = 16 << 20

// HTTPFetcher retrieves pages directly. It cannot execute JavaScript, so it
// suits sources that render listings server-side. Requests to the same host
// share a token bucket.
type HTTPFetcher struct {
	client *http.Client
	rps    float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates a direct fetcher with the given timeout and
// per-host request rate. rps <= 0 disables limiting.
func NewHTTPFetcher(timeout time.Duration, rps float64) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		rps:      rps,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string, _ Options) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return "", &FetchError{Kind: KindBadRequest, Transport: "http", Detail: fmt.Sprintf("invalid url %q", pageURL)}
	}

	if err := f.wait(ctx, strings.ToLower(u.Host)); err != nil {
		return "", transportError("http", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &FetchError{Kind: KindBadRequest, Transport: "http", Err: err}
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.7,en;q=0.3")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", transportError("http", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", transportError("http", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{
			Kind:      siteKindForStatus(resp.StatusCode),
			Transport: "http",
			Status:    resp.StatusCode,
			Detail:    snippet(body),
		}
	}
	return string(body), nil
}

func (f *HTTPFetcher) wait(ctx context.Context, host string) error {
	if f.rps <= 0 {
		return nil
	}
	f.mu.Lock()
	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(f.rps), 1)
		f.limiters[host] = limiter
	}
	f.mu.Unlock()
	return limiter.Wait(ctx)
}

// siteKindForStatus maps a status returned by a listing site itself. No
// credentials or paid quota are involved, so only timeouts get their own kind.
func siteKindForStatus(code int) ErrorKind {
	switch code {
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return KindTimeout
	default:
		return KindUpstream
	}
}

const maxSnippetBytes = 300

// snippet trims an error body to something fit for a log line, cutting on a
// rune boundary.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxSnippetBytes {
		return s
	}
	cut := maxSnippetBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
