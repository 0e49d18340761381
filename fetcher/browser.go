package fetcher

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"rental-bot/utils"
)

const (
	selectorWait = 10 * time.Second
	settleDelay  = 5 * time.Second
)

// BrowserFetcher renders pages in a local headless Chrome.
type BrowserFetcher struct {
	chromeBin string
	timeout   time.Duration
	retry     *utils.RetryConfig
	logger    *utils.Logger
}

// NewBrowserFetcher creates a chromedp-backed fetcher. An empty chromeBin
// means search the usual install locations.
func NewBrowserFetcher(chromeBin string, timeout time.Duration, maxRetries int, logger *utils.Logger) *BrowserFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	return &BrowserFetcher{
		chromeBin: chromeBin,
		timeout:   timeout,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string, opts Options) (string, error) {
	if f.chromeBin == "" {
		return "", &FetchError{Kind: KindUnavailable, Transport: "chrome", Detail: "no Chrome or Chromium binary found"}
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(defaultUserAgent),
		chromedp.ExecPath(f.chromeBin),
	)
	if opts.BlockAds {
		allocOpts = append(allocOpts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	// An empty Run starts the browser, so launch failures surface separately
	// from navigation failures.
	err := f.retry.Do(ctx, "chrome launch", func() error {
		return chromedp.Run(browserCtx)
	})
	if err != nil {
		return "", &FetchError{Kind: KindUnavailable, Transport: "chrome", Err: err}
	}

	runCtx, cancelRun := context.WithTimeout(browserCtx, f.timeout)
	defer cancelRun()

	var html string
	actions := []chromedp.Action{chromedp.Navigate(pageURL)}
	if opts.WaitForSelector != "" {
		actions = append(actions, f.waitFor(opts.WaitForSelector))
	} else {
		actions = append(actions, chromedp.Sleep(settleDelay))
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	f.logger.Debug("[chrome] Rendering %s", pageURL)
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", &FetchError{Kind: KindTimeout, Transport: "chrome", Err: err}
		}
		return "", &FetchError{Kind: KindUpstream, Transport: "chrome", Err: err}
	}
	return html, nil
}

// waitFor waits up to selectorWait for sel to become visible. A selector that
// never appears is not an error; the page is captured as it stands.
func (f *BrowserFetcher) waitFor(sel string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		waitCtx, cancel := context.WithTimeout(ctx, selectorWait)
		defer cancel()
		if err := chromedp.WaitVisible(sel, chromedp.ByQuery).Do(waitCtx); err != nil {
			f.logger.Warn("[chrome] Selector %q not visible after %v, capturing page anyway", sel, selectorWait)
		}
		return nil
	})
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
