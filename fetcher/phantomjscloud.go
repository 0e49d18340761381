package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

const phantomJSCloudEndpoint = "https://phantomjscloud.com/api/browser/v2"

// PhantomJSCloudFetcher renders pages through the PhantomJsCloud browser API.
type PhantomJSCloudFetcher struct {
	APIKey   string
	Endpoint string
	client   *http.Client
}

// NewPhantomJSCloudFetcher creates a PhantomJsCloud client.
func NewPhantomJSCloudFetcher(apiKey string, timeout time.Duration) *PhantomJSCloudFetcher {
	return &PhantomJSCloudFetcher{
		APIKey:   apiKey,
		Endpoint: phantomJSCloudEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type phantomRequest struct {
	URL             string          `json:"url"`
	RenderType      string          `json:"renderType"`
	OutputAsJSON    bool            `json:"outputAsJson"`
	RequestSettings phantomSettings `json:"requestSettings"`
}

type phantomSettings struct {
	IgnoreImages      bool   `json:"ignoreImages"`
	DisableJavascript bool   `json:"disableJavascript"`
	UserAgent         string `json:"userAgent"`
	WaitInterval      int    `json:"waitInterval"`
}

func (f *PhantomJSCloudFetcher) Fetch(ctx context.Context, pageURL string, opts Options) (string, error) {
	if f.APIKey == "" {
		return "", &FetchError{Kind: KindAuth, Transport: "phantomjscloud", Detail: "PHANTOMJSCLOUD_API_KEY is not set"}
	}

	wait := 7000
	if opts.WaitForSelector != "" {
		wait = 5000
	}
	payload, err := json.Marshal(phantomRequest{
		URL:          pageURL,
		RenderType:   "html",
		OutputAsJSON: false,
		RequestSettings: phantomSettings{
			IgnoreImages:      opts.BlockAds,
			DisableJavascript: !opts.RenderJS,
			UserAgent:         defaultUserAgent,
			WaitInterval:      wait,
		},
	})
	if err != nil {
		return "", &FetchError{Kind: KindBadRequest, Transport: "phantomjscloud", Err: err}
	}

	endpoint := strings.TrimRight(f.Endpoint, "/") + "/" + f.APIKey + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &FetchError{Kind: KindBadRequest, Transport: "phantomjscloud", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", transportError("phantomjscloud", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", transportError("phantomjscloud", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{
			Kind:      kindForStatus(resp.StatusCode),
			Transport: "phantomjscloud",
			Status:    resp.StatusCode,
			Detail:    snippet(body),
		}
	}
	return string(body), nil
}
