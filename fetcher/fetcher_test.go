package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorKind
	}{
		{401, KindAuth},
		{403, KindQuota},
		{429, KindQuota},
		{400, KindBadRequest},
		{422, KindBadRequest},
		{504, KindTimeout},
		{500, KindUpstream},
		{404, KindUpstream},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, kindForStatus(tt.code))
		})
	}
}

func TestUserMessageDistinguishesKinds(t *testing.T) {
	auth := UserMessage(&FetchError{Kind: KindAuth})
	quota := UserMessage(&FetchError{Kind: KindQuota})
	generic := UserMessage(errors.New("boom"))

	assert.NotEqual(t, auth, quota)
	assert.NotEqual(t, auth, generic)
	assert.NotEqual(t, quota, generic)
	assert.Equal(t, generic, UserMessage(&FetchError{Kind: KindUpstream}))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("search: %w", &FetchError{Kind: KindQuota, Transport: "scrapingbee"})
	assert.Equal(t, KindQuota, KindOf(err))
	assert.Equal(t, KindUpstream, KindOf(errors.New("plain")))
}

func TestScrapingBeeFetch(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{}
		for k := range r.URL.Query() {
			got[k] = r.URL.Query().Get(k)
		}
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer srv.Close()

	f := NewScrapingBeeFetcher("key123", 5*time.Second)
	f.Endpoint = srv.URL

	html, err := f.Fetch(context.Background(), "https://web.canary-app.jp/search", Options{
		RenderJS:        true,
		BlockAds:        true,
		WaitForSelector: ".room",
	})
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", html)
	assert.Equal(t, "key123", got["api_key"])
	assert.Equal(t, "https://web.canary-app.jp/search", got["url"])
	assert.Equal(t, "true", got["render_js"])
	assert.Equal(t, "true", got["block_ads"])
	assert.Equal(t, "10000", got["wait"])
	assert.Equal(t, ".room", got["wait_for"])
}

func TestScrapingBeeStatusMapping(t *testing.T) {
	for code, want := range map[int]ErrorKind{401: KindAuth, 403: KindQuota, 500: KindUpstream} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", code)
		}))

		f := NewScrapingBeeFetcher("key", 5*time.Second)
		f.Endpoint = srv.URL
		_, err := f.Fetch(context.Background(), "https://example.com", Options{})
		srv.Close()

		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, want, fe.Kind, "status %d", code)
		assert.Equal(t, code, fe.Status)
	}
}

func TestScrapingBeeMissingKeyIsAuth(t *testing.T) {
	f := NewScrapingBeeFetcher("", time.Second)
	_, err := f.Fetch(context.Background(), "https://example.com", Options{})
	assert.Equal(t, KindAuth, KindOf(err))
}

func TestPhantomJSCloudFetch(t *testing.T) {
	var path string
	var body phantomRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		fmt.Fprint(w, "<html>rendered</html>")
	}))
	defer srv.Close()

	f := NewPhantomJSCloudFetcher("pjs-key", 5*time.Second)
	f.Endpoint = srv.URL + "/api/browser/v2"

	html, err := f.Fetch(context.Background(), "https://web.canary-app.jp/search", Options{RenderJS: true, WaitForSelector: ".x"})
	require.NoError(t, err)
	assert.Equal(t, "<html>rendered</html>", html)
	assert.Equal(t, "/api/browser/v2/pjs-key/", path)
	assert.Equal(t, "html", body.RenderType)
	assert.False(t, body.RequestSettings.DisableJavascript)
	assert.Equal(t, 5000, body.RequestSettings.WaitInterval)
}

func TestPhantomJSCloudStatusMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	f := NewPhantomJSCloudFetcher("k", 5*time.Second)
	f.Endpoint = srv.URL
	_, err := f.Fetch(context.Background(), "https://example.com", Options{RenderJS: true})
	assert.Equal(t, KindBadRequest, KindOf(err))
}

func TestHTTPFetcher(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "<html>suumo</html>")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, 0)

	html, err := f.Fetch(context.Background(), srv.URL+"/list", Options{})
	require.NoError(t, err)
	assert.Equal(t, "<html>suumo</html>", html)
	assert.True(t, strings.HasPrefix(ua, "Mozilla/5.0"))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing", Options{})
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.Status)
	assert.Equal(t, KindUpstream, fe.Kind)
}

func TestHTTPFetcherSiteBlockIsNotQuota(t *testing.T) {
	for _, code := range []int{http.StatusForbidden, http.StatusTooManyRequests, http.StatusUnauthorized} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		_, err := NewHTTPFetcher(time.Second, 0).Fetch(context.Background(), srv.URL, Options{})
		srv.Close()

		assert.Equal(t, KindUpstream, KindOf(err), "status %d", code)
		assert.Equal(t, UserMessage(&FetchError{Kind: KindUpstream}), UserMessage(err))
	}
}

func TestSnippetCutsOnRuneBoundary(t *testing.T) {
	body := []byte("a" + strings.Repeat("物", 200))
	got := snippet(body)

	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), maxSnippetBytes+len("..."))
	assert.Equal(t, "short", snippet([]byte("  short  ")))
}

func TestHTTPFetcherTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(20*time.Millisecond, 0)
	_, err := f.Fetch(context.Background(), srv.URL, Options{})
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestHTTPFetcherInvalidURL(t *testing.T) {
	f := NewHTTPFetcher(time.Second, 0)
	_, err := f.Fetch(context.Background(), "not a url", Options{})
	assert.Equal(t, KindBadRequest, KindOf(err))
}

type stubFetcher struct{ name string }

func (s stubFetcher) Fetch(context.Context, string, Options) (string, error) {
	return s.name, nil
}

func TestDispatch(t *testing.T) {
	d := &Dispatch{Direct: stubFetcher{"direct"}, Render: stubFetcher{"render"}}

	got, err := d.Fetch(context.Background(), "u", Options{})
	require.NoError(t, err)
	assert.Equal(t, "direct", got)

	got, err = d.Fetch(context.Background(), "u", Options{RenderJS: true})
	require.NoError(t, err)
	assert.Equal(t, "render", got)

	d.Render = nil
	_, err = d.Fetch(context.Background(), "u", Options{RenderJS: true})
	assert.Equal(t, KindUnavailable, KindOf(err))
}
