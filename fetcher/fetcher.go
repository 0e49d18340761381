// Package fetcher retrieves raw page markup for the extractors. Every
// transport reports failures as *FetchError so callers can tell an
// authentication problem from an exhausted quota or a plain outage.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options controls a single fetch.
type Options struct {
	RenderJS        bool
	BlockAds        bool
	WaitForSelector string
}

// Fetcher obtains the markup of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts Options) (string, error)
}

// ErrorKind classifies fetch failures.
type ErrorKind int

const (
	KindUpstream ErrorKind = iota
	KindAuth
	KindQuota
	KindBadRequest
	KindTimeout
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindQuota:
		return "quota"
	case KindBadRequest:
		return "bad_request"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	default:
		return "upstream"
	}
}

// FetchError is returned by every transport in this package.
type FetchError struct {
	Kind      ErrorKind
	Transport string
	Status    int
	Detail    string
	Err       error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Transport, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf reports the ErrorKind of err, or KindUpstream for foreign errors.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUpstream
}

// UserMessage maps a fetch failure to the text shown in the chat.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindAuth:
		return "物件ページ取得サービスの認証に失敗しました。APIキーを確認してください。"
	case KindQuota:
		return "物件ページ取得サービスの利用上限を超過しました。しばらくしてから再度お試しください。"
	case KindBadRequest:
		return "物件ページ取得サービスへのリクエスト設定に誤りがあります。検索URLを確認してください。"
	case KindTimeout:
		return "物件ページの取得がタイムアウトしました。しばらくしてから再度お試しください。"
	case KindUnavailable:
		return "ページを描画するブラウザを起動できませんでした。"
	default:
		return "物件情報の取得に失敗しました。"
	}
}

// kindForStatus maps an HTTP status from a paid fetch service to an
// ErrorKind. Direct site fetches use siteKindForStatus.
func kindForStatus(code int) ErrorKind {
	switch code {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusPaymentRequired:
		return KindQuota
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindBadRequest
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return KindTimeout
	default:
		return KindUpstream
	}
}

// transportError wraps a client-side error (network, deadline) from transport.
func transportError(transport string, err error) *FetchError {
	kind := KindUpstream
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		kind = KindTimeout
	}
	return &FetchError{Kind: kind, Transport: transport, Err: err}
}

// Dispatch sends fetches that need JavaScript to Render and everything else
// to Direct.
type Dispatch struct {
	Direct Fetcher
	Render Fetcher
}

func (d *Dispatch) Fetch(ctx context.Context, url string, opts Options) (string, error) {
	if opts.RenderJS {
		if d.Render == nil {
			return "", &FetchError{Kind: KindUnavailable, Transport: "dispatch", Detail: "no rendering transport configured"}
		}
		return d.Render.Fetch(ctx, url, opts)
	}
	return d.Direct.Fetch(ctx, url, opts)
}
