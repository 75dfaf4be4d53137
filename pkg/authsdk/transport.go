package authsdk

import (
	"context"
	"io"
	"net/http"

	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/idx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// Refresher obtains a new access token. It is called by the Transport after
// a 401 and must itself clear the session when refreshing fails.
type Refresher interface {
	RefreshAccessToken(ctx context.Context) (string, error)
}

type ctxKey int

const (
	retriedKey ctxKey = iota
	skipRefreshKey
	skipAuthKey
)

// WithoutRefresh marks requests made with ctx so a 401 is returned as is.
func WithoutRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipRefreshKey, true)
}

// withoutAuth also suppresses the default Authorization header.
func withoutAuth(ctx context.Context) context.Context {
	return context.WithValue(WithoutRefresh(ctx), skipAuthKey, true)
}

func flagged(ctx context.Context, key ctxKey) bool {
	v, _ := ctx.Value(key).(bool)
	return v
}

// Transport attaches the current access token to each request and, on a
// 401, refreshes once and replays the request once. Each attempt gets the
// client timeout to itself and both carry the same X-Request-ID.
type Transport struct {
	Base   http.RoundTripper
	client *Client
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.Header.Get(slogx.RequestIDHeader) == "" && slogx.RequestID(ctx) == "" {
		ctx = slogx.WithRequestID(ctx, idx.NewRequestID().String())
		req = req.WithContext(ctx)
	}

	attached := false
	if req.Header.Get(httpx.AuthorizationHeader) == "" && !flagged(ctx, skipAuthKey) {
		if authz := t.client.authorization(); authz != "" {
			req = req.Clone(ctx)
			req.Header.Set(httpx.AuthorizationHeader, authz)
			attached = true
		}
	}

	resp, err := t.send(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if flagged(ctx, skipRefreshKey) || flagged(ctx, retriedKey) {
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	refresher := t.client.currentRefresher()
	if refresher == nil {
		return resp, nil
	}

	logger := t.client.logger.With(
		"req_id", slogx.RequestID(ctx),
		"method", req.Method,
		"path", req.URL.Path,
	)

	// Another request may already have refreshed while this one was in
	// flight. Retry with that token instead of refreshing again.
	sent := req.Header.Get(httpx.AuthorizationHeader)
	authz := t.client.authorization()
	if !attached || authz == "" || authz == sent {
		token, err := refresher.RefreshAccessToken(ctx)
		if err != nil {
			logger.Warn("refresh failed, returning 401", "error", err)
			return resp, nil
		}
		authz = httpx.Bearer(token)
	}

	retry := req.Clone(context.WithValue(ctx, retriedKey, true))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}
	retry.Header.Set(httpx.AuthorizationHeader, authz)

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	t.client.metrics.retries.Inc()
	logger.Debug("retrying request with refreshed token")
	return t.send(retry)
}

// send makes one attempt under its own deadline. The deadline is released
// when the response body is closed.
func (t *Transport) send(req *http.Request) (*http.Response, error) {
	d := t.client.timeout
	if d <= 0 {
		return t.base().RoundTrip(req)
	}

	ctx, cancel := context.WithTimeout(req.Context(), d)
	resp, err := t.base().RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
