package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/rollcall/pkg/idx"
)

// RequestIDHeader carries the per-request ULID to the backend.
const RequestIDHeader = "X-Request-ID"

// Transport logs every outgoing request and tags it with an X-Request-ID,
// taken from the header, then from WithRequestID, then freshly minted.
// The request's context gains a logger carrying the same req_id.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	return &Transport{Base: base, Logger: logger}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	reqID := req.Header.Get(RequestIDHeader)
	if reqID == "" {
		if reqID = RequestID(req.Context()); reqID == "" {
			reqID = idx.NewRequestID().String()
		}
		req = req.Clone(WithRequestID(req.Context(), reqID))
		req.Header.Set(RequestIDHeader, reqID)
	}

	base := t.Logger
	if base == nil {
		base = FromContext(req.Context())
	}
	logger := base.With(
		"req_id", reqID,
		"method", req.Method,
		"path", req.URL.Path,
	)
	req = req.WithContext(WithContext(req.Context(), logger))

	resp, err := t.base().RoundTrip(req)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_request_failed", "duration_ms", duration, "error", err)
		return nil, err
	}

	logger.Debug("http_request", "status", resp.StatusCode, "duration_ms", duration)
	return resp, nil
}
