package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/flemzord/toolgate/internal/security"
)

// HTTPConfig configures an HTTP backend client.
type HTTPConfig struct {
	URL     string
	Headers map[string]string
	Client  *http.Client

	// Limits bound the reply body. Zero fields select the defaults.
	Limits security.PayloadLimits
}

// HTTP posts each request as JSON to a single endpoint.
type HTTP struct {
	url     string
	headers map[string]string
	client  *http.Client
	limits  security.PayloadLimits
}

var _ Backend = (*HTTP)(nil)

// NewHTTP creates an HTTP backend client.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Limits.MaxSize <= 0 {
		cfg.Limits.MaxSize = security.DefaultMaxPayloadSize
	}
	return &HTTP{url: cfg.URL, headers: cfg.Headers, client: cfg.Client, limits: cfg.Limits}, nil
}

// Call implements Backend.
func (h *HTTP) Call(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("backend: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range h.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// One byte past the limit is enough to detect an oversized body.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, int64(h.limits.MaxSize)+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	if err := h.limits.Check(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	// A JSON error body with an explicit success flag is a logical failure,
	// not a transport one.
	out, decodeErr := decodeResponse(raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil {
			if _, ok := out["success"]; ok {
				return out, nil
			}
		}
		return nil, transportErr("status %d: %s", resp.StatusCode, snippet(raw))
	}
	if decodeErr != nil {
		return nil, transportErr("response is not a JSON object: %s", snippet(raw))
	}
	return out, nil
}

// Close implements Backend.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func snippet(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
