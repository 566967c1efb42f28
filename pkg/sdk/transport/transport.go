// Package transport sends JSON payloads to the analytics API and classifies
// the result. It owns the retry policy: retryable failures (429, 5xx,
// network) are retried with exponential backoff and jitter up to a bounded
// attempt count, and a single final Outcome is reported per Send call.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/nicktill/mixgo/pkg/config"
)

// API endpoints, relative to the configured base URL.
const (
	EndpointTrack  = "track"
	EndpointImport = "import"
)

const initialBackoff = 500 * time.Millisecond

// Response is the raw result of one HTTP attempt.
type Response struct {
	StatusCode int
	Body       []byte
}

// Backend is the single HTTP capability the transport needs. It is an
// interface so tests can inject a stub without a listening server.
type Backend interface {
	Post(ctx context.Context, url string, body []byte, header http.Header) (*Response, error)
}

// HTTPBackend implements Backend on net/http.
type HTTPBackend struct {
	client *http.Client
}

// NewHTTPBackend creates a backend with the given per-request timeout.
func NewHTTPBackend(timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		client: &http.Client{Timeout: timeout},
	}
}

// Post issues one POST and drains the response body.
func (b *HTTPBackend) Post(ctx context.Context, url string, body []byte, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// Client sends payloads to named endpoints. It is stateless and safe for
// concurrent use from multiple goroutines.
type Client struct {
	baseURL    string
	backend    Backend
	maxRetries uint64
	log        *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBackend replaces the HTTP backend, typically with a test stub.
func WithBackend(b Backend) Option {
	return func(c *Client) { c.backend = b }
}

// New creates a transport client from the process configuration.
func New(cfg *config.Config, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		backend:    NewHTTPBackend(cfg.RequestTimeout),
		maxRetries: uint64(cfg.MaxRetries),
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send marshals body, posts it to the named endpoint and returns the
// classified outcome. body may be a single payload object or a slice of
// payloads; Send is shape-agnostic beyond serialization.
func (c *Client) Send(ctx context.Context, endpoint string, body any, header http.Header) Outcome {
	raw, err := json.Marshal(body)
	if err != nil {
		return Outcome{Kind: KindValidation, Message: "marshal payload: " + err.Error()}
	}
	url := c.baseURL + "/" + endpoint

	var (
		resp    *Response
		lastErr error
	)
	attempt := func() error {
		resp = nil
		r, err := c.backend.Post(ctx, url, raw, header)
		if err != nil {
			lastErr = err
			return err
		}
		resp = r
		if r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500 {
			return fmt.Errorf("retryable status %d", r.StatusCode)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	bo.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	notify := func(err error, wait time.Duration) {
		c.log.Warn("send failed, retrying",
			zap.String("endpoint", endpoint),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}
	_ = backoff.RetryNotify(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx), notify)

	if resp == nil {
		msg := ""
		if lastErr != nil {
			msg = lastErr.Error()
		}
		return Outcome{Kind: KindNetwork, Message: msg}
	}
	return classify(resp.StatusCode, resp.Body)
}
