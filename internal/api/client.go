// Package api is the client of the ledger REST backend: bearer auth with a
// single-flight token refresh, envelope normalisation and typed resource
// wrappers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/refill-ledger/ledger/internal/dates"
)

// Defaults applied by New.
const (
	DefaultBaseURL = "http://localhost:3000/api"
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 8 << 20
	refreshKey       = "refresh"
	loginKey         = "login"
)

// Metrics receives client side observations.
type Metrics interface {
	ObserveAPIRequest(method, resource string, status int, elapsed time.Duration)
	ObserveTokenRefresh(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveAPIRequest(string, string, int, time.Duration) {}
func (noopMetrics) ObserveTokenRefresh(string)                           {}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     TokenStore
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    Metrics
	Clock      dates.Clock
	// Credentials, when set, are used to log in again whenever no session can
	// be recovered by a refresh. Service accounts set it; ledgerctl does not.
	Credentials *Credentials
	// OnSessionExpired fires after the session was cleared because it could
	// not be refreshed.
	OnSessionExpired func()
}

// Client talks to the ledger backend.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	timeout   time.Duration
	tokens    TokenStore
	logger    *slog.Logger
	metrics   Metrics
	clock     dates.Clock
	onExpired func()
	creds     *Credentials
	group     singleflight.Group
}

// New validates opts and builds a client.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", raw)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = NewMemoryTokenStore(Tokens{})
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var metrics Metrics = noopMetrics{}
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}
	return &Client{
		baseURL:   base,
		http:      httpClient,
		timeout:   timeout,
		tokens:    tokens,
		logger:    logger.With(slog.String("component", "api")),
		metrics:   metrics,
		clock:     opts.Clock,
		onExpired: opts.OnSessionExpired,
		creds:     opts.Credentials,
	}, nil
}

// Tokens exposes the session store.
func (c *Client) Tokens() TokenStore { return c.tokens }

// RequestOption decorates an outgoing request.
type RequestOption func(h http.Header)

// WithIdempotencyKey sets the Idempotency-Key header.
func WithIdempotencyKey(key string) RequestOption {
	return func(h http.Header) {
		if key != "" {
			h.Set("Idempotency-Key", key)
		}
	}
}

type request struct {
	method string
	path   string
	query  url.Values
	body   []byte
	header http.Header
}

func newRequest(method, path string, query url.Values, body any, opts ...RequestOption) (request, error) {
	req := request{method: method, path: path, query: query, header: http.Header{}}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return request{}, fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		req.body = raw
	}
	for _, opt := range opts {
		opt(req.header)
	}
	return req, nil
}

// authExempt paths never trigger a refresh on 401.
func authExempt(path string) bool {
	return strings.HasPrefix(path, "/auth/login") || strings.HasPrefix(path, "/auth/refresh")
}

// call sends body as JSON and returns the raw response body.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any, opts ...RequestOption) ([]byte, error) {
	req, err := newRequest(method, path, query, body, opts...)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	tokens, err := c.tokens.Load(ctx)
	if err != nil {
		return nil, err
	}
	exempt := authExempt(req.path)
	switch {
	case exempt:
	case tokens.Empty() && c.creds != nil:
		if tokens, err = c.relogin(ctx, ""); err != nil {
			return nil, err
		}
	case tokens.Refresh != "" && tokenExpired(tokens.Access, c.clock.Now()):
		if tokens, err = c.restore(ctx, tokens.Access); err != nil {
			return nil, err
		}
	}
	access := tokens.Access
	if exempt {
		access = ""
	}

	status, body, err := c.send(ctx, req, access)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized && !exempt {
		switch {
		case tokens.Refresh != "":
			tokens, err = c.restore(ctx, tokens.Access)
		case c.creds != nil:
			tokens, err = c.relogin(ctx, tokens.Access)
		default:
			c.expire(ctx)
			err = fmt.Errorf("%w: %w", ErrNoRefreshToken, errorFromResponse(status, body))
		}
		if err != nil {
			return nil, err
		}
		status, body, err = c.send(ctx, req, tokens.Access)
		if err != nil {
			return nil, err
		}
	}
	if status >= http.StatusBadRequest {
		return nil, errorFromResponse(status, body)
	}
	return body, nil
}

func (c *Client) send(ctx context.Context, req request, access string) (int, []byte, error) {
	target := *c.baseURL
	target.Path = strings.TrimRight(target.Path, "/") + req.path
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return 0, nil, fmt.Errorf("api: build request: %w", err)
	}
	for k, v := range req.header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	resource := resourceOf(req.path)
	if err != nil {
		c.metrics.ObserveAPIRequest(req.method, resource, 0, time.Since(start))
		c.logger.Warn("api request failed", slog.String("method", req.method), slog.String("path", req.path), slog.Any("error", err))
		return 0, nil, HandleAPIError(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	elapsed := time.Since(start)
	c.metrics.ObserveAPIRequest(req.method, resource, resp.StatusCode, elapsed)
	if err != nil {
		return 0, nil, HandleAPIError(fmt.Errorf("read body: %w", err))
	}
	c.logger.Debug("api request",
		slog.String("method", req.method),
		slog.String("path", req.path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", elapsed))
	return resp.StatusCode, raw, nil
}

// refresh swaps the refresh token for a new pair. Concurrent callers share
// one in-flight exchange. stale is the access token the caller was
// rejected with; if the store already holds a different live token another
// caller refreshed first and it is returned as is.
func (c *Client) refresh(ctx context.Context, stale string) (Tokens, error) {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		current, err := c.tokens.Load(rctx)
		if err != nil {
			return Tokens{}, err
		}
		if current.Access != "" && current.Access != stale && !tokenExpired(current.Access, c.clock.Now()) {
			c.metrics.ObserveTokenRefresh("reused")
			return current, nil
		}
		if current.Refresh == "" {
			c.metrics.ObserveTokenRefresh("missing")
			c.expire(rctx)
			return Tokens{}, ErrNoRefreshToken
		}

		req, err := newRequest(http.MethodPost, "/auth/refresh", nil, map[string]string{"refreshToken": current.Refresh})
		if err != nil {
			return Tokens{}, err
		}
		status, body, err := c.send(rctx, req, "")
		if err == nil && status >= http.StatusBadRequest {
			err = errorFromResponse(status, body)
		}
		var next Tokens
		if err == nil {
			next = AdaptSingle[Tokens](body).Data
			if next.Access == "" {
				err = errors.New("refresh response carried no access token")
			}
		}
		if err != nil {
			c.metrics.ObserveTokenRefresh("failed")
			c.logger.Warn("token refresh failed", slog.Any("error", err))
			c.expire(rctx)
			return Tokens{}, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		if next.Refresh == "" {
			next.Refresh = current.Refresh
		}
		if err := c.tokens.Save(rctx, next); err != nil {
			return Tokens{}, err
		}
		c.metrics.ObserveTokenRefresh("ok")
		return next, nil
	})
	select {
	case <-ctx.Done():
		return Tokens{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Tokens{}, res.Err
		}
		return res.Val.(Tokens), nil
	}
}

// restore refreshes the session and, when that fails and credentials are
// configured, logs in again.
func (c *Client) restore(ctx context.Context, stale string) (Tokens, error) {
	tokens, err := c.refresh(ctx, stale)
	if err == nil || c.creds == nil || ctx.Err() != nil {
		return tokens, err
	}
	return c.relogin(ctx, stale)
}

// relogin opens a new session with the configured credentials. Concurrent
// callers share one login; stale is the access token that was rejected.
func (c *Client) relogin(ctx context.Context, stale string) (Tokens, error) {
	ch := c.group.DoChan(loginKey, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		current, err := c.tokens.Load(lctx)
		if err != nil {
			return Tokens{}, err
		}
		if current.Access != "" && current.Access != stale && !tokenExpired(current.Access, c.clock.Now()) {
			return current, nil
		}
		if _, err := c.Login(lctx, *c.creds); err != nil {
			c.metrics.ObserveTokenRefresh("relogin_failed")
			c.logger.Warn("backend re-login failed", slog.Any("error", err))
			return Tokens{}, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		c.metrics.ObserveTokenRefresh("relogin")
		c.logger.Info("backend session re-established")
		return c.tokens.Load(lctx)
	})
	select {
	case <-ctx.Done():
		return Tokens{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Tokens{}, res.Err
		}
		return res.Val.(Tokens), nil
	}
}

func (c *Client) expire(ctx context.Context) {
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Error("clear session", slog.Any("error", err))
	}
	if c.onExpired != nil {
		c.onExpired()
	}
}

// resourceOf keeps metric labels bounded to the top-level path segment.
func resourceOf(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return "/" + trimmed
}
