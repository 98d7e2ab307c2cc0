package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/pokeproxy/internal/config"
	"github.com/vyrodovalexey/pokeproxy/internal/observability"
)

// UserAgent identifies the proxy on upstream requests. The entry point
// replaces the version segment with build information at startup.
var UserAgent = "pokeproxy/dev"

// Result is a fully buffered upstream response. A Result is returned for
// every HTTP status the upstream produces; callers inspect StatusCode and
// decide how to relay it.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client fetches documents from the upstream API over a pooled transport.
// The base URL is fixed for the lifetime of the client; transport settings
// are swapped atomically on Reload so in-flight requests keep the pool they
// started with.
type Client struct {
	baseURL *url.URL
	state   atomic.Pointer[clientState]
	logger  observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// clientState bundles an HTTP client with its request timeout so both are
// replaced in a single atomic swap.
type clientState struct {
	client  *http.Client
	timeout time.Duration
}

// NewClient creates an upstream client from the given configuration. Logger,
// metrics and tracer may be nil.
func NewClient(
	cfg config.UpstreamConfig,
	logger observability.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL %q: %w", cfg.BaseURL, err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid upstream base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	if logger == nil {
		logger = observability.NopLogger()
	}

	c := &Client{
		baseURL: baseURL,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
	c.state.Store(newClientState(cfg))

	return c, nil
}

// newClientState builds a pooled transport from upstream settings.
func newClientState(cfg config.UpstreamConfig) *clientState {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout.Duration(),
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout.Duration(),
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &clientState{
		client: &http.Client{
			Transport: transport,
			// Timeouts are enforced per request via context.
			Timeout: 0,
		},
		timeout: cfg.Timeout.Duration(),
	}
}

// Fetch performs a GET against the upstream for the given path and query and
// buffers the full response. The path is joined onto the configured base URL.
// An error is returned only when no usable response arrived: the upstream was
// unreachable, the request timed out, or the body could not be read.
func (c *Client) Fetch(ctx context.Context, path string, query url.Values) (*Result, error) {
	state := c.state.Load()

	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, state.timeout)
	defer cancel()

	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.StartSpan(ctx, "upstream.fetch",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.request.method", http.MethodGet),
				attribute.String("url.full", target.String()),
				attribute.String("server.address", target.Host),
			),
		)
		defer span.End()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, NewUnreachableError(target.String(), err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	observability.InjectTraceContext(ctx, req)

	start := time.Now()
	resp, err := state.client.Do(req)
	if err != nil {
		duration := time.Since(start)
		fetchErr := classifyTransportError(target.String(), err)
		c.recordUpstream(upstreamResultLabel(fetchErr), duration)
		c.logger.WithContext(ctx).Error("upstream request failed",
			observability.String("url", target.String()),
			observability.Duration("duration", duration),
			observability.Error(fetchErr),
		)
		return nil, fetchErr
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		c.recordUpstream(observability.UpstreamResultError, duration)
		c.logger.WithContext(ctx).Error("upstream body read failed",
			observability.String("url", target.String()),
			observability.Int("status", resp.StatusCode),
			observability.Error(err),
		)
		return nil, NewUnreachableError(target.String(), err)
	}

	if span != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	}
	c.recordUpstream(observability.StatusClass(resp.StatusCode), duration)
	c.logger.WithContext(ctx).Debug("upstream request completed",
		observability.String("url", target.String()),
		observability.Int("status", resp.StatusCode),
		observability.Int("bodyBytes", len(body)),
		observability.Duration("duration", duration),
	)

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// Reload swaps transport settings for subsequent requests and releases idle
// connections held by the previous pool. The base URL is fixed at startup;
// callers detect base URL changes and report that a restart is required.
func (c *Client) Reload(cfg config.UpstreamConfig) {
	old := c.state.Swap(newClientState(cfg))
	if old != nil {
		old.client.CloseIdleConnections()
	}
	c.logger.Info("upstream client reloaded",
		observability.Duration("timeout", cfg.Timeout.Duration()),
		observability.Int("maxIdleConns", cfg.MaxIdleConns),
		observability.Int("maxIdleConnsPerHost", cfg.MaxIdleConnsPerHost),
	)
}

// CloseIdleConnections releases idle connections in the current pool.
func (c *Client) CloseIdleConnections() {
	c.state.Load().client.CloseIdleConnections()
}

// BaseURL returns the configured upstream base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Timeout returns the current per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.state.Load().timeout
}

// classifyTransportError maps a transport error onto the package taxonomy:
// timeouts (context deadline or net-level) versus everything else, which is
// treated as an unreachable upstream.
func classifyTransportError(target string, err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(target, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(target, err)
	}
	return NewUnreachableError(target, err)
}

// upstreamResultLabel maps a fetch error to its metric label.
func upstreamResultLabel(err *FetchError) string {
	if errors.Is(err, ErrUpstreamTimeout) {
		return observability.UpstreamResultTimeout
	}
	return observability.UpstreamResultError
}

func (c *Client) recordUpstream(result string, duration time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(result, duration)
	}
}
