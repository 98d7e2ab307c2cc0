//go:build functional
// +build functional

/*
Package functional provides functional tests for the PokeAPI proxy. These
tests start the real HTTP server on a local port and drive it against a mock
upstream, so the full middleware chain and the upstream client are exercised
together.
*/
package functional

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/pokeproxy/internal/config"
	"github.com/vyrodovalexey/pokeproxy/internal/observability"
	"github.com/vyrodovalexey/pokeproxy/internal/proxy"
	"github.com/vyrodovalexey/pokeproxy/internal/server"
)

// testOrigin is the origin allowed by proxies started through startProxy.
const testOrigin = "http://localhost:3000"

// RecordedRequest stores information about a request the mock upstream received.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Time   time.Time
}

// MockUpstream is a stand-in for the PokeAPI that records every request it
// receives and serves a configurable response.
type MockUpstream struct {
	Server *httptest.Server
	URL    string

	mu          sync.Mutex
	requests    []RecordedRequest
	status      int
	body        []byte
	contentType string
	latency     time.Duration
}

// MockUpstreamOption configures a mock upstream.
type MockUpstreamOption func(*MockUpstream)

// WithUpstreamStatus sets the response status code.
func WithUpstreamStatus(code int) MockUpstreamOption {
	return func(mu *MockUpstream) {
		mu.status = code
	}
}

// WithUpstreamBody sets the response body.
func WithUpstreamBody(body string) MockUpstreamOption {
	return func(mu *MockUpstream) {
		mu.body = []byte(body)
	}
}

// WithUpstreamContentType sets the response Content-Type header.
func WithUpstreamContentType(contentType string) MockUpstreamOption {
	return func(mu *MockUpstream) {
		mu.contentType = contentType
	}
}

// WithUpstreamLatency delays every response by the given duration.
func WithUpstreamLatency(d time.Duration) MockUpstreamOption {
	return func(mu *MockUpstream) {
		mu.latency = d
	}
}

// NewMockUpstream starts a mock upstream server. It is closed automatically
// when the test finishes.
func NewMockUpstream(t *testing.T, opts ...MockUpstreamOption) *MockUpstream {
	t.Helper()

	mock := &MockUpstream{
		status:      http.StatusOK,
		body:        []byte(`{"name":"ditto","id":132}`),
		contentType: "application/json; charset=utf-8",
	}
	for _, opt := range opts {
		opt(mock)
	}

	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Time:   time.Now(),
		})
		status := mock.status
		body := mock.body
		contentType := mock.contentType
		latency := mock.latency
		mock.mu.Unlock()

		if latency > 0 {
			time.Sleep(latency)
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	mock.URL = mock.Server.URL

	t.Cleanup(mock.Server.Close)

	return mock
}

// GetRequests returns a copy of the recorded requests.
func (mu *MockUpstream) GetRequests() []RecordedRequest {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	result := make([]RecordedRequest, len(mu.requests))
	copy(result, mu.requests)
	return result
}

// LastRequest returns the most recently recorded request.
func (mu *MockUpstream) LastRequest(t *testing.T) RecordedRequest {
	t.Helper()
	mu.mu.Lock()
	defer mu.mu.Unlock()
	require.NotEmpty(t, mu.requests, "mock upstream received no requests")
	return mu.requests[len(mu.requests)-1]
}

// SetResponse replaces the status code and body served from now on.
func (mu *MockUpstream) SetResponse(status int, body string) {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	mu.status = status
	mu.body = []byte(body)
}

// SetLatency sets the response latency.
func (mu *MockUpstream) SetLatency(d time.Duration) {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	mu.latency = d
}

// ProxyInstance is a running proxy server under test.
type ProxyInstance struct {
	Server *server.Server
	Client *proxy.Client
	Config *config.Config

	// URL is the base URL of the running proxy, without a trailing slash.
	URL string
}

// startProxy builds a proxy from the default configuration, points it at the
// given upstream base URL, and starts it on a free local port. The server is
// stopped automatically when the test finishes.
func startProxy(t *testing.T, upstreamURL string, mutate ...func(*config.Config)) *ProxyInstance {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = GetFreePort(t)
	cfg.Upstream.BaseURL = upstreamURL
	cfg.Upstream.Timeout = config.Duration(2 * time.Second)
	cfg.CORS.AllowedOrigin = testOrigin
	for _, m := range mutate {
		m(cfg)
	}

	client, err := proxy.NewClient(cfg.Upstream, observability.NopLogger(), nil, nil)
	require.NoError(t, err)

	srv := server.NewServer(cfg, client, observability.NopLogger(), nil)

	go func() {
		_ = srv.Start(context.Background())
	}()

	addr := cfg.Server.Address()
	WaitForServer(t, addr, 5*time.Second)

	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(stopCtx)
		client.CloseIdleConnections()
	})

	return &ProxyInstance{
		Server: srv,
		Client: client,
		Config: cfg,
		URL:    "http://" + addr,
	}
}

// GetFreePort returns a free port for testing.
func GetFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

// WaitForServer waits for a server to accept connections.
func WaitForServer(t *testing.T, addr string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server at %s did not become ready within %v", addr, timeout)
}

// doGET performs a GET against the given URL and returns the response with
// its body fully read and closed.
func doGET(t *testing.T, rawURL string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, body
}
