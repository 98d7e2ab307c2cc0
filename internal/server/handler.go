package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/pokeproxy/internal/filter"
	"github.com/vyrodovalexey/pokeproxy/internal/observability"
	"github.com/vyrodovalexey/pokeproxy/internal/proxy"
	"github.com/vyrodovalexey/pokeproxy/internal/server/middleware"
)

// Reserved query parameters. They are consumed by the proxy itself and
// never forwarded to the upstream.
const (
	versionParam  = "version"
	languageParam = "language"
)

// ProxyHandler serves the proxy endpoints.
type ProxyHandler struct {
	client *proxy.Client
	logger observability.Logger
}

// NewProxyHandler creates a handler backed by the given upstream client.
func NewProxyHandler(client *proxy.Client, logger observability.Logger) *ProxyHandler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ProxyHandler{
		client: client,
		logger: logger,
	}
}

// Index describes the service and how to call it.
func (h *ProxyHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the PokeAPI Proxy Server!",
		"usage":   "GET /proxy/{pokeapi_path}",
		"examples": []string{
			"/proxy/pokemon/pikachu",
			"/proxy/pokemon-species/1",
			"/proxy/ability/static",
			"/proxy/move/thunder",
			"/proxy/type/electric",
			"/proxy/berry/cheri",
			"/proxy/pokemon?limit=100",
		},
		"pokeapi_docs": "https://pokeapi.co/docs/v2",
	})
}

// Proxy forwards a GET request to the upstream API and relays the response.
// The reserved version and language query parameters are stripped from the
// forwarded request; when present they prune version- and language-tagged
// array elements from successful JSON responses. Successful bodies must
// parse as JSON even when no filtering was requested, while upstream error
// responses are relayed byte for byte.
func (h *ProxyHandler) Proxy(c *gin.Context) {
	requestPath := strings.TrimPrefix(c.Param("path"), "/")

	query := c.Request.URL.Query()
	directive := filter.Directive{
		Version:  query.Get(versionParam),
		Language: query.Get(languageParam),
	}
	query.Del(versionParam)
	query.Del(languageParam)

	if directive.Version != "" {
		middleware.AddSpanAttribute(c, "filter.version", directive.Version)
	}
	if directive.Language != "" {
		middleware.AddSpanAttribute(c, "filter.language", directive.Language)
	}

	result, err := h.client.Fetch(c.Request.Context(), requestPath, query)
	if err != nil {
		h.writeFetchError(c, err)
		return
	}

	contentType := result.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Non-2xx responses are relayed as-is. An invalid path manifests as the
	// upstream's own 404, never as an error produced here.
	if result.StatusCode < http.StatusOK || result.StatusCode >= http.StatusMultipleChoices {
		c.Data(result.StatusCode, contentType, result.Body)
		return
	}

	// Success bodies must parse as JSON whether or not a directive was
	// supplied; a body this proxy cannot parse is a gateway error.
	doc, err := decodeUpstreamBody(result.Body)
	if err != nil {
		_ = c.Error(proxy.NewMalformedBodyError(requestPath, err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Bad Gateway",
			"message": "upstream returned a malformed response body",
		})
		return
	}

	// Without a directive the decode was validation only; the original bytes
	// are relayed untouched.
	if directive.Empty() {
		c.Data(result.StatusCode, contentType, result.Body)
		return
	}

	body, err := encodeUpstreamBody(filter.Apply(doc, directive))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "An unexpected error occurred",
		})
		return
	}

	c.Data(result.StatusCode, contentType, body)
}

// writeFetchError maps a transport-level fetch failure to a gateway error
// response. Timeouts become 504, everything else 502.
func (h *ProxyHandler) writeFetchError(c *gin.Context, err error) {
	_ = c.Error(err)

	if proxy.IsTimeout(err) {
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":   "Gateway Timeout",
			"message": "upstream request timed out",
		})
		return
	}

	c.JSON(http.StatusBadGateway, gin.H{
		"error":   "Bad Gateway",
		"message": "upstream is unreachable",
	})
}

// decodeUpstreamBody parses a JSON document for filtering. Numbers are kept
// as json.Number so re-encoding does not alter their representation.
func decodeUpstreamBody(body []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON document")
	}
	return doc, nil
}

// encodeUpstreamBody serializes a filtered document without HTML escaping,
// matching what the upstream itself serves.
func encodeUpstreamBody(doc interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
