package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigin is the single origin that may access the proxy.
	// Use "*" to allow all origins.
	AllowedOrigin string

	// AllowMethods is a list of methods allowed when accessing the resource.
	AllowMethods []string

	// AllowHeaders is a list of headers that can be used when making the actual request.
	AllowHeaders []string

	// MaxAge indicates how long the results of a preflight request can be cached.
	MaxAge int
}

// DefaultCORSConfig returns a CORS config with default values.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigin: "*",
		AllowMethods:  []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		MaxAge:        86400, // 24 hours
	}
}

// corsContext holds pre-computed values for the CORS middleware.
type corsContext struct {
	allowedOrigin   string
	allowAllOrigins bool
	allowMethodsStr string
	allowHeadersStr string
	maxAgeStr       string
}

// newCORSContext creates and initializes the CORS context with pre-computed values.
func newCORSContext(config CORSConfig) *corsContext {
	// Normalize configuration
	if config.AllowedOrigin == "" {
		config.AllowedOrigin = "*"
	}
	if len(config.AllowMethods) == 0 {
		config.AllowMethods = []string{"GET", "HEAD", "OPTIONS"}
	}
	if len(config.AllowHeaders) == 0 {
		config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
	}

	return &corsContext{
		allowedOrigin:   config.AllowedOrigin,
		allowAllOrigins: config.AllowedOrigin == "*",
		allowMethodsStr: strings.Join(config.AllowMethods, ", "),
		allowHeadersStr: strings.Join(config.AllowHeaders, ", "),
		maxAgeStr:       strconv.Itoa(config.MaxAge),
	}
}

// setCommonCORSHeaders sets the headers shared by preflight and actual requests.
func (ctx *corsContext) setCommonCORSHeaders(c *gin.Context) {
	if ctx.allowAllOrigins {
		c.Header("Access-Control-Allow-Origin", "*")
		return
	}
	c.Header("Access-Control-Allow-Origin", ctx.allowedOrigin)
	c.Header("Vary", "Origin")
}

// setPreflightHeaders sets headers specific to preflight (OPTIONS) requests.
func (ctx *corsContext) setPreflightHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Methods", ctx.allowMethodsStr)
	c.Header("Access-Control-Allow-Headers", ctx.allowHeadersStr)
	c.Header("Access-Control-Max-Age", ctx.maxAgeStr)
}

// CORS returns a middleware that allows the single configured origin.
func CORS(allowedOrigin string) gin.HandlerFunc {
	config := DefaultCORSConfig()
	config.AllowedOrigin = allowedOrigin
	return CORSWithConfig(config)
}

// CORSWithConfig returns a CORS middleware with custom configuration.
// Requests carrying the configured origin receive the
// Access-Control-Allow-Origin header on every response, error paths
// included; requests from other origins pass through without one.
func CORSWithConfig(config CORSConfig) gin.HandlerFunc {
	ctx := newCORSContext(config)

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Skip if no origin header
		if origin == "" {
			c.Next()
			return
		}

		if !ctx.allowAllOrigins && origin != ctx.allowedOrigin {
			GetMiddlewareMetrics().RecordCORSRequest("denied")
			c.Next()
			return
		}

		ctx.setCommonCORSHeaders(c)

		// Handle preflight request
		if c.Request.Method == http.MethodOptions {
			ctx.setPreflightHeaders(c)
			GetMiddlewareMetrics().RecordCORSRequest("preflight")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		GetMiddlewareMetrics().RecordCORSRequest("actual")
		c.Next()
	}
}
