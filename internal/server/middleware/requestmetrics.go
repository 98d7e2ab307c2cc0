package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/pokeproxy/internal/observability"
)

// RequestMetricsConfig holds configuration for the request metrics middleware.
type RequestMetricsConfig struct {
	Metrics   *observability.Metrics
	SkipPaths []string
}

// RequestMetrics returns a middleware that records request count, duration,
// response size and in-flight gauge for every handled request.
func RequestMetrics(metrics *observability.Metrics) gin.HandlerFunc {
	return RequestMetricsWithConfig(RequestMetricsConfig{Metrics: metrics})
}

// RequestMetricsWithConfig returns a request metrics middleware with custom
// configuration. Requests are labelled by route template rather than raw
// path to keep label cardinality bounded.
func RequestMetricsWithConfig(config RequestMetricsConfig) gin.HandlerFunc {
	skipPaths := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		if config.Metrics == nil || skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		method := c.Request.Method
		start := time.Now()

		config.Metrics.IncrementActiveRequests(method)
		defer config.Metrics.DecrementActiveRequests(method)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		size := c.Writer.Size()
		if size < 0 {
			size = 0
		}

		config.Metrics.RecordRequest(
			method,
			route,
			c.Writer.Status(),
			time.Since(start),
			int64(size),
		)
	}
}
