package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCORSRouter(allowedOrigin string) *gin.Engine {
	router := gin.New()
	router.Use(CORS(allowedOrigin))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestDefaultCORSConfig(t *testing.T) {
	config := DefaultCORSConfig()

	assert.Equal(t, "*", config.AllowedOrigin)
	assert.Equal(t, []string{"GET", "HEAD", "OPTIONS"}, config.AllowMethods)
	assert.Contains(t, config.AllowHeaders, "Origin")
	assert.Contains(t, config.AllowHeaders, "Content-Type")
	assert.Equal(t, 86400, config.MaxAge)
}

func TestCORS_OriginHandling(t *testing.T) {
	tests := []struct {
		name           string
		allowedOrigin  string
		requestOrigin  string
		expectedOrigin string
		expectedStatus int
	}{
		{
			name:           "wildcard allows any origin",
			allowedOrigin:  "*",
			requestOrigin:  "https://example.com",
			expectedOrigin: "*",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "matching origin is echoed",
			allowedOrigin:  "https://app.example.com",
			requestOrigin:  "https://app.example.com",
			expectedOrigin: "https://app.example.com",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "mismatched origin gets no header",
			allowedOrigin:  "https://app.example.com",
			requestOrigin:  "https://evil.example.com",
			expectedOrigin: "",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "no origin header gets no header",
			allowedOrigin:  "https://app.example.com",
			requestOrigin:  "",
			expectedOrigin: "",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newCORSRouter(tt.allowedOrigin)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.requestOrigin != "" {
				req.Header.Set("Origin", tt.requestOrigin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORS_MatchingOriginSetsVary(t *testing.T) {
	router := newCORSRouter("https://app.example.com")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestCORS_WildcardOmitsVary(t *testing.T) {
	router := newCORSRouter("*")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Vary"))
}

func TestCORS_Preflight(t *testing.T) {
	router := newCORSRouter("https://app.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, HEAD, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_PreflightMismatchedOrigin(t *testing.T) {
	router := newCORSRouter("https://app.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// No OPTIONS route is registered, so the request falls through
	// to the router without any CORS headers.
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_HeadersPresentOnErrorResponse(t *testing.T) {
	router := gin.New()
	router.Use(CORS("https://app.example.com"))
	router.GET("/fail", func(c *gin.Context) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Bad Gateway",
			"message": "upstream unreachable",
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_HeadersPresentOnNotFound(t *testing.T) {
	router := gin.New()
	router.Use(CORS("https://app.example.com"))
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWithConfig_EmptyOriginDefaultsToWildcard(t *testing.T) {
	router := gin.New()
	router.Use(CORSWithConfig(CORSConfig{}))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWithConfig_CustomMethodsAndHeaders(t *testing.T) {
	router := gin.New()
	router.Use(CORSWithConfig(CORSConfig{
		AllowedOrigin: "https://app.example.com",
		AllowMethods:  []string{"GET"},
		AllowHeaders:  []string{"Accept"},
		MaxAge:        600,
	}))

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Accept", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}
