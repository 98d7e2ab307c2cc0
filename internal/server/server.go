package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/pokeproxy/internal/config"
	"github.com/vyrodovalexey/pokeproxy/internal/observability"
	"github.com/vyrodovalexey/pokeproxy/internal/proxy"
	"github.com/vyrodovalexey/pokeproxy/internal/server/middleware"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions
var ginModeOnce sync.Once

// Server represents the public HTTP server of the proxy.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	handler    *ProxyHandler
	logger     observability.Logger
	cfg        *config.Config
	mu         sync.RWMutex
	running    bool
}

// NewServer creates the public HTTP server with its middleware chain and
// routes wired up. The metrics instance may be nil, in which case request
// metrics are not recorded.
func NewServer(
	cfg *config.Config,
	client *proxy.Client,
	logger observability.Logger,
	metrics *observability.Metrics,
) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	// Set Gin mode once; tests switch to test mode through the same guard.
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	// Logging runs before tracing so the span and the request context both
	// carry the request ID by the time a handler executes.
	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.Logging(logger))
	engine.Use(middleware.Tracing(cfg.Observability.Tracing.ServiceName))
	engine.Use(middleware.RequestMetrics(metrics))
	engine.Use(middleware.CORS(cfg.CORS.AllowedOrigin))

	s := &Server{
		engine:  engine,
		handler: NewProxyHandler(client, logger),
		logger:  logger,
		cfg:     cfg,
	}
	s.registerRoutes()

	return s
}

// registerRoutes wires the proxy endpoints into the engine.
func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handler.Index)
	s.engine.GET("/openapi.json", s.handler.OpenAPI)
	s.engine.GET("/proxy/*path", s.handler.Proxy)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "No route matched the request",
		})
	})

	s.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":   "Method Not Allowed",
			"message": "The requested method is not supported by this endpoint",
		})
	})
}

// GetEngine returns the underlying Gin engine.
func (s *Server) GetEngine() *gin.Engine {
	return s.engine
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	addr := s.cfg.Server.Address()

	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        s.engine,
		ReadTimeout:    s.cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:   s.cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:    s.cfg.Server.IdleTimeout.Duration(),
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
	}

	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", addr),
		observability.String("upstream", s.cfg.Upstream.BaseURL),
		observability.String("allowedOrigin", s.cfg.CORS.AllowedOrigin),
	)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop stops the HTTP server gracefully, waiting for in-flight requests
// until the context expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
