package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/pokeproxy/internal/observability"
)

// Default timeout values for health checks.
const (
	// DefaultReadinessProbeTimeout is the default timeout for readiness probes.
	DefaultReadinessProbeTimeout = 5 * time.Second

	// DefaultHealthProbeTimeout is the default timeout for health probes.
	DefaultHealthProbeTimeout = 10 * time.Second
)

// HandlerConfig holds configuration for the health handler.
type HandlerConfig struct {
	// ReadinessProbeTimeout is the timeout for readiness probe checks.
	ReadinessProbeTimeout time.Duration

	// HealthProbeTimeout is the timeout for health probe checks.
	HealthProbeTimeout time.Duration
}

// DefaultHandlerConfig returns a HandlerConfig with default values.
func DefaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		ReadinessProbeTimeout: DefaultReadinessProbeTimeout,
		HealthProbeTimeout:    DefaultHealthProbeTimeout,
	}
}

// Handler handles health check requests.
type Handler struct {
	checks    []HealthCheck
	logger    observability.Logger
	mu        sync.RWMutex
	startTime time.Time
	version   string
	config    *HandlerConfig
	draining  atomic.Bool
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Uptime    string                  `json:"uptime,omitempty"`
	Version   string                  `json:"version,omitempty"`
	Checks    map[string]*CheckResult `json:"checks,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHandler creates a new health handler with default configuration.
func NewHandler(logger observability.Logger) *Handler {
	return NewHandlerWithConfig(logger, nil)
}

// NewHandlerWithConfig creates a new health handler with the given configuration.
func NewHandlerWithConfig(logger observability.Logger, config *HandlerConfig) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if config == nil {
		config = DefaultHandlerConfig()
	}
	return &Handler{
		checks:    make([]HealthCheck, 0),
		logger:    logger,
		startTime: time.Now(),
		config:    config,
	}
}

// SetConfig updates the handler configuration.
func (h *Handler) SetConfig(config *HandlerConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if config != nil {
		h.config = config
	}
}

// SetVersion sets the version reported in health responses.
func (h *Handler) SetVersion(version string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version = version
}

func (h *Handler) getVersion() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

// getReadinessTimeout returns the configured readiness probe timeout.
func (h *Handler) getReadinessTimeout() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.config != nil && h.config.ReadinessProbeTimeout > 0 {
		return h.config.ReadinessProbeTimeout
	}
	return DefaultReadinessProbeTimeout
}

// getHealthTimeout returns the configured health probe timeout.
func (h *Handler) getHealthTimeout() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.config != nil && h.config.HealthProbeTimeout > 0 {
		return h.config.HealthProbeTimeout
	}
	return DefaultHealthProbeTimeout
}

// AddCheck adds a health check.
func (h *Handler) AddCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// RemoveCheck removes a health check by name.
func (h *Handler) RemoveCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, check := range h.checks {
		if check.Name() == name {
			h.checks = append(h.checks[:i], h.checks[i+1:]...)
			return
		}
	}
}

// SetDraining marks the handler as draining. While draining, readiness
// probes fail so load balancers stop routing new traffic, while liveness
// probes keep succeeding so orchestrators do not kill the process mid-drain.
func (h *Handler) SetDraining(draining bool) {
	h.draining.Store(draining)
}

// IsDraining reports whether the handler is draining.
func (h *Handler) IsDraining() bool {
	return h.draining.Load()
}

// LivenessHandler returns a handler for liveness probes.
// Liveness probes indicate whether the application is running.
func (h *Handler) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		GetHealthMetrics().RecordCheck("liveness")
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	})
}

// ReadinessHandler returns a handler for readiness probes.
// Readiness probes indicate whether the application is ready to serve traffic.
func (h *Handler) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		GetHealthMetrics().RecordCheck("readiness")

		if h.IsDraining() {
			GetHealthMetrics().SetStatus("overall", false)
			h.writeJSON(w, http.StatusServiceUnavailable, &HealthStatus{
				Status:    "draining",
				Timestamp: time.Now().UTC(),
			})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.getReadinessTimeout())
		defer cancel()

		status := h.runChecks(ctx)

		statusCode := http.StatusOK
		if status.Status != "ok" {
			statusCode = http.StatusServiceUnavailable
		}
		h.writeJSON(w, statusCode, status)
	})
}

// HealthHandler returns a handler for detailed health checks.
func (h *Handler) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		GetHealthMetrics().RecordCheck("health")

		ctx, cancel := context.WithTimeout(r.Context(), h.getHealthTimeout())
		defer cancel()

		status := h.runChecks(ctx)
		status.Uptime = time.Since(h.startTime).String()
		status.Version = h.getVersion()

		statusCode := http.StatusOK
		if status.Status != "ok" {
			statusCode = http.StatusServiceUnavailable
		}
		h.writeJSON(w, statusCode, status)
	})
}

// runChecks runs all health checks concurrently and returns the status.
func (h *Handler) runChecks(ctx context.Context) *HealthStatus {
	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := &HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]*CheckResult),
	}

	if len(checks) == 0 {
		GetHealthMetrics().SetStatus("overall", true)
		return status
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, check := range checks {
		wg.Add(1)
		go func(c HealthCheck) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			duration := time.Since(start)

			result := &CheckResult{
				Status:    "ok",
				Duration:  duration.String(),
				Timestamp: time.Now().UTC(),
			}

			if err != nil {
				result.Status = "error"
				result.Error = err.Error()

				mu.Lock()
				status.Status = "error"
				mu.Unlock()

				h.logger.Warn("health check failed",
					observability.String("check", c.Name()),
					observability.Error(err),
					observability.Duration("duration", duration),
				)
			}

			GetHealthMetrics().SetStatus(c.Name(), err == nil)

			mu.Lock()
			status.Checks[c.Name()] = result
			mu.Unlock()
		}(check)
	}

	wg.Wait()
	GetHealthMetrics().SetStatus("overall", status.Status == "ok")
	return status
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write health check response", observability.Error(err))
	}
}
