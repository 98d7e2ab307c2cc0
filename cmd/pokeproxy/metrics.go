package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/vyrodovalexey/pokeproxy/internal/health"
	"github.com/vyrodovalexey/pokeproxy/internal/observability"
)

// createMetricsServer creates the metrics HTTP server.
func createMetricsServer(
	port int,
	path string,
	metrics *observability.Metrics,
	healthHandler *health.Handler,
	logger observability.Logger,
) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	mux.Handle("/health", healthHandler.HealthHandler())
	mux.Handle("/ready", healthHandler.ReadinessHandler())
	mux.Handle("/live", healthHandler.LivenessHandler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("starting metrics server",
		observability.String("address", addr),
		observability.String("metrics_path", path),
	)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// runMetricsServer runs the metrics HTTP server.
func runMetricsServer(server *http.Server, logger observability.Logger) {
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", observability.Error(err))
	}
}

// startMetricsServerIfEnabled starts the metrics server if enabled.
func startMetricsServerIfEnabled(app *application, logger observability.Logger) {
	mc := app.config.Observability.Metrics
	if !mc.Enabled {
		return
	}

	metricsPath := mc.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	metricsPort := mc.Port
	if metricsPort == 0 {
		metricsPort = 9090
	}

	app.metricsServer = createMetricsServer(metricsPort, metricsPath, app.metrics, app.healthHandler, logger)
	go runMetricsServer(app.metricsServer, logger)
}
