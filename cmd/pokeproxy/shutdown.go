package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vyrodovalexey/pokeproxy/internal/config"
	"github.com/vyrodovalexey/pokeproxy/internal/observability"
)

// shutdownTimeout bounds graceful shutdown of the listeners and the tracer.
const shutdownTimeout = 30 * time.Second

// runProxy runs the proxy and handles shutdown.
func runProxy(app *application, configPath string, logger observability.Logger) {
	ctx := context.Background()

	serverErr := make(chan error, 1)
	go func() {
		if err := app.server.Start(ctx); err != nil {
			serverErr <- err
		}
	}()

	startMetricsServerIfEnabled(app, logger)
	watcher := startConfigWatcher(ctx, app, configPath, logger)

	waitForShutdown(app, watcher, serverErr, logger)
}

// waitForShutdown waits for a shutdown signal or a server failure and
// performs graceful shutdown.
func waitForShutdown(
	app *application,
	watcher *config.Watcher,
	serverErr <-chan error,
	logger observability.Logger,
) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server failed", observability.Error(err))
	}

	// Fail readiness first so traffic drains before the listeners stop.
	if app.healthHandler != nil {
		app.healthHandler.SetDraining(true)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if app.metricsServer != nil {
		logger.Info("stopping metrics server")
		if err := app.metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop metrics server gracefully", observability.Error(err))
		}
	}

	if app.server != nil {
		if err := app.server.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop server gracefully", observability.Error(err))
		}
	}

	if app.client != nil {
		app.client.CloseIdleConnections()
	}

	if app.tracer != nil {
		if err := app.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown tracer", observability.Error(err))
		}
	}

	logger.Info("proxy stopped")
}
