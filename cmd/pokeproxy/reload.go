package main

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/pokeproxy/internal/config"
	"github.com/vyrodovalexey/pokeproxy/internal/observability"
)

// reloadMetrics holds Prometheus metrics for configuration reload
// operations. All collectors are registered with the proxy's registry so
// they appear on the /metrics endpoint.
type reloadMetrics struct {
	configReloadTotal          *prometheus.CounterVec
	configReloadDuration       prometheus.Histogram
	configReloadLastSuccess    prometheus.Gauge
	configWatcherStatus        prometheus.Gauge
	configReloadComponentTotal *prometheus.CounterVec
}

// newReloadMetrics creates reload metrics and registers them with the
// provided Metrics instance's registry.
func newReloadMetrics(m *observability.Metrics) *reloadMetrics {
	rm := &reloadMetrics{
		configReloadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pokeproxy",
				Name:      "config_reload_total",
				Help:      "Total number of configuration reloads",
			},
			[]string{"result"},
		),
		configReloadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pokeproxy",
				Name:      "config_reload_duration_seconds",
				Help:      "Duration of configuration reload operations",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		configReloadLastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pokeproxy",
				Name:      "config_reload_last_success_timestamp",
				Help:      "Timestamp of last successful config reload",
			},
		),
		configWatcherStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pokeproxy",
				Name:      "config_watcher_running",
				Help:      "Whether the config file watcher is running (1=running, 0=stopped)",
			},
		),
		configReloadComponentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pokeproxy",
				Name:      "config_reload_component_total",
				Help:      "Total number of component reload operations by component and result",
			},
			[]string{"component", "result"},
		),
	}

	collectors := []prometheus.Collector{
		rm.configReloadTotal,
		rm.configReloadDuration,
		rm.configReloadLastSuccess,
		rm.configWatcherStatus,
		rm.configReloadComponentTotal,
	}
	for _, c := range collectors {
		// Ignore duplicate registration errors; descriptors are identical
		// when re-registered.
		_ = m.RegisterCollector(c)
	}

	return rm
}

// ensureReloadMetrics returns the application's reload metrics, lazily
// initializing them when the application was constructed without
// initApplication (e.g. in tests).
func ensureReloadMetrics(app *application) *reloadMetrics {
	if app.reloadMetrics != nil {
		return app.reloadMetrics
	}
	m := observability.NewMetrics("pokeproxy")
	app.reloadMetrics = newReloadMetrics(m)
	return app.reloadMetrics
}

// startConfigWatcher starts the configuration watcher. Reload failures
// (unreadable or invalid new config) keep the old config active and are
// counted as errored reloads.
func startConfigWatcher(
	ctx context.Context,
	app *application,
	configPath string,
	logger observability.Logger,
) *config.Watcher {
	rm := ensureReloadMetrics(app)

	watcher, err := config.NewWatcher(configPath, func(newCfg *config.Config) {
		logger.Info("configuration changed, reloading")
		reloadComponents(app, newCfg, logger)
	},
		config.WithLogger(logger),
		config.WithErrorCallback(func(error) {
			rm.configReloadTotal.WithLabelValues("error").Inc()
		}),
	)

	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		rm.configWatcherStatus.Set(0)
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		rm.configWatcherStatus.Set(0)
		return watcher
	}

	rm.configWatcherStatus.Set(1)
	return watcher
}

// reloadComponents applies a validated new configuration to the running
// components. Upstream transport settings and the logging level are applied
// live; identity-critical settings (listen address, upstream base URL,
// allowed origin, metrics and tracing wiring) require a restart.
func reloadComponents(app *application, newCfg *config.Config, logger observability.Logger) {
	start := time.Now()
	rm := ensureReloadMetrics(app)

	// The upstream client keeps the base URL it was created with.
	if newCfg.Upstream.BaseURL != app.config.Upstream.BaseURL {
		logger.Warn("upstream base URL has changed but is NOT hot-reloaded; "+
			"restart the proxy to apply it",
			observability.String("old", app.config.Upstream.BaseURL),
			observability.String("new", newCfg.Upstream.BaseURL),
		)
	}

	// Swap upstream transport settings (timeout, pool sizing).
	if app.client != nil && upstreamTransportChanged(app.config.Upstream, newCfg.Upstream) {
		app.client.Reload(newCfg.Upstream)
		rm.configReloadComponentTotal.WithLabelValues("upstream", "success").Inc()
	}

	// Adjust the logging level in place when the logger supports it.
	if newCfg.Observability.Logging.Level != app.config.Observability.Logging.Level {
		if ls, ok := logger.(observability.LevelSetter); ok {
			if err := ls.SetLevel(newCfg.Observability.Logging.Level); err != nil {
				logger.Error("failed to update log level",
					observability.String("level", newCfg.Observability.Logging.Level),
					observability.Error(err),
				)
				rm.configReloadComponentTotal.WithLabelValues("log_level", "error").Inc()
			} else {
				logger.Info("log level updated",
					observability.String("level", newCfg.Observability.Logging.Level),
				)
				rm.configReloadComponentTotal.WithLabelValues("log_level", "success").Inc()
			}
		}
	}

	// The listener, the CORS middleware, and the metrics/tracing wiring are
	// fixed at startup.
	if configSectionChanged(app.config.Server, newCfg.Server) {
		logger.Warn("server configuration has changed but the listener is NOT hot-reloaded; " +
			"restart the proxy to apply server changes")
	}
	if configSectionChanged(app.config.CORS, newCfg.CORS) {
		logger.Warn("CORS configuration has changed but the CORS middleware is NOT hot-reloaded; " +
			"restart the proxy to apply CORS changes")
	}
	if configSectionChanged(app.config.Observability.Metrics, newCfg.Observability.Metrics) ||
		configSectionChanged(app.config.Observability.Tracing, newCfg.Observability.Tracing) {
		logger.Warn("metrics/tracing configuration has changed but is NOT hot-reloaded; " +
			"restart the proxy to apply observability changes")
	}

	app.config = newCfg

	rm.configReloadTotal.WithLabelValues("success").Inc()
	rm.configReloadDuration.Observe(time.Since(start).Seconds())
	rm.configReloadLastSuccess.SetToCurrentTime()

	logger.Info("configuration reload applied")
}

// upstreamTransportChanged reports whether any hot-reloadable upstream
// transport setting differs. The base URL is excluded; it is fixed at
// startup.
func upstreamTransportChanged(oldCfg, newCfg config.UpstreamConfig) bool {
	oldCfg.BaseURL = ""
	newCfg.BaseURL = ""
	return configSectionChanged(oldCfg, newCfg)
}

// configSectionHash computes a SHA-256 hash of a configuration section
// for fast change detection.
func configSectionHash(v interface{}) ([sha256.Size]byte, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return [sha256.Size]byte{}, false
	}
	return sha256.Sum256(data), true
}

// configSectionChanged compares two configuration sections by SHA-256 hash,
// falling back to reflect.DeepEqual when a section cannot be marshaled.
func configSectionChanged(oldSection, newSection interface{}) bool {
	oldHash, oldOK := configSectionHash(oldSection)
	newHash, newOK := configSectionHash(newSection)
	if oldOK && newOK {
		return oldHash != newHash
	}
	return !reflect.DeepEqual(oldSection, newSection)
}
