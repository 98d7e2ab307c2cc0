package main

import (
	"net/http"
	"time"

	"github.com/vyrodovalexey/pokeproxy/internal/config"
	"github.com/vyrodovalexey/pokeproxy/internal/filter"
	"github.com/vyrodovalexey/pokeproxy/internal/health"
	"github.com/vyrodovalexey/pokeproxy/internal/observability"
	"github.com/vyrodovalexey/pokeproxy/internal/proxy"
	"github.com/vyrodovalexey/pokeproxy/internal/server"
	"github.com/vyrodovalexey/pokeproxy/internal/server/middleware"
)

// Upstream health probe timeout and the TTL of its cached result.
const (
	upstreamCheckTimeout = 5 * time.Second
	upstreamCheckTTL     = 10 * time.Second
)

// application holds all application components.
type application struct {
	server        *server.Server
	client        *proxy.Client
	healthHandler *health.Handler
	metrics       *observability.Metrics
	reloadMetrics *reloadMetrics
	metricsServer *http.Server
	tracer        *observability.Tracer
	config        *config.Config
}

// initApplication initializes all application components.
func initApplication(cfg *config.Config, logger observability.Logger) *application {
	metrics := observability.NewMetrics("pokeproxy")
	metrics.InitVecMetrics()
	metrics.SetBuildInfo(version, gitCommit, buildTime)
	tracer := initTracer(cfg, logger)

	// Subsystem metric singletons use promauto against the default global
	// registry, but /metrics is served from the proxy's own registry, so
	// each singleton is registered there explicitly.
	registerSubsystemMetrics(metrics)

	proxy.UserAgent = "pokeproxy/" + version
	client, err := proxy.NewClient(cfg.Upstream, logger, metrics, tracer)
	if err != nil {
		fatalWithSync(logger, "failed to create upstream client", observability.Error(err))
		return nil // unreachable in production; allows test to continue
	}

	healthHandler := health.NewHandler(logger)
	healthHandler.SetVersion(version)
	healthHandler.AddCheck(health.NewCachedHealthCheck(
		health.UpstreamHealthCheck("upstream", client.BaseURL(), upstreamCheckTimeout),
		upstreamCheckTTL,
	))

	srv := server.NewServer(cfg, client, logger, metrics)

	return &application{
		server:        srv,
		client:        client,
		healthHandler: healthHandler,
		metrics:       metrics,
		reloadMetrics: newReloadMetrics(metrics),
		tracer:        tracer,
		config:        cfg,
	}
}

// initTracer initializes the tracer.
func initTracer(cfg *config.Config, logger observability.Logger) *observability.Tracer {
	tracerCfg := observability.TracerConfig{
		ServiceName:  "pokeproxy",
		Enabled:      cfg.Observability.Tracing.Enabled,
		OTLPEndpoint: cfg.Observability.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Observability.Tracing.SamplingRate,
	}
	if cfg.Observability.Tracing.ServiceName != "" {
		tracerCfg.ServiceName = cfg.Observability.Tracing.ServiceName
	}

	tracer, err := observability.NewTracer(tracerCfg)
	if err != nil {
		fatalWithSync(logger, "failed to initialize tracer", observability.Error(err))
		return nil // unreachable in production; allows test to continue
	}

	return tracer
}

// registerSubsystemMetrics registers the filter, health, and middleware
// metric singletons with the proxy's registry and initializes their label
// combinations so they appear on /metrics with zero values.
func registerSubsystemMetrics(metrics *observability.Metrics) {
	registry := metrics.Registry()

	filterMetrics := filter.GetFilterMetrics()
	filterMetrics.MustRegister(registry)
	filterMetrics.Init()

	healthMetrics := health.GetHealthMetrics()
	healthMetrics.MustRegister(registry)
	healthMetrics.Init()

	mwMetrics := middleware.GetMiddlewareMetrics()
	mwMetrics.MustRegister(registry)
	mwMetrics.Init()
}
