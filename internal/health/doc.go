// Package health provides liveness, readiness and health check endpoints
// for the PokeAPI proxy.
//
// The Handler runs registered checks concurrently with a configurable
// probe timeout and reports per-check results. Readiness additionally
// honors a draining flag set during graceful shutdown so load balancers
// stop routing traffic before the listener closes.
//
// # Usage
//
//	handler := health.NewHandler(logger)
//	handler.AddCheck(health.NewCachedHealthCheck(
//	    health.UpstreamHealthCheck("upstream", client.BaseURL(), 5*time.Second),
//	    10*time.Second,
//	))
//
//	mux.Handle("/health", handler.HealthHandler())
//	mux.Handle("/ready", handler.ReadinessHandler())
//	mux.Handle("/live", handler.LivenessHandler())
package health
