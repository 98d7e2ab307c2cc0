// Package proxy provides the buffered upstream HTTP client for the
// PokeAPI proxy.
//
// This package fetches documents from the configured upstream API and
// returns them fully buffered so handlers can filter and relay them.
//
// # Features
//
//   - Pooled HTTP transport with configurable connection limits
//   - Per-request timeouts enforced via context
//   - Atomic transport swap on configuration reload
//   - Structured error types classifying timeouts and unreachable upstreams
//   - Upstream request metrics and trace propagation
//
// # Usage
//
// Create a client and fetch a document:
//
//	client, err := proxy.NewClient(cfg.Upstream, logger, metrics, tracer)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.Fetch(ctx, "pokemon/ditto", nil)
package proxy
