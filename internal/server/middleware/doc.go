// Package middleware provides Gin middleware for the PokeAPI proxy:
// CORS for the single configured origin, request logging with request IDs,
// panic recovery, request metrics and OpenTelemetry tracing.
package middleware
