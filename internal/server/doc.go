// Package server provides the public HTTP server of the proxy.
//
// The server exposes three endpoints on a single gin engine: an index
// document describing the service, the /proxy/*path relay that forwards
// GET requests to the upstream PokeAPI, and a static OpenAPI document.
// Requests pass through recovery, logging, tracing, request metrics and
// CORS middleware before reaching a handler.
//
// Responses from the upstream are relayed verbatim unless the request
// carries a version or language query parameter. Those two parameters are
// reserved: they are stripped before forwarding and turned into a filter
// directive that prunes version- and language-tagged array elements from
// successful JSON responses.
package server
