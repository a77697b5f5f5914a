// ABOUTME: Package documentation for the server package
// ABOUTME: Describes the HTTP surface and lifecycle management

// Package server assembles the running process: it builds the gateway from
// configuration, mounts the transport endpoints and operational routes on
// one HTTP server, and manages startup and graceful shutdown.
//
// # Routes
//
//   - /ws            WebSocket duplex connect (when enabled)
//   - /events        SSE one-way connect (when enabled)
//   - /api/stats     gateway connection and channel snapshot
//   - /health        liveness probe
//   - /health/ready  readiness probe, 503 at connection capacity
//
// # Lifecycle
//
// Run starts the gateway supervisor and the HTTP listener (TCP or Tailscale
// tsnet) and blocks until the context is canceled. Shutdown stops the
// gateway before the HTTP server: closing the transports first releases the
// long-lived SSE handler goroutines that would otherwise stall
// http.Server.Shutdown.
package server
