// ABOUTME: Package documentation for the transport package
// ABOUTME: Describes the connect endpoints and transport adapters

// Package transport serves the client-facing connect endpoints and adapts
// raw connections into gateway transports.
//
// # Endpoints
//
// Two endpoints exist, one per transport kind:
//
//   - GET /ws upgrades to a WebSocket and registers a duplex connection.
//     The client sends JSON control frames (subscribe, unsubscribe, ping)
//     and receives delivered envelopes plus acknowledgements and heartbeats.
//
//   - GET /events opens a Server-Sent Events stream and registers a one-way
//     connection. Initial subscriptions come from the channels query
//     parameter; the set is fixed for the connection's lifetime.
//
// # Identity
//
// Both endpoints accept a JWT bearer token in the Authorization header or,
// for clients that cannot set headers, an access_token query parameter.
// Requests with an invalid token get 401. Tokenless requests are admitted
// anonymously when allowed, rejected otherwise.
//
// # Admission
//
// The handler enforces the connection limit before handing a connection to
// the gateway and answers 503 when the gateway is full.
package transport
