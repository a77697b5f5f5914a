// Package gateway is the real-time pub/sub core of pulse-gateway.
//
// # Overview
//
// The gateway accepts long-lived client connections handed over by the
// transport layer, tracks their channel subscriptions and identity, and
// delivers envelopes to them via broadcast, channel multicast, or
// identity-targeted unicast.
//
// Two connection shapes exist:
//
//   - Duplex: the client can send control frames back (WebSocket). Writes go
//     directly to the transport.
//   - One-way: server-push only (SSE). Writes pass through a bounded
//     drop-oldest outbound queue that is drained opportunistically.
//
// # Components
//
//   - Store (store.go): per-connection records, insertion-ordered.
//   - SubscriptionIndex (subscriptions.go): channel -> connection id cache,
//     kept consistent with record subscription sets on every mutation.
//   - OutboundQueue (queue.go): bounded FIFO for one-way streams.
//   - Delivery engine (delivery.go): Broadcast / Multicast / Unicast.
//   - Liveness supervisor (supervisor.go): periodic eviction sweep plus
//     duplex heartbeats.
//   - Control handler (control.go): subscribe / unsubscribe / ping frames.
//
// # Concurrency
//
// One mutex serializes every mutating operation end to end. Transport writes
// are required to be deadline-bounded, so holding the lock across a delivery
// loop cannot park the gateway on a slow peer. There is no backpressure
// signal from duplex transports; the only explicit bound is the one-way
// outbound queue.
//
// # Lifecycle
//
//	gw, err := gateway.New(settings, logger)
//	gw.Start()                  // launches the supervisor task
//	err = gw.Accept(req)        // transport layer hands over connections
//	gw.Broadcast(env)           // application code pushes envelopes
//	gw.Stop()                   // joins the supervisor, closes every handle
//
// Stop returns only after the supervisor task has exited and every remaining
// transport handle has been closed: no record outlives its handle, and no
// handle outlives its record.
//
// # Delivery guarantees
//
// At-most-once. Within one delivery call every eligible connection receives
// the same envelope instance with the same timestamp; timestamps are
// monotonic non-decreasing across calls. One-way queues preserve FIFO order
// per connection. Nothing is redelivered after eviction, and queue overflow
// silently drops the oldest entries.
package gateway
