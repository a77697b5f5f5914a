// ABOUTME: Delivery engine implementing broadcast, multicast, and unicast
// ABOUTME: Stamps each envelope once and isolates per-connection write failures

package gateway

import "encoding/json"

// Broadcast delivers the envelope to every connection subscribed to its
// channel; the reserved "broadcast" channel reaches every connection
// regardless of subscription. A transport failure evicts only the failing
// connection and never aborts delivery to the rest.
func (g *Gateway) Broadcast(env *Envelope) {
	g.mu.Lock()
	defer g.mu.Unlock()

	env.Timestamp = g.clock.stamp()
	universal := env.Channel == BroadcastChannel
	for _, rec := range g.store.All() {
		if !universal && !rec.subscribed(env.Channel) {
			continue
		}
		g.deliverLocked(rec, env)
	}
}

// Multicast delivers the envelope to the current members of channel. Unlike
// Broadcast it never applies the universal "broadcast" rule.
func (g *Gateway) Multicast(channel string, env *Envelope) {
	g.mu.Lock()
	defer g.mu.Unlock()

	env.Timestamp = g.clock.stamp()
	members := g.index.memberSet(channel)
	if len(members) == 0 {
		return
	}
	// Visit members in store order so delivery order stays stable.
	for _, rec := range g.store.All() {
		if _, ok := members[rec.ID]; !ok {
			continue
		}
		g.deliverLocked(rec, env)
	}
}

// Unicast delivers the envelope to every connection whose identity matches
// userID, bypassing the subscription filter entirely. An unknown user is a
// silent no-op.
func (g *Gateway) Unicast(userID string, env *Envelope) {
	g.mu.Lock()
	defer g.mu.Unlock()

	env.Timestamp = g.clock.stamp()
	for _, rec := range g.store.All() {
		if rec.Identity == nil || rec.Identity.UserID != userID {
			continue
		}
		g.deliverLocked(rec, env)
	}
}

// deliverLocked routes one envelope to one connection: direct write for
// duplex, enqueue plus best-effort drain for one-way. Both receive the same
// envelope instance with the same timestamp.
func (g *Gateway) deliverLocked(rec *ConnectionRecord, env *Envelope) {
	switch rec.Kind {
	case KindDuplex:
		data, err := json.Marshal(env)
		if err != nil {
			g.logger.Error("envelope not marshalable", "conn_id", rec.ID, "type", env.Type, "error", err)
			return
		}
		if err := rec.Duplex.WriteFrame(data); err != nil {
			g.logger.Warn("duplex write failed", "conn_id", rec.ID, "error", err)
			g.evictLocked(rec.ID, "write failed")
			return
		}
		rec.LastActivity = g.now()
	case KindOneWay:
		rec.Queue.Enqueue(env)
		rec.LastActivity = g.now()
		g.drainLocked(rec)
	}
}

// drainLocked attempts to flush the one-way queue to its stream. Rejected
// envelopes stay queued; a stream error evicts the connection.
func (g *Gateway) drainLocked(rec *ConnectionRecord) {
	err := rec.Queue.Drain(func(env *Envelope) (bool, error) {
		data, merr := json.Marshal(env)
		if merr != nil {
			g.logger.Error("envelope not marshalable", "conn_id", rec.ID, "type", env.Type, "error", merr)
			return true, nil // skip it; nothing downstream can render it either
		}
		return rec.OneWay.PushEnvelope(data)
	})
	if err != nil {
		g.logger.Warn("one-way stream failed", "conn_id", rec.ID, "error", err)
		g.evictLocked(rec.ID, "stream failed")
	}
}
