// ABOUTME: Liveness supervisor: periodic sweep that evicts stale connections
// ABOUTME: Sends heartbeat control frames to duplex connections that remain live

package gateway

import (
	"encoding/json"
	"time"
)

// runSupervisor is the single recurring task owned by the gateway. Each tick
// evicts connections idle past the connection timeout, then heartbeats the
// surviving duplex connections. It exits when Stop closes stopCh.
func (g *Gateway) runSupervisor() {
	defer close(g.done)

	ticker := time.NewTicker(g.settings.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopCh:
			return
		case <-ticker.C:
			g.sweep(g.now())
		}
	}
}

// sweep runs one supervisor tick. One-way connections get no heartbeat:
// their only activity source is successful delivery, so an idle one-way
// subscriber is evicted after the timeout even while still connected.
func (g *Gateway) sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.Add(-g.settings.ConnectionTimeout)
	for _, rec := range g.store.All() {
		if rec.LastActivity.Before(cutoff) {
			g.evictLocked(rec.ID, "idle timeout")
		}
	}

	frame, err := json.Marshal(replyFrame{Type: FrameHeartbeat, Timestamp: now.UnixMilli()})
	if err != nil {
		return
	}
	for _, rec := range g.store.All() {
		if rec.Kind != KindDuplex {
			continue
		}
		if err := rec.Duplex.WriteFrame(frame); err != nil {
			g.logger.Warn("heartbeat write failed", "conn_id", rec.ID, "error", err)
			g.evictLocked(rec.ID, "heartbeat failed")
		}
	}
}
