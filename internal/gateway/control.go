// ABOUTME: Inbound control frame handling for duplex connections
// ABOUTME: Parses subscribe/unsubscribe/ping frames and sends acknowledgements

package gateway

import "encoding/json"

// HandleFrame processes one control frame received on a duplex connection.
// Any inbound frame, even a malformed one, counts as connection activity.
// Malformed frames and unknown types are dropped without a reply; the
// connection stays alive.
func (g *Gateway) HandleFrame(connID string, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.store.Get(connID)
	if !ok || rec.Kind != KindDuplex {
		return
	}
	rec.LastActivity = g.now()

	var frame ControlFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		g.logger.Debug("dropping malformed frame", "conn_id", connID, "error", err)
		return
	}

	switch frame.Type {
	case FrameSubscribe:
		if frame.Channel == "" {
			return
		}
		g.index.Subscribe(connID, frame.Channel)
		g.replyLocked(rec, FrameSubscribed, frame.Channel)
	case FrameUnsubscribe:
		if frame.Channel == "" {
			return
		}
		g.index.Unsubscribe(connID, frame.Channel)
		g.replyLocked(rec, FrameUnsubscribed, frame.Channel)
	case FramePing:
		g.replyLocked(rec, FramePong, "")
	default:
		g.logger.Debug("ignoring unknown control frame", "conn_id", connID, "type", string(frame.Type))
	}
}

// HandleActivity marks the connection live without processing a frame. The
// transport layer calls this for protocol-level signs of life such as
// WebSocket pongs.
func (g *Gateway) HandleActivity(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rec, ok := g.store.Get(connID); ok {
		rec.LastActivity = g.now()
	}
}

// replyLocked sends an acknowledgement control frame. A write failure here
// follows the same per-connection eviction rule as delivery.
func (g *Gateway) replyLocked(rec *ConnectionRecord, frameType FrameType, channel string) {
	data, err := json.Marshal(replyFrame{
		Type:      frameType,
		Channel:   channel,
		Timestamp: g.now().UnixMilli(),
	})
	if err != nil {
		return
	}
	if err := rec.Duplex.WriteFrame(data); err != nil {
		g.logger.Warn("reply write failed", "conn_id", rec.ID, "type", string(frameType), "error", err)
		g.evictLocked(rec.ID, "write failed")
	}
}
