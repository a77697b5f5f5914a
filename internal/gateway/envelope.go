// ABOUTME: Envelope and control frame wire types exchanged with connected clients
// ABOUTME: Defines the closed set of frame kinds and the monotonic delivery clock

package gateway

import "time"

// BroadcastChannel is the reserved channel name meaning "deliver to every
// connection regardless of subscription".
const BroadcastChannel = "broadcast"

// Envelope is the unit of delivery pushed to connected clients. The gateway
// treats Channel as an opaque topic name and never inspects Payload.
type Envelope struct {
	Type         string         `json:"type"`
	Channel      string         `json:"channel"`
	Payload      any            `json:"payload"`
	Timestamp    int64          `json:"timestamp"` // unix milliseconds, stamped by the delivery engine
	SenderID     string         `json:"senderId,omitempty"`
	TargetUserID string         `json:"targetUserId,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// FrameType discriminates control frames. The set is closed: anything else
// arriving on a duplex connection is ignored.
type FrameType string

// Inbound control frame types (client -> gateway).
const (
	FrameSubscribe   FrameType = "subscribe"
	FrameUnsubscribe FrameType = "unsubscribe"
	FramePing        FrameType = "ping"
)

// Outbound control frame types (gateway -> client).
const (
	FrameSubscribed   FrameType = "subscribed"
	FrameUnsubscribed FrameType = "unsubscribed"
	FramePong         FrameType = "pong"
	FrameHeartbeat    FrameType = "heartbeat"
)

// ControlFrame is the inbound control frame wire shape.
type ControlFrame struct {
	Type    FrameType `json:"type"`
	Channel string    `json:"channel,omitempty"`
}

// replyFrame is the outbound control frame wire shape. Acknowledgements echo
// the channel; pong and heartbeat carry only a timestamp.
type replyFrame struct {
	Type      FrameType `json:"type"`
	Channel   string    `json:"channel,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// deliveryClock issues monotonic non-decreasing unix-millisecond timestamps.
// Each delivery engine call stamps its envelope exactly once; a queued
// envelope keeps its stamp across drain attempts.
type deliveryClock struct {
	now  func() time.Time
	last int64
}

func (c *deliveryClock) stamp() int64 {
	ts := c.now().UnixMilli()
	if ts < c.last {
		ts = c.last
	}
	c.last = ts
	return ts
}
