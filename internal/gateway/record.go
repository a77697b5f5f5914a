// ABOUTME: ConnectionRecord and the transport handle contracts for duplex and one-way connections
// ABOUTME: Records are pure state; all mutation flows through the Gateway's operations

package gateway

import "time"

// TransportKind distinguishes the two connection shapes the gateway serves.
type TransportKind int

const (
	// KindDuplex connections can receive writes and send control frames
	// (e.g. a WebSocket).
	KindDuplex TransportKind = iota
	// KindOneWay connections can only receive writes, delivered through a
	// bounded outbound queue (e.g. a server-sent event stream).
	KindOneWay
)

func (k TransportKind) String() string {
	switch k {
	case KindDuplex:
		return "duplex"
	case KindOneWay:
		return "oneway"
	default:
		return "unknown"
	}
}

// Identity is the pre-verified user attribution attached to a connection by
// the upstream authenticator. Connections without one are anonymous.
type Identity struct {
	UserID string
	Role   string
}

// DuplexTransport is the handle the transport layer hands over for a duplex
// connection. WriteFrame must be deadline-bounded: the gateway treats it as
// fire-and-forget and evicts the connection on any error.
type DuplexTransport interface {
	WriteFrame(data []byte) error
	Close() error
}

// OneWayTransport is the handle for a one-way push stream. PushEnvelope
// returns accepted=false on transient backpressure (the envelope stays
// queued for a later drain) and a non-nil error on a dead stream.
type OneWayTransport interface {
	PushEnvelope(data []byte) (accepted bool, err error)
	Close() error
}

// ConnectionRecord holds the per-connection state tracked by the gateway.
// Exactly one of Duplex or OneWay is set, matching Kind. The subscriptions
// set is mutated only through SubscriptionIndex operations so the index can
// stay consistent with it.
type ConnectionRecord struct {
	ID           string
	Identity     *Identity
	Kind         TransportKind
	ConnectedAt  time.Time
	LastActivity time.Time

	Duplex DuplexTransport
	OneWay OneWayTransport

	// Queue is present only for one-way connections.
	Queue *OutboundQueue

	subscriptions map[string]struct{}
}

// Subscriptions returns a copy of the record's subscribed channel names.
func (r *ConnectionRecord) Subscriptions() []string {
	out := make([]string, 0, len(r.subscriptions))
	for ch := range r.subscriptions {
		out = append(out, ch)
	}
	return out
}

func (r *ConnectionRecord) subscribed(channel string) bool {
	_, ok := r.subscriptions[channel]
	return ok
}

// closeTransport releases the underlying transport handle. A record must
// never outlive its handle, so every removal path ends here.
func (r *ConnectionRecord) closeTransport() {
	switch {
	case r.Duplex != nil:
		_ = r.Duplex.Close()
	case r.OneWay != nil:
		_ = r.OneWay.Close()
	}
}
