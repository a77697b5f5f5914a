// ABOUTME: Tests for the delivery engine: broadcast, multicast, unicast
// ABOUTME: Covers failure isolation, timestamp stamping, and one-way queue paths

package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelivery_MulticastReachesSubscribedConnection(t *testing.T) {
	gw := newTestGateway(t, nil)
	x := acceptDuplex(t, gw, "x", nil)
	gw.HandleFrame("x", controlJSON(t, FrameSubscribe, "odds"))
	x.frames = nil // drop the subscribed ack

	gw.Multicast("odds", &Envelope{Type: "update", Channel: "odds", Payload: map[string]any{"line": -110}})

	require.Len(t, x.frames, 1)
	env := decodeEnvelope(t, x.frames[0])
	assert.Equal(t, "update", env.Type)
	assert.Equal(t, "odds", env.Channel)
	assert.NotZero(t, env.Timestamp)
	payload, ok := env.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(-110), payload["line"])
}

func TestDelivery_BroadcastChannelReachesEveryConnection(t *testing.T) {
	gw := newTestGateway(t, nil)
	subscribed := acceptDuplex(t, gw, "sub", nil)
	gw.HandleFrame("sub", controlJSON(t, FrameSubscribe, "odds"))
	subscribed.frames = nil
	unsubscribed := acceptDuplex(t, gw, "unsub", nil)
	stream := acceptOneWay(t, gw, "stream", nil)

	gw.Broadcast(&Envelope{Type: "notice", Channel: BroadcastChannel})

	assert.Len(t, subscribed.frames, 1)
	assert.Len(t, unsubscribed.frames, 1)
	assert.Len(t, stream.pushed, 1)
}

func TestDelivery_BroadcastFiltersBySubscription(t *testing.T) {
	gw := newTestGateway(t, nil)
	member := acceptDuplex(t, gw, "member", nil)
	gw.HandleFrame("member", controlJSON(t, FrameSubscribe, "odds"))
	member.frames = nil
	outsider := acceptDuplex(t, gw, "outsider", nil)

	gw.Broadcast(&Envelope{Type: "update", Channel: "odds"})

	assert.Len(t, member.frames, 1)
	assert.Empty(t, outsider.frames)
}

func TestDelivery_MulticastIgnoresUniversalRule(t *testing.T) {
	gw := newTestGateway(t, nil)
	outsider := acceptDuplex(t, gw, "outsider", nil)

	// Nobody subscribed to "broadcast" as a literal channel.
	gw.Multicast(BroadcastChannel, &Envelope{Type: "notice", Channel: BroadcastChannel})

	assert.Empty(t, outsider.frames)
}

func TestDelivery_WriteFailureEvictsOnlyFailingConnection(t *testing.T) {
	gw := newTestGateway(t, nil)
	broken := acceptDuplex(t, gw, "broken", nil)
	broken.writeErr = errors.New("peer reset")
	healthy := acceptDuplex(t, gw, "healthy", nil)

	gw.Broadcast(&Envelope{Type: "notice", Channel: BroadcastChannel})

	assert.Len(t, healthy.frames, 1)
	assert.True(t, broken.closed)
	assert.Equal(t, 1, gw.ConnectionCount())
}

func TestDelivery_UnicastBypassesSubscriptions(t *testing.T) {
	gw := newTestGateway(t, nil)
	mine := acceptDuplex(t, gw, "mine", &Identity{UserID: "u-1"})
	other := acceptDuplex(t, gw, "other", &Identity{UserID: "u-2"})
	anon := acceptDuplex(t, gw, "anon", nil)

	gw.Unicast("u-1", &Envelope{Type: "dm", Channel: "ignored", TargetUserID: "u-1"})

	assert.Len(t, mine.frames, 1)
	assert.Empty(t, other.frames)
	assert.Empty(t, anon.frames)
}

func TestDelivery_UnicastUnknownUserIsNoOp(t *testing.T) {
	gw := newTestGateway(t, nil)
	conn := acceptDuplex(t, gw, "x", &Identity{UserID: "u-1"})

	gw.Unicast("nonexistent-user", &Envelope{Type: "dm", Channel: "c"})

	assert.Empty(t, conn.frames)
	assert.Equal(t, 1, gw.ConnectionCount())
}

func TestDelivery_SameTimestampForAllRecipients(t *testing.T) {
	gw := newTestGateway(t, nil)
	a := acceptDuplex(t, gw, "a", nil)
	b := acceptDuplex(t, gw, "b", nil)

	gw.Broadcast(&Envelope{Type: "notice", Channel: BroadcastChannel})

	envA := decodeEnvelope(t, a.frames[0])
	envB := decodeEnvelope(t, b.frames[0])
	assert.Equal(t, envA.Timestamp, envB.Timestamp)
}

func TestDelivery_TimestampsMonotonicAcrossCalls(t *testing.T) {
	gw := newTestGateway(t, nil)
	a := acceptDuplex(t, gw, "a", nil)

	gw.Broadcast(&Envelope{Type: "first", Channel: BroadcastChannel})
	gw.Broadcast(&Envelope{Type: "second", Channel: BroadcastChannel})

	first := decodeEnvelope(t, a.frames[0])
	second := decodeEnvelope(t, a.frames[1])
	assert.LessOrEqual(t, first.Timestamp, second.Timestamp)
}

func TestDelivery_OneWayQueueKeepsLastNUnderBackpressure(t *testing.T) {
	settings := testSettings(nil)
	settings.OutboundQueueSize = 2
	gw, err := New(settings, nil)
	require.NoError(t, err)

	stream := acceptOneWay(t, gw, "y", nil, "feed")
	stream.rejectAll = true

	for _, typ := range []string{"A", "B", "C"} {
		gw.Multicast("feed", &Envelope{Type: typ, Channel: "feed"})
	}
	assert.Empty(t, stream.pushed)

	// Backpressure clears; the next drain delivers the surviving tail.
	stream.rejectAll = false
	gw.mu.Lock()
	rec, ok := gw.store.Get("y")
	require.True(t, ok)
	gw.drainLocked(rec)
	gw.mu.Unlock()

	require.Len(t, stream.pushed, 2)
	assert.Equal(t, "B", decodeEnvelope(t, stream.pushed[0]).Type)
	assert.Equal(t, "C", decodeEnvelope(t, stream.pushed[1]).Type)
}

func TestDelivery_OneWayStreamErrorEvicts(t *testing.T) {
	gw := newTestGateway(t, nil)
	stream := acceptOneWay(t, gw, "y", nil, "feed")
	stream.pushErr = errors.New("stream aborted")

	gw.Multicast("feed", &Envelope{Type: "update", Channel: "feed"})

	assert.True(t, stream.closed)
	assert.Equal(t, 0, gw.ConnectionCount())
}
