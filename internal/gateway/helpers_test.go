// ABOUTME: Shared test fakes and constructors for gateway package tests
// ABOUTME: Provides fake transport handles and a manually advanced clock

package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeDuplex records written frames and can be told to fail writes.
type fakeDuplex struct {
	frames   [][]byte
	writeErr error
	closed   bool
}

func (f *fakeDuplex) WriteFrame(data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeDuplex) Close() error {
	f.closed = true
	return nil
}

// fakeOneWay records accepted pushes. rejectAll simulates transient
// backpressure; a non-nil pushErr makes every push fail hard.
type fakeOneWay struct {
	pushed    [][]byte
	rejectAll bool
	pushErr   error
	closed    bool
}

func (f *fakeOneWay) PushEnvelope(data []byte) (bool, error) {
	if f.pushErr != nil {
		return false, f.pushErr
	}
	if f.rejectAll {
		return false, nil
	}
	f.pushed = append(f.pushed, data)
	return true, nil
}

func (f *fakeOneWay) Close() error {
	f.closed = true
	return nil
}

// testClock is a manually advanced clock for deterministic sweeps.
type testClock struct {
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func testSettings(clock *testClock) Settings {
	s := Settings{
		EnableDuplex:      true,
		EnableOneWay:      true,
		MaxConnections:    16,
		HeartbeatInterval: 30 * time.Second,
		ConnectionTimeout: 60 * time.Second,
		OutboundQueueSize: 4,
	}
	if clock != nil {
		s.Clock = clock.Now
	}
	return s
}

func newTestGateway(t *testing.T, clock *testClock) *Gateway {
	t.Helper()
	gw, err := New(testSettings(clock), nil)
	require.NoError(t, err)
	return gw
}

func acceptDuplex(t *testing.T, gw *Gateway, id string, identity *Identity) *fakeDuplex {
	t.Helper()
	dt := &fakeDuplex{}
	require.NoError(t, gw.Accept(AcceptRequest{ID: id, Kind: KindDuplex, Identity: identity, Duplex: dt}))
	return dt
}

func acceptOneWay(t *testing.T, gw *Gateway, id string, identity *Identity, channels ...string) *fakeOneWay {
	t.Helper()
	ow := &fakeOneWay{}
	require.NoError(t, gw.Accept(AcceptRequest{ID: id, Kind: KindOneWay, Identity: identity, OneWay: ow, InitialChannels: channels}))
	return ow
}

func decodeEnvelope(t *testing.T, data []byte) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func decodeReply(t *testing.T, data []byte) replyFrame {
	t.Helper()
	var frame replyFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func controlJSON(t *testing.T, frameType FrameType, channel string) []byte {
	t.Helper()
	data, err := json.Marshal(ControlFrame{Type: frameType, Channel: channel})
	require.NoError(t, err)
	return data
}
