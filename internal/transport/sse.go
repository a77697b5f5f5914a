// ABOUTME: Server-Sent Events one-way transport adapter and connect handler
// ABOUTME: Streams queued envelopes to EventSource clients with backpressure

package transport

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/pulse-gateway/internal/gateway"
)

// eventStream adapts an SSE response to the gateway's one-way transport
// interface. Writes happen on the handler goroutine's response writer from
// gateway goroutines, which net/http permits until the handler returns;
// Close unblocks the handler so it can return, and the done channel is the
// only coordination between the two.
type eventStream struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	closeOnce sync.Once
	done      chan struct{}
}

func newEventStream(w http.ResponseWriter) *eventStream {
	return &eventStream{
		w:    w,
		rc:   http.NewResponseController(w),
		done: make(chan struct{}),
	}
}

// PushEnvelope writes one SSE data event. A write deadline turns a stalled
// client into a transient rejection rather than a wedged gateway; the
// envelope stays queued and is retried on the next delivery.
func (s *eventStream) PushEnvelope(data []byte) (bool, error) {
	if err := s.rc.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return false, err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return false, nil
		}
		return false, err
	}
	if err := s.rc.Flush(); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *eventStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// HandleEvents registers a one-way SSE connection with the gateway. Initial
// subscriptions come from the channels query parameter, comma-separated;
// one-way connections cannot change them afterwards.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolveIdentity(r)
	if err != nil {
		h.logger.Debug("rejected sse connect", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !h.admit(w) {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	stream := newEventStream(w)
	if err := stream.rc.Flush(); err != nil {
		h.logger.Debug("sse stream not flushable", "error", err)
		return
	}

	connID := uuid.New().String()
	if err := h.gw.Accept(gateway.AcceptRequest{
		ID:              connID,
		Kind:            gateway.KindOneWay,
		Identity:        identity,
		OneWay:          stream,
		InitialChannels: parseChannels(r.URL.Query().Get("channels")),
	}); err != nil {
		h.logger.Warn("gateway rejected sse connection", "error", err)
		return
	}

	h.logger.Info("sse connected", "conn_id", connID, "remote", r.RemoteAddr)

	select {
	case <-r.Context().Done():
		h.gw.HandleTransportClosed(connID)
	case <-stream.done:
		// Gateway evicted the connection; the handler just returns.
	}
}

func parseChannels(raw string) []string {
	if raw == "" {
		return nil
	}
	var channels []string
	for _, ch := range strings.Split(raw, ",") {
		if ch = strings.TrimSpace(ch); ch != "" {
			channels = append(channels, ch)
		}
	}
	return channels
}
