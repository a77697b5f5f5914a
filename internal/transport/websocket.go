// ABOUTME: WebSocket duplex transport adapter and connect handler
// ABOUTME: Bridges gorilla/websocket connections onto the gateway

package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/2389/pulse-gateway/internal/gateway"
)

const (
	// writeDeadline bounds every frame write. The gateway delivers while
	// holding its lock, so a stalled peer must fail fast instead of
	// blocking delivery to everyone else.
	writeDeadline = 5 * time.Second

	// maxFrameSize caps inbound control frames. Clients only ever send
	// small JSON control frames, so anything larger is a protocol error.
	maxFrameSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Token auth is the trust boundary, not the Origin header.
		return true
	},
}

// duplexConn adapts a websocket connection to the gateway's duplex
// transport interface.
type duplexConn struct {
	ws *websocket.Conn
}

func (c *duplexConn) WriteFrame(data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *duplexConn) Close() error {
	return c.ws.Close()
}

// HandleWebSocket upgrades the request and registers the resulting duplex
// connection with the gateway. The read loop runs until the peer disconnects
// or the gateway closes the transport.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolveIdentity(r)
	if err != nil {
		h.logger.Debug("rejected websocket connect", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !h.admit(w) {
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.New().String()
	ws.SetReadLimit(maxFrameSize)
	ws.SetPongHandler(func(string) error {
		h.gw.HandleActivity(connID)
		return nil
	})

	if err := h.gw.Accept(gateway.AcceptRequest{
		ID:       connID,
		Kind:     gateway.KindDuplex,
		Identity: identity,
		Duplex:   &duplexConn{ws: ws},
	}); err != nil {
		h.logger.Warn("gateway rejected websocket connection", "error", err)
		ws.Close()
		return
	}

	h.logger.Info("websocket connected", "conn_id", connID, "remote", r.RemoteAddr)
	go h.readLoop(connID, ws)
}

// readLoop pumps inbound control frames into the gateway. Any read error,
// including the gateway closing the socket from its side, ends the
// connection.
func (h *Handler) readLoop(connID string, ws *websocket.Conn) {
	defer h.gw.HandleTransportClosed(connID)
	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read error", "conn_id", connID, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		h.gw.HandleFrame(connID, data)
	}
}
