// ABOUTME: HTTP connect handlers that turn requests into gateway connections
// ABOUTME: Enforces admission control and identity resolution before handoff

package transport

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/2389/pulse-gateway/internal/auth"
	"github.com/2389/pulse-gateway/internal/gateway"
)

// Config wires a Handler to its gateway and collaborators.
type Config struct {
	Gateway *gateway.Gateway
	// Verifier validates bearer tokens. Nil disables auth: every
	// connection is anonymous.
	Verifier auth.TokenVerifier
	// AllowAnonymous admits tokenless connections when a verifier is set.
	AllowAnonymous bool
	// MaxConnections is the admission limit enforced before handoff.
	MaxConnections int
	Logger         *slog.Logger
}

// Handler serves the connect endpoints: WebSocket upgrade for duplex
// connections and SSE for one-way streams. It owns everything that must
// happen before a connection reaches the gateway: identity resolution,
// admission control, and transport handle construction.
type Handler struct {
	gw             *gateway.Gateway
	verifier       auth.TokenVerifier
	allowAnonymous bool
	maxConnections int
	logger         *slog.Logger
}

// NewHandler creates a Handler. Pass nil logger for the default.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		gw:             cfg.Gateway,
		verifier:       cfg.Verifier,
		allowAnonymous: cfg.AllowAnonymous,
		maxConnections: cfg.MaxConnections,
		logger:         logger.With("component", "transport"),
	}
}

// ErrAuthRequired indicates a tokenless request when anonymous connections
// are disabled.
var ErrAuthRequired = errors.New("authentication required")

// resolveIdentity extracts the connection identity from the request's bearer
// token. The Authorization header wins; EventSource and browser WebSocket
// clients cannot set headers, so an access_token query parameter is also
// accepted. Returns nil identity for anonymous connections.
func (h *Handler) resolveIdentity(r *http.Request) (*gateway.Identity, error) {
	token := bearerToken(r)
	if token == "" {
		if h.verifier != nil && !h.allowAnonymous {
			return nil, ErrAuthRequired
		}
		return nil, nil
	}
	if h.verifier == nil {
		// Auth disabled: a supplied token is ignored, not validated.
		return nil, nil
	}
	userID, role, err := h.verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	return &gateway.Identity{UserID: userID, Role: role}, nil
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	if header := r.Header.Get("Authorization"); len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return r.URL.Query().Get("access_token")
}

// admit applies the admission boundary: the gateway itself has no internal
// capacity control, so the caller must reject before handoff.
func (h *Handler) admit(w http.ResponseWriter) bool {
	if h.gw.ConnectionCount() >= h.maxConnections {
		http.Error(w, "connection limit reached", http.StatusServiceUnavailable)
		return false
	}
	return true
}
