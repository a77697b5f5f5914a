// ABOUTME: Tests for identity resolution and admission control
// ABOUTME: Exercises bearer token extraction and the anonymous policy

package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/pulse-gateway/internal/auth"
	"github.com/2389/pulse-gateway/internal/gateway"
)

func newTestGateway(t *testing.T) *gateway.Gateway {
	t.Helper()
	gw, err := gateway.New(gateway.Settings{
		EnableDuplex:      true,
		EnableOneWay:      true,
		MaxConnections:    16,
		HeartbeatInterval: 30 * time.Second,
		ConnectionTimeout: 60 * time.Second,
		OutboundQueueSize: 8,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(gw.Stop)
	return gw
}

func testVerifier(t *testing.T) *auth.JWTVerifier {
	t.Helper()
	return auth.NewJWTVerifier([]byte("test-secret"))
}

func TestHandler_ResolveIdentityAnonymous(t *testing.T) {
	h := NewHandler(Config{Gateway: newTestGateway(t), MaxConnections: 16})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	identity, err := h.resolveIdentity(req)
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestHandler_ResolveIdentityBearerHeader(t *testing.T) {
	verifier := auth.NewJWTVerifier([]byte("test-secret"))
	token, err := verifier.Generate("user-42", "admin", time.Hour)
	require.NoError(t, err)

	h := NewHandler(Config{
		Gateway:        newTestGateway(t),
		Verifier:       verifier,
		AllowAnonymous: true,
		MaxConnections: 16,
	})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	identity, err := h.resolveIdentity(req)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "user-42", identity.UserID)
	assert.Equal(t, "admin", identity.Role)
}

func TestHandler_ResolveIdentityQueryParam(t *testing.T) {
	verifier := auth.NewJWTVerifier([]byte("test-secret"))
	token, err := verifier.Generate("user-7", "", time.Hour)
	require.NoError(t, err)

	h := NewHandler(Config{
		Gateway:        newTestGateway(t),
		Verifier:       verifier,
		AllowAnonymous: true,
		MaxConnections: 16,
	})

	req := httptest.NewRequest(http.MethodGet, "/events?access_token="+token, nil)
	identity, err := h.resolveIdentity(req)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "user-7", identity.UserID)
}

func TestHandler_ResolveIdentityInvalidToken(t *testing.T) {
	h := NewHandler(Config{
		Gateway:        newTestGateway(t),
		Verifier:       auth.NewJWTVerifier([]byte("test-secret")),
		AllowAnonymous: true,
		MaxConnections: 16,
	})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	_, err := h.resolveIdentity(req)
	assert.Error(t, err)
}

func TestHandler_ResolveIdentityAnonymousDisallowed(t *testing.T) {
	h := NewHandler(Config{
		Gateway:        newTestGateway(t),
		Verifier:       auth.NewJWTVerifier([]byte("test-secret")),
		AllowAnonymous: false,
		MaxConnections: 16,
	})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	_, err := h.resolveIdentity(req)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestHandler_AdmitRejectsWhenFull(t *testing.T) {
	gw := newTestGateway(t)
	require.NoError(t, gw.Accept(gateway.AcceptRequest{
		ID:     "occupant",
		Kind:   gateway.KindOneWay,
		OneWay: nopOneWay{},
	}))

	h := NewHandler(Config{Gateway: gw, MaxConnections: 1})
	rec := httptest.NewRecorder()
	assert.False(t, h.admit(rec))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type nopOneWay struct{}

func (nopOneWay) PushEnvelope([]byte) (bool, error) { return true, nil }
func (nopOneWay) Close() error                      { return nil }
