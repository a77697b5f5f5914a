// ABOUTME: Server orchestrator that wires the gateway behind an HTTP server
// ABOUTME: Manages routes, listeners, and graceful shutdown lifecycle

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"tailscale.com/tsnet"

	"github.com/2389/pulse-gateway/internal/auth"
	"github.com/2389/pulse-gateway/internal/config"
	"github.com/2389/pulse-gateway/internal/gateway"
	"github.com/2389/pulse-gateway/internal/transport"
)

// Server binds the gateway, transport handlers, and HTTP listener together.
type Server struct {
	config      *config.Config
	gw          *gateway.Gateway
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
}

// New creates a Server from the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	gw, err := gateway.New(gateway.Settings{
		EnableDuplex:      cfg.Gateway.EnableDuplex,
		EnableOneWay:      cfg.Gateway.EnableOneWay,
		MaxConnections:    cfg.Gateway.MaxConnections,
		HeartbeatInterval: cfg.Gateway.HeartbeatInterval,
		ConnectionTimeout: cfg.Gateway.ConnectionTimeout,
		OutboundQueueSize: cfg.Gateway.OutboundQueueSize,
	}, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config: cfg,
		gw:     gw,
		logger: logger.With("component", "server"),
	}

	handler := transport.NewHandler(transport.Config{
		Gateway:        gw,
		Verifier:       buildVerifier(cfg, logger),
		AllowAnonymous: cfg.Auth.AllowAnonymous,
		MaxConnections: cfg.Gateway.MaxConnections,
		Logger:         logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/ready", s.handleReady)
	mux.HandleFunc("/api/stats", s.handleStats)
	if cfg.Gateway.EnableDuplex {
		mux.HandleFunc("/ws", handler.HandleWebSocket)
	}
	if cfg.Gateway.EnableOneWay {
		mux.HandleFunc("/events", handler.HandleEvents)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// buildVerifier returns a JWT verifier when a secret is configured, nil
// otherwise (auth disabled).
func buildVerifier(cfg *config.Config, logger *slog.Logger) auth.TokenVerifier {
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth disabled - no jwt_secret configured")
		return nil
	}
	logger.Info("JWT auth enabled", "allow_anonymous", cfg.Auth.AllowAnonymous)
	return auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
}

// Gateway exposes the underlying gateway for publishing and inspection.
func (s *Server) Gateway() *gateway.Gateway {
	return s.gw
}

// Run starts the gateway and HTTP server and blocks until the context is
// canceled. Returns nil on graceful shutdown, or an error if a server fails.
func (s *Server) Run(ctx context.Context) error {
	httpLn, err := s.setupListener(ctx)
	if err != nil {
		return err
	}

	s.gw.Start()
	errCh := s.startHTTPServer(httpLn)
	serverErr := s.waitForShutdownSignal(ctx, errCh)

	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// setupListener creates the HTTP listener based on configuration
// (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled",
				"http_addr", s.config.Server.HTTPAddr,
			)
		}
		return s.setupTailscaleListener(ctx)
	}

	s.logger.Info("starting server", "http_addr", s.config.Server.HTTPAddr)
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// startHTTPServer serves HTTP in a goroutine, returning an error channel.
func (s *Server) startHTTPServer(httpLn net.Listener) chan error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := s.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()
	return errCh
}

// waitForShutdownSignal waits for context cancellation or a server error.
func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the gateway and the HTTP server. The gateway stops first:
// stopping it closes every live transport, which releases the SSE handler
// goroutines that would otherwise keep httpServer.Shutdown waiting forever.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	s.gw.Stop()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if s.tsnetServer != nil {
		if err := s.tsnetServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("tailscale shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the server can take connections, 503 when
// the gateway is at capacity.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	count := s.gw.ConnectionCount()
	if count >= s.config.Gateway.MaxConnections {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "at capacity (%d connections)", count)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d connections)", count)
}

// handleStats returns the gateway's connection and channel snapshot as JSON.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.gw.Stats()); err != nil {
		s.logger.Error("encoding stats", "error", err)
	}
}
