// ABOUTME: Gateway core owning the connection store, subscription index, and lifecycle
// ABOUTME: Handles connection accept, eviction, stats, and supervisor start/stop

package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Accept and lifecycle errors.
var (
	ErrAlreadyConnected = errors.New("connection id already registered")
	ErrMissingTransport = errors.New("missing transport handle")
	ErrStopped          = errors.New("gateway stopped")
)

// Settings holds the gateway's operating parameters. All fields are
// required; Validate rejects zero values rather than substituting defaults.
type Settings struct {
	EnableDuplex      bool
	EnableOneWay      bool
	MaxConnections    int
	HeartbeatInterval time.Duration
	ConnectionTimeout time.Duration
	OutboundQueueSize int

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Validate checks the settings for usability.
func (s Settings) Validate() error {
	if !s.EnableDuplex && !s.EnableOneWay {
		return errors.New("at least one of EnableDuplex/EnableOneWay must be set")
	}
	if s.MaxConnections <= 0 {
		return errors.New("MaxConnections must be positive")
	}
	if s.HeartbeatInterval <= 0 {
		return errors.New("HeartbeatInterval must be positive")
	}
	if s.ConnectionTimeout <= 0 {
		return errors.New("ConnectionTimeout must be positive")
	}
	if s.OutboundQueueSize <= 0 {
		return errors.New("OutboundQueueSize must be positive")
	}
	return nil
}

// Gateway tracks long-lived client connections, their channel subscriptions
// and identity, and delivers envelopes to them. One mutex serializes every
// mutating operation end to end, so no operation ever observes a half-applied
// subscribe, eviction, or sweep.
type Gateway struct {
	mu       sync.Mutex
	settings Settings
	store    *Store
	index    *SubscriptionIndex
	clock    deliveryClock
	logger   *slog.Logger

	started bool
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates a gateway with the given settings. Pass nil logger for the
// default.
func New(settings Settings, logger *slog.Logger) (*Gateway, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("gateway settings: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	now := settings.Clock
	if now == nil {
		now = time.Now
	}
	store := NewStore()
	return &Gateway{
		settings: settings,
		store:    store,
		index:    NewSubscriptionIndex(store),
		clock:    deliveryClock{now: now},
		logger:   logger.With("component", "gateway"),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (g *Gateway) now() time.Time {
	return g.clock.now()
}

// Start launches the liveness supervisor. Starting twice is a no-op.
func (g *Gateway) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started || g.stopped {
		return
	}
	g.started = true
	go g.runSupervisor()
	g.logger.Info("gateway started",
		"heartbeat_interval", g.settings.HeartbeatInterval,
		"connection_timeout", g.settings.ConnectionTimeout,
	)
}

// Stop halts the supervisor, waits for it to finish, and evicts every
// remaining connection, closing its transport handle. Stop returns only once
// the supervisor task has fully exited; stopping twice is a no-op.
func (g *Gateway) Stop() {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.stopped = true
	wasStarted := g.started
	g.mu.Unlock()

	close(g.stopCh)
	if wasStarted {
		<-g.done
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, rec := range g.store.All() {
		g.evictLocked(rec.ID, "gateway stopped")
	}
	g.logger.Info("gateway stopped")
}

// AcceptRequest is the connection handoff contract from the transport layer.
// Identity, when present, arrives pre-verified by the upstream authenticator.
// InitialChannels applies to one-way connections only, which have no other
// way to subscribe.
type AcceptRequest struct {
	ID              string
	Kind            TransportKind
	Identity        *Identity
	Duplex          DuplexTransport
	OneWay          OneWayTransport
	InitialChannels []string
}

// Accept registers a newly established connection. Admission control
// (MaxConnections) is the caller's responsibility before handoff.
func (g *Gateway) Accept(req AcceptRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return ErrStopped
	}
	if _, exists := g.store.Get(req.ID); exists {
		return ErrAlreadyConnected
	}
	switch req.Kind {
	case KindDuplex:
		if req.Duplex == nil {
			return ErrMissingTransport
		}
	case KindOneWay:
		if req.OneWay == nil {
			return ErrMissingTransport
		}
	default:
		return fmt.Errorf("unknown transport kind %d", req.Kind)
	}

	now := g.now()
	rec := &ConnectionRecord{
		ID:            req.ID,
		Identity:      req.Identity,
		Kind:          req.Kind,
		ConnectedAt:   now,
		LastActivity:  now,
		Duplex:        req.Duplex,
		OneWay:        req.OneWay,
		subscriptions: make(map[string]struct{}),
	}
	if req.Kind == KindOneWay {
		rec.Queue = NewOutboundQueue(g.settings.OutboundQueueSize)
	}
	g.store.Put(rec)

	if req.Kind == KindOneWay {
		for _, channel := range req.InitialChannels {
			g.index.Subscribe(rec.ID, channel)
		}
	}

	userID := ""
	if rec.Identity != nil {
		userID = rec.Identity.UserID
	}
	g.logger.Info("connection accepted",
		"conn_id", rec.ID,
		"kind", rec.Kind.String(),
		"user_id", userID,
		"channels", req.InitialChannels,
		"total", g.store.Len(),
	)
	return nil
}

// HandleTransportClosed is the asynchronous close/error signal from the
// transport layer. It triggers the same eviction path as a supervisor
// timeout and is idempotent with a concurrent sweep.
func (g *Gateway) HandleTransportClosed(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evictLocked(connID, "transport closed")
}

// evictLocked removes the connection from the index and store and closes
// its transport handle. Evicting an absent id is a no-op.
func (g *Gateway) evictLocked(connID, reason string) {
	if _, ok := g.store.Get(connID); !ok {
		return
	}
	g.index.RemoveConnection(connID)
	rec, _ := g.store.Remove(connID)
	rec.closeTransport()
	g.logger.Info("connection evicted",
		"conn_id", connID,
		"kind", rec.Kind.String(),
		"reason", reason,
		"total", g.store.Len(),
	)
}

// ConnectionCount returns the number of registered connections.
func (g *Gateway) ConnectionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.Len()
}

// TransportStats counts connections of one kind. Active connections have
// activity newer than the connection timeout.
type TransportStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// Stats is the administrative snapshot of the gateway's connections.
type Stats struct {
	Duplex   TransportStats `json:"duplex"`
	OneWay   TransportStats `json:"oneWay"`
	Channels []string       `json:"channels"`
}

// Stats reports per-kind connection counts and the channels with at least
// one subscriber.
func (g *Gateway) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-g.settings.ConnectionTimeout)
	var stats Stats
	for _, rec := range g.store.All() {
		active := !rec.LastActivity.Before(cutoff)
		switch rec.Kind {
		case KindDuplex:
			stats.Duplex.Total++
			if active {
				stats.Duplex.Active++
			}
		case KindOneWay:
			stats.OneWay.Total++
			if active {
				stats.OneWay.Active++
			}
		}
	}
	stats.Channels = g.index.Channels()
	return stats
}
