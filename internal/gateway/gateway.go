package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scanlink/scanlink-core/internal/host"
	"github.com/scanlink/scanlink-core/internal/infrastructure/config"
	"github.com/scanlink/scanlink-core/internal/infrastructure/logging"
	"github.com/scanlink/scanlink-core/internal/session"
	"github.com/scanlink/scanlink-core/internal/settings"
)

// gracefulShutdownTimeout bounds HTTP shutdown and the wait for scanner
// connections to finish their cleanup.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies of a Gateway.
type Deps struct {
	Config  config.ServerConfig
	AppName string
	Version string
	Logger  *logging.Logger

	Settings SettingsSource
	Identity IdentitySource

	// AuthSecret signs host tokens for the device endpoints. Empty rejects
	// every device request.
	AuthSecret string

	// Optional. A nil Registry is created; the rest are skipped when nil.
	Registry   *session.Registry
	Advertiser Advertiser
	Notifier   host.Notifier
	Relay      host.FrameRelay
	Telemetry  Telemetry
}

// Gateway is the process-lifetime pairing and session context.
type Gateway struct {
	cfg        config.ServerConfig
	appName    string
	version    string
	logger     *logging.Logger
	authSecret string

	registry   *session.Registry
	dispatcher *Dispatcher
	fanout     *Fanout
	lifecycle  *Lifecycle
	settings   SettingsSource
	advertiser Advertiser
	relay      host.FrameRelay

	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener

	mu          sync.Mutex
	conns       map[*scannerConn]struct{}
	started     bool
	closing     bool
	startedAt   time.Time
	unsubscribe func()
	wg          sync.WaitGroup

	stopAdvertiser sync.Once
	closeOnce      sync.Once
}

// New wires a Gateway from deps. Nothing is started until Start.
func New(deps Deps) (*Gateway, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings source is required")
	}
	if deps.Identity == nil {
		return nil, fmt.Errorf("identity source is required")
	}
	if deps.Config.SendBuffer <= 0 {
		return nil, fmt.Errorf("send buffer must be positive")
	}

	registry := deps.Registry
	if registry == nil {
		registry = session.NewRegistry()
	}
	telemetry := deps.Telemetry
	if telemetry == nil {
		telemetry = noopTelemetry{}
	}

	g := &Gateway{
		cfg:        deps.Config,
		appName:    deps.AppName,
		version:    deps.Version,
		logger:     deps.Logger,
		authSecret: deps.AuthSecret,
		registry:   registry,
		dispatcher: NewDispatcher(registry, deps.Settings, deps.Identity, telemetry, deps.Version, deps.Logger),
		fanout:     NewFanout(registry, deps.Logger),
		lifecycle:  NewLifecycle(registry, deps.Notifier, telemetry, deps.Logger),
		settings:   deps.Settings,
		advertiser: deps.Advertiser,
		relay:      deps.Relay,
		conns:      make(map[*scannerConn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// Scanner apps are native clients and send no meaningful Origin.
				return true
			},
		},
	}
	return g, nil
}

// Start clears the registry, starts the listener and the advertiser, and
// subscribes the settings fan-out.
//
// A failing advertiser only degrades discovery; a failing listener is
// returned.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return ErrAlreadyStarted
	}
	g.started = true
	g.mu.Unlock()

	g.registry.RemoveAll()

	ln, err := net.Listen("tcp", g.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.cfg.Addr(), err)
	}
	srv := &http.Server{
		Handler:           g.buildRouter(),
		ReadHeaderTimeout: time.Duration(g.cfg.Timeouts.ReadHeader) * time.Second,
		IdleTimeout:       time.Duration(g.cfg.Timeouts.Idle) * time.Second,
	}

	g.mu.Lock()
	g.listener = ln
	g.server = srv
	g.startedAt = time.Now()
	g.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway server error", "error", err)
		}
	}()

	port := g.Port()
	g.logger.Info("gateway listening", "address", ln.Addr().String(), "path", g.cfg.Path)

	if g.advertiser != nil {
		if err := g.advertiser.Start(ctx, g.appName, port); err != nil {
			g.logger.Warn("discovery not started", "error", err)
		}
	}

	unsubscribe := g.settings.Subscribe(func(snap settings.Snapshot) {
		g.fanout.OnSettingsChanged(snap)
	})
	g.mu.Lock()
	g.unsubscribe = unsubscribe
	g.mu.Unlock()

	return nil
}

// Close stops the listener, closes every scanner connection, clears the
// registry and stops the advertiser. Safe to call more than once.
func (g *Gateway) Close() error {
	var shutdownErr error
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closing = true
		srv := g.server
		unsubscribe := g.unsubscribe
		conns := make([]*scannerConn, 0, len(g.conns))
		for c := range g.conns {
			conns = append(conns, c)
		}
		g.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}

		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		if srv != nil {
			g.logger.Info("gateway shutting down", "connections", len(conns))
			if err := srv.Shutdown(ctx); err != nil {
				shutdownErr = fmt.Errorf("shutting down gateway server: %w", err)
			}
		}

		for _, c := range conns {
			c.shutdown()
		}
		g.waitConns(ctx)

		g.registry.RemoveAll()
		g.stopAdvertiser.Do(func() {
			if g.advertiser != nil {
				g.advertiser.Stop()
			}
		})
	})
	return shutdownErr
}

// waitConns waits for connection goroutines to finish their cleanup.
func (g *Gateway) waitConns(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		g.logger.Warn("timed out waiting for scanner connections to close")
	}
}

// track adds c to the live set. It refuses new connections once Close began.
func (g *Gateway) track(c *scannerConn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closing {
		return false
	}
	g.conns[c] = struct{}{}
	g.wg.Add(1)
	return true
}

// untrack removes c and closes its send channel so writePump exits.
func (g *Gateway) untrack(c *scannerConn) {
	g.mu.Lock()
	_, existed := g.conns[c]
	delete(g.conns, c)
	g.mu.Unlock()

	c.closeSend()
	if existed {
		g.wg.Done()
	}
}

// handleWebSocket upgrades a scanner connection and starts its pumps.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newScannerConn(g, conn, g.cfg.SendBuffer)
	if !g.track(c) {
		c.shutdown()
		return
	}
	g.logger.Debug("scanner connected", "remote", c.remote, "connections", g.ConnectionCount())

	go c.writePump(g.cfg)
	go c.readPump(g.cfg)
}

// Kick delivers response verbatim to the device paired under deviceID.
// It implements host.Kicker.
func (g *Gateway) Kick(deviceID string, response []byte) bool {
	return g.dispatcher.Kick(deviceID, response)
}

// Devices returns the paired device ids in sorted order.
func (g *Gateway) Devices() []string {
	ids := g.registry.DeviceIDs()
	sort.Strings(ids)
	return ids
}

// ConnectionCount returns the number of open scanner sockets, paired or not.
func (g *Gateway) ConnectionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

// Addr returns the bound listener address, or nil before Start.
func (g *Gateway) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listener == nil {
		return nil
	}
	return g.listener.Addr()
}

// Port returns the bound TCP port, or the configured one before Start.
func (g *Gateway) Port() int {
	if tcp, ok := g.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return g.cfg.Port
}

// HealthCheck reports whether the listener is running.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("gateway health check: %w", ctx.Err())
	default:
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.server == nil || g.closing {
		return ErrNotStarted
	}
	return nil
}
