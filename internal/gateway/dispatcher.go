package gateway

import (
	"github.com/scanlink/scanlink-core/internal/infrastructure/influxdb"
	"github.com/scanlink/scanlink-core/internal/infrastructure/logging"
	"github.com/scanlink/scanlink-core/internal/protocol"
	"github.com/scanlink/scanlink-core/internal/session"
)

// ConnState is the pairing state of one scanner connection.
type ConnState int

// Connection states. A connection starts unauthenticated and becomes paired
// after its first helo. There is no way back.
const (
	StateUnauthenticated ConnState = iota
	StatePaired
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StatePaired:
		return "paired"
	default:
		return "unknown"
	}
}

// Peer is the dispatcher's view of a scanner connection.
type Peer interface {
	session.Conn
	State() ConnState
	MarkPaired()
}

// Dispatcher handles decoded scanner requests and host kicks.
type Dispatcher struct {
	registry  *session.Registry
	settings  SettingsSource
	identity  IdentitySource
	telemetry Telemetry
	version   string
	logger    *logging.Logger
}

// NewDispatcher creates a dispatcher. telemetry may be nil.
func NewDispatcher(registry *session.Registry, settings SettingsSource, identity IdentitySource, telemetry Telemetry, version string, logger *logging.Logger) *Dispatcher {
	if telemetry == nil {
		telemetry = noopTelemetry{}
	}
	return &Dispatcher{
		registry:  registry,
		settings:  settings,
		identity:  identity,
		telemetry: telemetry,
		version:   version,
		logger:    logger,
	}
}

// Dispatch handles one request from peer.
//
// Unknown actions and client-originated kicks get no reply. Send failures
// are logged; the lifecycle coordinator cleans up when the socket dies.
func (d *Dispatcher) Dispatch(peer Peer, req protocol.Request) {
	switch r := req.(type) {
	case protocol.PingRequest:
		d.reply(peer, protocol.NewPong())

	case protocol.HeloRequest:
		d.helo(peer, r)

	case protocol.KickRequest:
		d.logger.Debug("ignoring kick sent by scanner", "device_id", r.DeviceID)

	case protocol.UnknownRequest:
		d.logger.Debug("unhandled scanner action", "action", r.Name, "state", peer.State().String())
	}
}

func (d *Dispatcher) helo(peer Peer, r protocol.HeloRequest) {
	if r.DeviceID != "" {
		d.registry.Register(r.DeviceID, peer)
		d.telemetry.WriteSessionEvent(influxdb.SessionPaired, r.DeviceID, nil)
		d.telemetry.WriteConnectionCount(d.registry.Len())
		d.logger.Info("scanner paired", "device_id", r.DeviceID)
	}
	peer.MarkPaired()

	// Settings and events are read on every helo, never cached.
	snap := d.settings.Current()
	d.reply(peer, protocol.NewHelo(
		d.version,
		snap.Profiles(),
		snap.EnabledEvents(),
		d.identity.ServerUUID(),
	))
}

// Kick delivers response verbatim to the connection paired under deviceID.
// It reports whether the device was found. A missing device is not an error.
func (d *Dispatcher) Kick(deviceID string, response []byte) bool {
	conn, ok := d.registry.Lookup(deviceID)
	if !ok {
		d.logger.Debug("kick target not paired", "device_id", deviceID)
		return false
	}
	if err := conn.Send(response); err != nil {
		d.logger.Warn("kick delivery failed", "device_id", deviceID, "error", err)
	}
	return true
}

func (d *Dispatcher) reply(peer Peer, v any) {
	data, err := protocol.Encode(v)
	if err != nil {
		d.logger.Error("encoding reply", "error", err)
		return
	}
	if err := peer.Send(data); err != nil {
		d.logger.Warn("reply not delivered", "error", err)
	}
}
