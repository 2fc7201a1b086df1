package gateway

import (
	"context"

	"github.com/scanlink/scanlink-core/internal/infrastructure/influxdb"
	"github.com/scanlink/scanlink-core/internal/settings"
)

// SettingsSource provides the current settings and change notifications.
// settings.Broker and settings.SQLiteStore satisfy it.
type SettingsSource interface {
	Current() settings.Snapshot
	Subscribe(fn func(settings.Snapshot)) (unsubscribe func())
}

// IdentitySource resolves the server UUID sent in handshake replies.
type IdentitySource interface {
	ServerUUID() string
}

// Advertiser announces the gateway on the local network.
type Advertiser interface {
	Start(ctx context.Context, name string, port int) error
	Stop()
}

// Telemetry records connection lifecycle events.
// *influxdb.Client satisfies it.
type Telemetry interface {
	WriteSessionEvent(event influxdb.SessionEvent, deviceID string, cause error)
	WriteConnectionCount(paired int)
}

type noopTelemetry struct{}

func (noopTelemetry) WriteSessionEvent(influxdb.SessionEvent, string, error) {}
func (noopTelemetry) WriteConnectionCount(int)                              {}
