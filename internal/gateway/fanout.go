package gateway

import (
	"github.com/scanlink/scanlink-core/internal/infrastructure/logging"
	"github.com/scanlink/scanlink-core/internal/protocol"
	"github.com/scanlink/scanlink-core/internal/session"
	"github.com/scanlink/scanlink-core/internal/settings"
)

// Fanout pushes settings changes to every paired scanner.
type Fanout struct {
	registry *session.Registry
	logger   *logging.Logger
}

// NewFanout creates a fan-out over registry.
func NewFanout(registry *session.Registry, logger *logging.Logger) *Fanout {
	return &Fanout{registry: registry, logger: logger}
}

// OnSettingsChanged sends one updateSettings frame per registered connection
// and returns how many sends succeeded. A failed send does not stop delivery
// to the rest.
func (f *Fanout) OnSettingsChanged(snap settings.Snapshot) int {
	data, err := protocol.Encode(protocol.NewUpdateSettings(snap.Profiles(), snap.EnabledEvents()))
	if err != nil {
		f.logger.Error("encoding settings update", "error", err)
		return 0
	}

	delivered, failed := 0, 0
	f.registry.ForEach(func(deviceID string, conn session.Conn) {
		if err := conn.Send(data); err != nil {
			failed++
			f.logger.Debug("settings update not delivered", "device_id", deviceID, "error", err)
			return
		}
		delivered++
	})

	if delivered > 0 || failed > 0 {
		f.logger.Debug("settings broadcast", "recipients", delivered, "failed", failed)
	}
	return delivered
}
