package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scanlink/scanlink-core/internal/host"
	"github.com/scanlink/scanlink-core/internal/infrastructure/influxdb"
	"github.com/scanlink/scanlink-core/internal/infrastructure/logging"
	"github.com/scanlink/scanlink-core/internal/session"
)

// notifyTimeout bounds one host notification.
const notifyTimeout = 5 * time.Second

// Lifecycle keeps the registry and the host in step with socket closes and
// errors.
//
// Host notification is best-effort; registry removal always happens.
type Lifecycle struct {
	registry  *session.Registry
	notifier  host.Notifier
	telemetry Telemetry
	logger    *logging.Logger
}

// NewLifecycle creates a coordinator. notifier and telemetry may be nil.
func NewLifecycle(registry *session.Registry, notifier host.Notifier, telemetry Telemetry, logger *logging.Logger) *Lifecycle {
	if telemetry == nil {
		telemetry = noopTelemetry{}
	}
	return &Lifecycle{
		registry:  registry,
		notifier:  notifier,
		telemetry: telemetry,
		logger:    logger,
	}
}

// OnClose handles a closed connection: notify wsClose, then unregister.
func (l *Lifecycle) OnClose(conn session.Conn) {
	deviceID, _ := l.registry.FindByConnection(conn)
	defer l.remove(conn)

	l.notify(host.EventWSClose, host.CloseEvent{DeviceID: deviceID})
	l.telemetry.WriteSessionEvent(influxdb.SessionClosed, deviceID, nil)
	l.logger.Info("scanner disconnected", "device_id", deviceID)
}

// OnError handles a transport error: notify wsError, then unregister.
func (l *Lifecycle) OnError(conn session.Conn, cause error) {
	deviceID, _ := l.registry.FindByConnection(conn)
	defer l.remove(conn)

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	l.notify(host.EventWSError, host.ErrorEvent{DeviceID: deviceID, Err: msg})
	l.telemetry.WriteSessionEvent(influxdb.SessionError, deviceID, cause)
	l.logger.Warn("scanner connection error", "device_id", deviceID, "error", cause)
}

func (l *Lifecycle) remove(conn session.Conn) {
	if _, removed := l.registry.RemoveByConnection(conn); removed {
		l.telemetry.WriteConnectionCount(l.registry.Len())
	}
}

func (l *Lifecycle) notify(event string, payload any) {
	if err := notifyHost(l.notifier, event, payload); err != nil {
		l.logger.Warn("host notification failed", "event", event, "error", err)
	}
}

// notifyHost delivers one event with a timeout. A nil notifier is a no-op
// and a panicking notifier is reported as an error.
func notifyHost(n host.Notifier, event string, payload any) error {
	if n == nil {
		return nil
	}
	return callHost(func(ctx context.Context) error {
		return n.Notify(ctx, event, payload)
	})
}

// relayToHost forwards one raw frame under the same rules as notifyHost.
func relayToHost(r host.FrameRelay, action string, frame json.RawMessage) error {
	if r == nil {
		return nil
	}
	return callHost(func(ctx context.Context) error {
		return r.RelayFrame(ctx, action, frame)
	})
}

func callHost(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host channel panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	return fn(ctx)
}
