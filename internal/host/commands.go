package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/scanlink/scanlink-core/internal/infrastructure/mqtt"
	"github.com/scanlink/scanlink-core/internal/protocol"
	"github.com/scanlink/scanlink-core/internal/settings"
)

// Sentinel errors for command handling.
var (
	ErrUnknownCommand = errors.New("host: unknown command")
	ErrInvalidCommand = errors.New("host: invalid command payload")
)

// commandTimeout bounds the settings write triggered by a host command.
const commandTimeout = 5 * time.Second

// Kicker delivers a raw payload to the connection paired under deviceID.
// It reports whether the device was found.
type Kicker interface {
	Kick(deviceID string, response []byte) bool
}

// SettingsWriter persists a new settings snapshot.
type SettingsWriter interface {
	Update(ctx context.Context, snap settings.Snapshot) error
}

// Subscriber is the part of the MQTT client used to receive commands.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Topics() mqtt.Topics
	QoS() byte
}

// Logger is the logging interface used by Commands.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// KickCommand asks the gateway to push Response to one device.
type KickCommand struct {
	DeviceID protocol.DeviceID `json:"deviceId"`
	Response json.RawMessage   `json:"response"`
}

// Commands routes host commands to the gateway and the settings store.
type Commands struct {
	kicker   Kicker
	settings SettingsWriter
	logger   Logger
}

// NewCommands creates a command router. settings may be nil, in which case
// settings commands are rejected.
func NewCommands(kicker Kicker, settings SettingsWriter) *Commands {
	return &Commands{kicker: kicker, settings: settings, logger: noopLogger{}}
}

// SetLogger sets the logger for command handling.
func (c *Commands) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	c.logger = l
}

// Subscribe listens on {prefix}/host/command/+ and routes each message.
func (c *Commands) Subscribe(sub Subscriber) error {
	topics := sub.Topics()
	return sub.Subscribe(topics.AllHostCommands(), sub.QoS(), func(topic string, payload []byte) error {
		name, ok := topics.CommandName(topic)
		if !ok {
			return fmt.Errorf("%w: topic %q", ErrUnknownCommand, topic)
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Handle(ctx, name, payload)
	})
}

// Handle executes one command.
//
// A kick for an unknown device is not an error: the device may have
// disconnected while the host was deciding to kick it.
func (c *Commands) Handle(ctx context.Context, name string, payload []byte) error {
	switch name {
	case CommandKick:
		return c.handleKick(payload)
	case CommandSettings:
		return c.handleSettings(ctx, payload)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

func (c *Commands) handleKick(payload []byte) error {
	var cmd KickCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if cmd.DeviceID == "" {
		return fmt.Errorf("%w: kick without deviceId", ErrInvalidCommand)
	}
	if len(cmd.Response) == 0 {
		return fmt.Errorf("%w: kick without response", ErrInvalidCommand)
	}

	if !c.kicker.Kick(string(cmd.DeviceID), cmd.Response) {
		c.logger.Debug("kick target not paired", "device_id", cmd.DeviceID)
	}
	return nil
}

func (c *Commands) handleSettings(ctx context.Context, payload []byte) error {
	if c.settings == nil {
		return fmt.Errorf("%w: settings store not configured", ErrInvalidCommand)
	}
	snap, err := settings.DecodeSnapshot(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if err := c.settings.Update(ctx, snap); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
