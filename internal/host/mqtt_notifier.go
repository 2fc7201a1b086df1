package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scanlink/scanlink-core/internal/infrastructure/mqtt"
)

// ErrInvalidEvent is returned for an event or action name that is not a
// single plain topic level.
var ErrInvalidEvent = errors.New("host: invalid event name")

// Publisher is the part of the MQTT client used to emit events.
type Publisher interface {
	PublishJSON(topic string, v any) error
	Topics() mqtt.Topics
}

// MQTTNotifier publishes events to {prefix}/host/event/{name} and relayed
// scanner frames to {prefix}/host/frame/{action}.
type MQTTNotifier struct {
	pub Publisher
	now func() time.Time
}

// NewMQTTNotifier creates a notifier on top of pub.
func NewMQTTNotifier(pub Publisher) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, now: time.Now}
}

// Notify implements Notifier.
func (n *MQTTNotifier) Notify(ctx context.Context, event string, payload any) error {
	if !mqtt.ValidSegment(event) {
		return fmt.Errorf("%w: %q", ErrInvalidEvent, event)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}

	if err := n.publish(n.pub.Topics().HostEvent(event), event, data); err != nil {
		return fmt.Errorf("publishing %s event: %w", event, err)
	}
	return nil
}

// RelayFrame implements FrameRelay. The frame is published unchanged.
func (n *MQTTNotifier) RelayFrame(ctx context.Context, action string, frame json.RawMessage) error {
	if !mqtt.ValidSegment(action) {
		return fmt.Errorf("%w: %q", ErrInvalidEvent, action)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := n.publish(n.pub.Topics().HostFrame(action), action, frame); err != nil {
		return fmt.Errorf("relaying %s frame: %w", action, err)
	}
	return nil
}

func (n *MQTTNotifier) publish(topic, name string, data json.RawMessage) error {
	return n.pub.PublishJSON(topic, Envelope{
		ID:        uuid.NewString(),
		Event:     name,
		Timestamp: n.now().UTC(),
		Data:      data,
	})
}
