package host

import (
	"context"
	"encoding/json"
	"time"
)

// Event names emitted to the host.
const (
	EventWSClose = "wsClose"
	EventWSError = "wsError"
)

// Command names accepted from the host.
const (
	CommandKick     = "kick"
	CommandSettings = "settings"
)

// CloseEvent reports that a scanner connection closed.
// DeviceID is empty for connections that never paired.
type CloseEvent struct {
	DeviceID string `json:"deviceId"`
}

// ErrorEvent reports a transport error on a scanner connection.
type ErrorEvent struct {
	DeviceID string `json:"deviceId"`
	Err      string `json:"err"`
}

// Envelope wraps every event published to the host.
type Envelope struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Notifier delivers named events to the host.
//
// Implementations must be safe for concurrent use. Errors are reported to
// the caller, who treats delivery as best-effort.
type Notifier interface {
	Notify(ctx context.Context, event string, payload any) error
}

// FrameRelay forwards raw scanner frames to the host under their action
// name. Relayed frames travel apart from Notifier events, so a scanner
// cannot forge wsClose or wsError.
type FrameRelay interface {
	RelayFrame(ctx context.Context, action string, frame json.RawMessage) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event string, payload any) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, event string, payload any) error {
	return f(ctx, event, payload)
}

// Discard is a Notifier that drops every event.
var Discard Notifier = NotifierFunc(func(context.Context, string, any) error { return nil })
