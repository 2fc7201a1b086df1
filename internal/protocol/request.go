package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Client-originated actions.
const (
	ActionPing = "ping"
	ActionHelo = "helo"
	ActionKick = "kick"
)

// Sentinel errors for frame decoding.
var (
	ErrMalformedFrame = errors.New("protocol: malformed frame")
	ErrMissingAction  = errors.New("protocol: frame has no action")
	ErrInvalidAction  = errors.New("protocol: invalid action name")
)

// maxActionLen bounds the action name of an inbound frame.
const maxActionLen = 64

// Request is a decoded inbound frame.
type Request interface {
	// Action returns the wire action name.
	Action() string
	isRequest()
}

// PingRequest asks for a pong.
type PingRequest struct{}

// HeloRequest is the pairing handshake. DeviceID may be empty.
type HeloRequest struct {
	DeviceID string
}

// KickRequest delivers Response verbatim to the connection paired under
// DeviceID. It is only honoured when it comes from the host.
type KickRequest struct {
	DeviceID string
	Response json.RawMessage
}

// UnknownRequest carries an action the gateway does not handle.
type UnknownRequest struct {
	Name string
}

func (PingRequest) Action() string      { return ActionPing }
func (HeloRequest) Action() string      { return ActionHelo }
func (KickRequest) Action() string      { return ActionKick }
func (r UnknownRequest) Action() string { return r.Name }

func (PingRequest) isRequest()    {}
func (HeloRequest) isRequest()    {}
func (KickRequest) isRequest()    {}
func (UnknownRequest) isRequest() {}

// envelope is the superset of fields any known request may carry.
type envelope struct {
	Action   string          `json:"action"`
	DeviceID DeviceID        `json:"deviceId"`
	Response json.RawMessage `json:"response"`
}

// Decode parses one inbound frame.
//
// Errors wrap ErrMalformedFrame, ErrMissingAction or ErrInvalidAction.
// Unknown actions are not an error, but their names must be plain tokens.
func Decode(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Action == "" {
		return nil, ErrMissingAction
	}
	if !validAction(env.Action) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, env.Action)
	}

	switch env.Action {
	case ActionPing:
		return PingRequest{}, nil
	case ActionHelo:
		return HeloRequest{DeviceID: string(env.DeviceID)}, nil
	case ActionKick:
		return KickRequest{DeviceID: string(env.DeviceID), Response: env.Response}, nil
	default:
		return UnknownRequest{Name: env.Action}, nil
	}
}

// validAction accepts letters, digits, '-', '_' and '.'.
func validAction(name string) bool {
	if len(name) > maxActionLen {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// DeviceID is a device identifier that accepts both JSON strings and numbers.
// Older app builds send numeric ids.
type DeviceID string

// UnmarshalJSON implements json.Unmarshaler.
func (d *DeviceID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*d = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = DeviceID(strings.TrimSpace(s))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("deviceId must be a string or number: %w", err)
		}
		*d = DeviceID(n.String())
		return nil
	}
}
