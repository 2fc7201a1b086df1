package protocol

import (
	"encoding/json"
)

// Server-originated actions.
const (
	ActionPong           = "pong"
	ActionUpdateSettings = "updateSettings"
)

// PongResponse acknowledges a ping.
type PongResponse struct {
	Action string `json:"action"`
}

// NewPong returns a pong reply.
func NewPong() PongResponse {
	return PongResponse{Action: ActionPong}
}

// HeloResponse is the handshake reply.
type HeloResponse struct {
	Action         string            `json:"action"`
	Version        string            `json:"version"`
	OutputProfiles []json.RawMessage `json:"outputProfiles"`
	Events         []string          `json:"events"`

	// QuantityEnabled is always false. Old app builds still read it.
	QuantityEnabled bool   `json:"quantityEnabled"`
	ServerUUID      string `json:"serverUUID"`
}

// NewHelo builds a handshake reply. Nil slices are encoded as empty arrays.
func NewHelo(version string, profiles []json.RawMessage, events []string, serverUUID string) HeloResponse {
	return HeloResponse{
		Action:         ActionHelo,
		Version:        version,
		OutputProfiles: nonNilProfiles(profiles),
		Events:         nonNilEvents(events),
		ServerUUID:     serverUUID,
	}
}

// UpdateSettingsResponse pushes new settings to a paired device.
type UpdateSettingsResponse struct {
	Action         string            `json:"action"`
	OutputProfiles []json.RawMessage `json:"outputProfiles"`
	Events         []string          `json:"events"`
}

// NewUpdateSettings builds a settings push. Nil slices are encoded as empty arrays.
func NewUpdateSettings(profiles []json.RawMessage, events []string) UpdateSettingsResponse {
	return UpdateSettingsResponse{
		Action:         ActionUpdateSettings,
		OutputProfiles: nonNilProfiles(profiles),
		Events:         nonNilEvents(events),
	}
}

// Encode marshals a response frame.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func nonNilProfiles(p []json.RawMessage) []json.RawMessage {
	if p == nil {
		return []json.RawMessage{}
	}
	return p
}

func nonNilEvents(e []string) []string {
	if e == nil {
		return []string{}
	}
	return e
}
