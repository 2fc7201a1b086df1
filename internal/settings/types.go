package settings

import (
	"encoding/json"
	"errors"
)

// Event names advertised to scanners in the handshake and settings replies.
const (
	// EventOnSmartphoneCharge asks the scanner to report when it is put on charge.
	EventOnSmartphoneCharge = "on_smartphone_charge"
)

// Well-known keys in the key/value store.
const (
	KeySettings   = "settings"
	KeyServerUUID = "uuid"
)

var (
	// ErrNotFound is returned by Get when the key has never been set.
	ErrNotFound = errors.New("settings: key not found")

	// ErrInvalidSnapshot is returned when a stored or received snapshot cannot be decoded.
	ErrInvalidSnapshot = errors.New("settings: invalid snapshot")
)

// Snapshot is an immutable view of the desktop settings relevant to scanners.
//
// OutputProfiles are opaque to the gateway: they are forwarded to clients in
// the order the desktop stored them.
type Snapshot struct {
	OutputProfiles            []json.RawMessage `json:"outputProfiles"`
	OnSmartphoneChargeCommand string            `json:"onSmartphoneChargeCommand,omitempty"`
}

// DefaultSnapshot is used until the desktop has saved any settings.
func DefaultSnapshot() Snapshot {
	return Snapshot{OutputProfiles: []json.RawMessage{}}
}

// EnabledEvents derives the set of event names scanners should emit.
// It is a pure function of the snapshot and is never cached, so each caller
// sees the effect of the latest settings change.
func (s Snapshot) EnabledEvents() []string {
	events := []string{}
	if s.OnSmartphoneChargeCommand != "" {
		events = append(events, EventOnSmartphoneCharge)
	}
	return events
}

// Profiles returns the output profiles, never nil, so they encode as [].
func (s Snapshot) Profiles() []json.RawMessage {
	if s.OutputProfiles == nil {
		return []json.RawMessage{}
	}
	return s.OutputProfiles
}

// DecodeSnapshot parses a snapshot from its JSON document.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, errors.Join(ErrInvalidSnapshot, err)
	}
	s.OutputProfiles = s.Profiles()
	return s, nil
}
