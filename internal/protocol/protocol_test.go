package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Request
	}{
		{
			name:  "ping",
			frame: `{"action":"ping"}`,
			want:  PingRequest{},
		},
		{
			name:  "helo with string id",
			frame: `{"action":"helo","deviceId":"abc"}`,
			want:  HeloRequest{DeviceID: "abc"},
		},
		{
			name:  "helo with numeric id",
			frame: `{"action":"helo","deviceId":1234567}`,
			want:  HeloRequest{DeviceID: "1234567"},
		},
		{
			name:  "helo without id",
			frame: `{"action":"helo"}`,
			want:  HeloRequest{},
		},
		{
			name:  "helo with null id",
			frame: `{"action":"helo","deviceId":null}`,
			want:  HeloRequest{},
		},
		{
			name:  "unknown action",
			frame: `{"action":"putScanSessions","scanSessions":[]}`,
			want:  UnknownRequest{Name: "putScanSessions"},
		},
		{
			name:  "extra fields are ignored",
			frame: `{"action":"ping","deviceName":"Pixel","appVersion":"3.1.0"}`,
			want:  PingRequest{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Action(), got.Action())
		})
	}
}

func TestDecode_Kick(t *testing.T) {
	got, err := Decode([]byte(`{"action":"kick","deviceId":"abc","response":{"action":"kick","message":"bye"}}`))
	require.NoError(t, err)

	kick, ok := got.(KickRequest)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, "abc", kick.DeviceID)
	assert.JSONEq(t, `{"action":"kick","message":"bye"}`, string(kick.Response))
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr error
	}{
		{"not json", `hello`, ErrMalformedFrame},
		{"truncated", `{"action":"pi`, ErrMalformedFrame},
		{"array", `[1,2,3]`, ErrMalformedFrame},
		{"object deviceId", `{"action":"helo","deviceId":{"x":1}}`, ErrMalformedFrame},
		{"missing action", `{"deviceId":"abc"}`, ErrMissingAction},
		{"empty action", `{"action":""}`, ErrMissingAction},
		{"wildcard action", `{"action":"#"}`, ErrInvalidAction},
		{"topic path action", `{"action":"a/+/b"}`, ErrInvalidAction},
		{"spaced action", `{"action":"scan now"}`, ErrInvalidAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHeloResponse_Encoding(t *testing.T) {
	profiles := []json.RawMessage{json.RawMessage(`{"name":"Default","outputBlocks":[]}`)}
	data, err := Encode(NewHelo("4.2.0", profiles, []string{"on_smartphone_charge"}, "uuid-1"))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"action": "helo",
		"version": "4.2.0",
		"outputProfiles": [{"name":"Default","outputBlocks":[]}],
		"events": ["on_smartphone_charge"],
		"quantityEnabled": false,
		"serverUUID": "uuid-1"
	}`, string(data))
}

func TestHeloResponse_EmptySetsEncodeAsArrays(t *testing.T) {
	data, err := Encode(NewHelo("1.0.0", nil, nil, "id"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []any{}, decoded["events"])
	assert.Equal(t, []any{}, decoded["outputProfiles"])
}

func TestPongAndUpdateSettings_Encoding(t *testing.T) {
	pong, err := Encode(NewPong())
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"pong"}`, string(pong))

	upd, err := Encode(NewUpdateSettings(nil, []string{"on_smartphone_charge"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"updateSettings","outputProfiles":[],"events":["on_smartphone_charge"]}`, string(upd))
}
