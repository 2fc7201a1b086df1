package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/scanlink/scanlink-core/internal/host"
	"github.com/scanlink/scanlink-core/internal/infrastructure/influxdb"
	"github.com/scanlink/scanlink-core/internal/session"
)

func TestLifecycle_OnCloseNotifiesThenRemoves(t *testing.T) {
	registry := session.NewRegistry()
	peer := &fakePeer{}
	registry.Register("abc", peer)

	var registeredDuringNotify bool
	notifier := host.NotifierFunc(func(_ context.Context, event string, payload any) error {
		_, registeredDuringNotify = registry.Lookup("abc")
		if event != host.EventWSClose {
			t.Errorf("event = %q, want wsClose", event)
		}
		if got := payload.(host.CloseEvent); got.DeviceID != "abc" {
			t.Errorf("payload = %+v", got)
		}
		return nil
	})

	NewLifecycle(registry, notifier, nil, testLogger()).OnClose(peer)

	if !registeredDuringNotify {
		t.Error("device should still be registered while the host is notified")
	}
	if registry.Len() != 0 {
		t.Error("device not removed after close")
	}
}

func TestLifecycle_OnErrorNotifiesWithCause(t *testing.T) {
	registry := session.NewRegistry()
	peer := &fakePeer{}
	registry.Register("abc", peer)
	notifier := newRecordingNotifier()

	NewLifecycle(registry, notifier, nil, testLogger()).OnError(peer, errors.New("i/o timeout"))

	ev := notifier.waitEvent(t, host.EventWSError)
	got := ev.Payload.(host.ErrorEvent)
	if got.DeviceID != "abc" || got.Err != "i/o timeout" {
		t.Errorf("payload = %+v", got)
	}
	if registry.Len() != 0 {
		t.Error("device not removed after error")
	}
}

func TestLifecycle_RemovalSurvivesNotifierFailures(t *testing.T) {
	tests := []struct {
		name     string
		notifier host.Notifier
	}{
		{"nil notifier", nil},
		{"notifier error", host.NotifierFunc(func(context.Context, string, any) error {
			return errors.New("broker down")
		})},
		{"notifier panic", host.NotifierFunc(func(context.Context, string, any) error {
			panic("host crashed")
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := session.NewRegistry()
			a, b := &fakePeer{}, &fakePeer{}
			registry.Register("a", a)
			registry.Register("b", b)
			l := NewLifecycle(registry, tt.notifier, nil, testLogger())

			l.OnClose(a)
			l.OnError(b, errBrokenPipe)

			if registry.Len() != 0 {
				t.Errorf("registry.Len() = %d, want 0", registry.Len())
			}
		})
	}
}

func TestLifecycle_UnpairedConnection(t *testing.T) {
	registry := session.NewRegistry()
	notifier := newRecordingNotifier()

	NewLifecycle(registry, notifier, nil, testLogger()).OnClose(&fakePeer{})

	ev := notifier.waitEvent(t, host.EventWSClose)
	if got := ev.Payload.(host.CloseEvent); got.DeviceID != "" {
		t.Errorf("DeviceID = %q, want empty", got.DeviceID)
	}
}

func TestLifecycle_Telemetry(t *testing.T) {
	registry := session.NewRegistry()
	peer := &fakePeer{}
	registry.Register("abc", peer)
	tel := &recordingTelemetry{}

	NewLifecycle(registry, nil, tel, testLogger()).OnClose(peer)

	events, counts := tel.snapshot()
	if len(events) != 1 || events[0] != (telemetryEvent{Event: influxdb.SessionClosed, DeviceID: "abc"}) {
		t.Errorf("events = %v", events)
	}
	if len(counts) != 1 || counts[0] != 0 {
		t.Errorf("counts = %v, want [0]", counts)
	}
}
