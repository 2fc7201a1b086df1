package host

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/scanlink/scanlink-core/internal/infrastructure/mqtt"
	"github.com/scanlink/scanlink-core/internal/settings"
)

// fakeBus implements Publisher and Subscriber in memory.
type fakeBus struct {
	topics     mqtt.Topics
	publishErr error

	mu        sync.Mutex
	published map[string][]any
	handlers  map[string]mqtt.MessageHandler
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		topics:    mqtt.NewTopics("scanlink"),
		published: make(map[string][]any),
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (b *fakeBus) Topics() mqtt.Topics { return b.topics }
func (b *fakeBus) QoS() byte           { return 1 }

func (b *fakeBus) PublishJSON(topic string, v any) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[topic] = append(b.published[topic], v)
	return nil
}

func (b *fakeBus) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

// deliver simulates the broker routing a message to the wildcard handler.
func (b *fakeBus) deliver(topic string, payload []byte) error {
	b.mu.Lock()
	h := b.handlers[b.topics.AllHostCommands()]
	b.mu.Unlock()
	return h(topic, payload)
}

type fakeKicker struct {
	paired map[string]bool
	got    map[string][]byte
}

func (k *fakeKicker) Kick(deviceID string, response []byte) bool {
	if !k.paired[deviceID] {
		return false
	}
	if k.got == nil {
		k.got = make(map[string][]byte)
	}
	k.got[deviceID] = response
	return true
}

type fakeSettings struct {
	err  error
	last *settings.Snapshot
}

func (s *fakeSettings) Update(_ context.Context, snap settings.Snapshot) error {
	if s.err != nil {
		return s.err
	}
	s.last = &snap
	return nil
}

func TestMQTTNotifier_PublishesEnvelope(t *testing.T) {
	bus := newFakeBus()
	n := NewMQTTNotifier(bus)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	if err := n.Notify(context.Background(), EventWSClose, CloseEvent{DeviceID: "abc"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	msgs := bus.published["scanlink/host/event/wsClose"]
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	env, ok := msgs[0].(Envelope)
	if !ok {
		t.Fatalf("published %T, want Envelope", msgs[0])
	}
	if env.Event != EventWSClose || env.ID == "" || !env.Timestamp.Equal(fixed) {
		t.Errorf("envelope = %+v", env)
	}
	if string(env.Data) != `{"deviceId":"abc"}` {
		t.Errorf("Data = %s", env.Data)
	}
}

func TestMQTTNotifier_Errors(t *testing.T) {
	bus := newFakeBus()
	n := NewMQTTNotifier(bus)

	for _, name := range []string{"", "#", "a/+/b"} {
		if err := n.Notify(context.Background(), name, nil); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("Notify(%q) error = %v, want ErrInvalidEvent", name, err)
		}
	}

	if err := n.Notify(context.Background(), "x", make(chan int)); err == nil {
		t.Error("unencodable payload: expected error")
	}

	bus.publishErr = mqtt.ErrNotConnected
	if err := n.Notify(context.Background(), EventWSError, ErrorEvent{}); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("publish failure error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Notify(ctx, EventWSClose, CloseEvent{}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled ctx error = %v, want context.Canceled", err)
	}
}

func TestMQTTNotifier_RelayFrame(t *testing.T) {
	bus := newFakeBus()
	n := NewMQTTNotifier(bus)

	frame := json.RawMessage(`{"action":"wsClose","deviceId":"victim"}`)
	if err := n.RelayFrame(context.Background(), "wsClose", frame); err != nil {
		t.Fatalf("RelayFrame() error = %v", err)
	}

	if len(bus.published["scanlink/host/event/wsClose"]) != 0 {
		t.Error("relayed frame must not reach the gateway event topic")
	}
	msgs := bus.published["scanlink/host/frame/wsClose"]
	if len(msgs) != 1 {
		t.Fatalf("published %d frames, want 1", len(msgs))
	}
	if env := msgs[0].(Envelope); string(env.Data) != string(frame) {
		t.Errorf("Data = %s, want the frame verbatim", env.Data)
	}
}

func TestMQTTNotifier_RelayFrameRejectsTopicSyntax(t *testing.T) {
	bus := newFakeBus()
	n := NewMQTTNotifier(bus)

	for _, action := range []string{"#", "+", "a/+/b", "scan sessions", ""} {
		err := n.RelayFrame(context.Background(), action, json.RawMessage(`{}`))
		if !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("RelayFrame(%q) error = %v, want ErrInvalidEvent", action, err)
		}
	}
	if len(bus.published) != 0 {
		t.Errorf("published %v, want nothing", bus.published)
	}
}

func TestCommands_KickRoutesResponse(t *testing.T) {
	bus := newFakeBus()
	kicker := &fakeKicker{paired: map[string]bool{"abc": true}}
	cmds := NewCommands(kicker, nil)

	if err := cmds.Subscribe(bus); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	payload := []byte(`{"deviceId":"abc","response":{"action":"kick","message":"License expired"}}`)
	if err := bus.deliver("scanlink/host/command/kick", payload); err != nil {
		t.Fatalf("deliver() error = %v", err)
	}

	if got := string(kicker.got["abc"]); got != `{"action":"kick","message":"License expired"}` {
		t.Errorf("kicked with %q", got)
	}
}

func TestCommands_KickUnknownDeviceIsNotAnError(t *testing.T) {
	cmds := NewCommands(&fakeKicker{}, nil)
	err := cmds.Handle(context.Background(), CommandKick, []byte(`{"deviceId":"ghost","response":{}}`))
	if err != nil {
		t.Errorf("Handle() error = %v, want nil", err)
	}
}

func TestCommands_InvalidPayloads(t *testing.T) {
	cmds := NewCommands(&fakeKicker{}, &fakeSettings{})

	tests := []struct {
		name    string
		command string
		payload string
		wantErr error
	}{
		{"kick not json", CommandKick, `nope`, ErrInvalidCommand},
		{"kick without device", CommandKick, `{"response":{}}`, ErrInvalidCommand},
		{"kick without response", CommandKick, `{"deviceId":"abc"}`, ErrInvalidCommand},
		{"settings not json", CommandSettings, `{`, ErrInvalidCommand},
		{"unknown command", "reboot", `{}`, ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cmds.Handle(context.Background(), tt.command, []byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Handle() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommands_SettingsUpdatesStore(t *testing.T) {
	store := &fakeSettings{}
	cmds := NewCommands(&fakeKicker{}, store)

	payload := []byte(`{"outputProfiles":[{"name":"Default"}],"onSmartphoneChargeCommand":"notify-send charged"}`)
	if err := cmds.Handle(context.Background(), CommandSettings, payload); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if store.last == nil {
		t.Fatal("store not updated")
	}
	if len(store.last.OutputProfiles) != 1 {
		t.Errorf("OutputProfiles = %d, want 1", len(store.last.OutputProfiles))
	}
	var profile map[string]string
	if err := json.Unmarshal(store.last.OutputProfiles[0], &profile); err != nil || profile["name"] != "Default" {
		t.Errorf("profile = %s", store.last.OutputProfiles[0])
	}
	if store.last.OnSmartphoneChargeCommand != "notify-send charged" {
		t.Errorf("OnSmartphoneChargeCommand = %q", store.last.OnSmartphoneChargeCommand)
	}
}

func TestCommands_SettingsStoreFailure(t *testing.T) {
	storeErr := errors.New("disk full")
	cmds := NewCommands(&fakeKicker{}, &fakeSettings{err: storeErr})

	err := cmds.Handle(context.Background(), CommandSettings, []byte(`{"outputProfiles":[]}`))
	if !errors.Is(err, storeErr) {
		t.Errorf("Handle() error = %v, want wrapped store error", err)
	}
}

func TestCommands_SettingsWithoutStore(t *testing.T) {
	cmds := NewCommands(&fakeKicker{}, nil)
	err := cmds.Handle(context.Background(), CommandSettings, []byte(`{}`))
	if !errors.Is(err, ErrInvalidCommand) {
		t.Errorf("Handle() error = %v, want ErrInvalidCommand", err)
	}
}

func TestCommands_SubscribeRejectsForeignTopic(t *testing.T) {
	bus := newFakeBus()
	cmds := NewCommands(&fakeKicker{}, nil)
	if err := cmds.Subscribe(bus); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := bus.deliver("scanlink/host/event/kick", []byte(`{}`)); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("deliver() error = %v, want ErrUnknownCommand", err)
	}
}

func TestDiscard(t *testing.T) {
	if err := Discard.Notify(context.Background(), EventWSClose, CloseEvent{}); err != nil {
		t.Errorf("Discard.Notify() error = %v", err)
	}
}
