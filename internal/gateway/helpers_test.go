package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/scanlink/scanlink-core/internal/auth"
	"github.com/scanlink/scanlink-core/internal/infrastructure/config"
	"github.com/scanlink/scanlink-core/internal/infrastructure/influxdb"
	"github.com/scanlink/scanlink-core/internal/infrastructure/logging"
)

func testLogger() *logging.Logger {
	return logging.Discard()
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           0,
		Path:           "/",
		MaxMessageSize: 1 << 16,
		PingInterval:   30,
		PongTimeout:    10,
		SendBuffer:     16,
		Timeouts:       config.ServerTimeoutsConfig{ReadHeader: 5, Idle: 5},
	}
}

// fakePeer records frames sent to it.
type fakePeer struct {
	mu      sync.Mutex
	sent    [][]byte
	state   ConnState
	sendErr error
}

func (p *fakePeer) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, data)
	return nil
}

func (p *fakePeer) State() ConnState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *fakePeer) MarkPaired() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StatePaired
}

func (p *fakePeer) frames() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.sent))
	copy(out, p.sent)
	return out
}

// lastFrame decodes the most recent frame into a map.
func (p *fakePeer) lastFrame(t *testing.T) map[string]any {
	t.Helper()
	frames := p.frames()
	if len(frames) == 0 {
		t.Fatal("no frames sent")
	}
	var m map[string]any
	if err := json.Unmarshal(frames[len(frames)-1], &m); err != nil {
		t.Fatalf("frame is not JSON: %v", err)
	}
	return m
}

type staticIdentity string

func (s staticIdentity) ServerUUID() string { return string(s) }

// hostEvent is one notification captured by recordingNotifier.
type hostEvent struct {
	Event   string
	Payload any
}

// recordingNotifier captures lifecycle events and relayed frames separately.
type recordingNotifier struct {
	mu     sync.Mutex
	events []hostEvent
	frames []hostEvent
	err    error
	ch     chan hostEvent
	frameC chan hostEvent
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		ch:     make(chan hostEvent, 64),
		frameC: make(chan hostEvent, 64),
	}
}

func (n *recordingNotifier) RelayFrame(_ context.Context, action string, frame json.RawMessage) error {
	ev := hostEvent{Event: action, Payload: frame}
	n.mu.Lock()
	n.frames = append(n.frames, ev)
	n.mu.Unlock()
	select {
	case n.frameC <- ev:
	default:
	}
	return n.err
}

// waitFrame returns the next relayed frame with the given action.
func (n *recordingNotifier) waitFrame(t *testing.T, action string) hostEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-n.frameC:
			if ev.Event == action {
				return ev
			}
		case <-deadline:
			t.Fatalf("relayed frame %q not received", action)
			return hostEvent{}
		}
	}
}

func (n *recordingNotifier) frameCount(action string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, ev := range n.frames {
		if ev.Event == action {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) Notify(_ context.Context, event string, payload any) error {
	n.mu.Lock()
	n.events = append(n.events, hostEvent{Event: event, Payload: payload})
	n.mu.Unlock()
	select {
	case n.ch <- hostEvent{Event: event, Payload: payload}:
	default:
	}
	return n.err
}

// waitEvent returns the next event named name.
func (n *recordingNotifier) waitEvent(t *testing.T, name string) hostEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-n.ch:
			if ev.Event == name {
				return ev
			}
		case <-deadline:
			t.Fatalf("host event %q not received", name)
			return hostEvent{}
		}
	}
}

func (n *recordingNotifier) count(name string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, ev := range n.events {
		if ev.Event == name {
			c++
		}
	}
	return c
}

type telemetryEvent struct {
	Event    influxdb.SessionEvent
	DeviceID string
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []telemetryEvent
	counts []int
}

func (r *recordingTelemetry) WriteSessionEvent(event influxdb.SessionEvent, deviceID string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, telemetryEvent{Event: event, DeviceID: deviceID})
}

func (r *recordingTelemetry) WriteConnectionCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, n)
}

func (r *recordingTelemetry) snapshot() ([]telemetryEvent, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]telemetryEvent(nil), r.events...), append([]int(nil), r.counts...)
}

var errBrokenPipe = errors.New("write: broken pipe")

const testAuthSecret = "gateway-test-secret-0123456789abcdef"

func hostToken(t *testing.T, secret string) string {
	t.Helper()
	token, err := auth.GenerateHostToken(secret, "desktop", time.Hour)
	if err != nil {
		t.Fatalf("GenerateHostToken() error = %v", err)
	}
	return token
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
