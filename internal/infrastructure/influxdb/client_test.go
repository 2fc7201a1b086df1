package influxdb_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/scanlink/scanlink-core/internal/infrastructure/config"
	"github.com/scanlink/scanlink-core/internal/infrastructure/influxdb"
)

// fakeInflux answers pings and records line-protocol write bodies.
type fakeInflux struct {
	*httptest.Server

	mu       sync.Mutex
	writes   []string
	writeErr bool
	written  chan struct{}
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{written: make(chan struct{}, 16)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/ping"):
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/write"):
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.writes = append(f.writes, string(body))
			fail := f.writeErr
			f.mu.Unlock()
			if fail {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"invalid","message":"bad line protocol"}`))
			} else {
				w.WriteHeader(http.StatusNoContent)
			}
			f.written <- struct{}{}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

// waitLine waits until a written line contains every part.
func (f *fakeInflux) waitLine(t *testing.T, parts ...string) string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		f.mu.Lock()
		lines := strings.Split(strings.Join(f.writes, "\n"), "\n")
		f.mu.Unlock()
		for _, line := range lines {
			if containsAll(line, parts) {
				return line
			}
		}

		select {
		case <-f.written:
		case <-deadline:
			t.Fatalf("no written line contains %q:\n%s", parts, strings.Join(lines, "\n"))
			return ""
		}
	}
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "scanlink-test-token",
		Org:           "scanlink",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func connect(t *testing.T, fake *fakeInflux) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(testConfig(fake.URL), "desk-1")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return client
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg, "desk-1")
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := influxdb.Connect(testConfig(url), "desk-1")
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect(t *testing.T) {
	client := connect(t, newFakeInflux(t))
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	fake := newFakeInflux(t)
	cfg := testConfig(fake.URL)
	cfg.BatchSize = 0
	cfg.FlushInterval = -1

	client, err := influxdb.Connect(cfg, "desk-1")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()
}

func TestWriteSessionEvent(t *testing.T) {
	fake := newFakeInflux(t)
	client := connect(t, fake)
	defer client.Close()

	client.WriteSessionEvent(influxdb.SessionPaired, "abc", nil)
	client.WriteSessionEvent(influxdb.SessionError, "abc", errors.New("connection reset"))
	client.Flush()

	fake.waitLine(t, "scanner_sessions,", "device_id=abc", "event=paired", "gateway=desk-1", " count=1i")
	fake.waitLine(t, "scanner_sessions,", "device_id=abc", "event=error", `error="connection reset"`)
}

func TestWriteSessionEvent_UnpairedOmitsDeviceTag(t *testing.T) {
	fake := newFakeInflux(t)
	client := connect(t, fake)
	defer client.Close()

	client.WriteSessionEvent(influxdb.SessionClosed, "", nil)
	client.Flush()

	line := fake.waitLine(t, "scanner_sessions,", "event=closed")
	if strings.Contains(line, "device_id") {
		t.Errorf("line = %s, want no device_id tag", line)
	}
}

func TestConnect_WithoutGatewayName(t *testing.T) {
	fake := newFakeInflux(t)
	client, err := influxdb.Connect(testConfig(fake.URL), "")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteConnectionCount(1)
	client.Flush()

	if line := fake.waitLine(t, "scanner_connections"); strings.Contains(line, influxdb.TagGateway) {
		t.Errorf("line = %s, want no gateway tag", line)
	}
}

func TestWriteConnectionCount(t *testing.T) {
	fake := newFakeInflux(t)
	client := connect(t, fake)
	defer client.Close()

	client.WriteConnectionCount(3)
	client.Flush()

	fake.waitLine(t, "scanner_connections,gateway=desk-1 paired=3i")
	if client.Paired() != 3 {
		t.Errorf("Paired() = %d, want 3", client.Paired())
	}
}

func TestSetOnError(t *testing.T) {
	fake := newFakeInflux(t)
	fake.writeErr = true

	client := connect(t, fake)
	defer client.Close()

	errCh := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	client.WriteConnectionCount(1)
	client.Flush()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("callback received nil error")
		}
	case <-time.After(5 * time.Second):
		t.Error("write error callback not invoked")
	}
}

func TestClose_RecordsNoConnections(t *testing.T) {
	fake := newFakeInflux(t)
	client := connect(t, fake)

	client.WriteConnectionCount(2)
	client.Flush()
	fake.waitLine(t, "scanner_connections,gateway=desk-1 paired=2i")

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	fake.waitLine(t, "scanner_connections,gateway=desk-1 paired=0i")
	if client.Paired() != 0 {
		t.Errorf("Paired() after Close = %d, want 0", client.Paired())
	}
}

func TestClose(t *testing.T) {
	client := connect(t, newFakeInflux(t))

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Writes and flushes after close are dropped.
	client.WriteSessionEvent(influxdb.SessionClosed, "abc", nil)
	client.WriteConnectionCount(5)
	client.Flush()
	if client.Paired() != 0 {
		t.Errorf("Paired() = %d, want writes after Close dropped", client.Paired())
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var client influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}
