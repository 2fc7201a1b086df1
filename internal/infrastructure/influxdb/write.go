package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementSessions    = "scanner_sessions"
	MeasurementConnections = "scanner_connections"
)

// SessionEvent tags a scanner_sessions point.
type SessionEvent string

// Session lifecycle events.
const (
	SessionPaired SessionEvent = "paired"
	SessionClosed SessionEvent = "closed"
	SessionError  SessionEvent = "error"
)

// WriteSessionEvent records one lifecycle event for a scanner.
// cause is only stored for SessionError.
func (c *Client) WriteSessionEvent(event SessionEvent, deviceID string, cause error) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{"event": string(event)}
	if deviceID != "" {
		tags["device_id"] = deviceID
	}
	fields := map[string]interface{}{"count": 1}
	if event == SessionError && cause != nil {
		fields["error"] = cause.Error()
	}

	c.writeAPI.WritePoint(write.NewPoint(MeasurementSessions, tags, fields, time.Now()))
}

// WriteConnectionCount records how many scanners are currently paired.
func (c *Client) WriteConnectionCount(paired int) {
	if !c.IsConnected() {
		return
	}
	c.writeConnectionCount(paired)
}

func (c *Client) writeConnectionCount(paired int) {
	c.paired.Store(int64(paired))
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementConnections,
		map[string]string{},
		map[string]interface{}{"paired": paired},
		time.Now(),
	))
}

// Paired returns the last recorded connection count.
func (c *Client) Paired() int {
	return int(c.paired.Load())
}
