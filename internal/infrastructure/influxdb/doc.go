// Package influxdb records scanner connection telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with batched
// non-blocking writes. Every point is tagged with the gateway name, and
// closing the client records a final connection count of zero so dashboards
// never show scanners on a gateway that has shut down.
//
// # Measurements
//
//	scanner_sessions   one point per lifecycle event
//	                   tags: event (paired|closed|error), device_id, gateway
//	                   fields: count=1, error (string, error events only)
//	scanner_connections  current paired device count
//	                   tags: gateway
//	                   fields: paired
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.App.Name)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteSessionEvent(influxdb.SessionPaired, "abc", nil)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Write errors are delivered
// asynchronously through SetOnError.
package influxdb
