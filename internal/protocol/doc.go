// Package protocol defines the JSON frames exchanged between scanner apps
// and the gateway.
//
// Inbound frames are decoded once at the connection boundary into one of the
// Request variants (PingRequest, HeloRequest, KickRequest, UnknownRequest).
// Downstream code switches on the concrete type instead of re-reading the
// action string.
//
// Every frame is a JSON object with an "action" field. Unrecognised actions
// decode to UnknownRequest so newer clients keep working against older
// gateways.
package protocol
