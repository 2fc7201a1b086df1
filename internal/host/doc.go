// Package host connects the gateway to the desktop host application.
//
// Outbound, the gateway emits named events (wsClose, wsError and every
// relayed scanner frame) through a Notifier. Inbound, the host sends
// commands (kick, settings) which Commands decodes and routes.
//
// The production transport is MQTT; see MQTTNotifier and Commands.Subscribe.
package host
