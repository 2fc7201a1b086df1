// Package session holds the registry of paired scanner devices.
//
// A device is paired when its connection completes the helo handshake with a
// non-empty device id. The registry maps that id to the live connection so the
// gateway can route host commands (kick) and settings broadcasts to it.
//
// The registry never owns connections: removing a mapping does not close the
// socket, and closing a socket does not remove the mapping. The gateway's
// lifecycle coordinator is responsible for keeping the two in step.
//
// Invariants:
//   - at most one connection per device id; re-registering replaces
//   - at most one device id per connection; the latest helo wins
package session
