package mqtt

import "strings"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "scanlink"

// Topics builds host channel topics under a prefix.
//
//	topics := mqtt.NewTopics("scanlink")
//	topics.HostEvent("wsClose")
//	// Returns: "scanlink/host/event/wsClose"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix. Trailing slashes are dropped and an
// empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// GatewayStatus is the retained online/offline status topic.
//
// Example: scanlink/gateway/status
func (t Topics) GatewayStatus() string {
	return t.Prefix() + "/gateway/status"
}

// HostEvent is where the gateway publishes a named event for the host.
//
// Example: scanlink/host/event/wsClose
func (t Topics) HostEvent(name string) string {
	return t.Prefix() + "/host/event/" + name
}

// HostFrame is where scanner frames are relayed to the host, one subtree
// apart from HostEvent so a frame can never pose as a gateway event.
//
// Example: scanlink/host/frame/putScanSessions
func (t Topics) HostFrame(action string) string {
	return t.Prefix() + "/host/frame/" + action
}

// HostCommand is where the host sends a named command to the gateway.
//
// Example: scanlink/host/command/kick
func (t Topics) HostCommand(name string) string {
	return t.Prefix() + "/host/command/" + name
}

// AllHostCommands matches every host command.
//
// Example: scanlink/host/command/+
func (t Topics) AllHostCommands() string {
	return t.HostCommand("+")
}

// CommandName extracts the command name from a HostCommand topic.
func (t Topics) CommandName(topic string) (string, bool) {
	name, ok := strings.CutPrefix(topic, t.HostCommand(""))
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// maxSegmentLen bounds a caller-supplied topic segment.
const maxSegmentLen = 64

// ValidSegment reports whether s can be used as a single topic level.
// Only letters, digits, '-', '_' and '.' are accepted, which excludes the
// level separator and both wildcards.
func ValidSegment(s string) bool {
	if s == "" || len(s) > maxSegmentLen {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
