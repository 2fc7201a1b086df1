package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Default service parameters.
const (
	DefaultServiceType = "_http._tcp"
	DefaultDomain      = "local."
)

// Strategy names.
const (
	StrategyZeroconf = "zeroconf"
	StrategyBonjour  = "bonjour"
)

// ErrUnknownStrategy is returned for a strategy name with no implementation.
var ErrUnknownStrategy = errors.New("discovery: unknown strategy")

// Service describes one announcement.
type Service struct {
	Instance string
	Type     string
	Domain   string
	Port     int
	Text     []string
}

// Strategy is one way of announcing a service.
//
// Start either returns a live Handle or an error. On error nothing is
// running and there is nothing to stop.
type Strategy interface {
	Name() string
	Start(ctx context.Context, svc Service) (Handle, error)
}

// Handle stops a running announcement.
type Handle interface {
	Stop()
}

// HandleFunc adapts a shutdown function to Handle.
type HandleFunc func()

// Stop implements Handle.
func (f HandleFunc) Stop() { f() }

// Options are shared by the built-in strategies.
type Options struct {
	// Interface restricts announcements to one interface. Empty means all.
	Interface string

	// TTL overrides the record time-to-live. Zero keeps the library default.
	TTL time.Duration
}

// NewStrategies builds strategies by name in the given order.
func NewStrategies(names []string, opts Options) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		switch name {
		case StrategyZeroconf:
			out = append(out, NewZeroconf(opts))
		case StrategyBonjour:
			out = append(out, NewBonjour(opts))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
		}
	}
	return out, nil
}

// interfaces resolves the configured interface. nil means all interfaces.
func (o Options) interfaces() ([]net.Interface, error) {
	if o.Interface == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(o.Interface)
	if err != nil {
		return nil, fmt.Errorf("resolving interface %q: %w", o.Interface, err)
	}
	return []net.Interface{*iface}, nil
}

func (o Options) ttlSeconds() uint32 {
	if o.TTL <= 0 {
		return 0
	}
	return uint32(o.TTL.Seconds())
}
