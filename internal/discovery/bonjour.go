package discovery

import (
	"context"
	"fmt"

	bonjour "github.com/grandcat/zeroconf"
)

// Bonjour announces through github.com/grandcat/zeroconf.
type Bonjour struct {
	opts Options
}

// NewBonjour creates the fallback strategy.
func NewBonjour(opts Options) *Bonjour {
	return &Bonjour{opts: opts}
}

// Name implements Strategy.
func (b *Bonjour) Name() string { return StrategyBonjour }

// Start implements Strategy.
func (b *Bonjour) Start(ctx context.Context, svc Service) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ifaces, err := b.opts.interfaces()
	if err != nil {
		return nil, err
	}

	server, err := bonjour.Register(svc.Instance, svc.Type, svc.Domain, svc.Port, svc.Text, ifaces)
	if err != nil {
		return nil, fmt.Errorf("bonjour register: %w", err)
	}
	if ttl := b.opts.ttlSeconds(); ttl > 0 {
		server.TTL(ttl)
	}
	return HandleFunc(server.Shutdown), nil
}
