package discovery

import (
	"context"
	"fmt"

	"github.com/enbility/zeroconf/v3"
)

// Zeroconf announces through github.com/enbility/zeroconf/v3.
type Zeroconf struct {
	opts Options
}

// NewZeroconf creates the primary strategy.
func NewZeroconf(opts Options) *Zeroconf {
	return &Zeroconf{opts: opts}
}

// Name implements Strategy.
func (z *Zeroconf) Name() string { return StrategyZeroconf }

// Start implements Strategy.
func (z *Zeroconf) Start(ctx context.Context, svc Service) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ifaces, err := z.opts.interfaces()
	if err != nil {
		return nil, err
	}

	var serverOpts []zeroconf.ServerOption
	if ttl := z.opts.ttlSeconds(); ttl > 0 {
		serverOpts = append(serverOpts, zeroconf.TTL(ttl))
	}

	server, err := zeroconf.Register(
		svc.Instance,
		svc.Type,
		svc.Domain,
		svc.Port,
		svc.Text,
		ifaces,
		serverOpts...,
	)
	if err != nil {
		return nil, fmt.Errorf("zeroconf register: %w", err)
	}
	return HandleFunc(server.Shutdown), nil
}
