package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidService is returned by Start for an empty name or a bad port.
var ErrInvalidService = errors.New("discovery: invalid service")

// Logger is the logging interface used by Advertiser.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Config holds the advertised service type and domain.
type Config struct {
	ServiceType string
	Domain      string
	Text        []string
}

// Advertiser keeps at most one announcement alive using the first strategy
// that starts.
//
// Thread Safety: all methods are safe for concurrent use.
type Advertiser struct {
	cfg        Config
	strategies []Strategy
	logger     Logger

	mu     sync.Mutex
	active Handle
	name   string
}

// NewAdvertiser creates an advertiser that tries strategies in order.
func NewAdvertiser(cfg Config, strategies ...Strategy) *Advertiser {
	if cfg.ServiceType == "" {
		cfg.ServiceType = DefaultServiceType
	}
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}
	return &Advertiser{
		cfg:        cfg,
		strategies: strategies,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for announcement events.
func (a *Advertiser) SetLogger(l Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if l == nil {
		l = noopLogger{}
	}
	a.logger = l
}

// Start announces name on port, replacing any previous announcement.
//
// Strategy failures are not returned: when none starts the advertiser is
// degraded and Active reports "". Only invalid input or a cancelled context
// produce an error.
func (a *Advertiser) Start(ctx context.Context, name string, port int) error {
	if name == "" || port <= 0 || port > 65535 {
		return fmt.Errorf("%w: name=%q port=%d", ErrInvalidService, name, port)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()

	svc := Service{
		Instance: name,
		Type:     a.cfg.ServiceType,
		Domain:   a.cfg.Domain,
		Port:     port,
		Text:     a.cfg.Text,
	}

	for _, s := range a.strategies {
		if err := ctx.Err(); err != nil {
			return err
		}
		handle, err := s.Start(ctx, svc)
		if err != nil {
			a.logger.Warn("mdns strategy failed, trying next", "strategy", s.Name(), "error", err)
			continue
		}
		a.active = handle
		a.name = s.Name()
		a.logger.Info("mdns announcement started",
			"strategy", s.Name(),
			"instance", svc.Instance,
			"service", svc.Type,
			"port", svc.Port,
		)
		return nil
	}

	a.logger.Warn("mdns unavailable, gateway reachable by address only",
		"strategies", len(a.strategies),
		"port", port,
	)
	return nil
}

// Stop withdraws the active announcement. Safe to call any number of times.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Advertiser) stopLocked() {
	if a.active == nil {
		return
	}
	a.active.Stop()
	a.logger.Info("mdns announcement stopped", "strategy", a.name)
	a.active = nil
	a.name = ""
}

// Active returns the name of the running strategy, or "" when nothing is
// announced.
func (a *Advertiser) Active() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}
