// Package identity resolves the server UUID reported to scanners in the
// handshake reply.
//
// An app-scoped hash of the machine's installation id is preferred so the
// value survives reinstalls of the desktop app without disclosing the raw
// machine id to scanners. When it can't be read (sandboxed builds,
// containers, missing /etc/machine-id) a random UUID is generated once and
// persisted through a KeyValue store, keeping it stable across restarts.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
)

// persistTimeout bounds the fallback store round trip.
const persistTimeout = 5 * time.Second

// appID keys the machine id hash so other apps can't correlate the value.
const appID = "scanlink"

// protectedMachineID returns HMAC-SHA256(machine id, appID) in hex.
func protectedMachineID() (string, error) {
	return machineid.ProtectedID(appID)
}

// KeyValue is the subset of the settings store used to persist the fallback id.
// Any Get error is treated as "not stored yet".
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Logger is the logging interface used by Resolver.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// ErrUnavailable is returned by a hardware source that has no id to offer.
var ErrUnavailable = errors.New("identity: hardware id unavailable")

// Resolver lazily resolves the server identity once per process.
//
// Thread Safety: ServerUUID is safe for concurrent use; resolution happens
// at most once.
type Resolver struct {
	hardwareID func() (string, error)
	newID      func() string
	store      KeyValue
	key        string
	logger     Logger

	once sync.Once
	id   string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHardwareSource replaces the machine id lookup.
func WithHardwareSource(fn func() (string, error)) Option {
	return func(r *Resolver) { r.hardwareID = fn }
}

// WithGenerator replaces the random UUID generator used for the fallback.
func WithGenerator(fn func() string) Option {
	return func(r *Resolver) { r.newID = fn }
}

// WithLogger sets the logger used to report fallback decisions.
func WithLogger(l Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver that persists the fallback id under key in store.
// store may be nil, in which case the fallback id lives only for this process.
func NewResolver(store KeyValue, key string, opts ...Option) *Resolver {
	r := &Resolver{
		hardwareID: protectedMachineID,
		newID:      uuid.NewString,
		store:      store,
		key:        key,
		logger:     noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ServerUUID returns the cached identity, resolving it on first call.
// It never fails: every error path degrades to a generated id.
func (r *Resolver) ServerUUID() string {
	r.once.Do(func() {
		r.id = r.resolve()
	})
	return r.id
}

func (r *Resolver) resolve() string {
	id, err := r.hardwareID()
	id = strings.TrimSpace(id)
	if err == nil && id != "" {
		return id
	}
	r.logger.Warn("hardware id unavailable, using persisted fallback", "error", err)

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if r.store != nil {
		if stored, getErr := r.store.Get(ctx, r.key); getErr == nil && stored != "" {
			return stored
		}
	}

	generated := r.newID()
	if r.store != nil {
		if setErr := r.store.Set(ctx, r.key, generated); setErr != nil {
			r.logger.Warn("failed to persist fallback server uuid", "error", setErr)
		}
	}
	return generated
}
