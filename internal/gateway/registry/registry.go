// Package registry keeps an in-memory view of the active AI provider
// configurations and resolves which provider serves a capability.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/metrics"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
	"github.com/rs/zerolog"
)

// DefaultTTL is how long a loaded snapshot is considered fresh
const DefaultTTL = 5 * time.Minute

var (
	// ErrInitialization is returned when the very first load fails
	ErrInitialization = errors.New("AI service initialization failed")

	// ErrNoServiceAvailable is returned when no active config serves a capability
	ErrNoServiceAvailable = errors.New("no service available")
)

// NoServiceError names the capability that could not be resolved
type NoServiceError struct {
	Capability string
}

func (e *NoServiceError) Error() string {
	return fmt.Sprintf("no %s service available", e.Capability)
}

func (e *NoServiceError) Is(target error) bool {
	return target == ErrNoServiceAvailable
}

// Store is the read side of the config store used by the registry
type Store interface {
	ListActiveServiceConfigs(ctx context.Context) ([]models.ServiceConfig, error)
}

// snapshot is never mutated after publication
type snapshot struct {
	configs  []models.ServiceConfig
	loadedAt time.Time
}

// Registry caches active service configurations with TTL-based refresh.
// Reads never block on a refresh in progress; a refresh publishes a whole
// new snapshot.
type Registry struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger

	current   atomic.Pointer[snapshot]
	refreshMu sync.Mutex
}

// Option configures the registry
type Option func(*Registry)

// WithTTL overrides the cache TTL
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithLogger sets the registry logger
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New creates a registry backed by store. Nothing is loaded until Refresh
// or the first resolution.
func New(store Store, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "registry").Logger()
	return r
}

// Refresh reloads active configurations from the store.
func (r *Registry) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()
	return r.refreshLocked(ctx)
}

func (r *Registry) refreshLocked(ctx context.Context) error {
	configs, err := r.store.ListActiveServiceConfigs(ctx)
	if err != nil {
		metrics.RegistryRefreshFailures.Inc()
		if r.current.Load() == nil {
			r.logger.Error().Err(err).Msg("failed to load AI service configurations")
			return fmt.Errorf("%w: %v", ErrInitialization, err)
		}
		r.logger.Warn().Err(err).Str("event", "registry_refresh_failed").
			Msg("keeping stale service configurations")
		return fmt.Errorf("refresh service configurations: %w", err)
	}

	active := make([]models.ServiceConfig, 0, len(configs))
	for _, cfg := range configs {
		if cfg.IsActive {
			active = append(active, cfg)
		}
	}

	r.current.Store(&snapshot{configs: active, loadedAt: r.now()})
	r.logger.Debug().Int("services", len(active)).Msg("service configurations loaded")
	return nil
}

// EnsureFresh refreshes when the snapshot is older than the TTL or empty.
// A failed refresh over an existing snapshot is not an error for callers.
func (r *Registry) EnsureFresh(ctx context.Context) error {
	if !r.stale() {
		return nil
	}

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	// Another caller may have refreshed while we waited
	if !r.stale() {
		return nil
	}

	err := r.refreshLocked(ctx)
	if err != nil && !errors.Is(err, ErrInitialization) {
		return nil
	}
	return err
}

func (r *Registry) stale() bool {
	snap := r.current.Load()
	if snap == nil || len(snap.configs) == 0 {
		return true
	}
	return r.now().Sub(snap.loadedAt) > r.ttl
}

// ResolvePrimary returns the primary config for capability, or the first
// active config of that type when none is marked primary.
func (r *Registry) ResolvePrimary(ctx context.Context, capability string) (models.ServiceConfig, error) {
	if err := r.EnsureFresh(ctx); err != nil {
		return models.ServiceConfig{}, err
	}

	snap := r.current.Load()
	if snap == nil {
		return models.ServiceConfig{}, &NoServiceError{Capability: capability}
	}

	for _, cfg := range snap.configs {
		if cfg.IsActive && cfg.ServiceType == capability && cfg.IsPrimary {
			return cfg, nil
		}
	}

	for _, cfg := range snap.configs {
		if cfg.IsActive && cfg.ServiceType == capability {
			return cfg, nil
		}
	}

	return models.ServiceConfig{}, &NoServiceError{Capability: capability}
}

// Snapshot returns a copy of the currently cached configurations
func (r *Registry) Snapshot() []models.ServiceConfig {
	snap := r.current.Load()
	if snap == nil {
		return nil
	}
	out := make([]models.ServiceConfig, len(snap.configs))
	copy(out, snap.configs)
	return out
}

// LastRefreshedAt returns when the current snapshot was loaded
func (r *Registry) LastRefreshedAt() time.Time {
	snap := r.current.Load()
	if snap == nil {
		return time.Time{}
	}
	return snap.loadedAt
}
