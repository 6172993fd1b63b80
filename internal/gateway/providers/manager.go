package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/metrics"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/config"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
	"github.com/rs/zerolog"
)

// DefaultTimeout applies when a service config carries no timeout_ms
const DefaultTimeout = 30 * time.Second

// RateLimiter enforces a fixed-window request budget per key
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int) (bool, int, error)
}

// Manager holds the adapters keyed by (capability, service name) and applies
// per-service timeouts and rate limits around every call. It makes exactly
// one attempt per Dispatch.
type Manager struct {
	mu       sync.RWMutex
	adapters map[string]Adapter

	limiter RateLimiter
	timeout time.Duration
	logger  zerolog.Logger
}

// Option configures the manager
type Option func(*Manager)

// WithRateLimiter enables per-service requests_per_minute enforcement
func WithRateLimiter(l RateLimiter) Option {
	return func(m *Manager) {
		m.limiter = l
	}
}

// WithDefaultTimeout overrides DefaultTimeout
func WithDefaultTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the manager logger
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an empty adapter manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		adapters: make(map[string]Adapter),
		timeout:  DefaultTimeout,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "providers").Logger()
	return m
}

// NewManagerFromConfig registers an adapter for every vendor with credentials
func NewManagerFromConfig(cfg *config.Config, opts ...Option) *Manager {
	m := NewManager(append([]Option{WithDefaultTimeout(cfg.ProviderTimeout)}, opts...)...)

	if cfg.OpenAIAPIKey != "" {
		m.Register(NewOpenAIAdapter(cfg.OpenAIAPIKey))
	}
	if cfg.AzureOpenAIAPIKey != "" && cfg.AzureOpenAIBaseURL != "" {
		m.Register(NewAzureOpenAIAdapter(cfg.AzureOpenAIAPIKey, cfg.AzureOpenAIBaseURL))
	}
	if cfg.AnthropicAPIKey != "" {
		m.Register(NewAnthropicAdapter(cfg.AnthropicAPIKey, ""))
	}
	if cfg.GeminiAPIKey != "" {
		m.Register(NewGeminiAdapter(cfg.GeminiAPIKey, ""))
	}
	if cfg.GoogleCloudAPIKey != "" {
		m.Register(NewGoogleTranslateAdapter(cfg.GoogleCloudAPIKey, ""))
		m.Register(NewGoogleLanguageAdapter(cfg.GoogleCloudAPIKey, ""))
	}
	if cfg.AzureCognitiveKey != "" {
		m.Register(NewAzureTranslatorAdapter(cfg.AzureCognitiveKey, cfg.AzureCognitiveRegion, ""))
		m.Register(NewAzureTextAnalyticsAdapter(cfg.AzureCognitiveKey, cfg.AzureCognitiveEndpoint))
	}

	m.logger.Info().Strs("adapters", m.Registered()).Msg("provider adapters registered")
	return m
}

// Register adds or replaces the adapter for its (capability, name)
func (m *Manager) Register(a Adapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adapters[adapterKey(a.Capability(), a.Name())] = a
}

// Supports reports whether an adapter exists for the service config
func (m *Manager) Supports(cfg models.ServiceConfig) bool {
	_, ok := m.lookup(cfg)
	return ok
}

// Registered lists "capability/name" for every adapter, sorted
func (m *Manager) Registered() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.adapters))
	for k := range m.adapters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dispatch performs op against the adapter serving cfg. Failures are returned
// as *UnsupportedProviderError or *ProviderError.
func (m *Manager) Dispatch(ctx context.Context, op Operation, payload Payload, cfg models.ServiceConfig) (*Result, error) {
	adapter, ok := m.lookup(cfg)
	if !ok {
		m.observe(cfg.ServiceName, op, "unsupported")
		return nil, &UnsupportedProviderError{ServiceName: cfg.ServiceName, Capability: cfg.ServiceType}
	}

	if err := m.checkRateLimit(ctx, cfg); err != nil {
		m.observe(cfg.ServiceName, op, "rate_limited")
		return nil, &ProviderError{ServiceName: cfg.ServiceName, Operation: op, Err: err}
	}

	timeout := cfg.RateLimits.Timeout()
	if timeout <= 0 {
		timeout = m.timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := adapter.Call(callCtx, op, payload, cfg)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, err)
			m.observe(cfg.ServiceName, op, "timeout")
		} else {
			m.observe(cfg.ServiceName, op, "error")
		}
		m.logger.Warn().Err(err).
			Str("service", cfg.ServiceName).
			Str("operation", string(op)).
			Msg("provider call failed")
		return nil, &ProviderError{ServiceName: cfg.ServiceName, Operation: op, Err: err}
	}
	if result == nil {
		m.observe(cfg.ServiceName, op, "error")
		return nil, &ProviderError{ServiceName: cfg.ServiceName, Operation: op, Err: errors.New("empty provider result")}
	}

	m.observe(cfg.ServiceName, op, "success")
	return result, nil
}

// checkRateLimit fails open when the limiter itself is unavailable
func (m *Manager) checkRateLimit(ctx context.Context, cfg models.ServiceConfig) error {
	limit := cfg.RateLimits.RequestsPerMinute
	if m.limiter == nil || limit <= 0 {
		return nil
	}

	exceeded, _, err := m.limiter.CheckRateLimit(ctx, "service:"+cfg.ServiceName, limit)
	if err != nil {
		m.logger.Warn().Err(err).Str("service", cfg.ServiceName).Msg("rate limit check failed, allowing call")
		return nil
	}
	if exceeded {
		return fmt.Errorf("%w: %d requests per minute", ErrRateLimited, limit)
	}
	return nil
}

func (m *Manager) lookup(cfg models.ServiceConfig) (Adapter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.adapters[adapterKey(cfg.ServiceType, cfg.ServiceName)]
	return a, ok
}

func (m *Manager) observe(service string, op Operation, status string) {
	metrics.ProviderCalls.WithLabelValues(service, string(op), status).Inc()
}

func adapterKey(capability, name string) string {
	return capability + "/" + name
}
