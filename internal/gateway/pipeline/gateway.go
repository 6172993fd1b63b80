// Package pipeline runs the three public gateway operations end to end:
// resolve a provider, validate against cultural guidelines, dispatch, apply
// cultural post-processing, record usage and assemble the response.
//
// Every invocation writes exactly one usage row and returns an AIResponse;
// failures are reported in the response, never as a Go error or panic.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/cache"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/emotion"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/guidelines"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/metrics"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/providers"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/usage"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// unknownService is recorded when no provider was resolved
const unknownService = "unknown"

// Confidence reported when the provider does not return one
const (
	DefaultGenerateConfidence  = 0.9
	DefaultTranslateConfidence = 0.95
	DefaultSentimentConfidence = 0.8
)

// Resolver picks the provider config for a capability
type Resolver interface {
	ResolvePrimary(ctx context.Context, capability string) (models.ServiceConfig, error)
}

// GuidelineValidator checks content before dispatch
type GuidelineValidator interface {
	Validate(ctx context.Context, content, culturalContext string) guidelines.Result
}

// Dispatcher calls the adapter for a resolved config
type Dispatcher interface {
	Dispatch(ctx context.Context, op providers.Operation, payload providers.Payload, cfg models.ServiceConfig) (*providers.Result, error)
}

// UsageRecorder writes one usage row and returns its id
type UsageRecorder interface {
	Record(ctx context.Context, entry usage.Entry) string
}

// TranslationCache stores finished translations
type TranslationCache interface {
	Get(ctx context.Context, k cache.Key) (*cache.Entry, error)
	Set(ctx context.Context, k cache.Key, entry *cache.Entry, ttl time.Duration) error
}

// Gateway is the request pipeline. It is safe for concurrent use.
type Gateway struct {
	registry   Resolver
	validator  GuidelineValidator
	dispatcher Dispatcher
	meter      UsageRecorder

	analyzer *emotion.Analyzer
	cache    TranslationCache
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures the gateway
type Option func(*Gateway)

// WithAnalyzer sets the emotion analyzer used by AnalyzeSentiment
func WithAnalyzer(a *emotion.Analyzer) Option {
	return func(g *Gateway) {
		g.analyzer = a
	}
}

// WithTranslationCache enables the translation result cache
func WithTranslationCache(c TranslationCache, ttl time.Duration) Option {
	return func(g *Gateway) {
		g.cache = c
		g.cacheTTL = ttl
	}
}

// WithLogger sets the gateway logger
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithClock overrides the wall clock used for latency
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// New creates a gateway over its collaborators
func New(reg Resolver, val GuidelineValidator, dispatcher Dispatcher, meter UsageRecorder, opts ...Option) *Gateway {
	g := &Gateway{
		registry:   reg,
		validator:  val,
		dispatcher: dispatcher,
		meter:      meter,
		logger:     zerolog.Nop(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.analyzer == nil {
		g.analyzer = emotion.NewAnalyzer(emotion.MustDefaultLexicon())
	}
	g.logger = g.logger.With().Str("component", "pipeline").Logger()
	return g
}

// attempt tracks one invocation until its usage row is written
type attempt struct {
	operation       string
	requestID       string
	start           time.Time
	service         string
	userID          string
	culturalContext string
	requestTokens   int
}

func (g *Gateway) begin(operation, userID string) *attempt {
	return &attempt{
		operation: operation,
		requestID: g.newID(),
		start:     g.now(),
		service:   unknownService,
		userID:    userID,
	}
}

// fail records a failed usage row and builds the failed response
func (g *Gateway) fail(ctx context.Context, a *attempt, err error) AIResponse {
	elapsed := g.now().Sub(a.start)

	usageID := g.meter.Record(ctx, usage.Entry{
		ServiceName:     a.service,
		OperationType:   a.operation,
		UserID:          a.userID,
		RequestTokens:   a.requestTokens,
		Latency:         elapsed,
		Success:         false,
		ErrorMessage:    err.Error(),
		CulturalContext: a.culturalContext,
	})

	metrics.RequestsTotal.WithLabelValues(a.operation, a.service, "failure").Inc()
	metrics.RequestDuration.WithLabelValues(a.operation).Observe(elapsed.Seconds())

	g.logger.Warn().Err(err).
		Str("request_id", a.requestID).
		Str("operation", a.operation).
		Str("service", a.service).
		Str("usage_id", usageID).
		Msg("gateway operation failed")

	return AIResponse{
		Success:                    false,
		Error:                      err.Error(),
		ServiceUsed:                a.service,
		ResponseTimeMs:             elapsed.Milliseconds(),
		CulturalAdaptationsApplied: []string{},
		Cost:                       decimal.Zero,
		UsageID:                    usageID,
		RequestID:                  a.requestID,
		Err:                        err,
	}
}

// success describes a completed operation
type success struct {
	data           any
	adaptations    []string
	confidence     float64
	cost           decimal.Decimal
	responseTokens int
	cacheHit       bool
}

// succeed records a successful usage row and builds the response
func (g *Gateway) succeed(ctx context.Context, a *attempt, s success) AIResponse {
	elapsed := g.now().Sub(a.start)

	usageID := g.meter.Record(ctx, usage.Entry{
		ServiceName:     a.service,
		OperationType:   a.operation,
		UserID:          a.userID,
		RequestTokens:   a.requestTokens,
		ResponseTokens:  s.responseTokens,
		Latency:         elapsed,
		Success:         true,
		CulturalContext: a.culturalContext,
	})

	metrics.RequestsTotal.WithLabelValues(a.operation, a.service, "success").Inc()
	metrics.RequestDuration.WithLabelValues(a.operation).Observe(elapsed.Seconds())

	g.logger.Debug().
		Str("request_id", a.requestID).
		Str("operation", a.operation).
		Str("service", a.service).
		Bool("cache_hit", s.cacheHit).
		Dur("latency", elapsed).
		Msg("gateway operation completed")

	adaptations := s.adaptations
	if adaptations == nil {
		adaptations = []string{}
	}
	confidence := s.confidence

	return AIResponse{
		Success:                    true,
		Data:                       s.data,
		ServiceUsed:                a.service,
		ResponseTimeMs:             elapsed.Milliseconds(),
		CulturalAdaptationsApplied: adaptations,
		ConfidenceScore:            &confidence,
		Cost:                       s.cost,
		UsageID:                    usageID,
		RequestID:                  a.requestID,
		CacheHit:                   s.cacheHit,
	}
}

// validate runs the guideline validator and turns a rejection into an error
func (g *Gateway) validate(ctx context.Context, content, culturalContext string) (guidelines.Result, error) {
	result := g.validator.Validate(ctx, content, culturalContext)
	if !result.IsAppropriate {
		metrics.GuidelineRejections.Inc()
		return result, &guidelines.ViolationError{Violations: result.Violations}
	}
	return result, nil
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
