package pipeline

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/cache"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/cultural"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/metrics"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/providers"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
	"github.com/shopspring/decimal"
)

const (
	operationTranslation = "translation"
	standardDialect      = "standard"
)

// TranslateText translates through the primary translation provider and
// applies dialect post-processing to the result
func (g *Gateway) TranslateText(ctx context.Context, req TranslateRequest) AIResponse {
	a := g.begin(operationTranslation, req.UserID)
	a.requestTokens = utf8.RuneCountInString(req.Text)
	a.culturalContext = fmt.Sprintf("%s-%s", req.SourceLanguage, req.TargetLanguage)

	if err := req.validate(); err != nil {
		return g.fail(ctx, a, err)
	}

	cfg, err := g.registry.ResolvePrimary(ctx, models.CapabilityTranslation)
	if err != nil {
		return g.fail(ctx, a, err)
	}
	a.service = cfg.ServiceName

	if _, err := g.validate(ctx, req.Text, req.CulturalContext); err != nil {
		return g.fail(ctx, a, err)
	}

	dialect := string(req.Dialect)
	if dialect == "" {
		dialect = standardDialect
	}
	adaptations := []string{"dialect_" + dialect}
	key := cache.Key{
		ServiceName:    cfg.ServiceName,
		Text:           req.Text,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Dialect:        dialect,
	}

	if entry := g.cachedTranslation(ctx, key); entry != nil {
		metrics.TranslationCacheHits.Inc()
		a.culturalContext = fmt.Sprintf("%s-%s-%s", req.SourceLanguage, req.TargetLanguage, dialect)
		return g.succeed(ctx, a, success{
			data:           translateResult(req, dialect, entry.TranslatedText, entry.Model),
			adaptations:    entry.CulturalAdaptations,
			confidence:     orDefault(entry.Confidence, DefaultTranslateConfidence),
			cost:           decimal.Zero,
			responseTokens: utf8.RuneCountInString(entry.TranslatedText),
			cacheHit:       true,
		})
	}

	result, err := g.dispatcher.Dispatch(ctx, providers.OpTranslate, providers.Payload{
		Text:           req.Text,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Dialect:        string(req.Dialect),
	}, cfg)
	if err != nil {
		return g.fail(ctx, a, err)
	}

	translated := result.Text
	if req.Dialect != "" && req.Dialect != cultural.DialectContinental {
		translated, _ = cultural.AdaptDialect(translated, req.Dialect)
	}
	confidence := orDefault(result.Confidence, DefaultTranslateConfidence)

	g.storeTranslation(ctx, key, &cache.Entry{
		TranslatedText:      translated,
		Model:               result.Model,
		Confidence:          confidence,
		CulturalAdaptations: adaptations,
	})

	a.culturalContext = fmt.Sprintf("%s-%s-%s", req.SourceLanguage, req.TargetLanguage, dialect)
	return g.succeed(ctx, a, success{
		data:           translateResult(req, dialect, translated, result.Model),
		adaptations:    adaptations,
		confidence:     confidence,
		cost:           cfg.CostPerRequest,
		responseTokens: utf8.RuneCountInString(translated),
	})
}

func (g *Gateway) cachedTranslation(ctx context.Context, key cache.Key) *cache.Entry {
	if g.cache == nil {
		return nil
	}
	entry, err := g.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			g.logger.Warn().Err(err).Str("service", key.ServiceName).Msg("translation cache lookup failed, calling provider")
		}
		return nil
	}
	return entry
}

func (g *Gateway) storeTranslation(ctx context.Context, key cache.Key, entry *cache.Entry) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, key, entry, g.cacheTTL); err != nil {
		g.logger.Warn().Err(err).Str("service", key.ServiceName).Msg("failed to cache translation")
	}
}

func translateResult(req TranslateRequest, dialect, text, model string) TranslateResult {
	return TranslateResult{
		TranslatedText: text,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Dialect:        dialect,
		Model:          model,
	}
}

func (r TranslateRequest) validate() error {
	if r.Text == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	if r.TargetLanguage == "" {
		return fmt.Errorf("%w: target_language is required", ErrInvalidRequest)
	}
	if r.Dialect != "" && !r.Dialect.Valid() {
		return fmt.Errorf("%w: unknown dialect %q", ErrInvalidRequest, r.Dialect)
	}
	return nil
}
