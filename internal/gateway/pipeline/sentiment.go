package pipeline

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/providers"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
)

const (
	operationSentiment = "sentiment_analysis"
	defaultLanguage    = "pt"
)

// sentimentAdaptations are always applied because the emotion analysis runs
// locally for every sentiment request
var sentimentAdaptations = []string{"saudade_detection", "cultural_emotion_analysis"}

// AnalyzeSentiment gets a baseline sentiment from the primary provider and
// merges it with the local saudade and nostalgia analysis
func (g *Gateway) AnalyzeSentiment(ctx context.Context, text, language, userID string) AIResponse {
	if language == "" {
		language = defaultLanguage
	}

	a := g.begin(operationSentiment, userID)
	a.requestTokens = utf8.RuneCountInString(text)
	a.culturalContext = "sentiment_" + language

	if text == "" {
		return g.fail(ctx, a, fmt.Errorf("%w: text is required", ErrInvalidRequest))
	}

	cfg, err := g.registry.ResolvePrimary(ctx, models.CapabilitySentiment)
	if err != nil {
		return g.fail(ctx, a, err)
	}
	a.service = cfg.ServiceName

	result, err := g.dispatcher.Dispatch(ctx, providers.OpAnalyzeSentiment, providers.Payload{
		Text:     text,
		Language: language,
	}, cfg)
	if err != nil {
		return g.fail(ctx, a, err)
	}

	emotions := g.analyzer.Analyze(text)
	sentiment := result.Sentiment
	if sentiment == "" {
		sentiment = "neutral"
	}
	confidence := orDefault(result.Confidence, DefaultSentimentConfidence)

	a.culturalContext = "saudade_analysis_" + language
	return g.succeed(ctx, a, success{
		data: SentimentResult{
			Sentiment:                sentiment,
			Confidence:               confidence,
			Emotions:                 result.Emotions,
			Intensity:                result.Intensity,
			PortugueseEmotions:       emotions,
			RequiresEmotionalSupport: emotions.RequiresEmotionalSupport(),
			CulturalContextDetected:  emotions.CulturalContextDetected(),
		},
		adaptations: append([]string{}, sentimentAdaptations...),
		confidence:  confidence,
		cost:        cfg.CostPerRequest,
	})
}
