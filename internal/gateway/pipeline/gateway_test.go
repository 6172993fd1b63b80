package pipeline

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/cache"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/cultural"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/guidelines"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/providers"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/registry"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/usage"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[string]models.ServiceConfig

func (f fakeResolver) ResolvePrimary(ctx context.Context, capability string) (models.ServiceConfig, error) {
	cfg, ok := f[capability]
	if !ok {
		return models.ServiceConfig{}, &registry.NoServiceError{Capability: capability}
	}
	return cfg, nil
}

type fakeValidator struct {
	mu     sync.Mutex
	result guidelines.Result
	calls  int
}

func (f *fakeValidator) Validate(ctx context.Context, content, culturalContext string) guidelines.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result
}

func appropriate(enhancements ...string) *fakeValidator {
	return &fakeValidator{result: guidelines.Result{IsAppropriate: true, AccuracyScore: 1, Enhancements: enhancements}}
}

type fakeDispatcher struct {
	mu       sync.Mutex
	payloads []providers.Payload
	result   *providers.Result
	err      error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, op providers.Operation, payload providers.Payload, cfg models.ServiceConfig) (*providers.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeDispatcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type fakeMeter struct {
	mu      sync.Mutex
	entries []usage.Entry
	id      string
}

func (f *fakeMeter) Record(ctx context.Context, entry usage.Entry) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	if f.id == "" {
		return "usage-1"
	}
	return f.id
}

type memoryCache struct {
	entries map[cache.Key]*cache.Entry
}

func (m *memoryCache) Get(ctx context.Context, k cache.Key) (*cache.Entry, error) {
	e, ok := m.entries[k]
	if !ok {
		return nil, cache.ErrMiss
	}
	return e, nil
}

func (m *memoryCache) Set(ctx context.Context, k cache.Key, entry *cache.Entry, ttl time.Duration) error {
	m.entries[k] = entry
	return nil
}

func openAIConfig() models.ServiceConfig {
	return models.ServiceConfig{
		ServiceName:    "openai",
		ServiceType:    models.CapabilityLLM,
		IsActive:       true,
		IsPrimary:      true,
		CostPerRequest: decimal.RequireFromString("0.002"),
	}
}

func generateRequest() AIRequest {
	return AIRequest{
		OperationType: "generate_text",
		InputData:     map[string]any{"prompt": "Escreve uma mensagem para a comunidade"},
		UserID:        "user-1",
	}
}

func TestGenerateText_Success(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &providers.Result{Text: "Olá a todos", Model: "gpt-4o-mini", RequestTokens: 10, ResponseTokens: 4}}
	meter := &fakeMeter{}
	g := New(fakeResolver{models.CapabilityLLM: openAIConfig()}, appropriate("community_tone"), dispatcher, meter)

	resp := g.GenerateText(context.Background(), generateRequest())

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "openai", resp.ServiceUsed)
	assert.Equal(t, "usage-1", resp.UsageID)
	assert.NotEmpty(t, resp.RequestID)
	assert.True(t, resp.Cost.Equal(decimal.RequireFromString("0.002")))
	assert.Equal(t, []string{"community_tone"}, resp.CulturalAdaptationsApplied)
	require.NotNil(t, resp.ConfidenceScore)
	assert.Equal(t, DefaultGenerateConfidence, *resp.ConfidenceScore)

	data, ok := resp.Data.(GenerateResult)
	require.True(t, ok)
	assert.Equal(t, "Olá a todos", data.Text)

	require.Len(t, meter.entries, 1)
	entry := meter.entries[0]
	assert.True(t, entry.Success)
	assert.Equal(t, "openai", entry.ServiceName)
	assert.Equal(t, "generate_text", entry.OperationType)
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, 10, entry.RequestTokens)
	assert.Equal(t, 4, entry.ResponseTokens)
}

func TestGenerateText_PreprocessesPortugueseOptions(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &providers.Result{Text: "ok"}}
	g := New(fakeResolver{models.CapabilityLLM: openAIConfig()}, appropriate(), dispatcher, &fakeMeter{})

	req := generateRequest()
	req.PortugueseOptions = &PortugueseOptions{
		Region:           "norte",
		FormalityLevel:   "respectful",
		SaudadeAwareness: true,
	}
	resp := g.GenerateText(context.Background(), req)
	require.True(t, resp.Success, resp.Error)

	require.Equal(t, 1, dispatcher.calls())
	payload := dispatcher.payloads[0]
	assert.Equal(t, "Escreve uma mensagem para a comunidade", payload.Prompt)
	assert.Equal(t, "norte", payload.Fields["regional_context"])
	assert.Equal(t, "use respectful register for elders/authority", payload.Fields["formality_instructions"])
	assert.Contains(t, payload.SystemInstructions, "use respectful register for elders/authority")
	assert.NotEmpty(t, payload.Fields["emotional_awareness"])
}

func TestGenerateText_NoFormalityInstructionWhenUnset(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &providers.Result{Text: "ok"}}
	g := New(fakeResolver{models.CapabilityLLM: openAIConfig()}, appropriate(), dispatcher, &fakeMeter{})

	g.GenerateText(context.Background(), generateRequest())

	require.Equal(t, 1, dispatcher.calls())
	assert.Empty(t, dispatcher.payloads[0].SystemInstructions)
	assert.NotContains(t, dispatcher.payloads[0].Fields, "formality_instructions")
}

func TestGenerateText_BrazilianDialectAdaptation(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &providers.Result{Text: "Tu vais apanhar o autocarro?"}}
	g := New(fakeResolver{models.CapabilityLLM: openAIConfig()}, appropriate("formal_greeting"), dispatcher, &fakeMeter{})

	req := generateRequest()
	req.PortugueseOptions = &PortugueseOptions{Dialect: "brazilian", GenerationAdaptation: "second"}
	resp := g.GenerateText(context.Background(), req)

	require.True(t, resp.Success, resp.Error)
	data := resp.Data.(GenerateResult)
	assert.Equal(t, "Você vais apanhar o ônibus?", data.Text)
	assert.Equal(t, "second_generation", data.GenerationAdaptation)
	assert.Equal(t, []string{"formal_greeting", "dialect_brazilian"}, resp.CulturalAdaptationsApplied)
}

func TestGenerateText_UnchangedContentIsNotReportedAsAdapted(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &providers.Result{Text: "Bom dia"}}
	g := New(fakeResolver{models.CapabilityLLM: openAIConfig()}, appropriate(), dispatcher, &fakeMeter{})

	for _, dialect := range []string{"brazilian", "african", "continental"} {
		req := generateRequest()
		req.PortugueseOptions = &PortugueseOptions{Dialect: cultural.Dialect(dialect), GenerationAdaptation: "first"}
		resp := g.GenerateText(context.Background(), req)

		require.True(t, resp.Success, resp.Error)
		assert.Empty(t, resp.CulturalAdaptationsApplied, dialect)
		assert.Equal(t, "Bom dia", resp.Data.(GenerateResult).Text)
	}
}

func TestGenerateText_GuidelineViolationSkipsProvider(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &providers.Result{Text: "never"}}
	meter := &fakeMeter{}
	validator := &fakeValidator{result: guidelines.Result{
		IsAppropriate: false,
		Violations:    []string{"pejorative term"},
	}}
	g := New(fakeResolver{models.CapabilityLLM: openAIConfig()}, validator, dispatcher, meter)

	resp := g.GenerateText(context.Background(), generateRequest())

	assert.False(t, resp.Success)
	assert.True(t, resp.Cost.IsZero())
	assert.Contains(t, resp.Error, "pejorative term")
	var verr *guidelines.ViolationError
	assert.ErrorAs(t, resp.Err, &verr)
	assert.Equal(t, 0, dispatcher.calls())
	require.Len(t, meter.entries, 1)
	assert.False(t, meter.entries[0].Success)
	assert.Equal(t, "usage-1", resp.UsageID)
}

func TestGenerateText_NoServiceAvailable(t *testing.T) {
	meter := &fakeMeter{}
	validator := appropriate()
	g := New(fakeResolver{}, validator, &fakeDispatcher{}, meter)

	resp := g.GenerateText(context.Background(), generateRequest())

	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Err, registry.ErrNoServiceAvailable)
	assert.Contains(t, resp.Error, "service available")
	assert.Equal(t, "unknown", resp.ServiceUsed)
	assert.True(t, resp.Cost.IsZero())
	assert.Equal(t, 0, validator.calls)
	require.Len(t, meter.entries, 1)
	assert.Equal(t, "unknown", meter.entries[0].ServiceName)
	assert.Equal(t, "no llm service available", meter.entries[0].ErrorMessage)
}

func TestGenerateText_ProviderError(t *testing.T) {
	meter := &fakeMeter{}
	dispatcher := &fakeDispatcher{err: &providers.ProviderError{
		ServiceName: "openai",
		Operation:   providers.OpGenerateText,
		Err:         providers.ErrTimeout,
	}}
	g := New(fakeResolver{models.CapabilityLLM: openAIConfig()}, appropriate(), dispatcher, meter)

	resp := g.GenerateText(context.Background(), generateRequest())

	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Err, providers.ErrTimeout)
	assert.Equal(t, "openai", resp.ServiceUsed)
	assert.True(t, resp.Cost.IsZero())
	assert.Empty(t, resp.CulturalAdaptationsApplied)
	require.Len(t, meter.entries, 1)
	assert.Equal(t, "openai", meter.entries[0].ServiceName)
	assert.False(t, meter.entries[0].Success)
}

func TestGenerateText_InvalidOptions(t *testing.T) {
	meter := &fakeMeter{}
	dispatcher := &fakeDispatcher{}
	g := New(fakeResolver{models.CapabilityLLM: openAIConfig()}, appropriate(), dispatcher, meter)

	req := generateRequest()
	req.PortugueseOptions = &PortugueseOptions{Dialect: "galician"}
	resp := g.GenerateText(context.Background(), req)

	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Err, ErrInvalidRequest)
	assert.Equal(t, 0, dispatcher.calls())
	assert.Len(t, meter.entries, 1)
}

func TestGenerateText_MissingPrompt(t *testing.T) {
	meter := &fakeMeter{}
	g := New(fakeResolver{models.CapabilityLLM: openAIConfig()}, appropriate(), &fakeDispatcher{}, meter)

	resp := g.GenerateText(context.Background(), AIRequest{InputData: map[string]any{"max_tokens": 10}})

	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Err, ErrInvalidRequest)
	assert.Len(t, meter.entries, 1)
	assert.Equal(t, "generate_text", meter.entries[0].OperationType)
}

func TestGenerateText_TrackingFailureKeepsOutcome(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &providers.Result{Text: "ok"}}
	g := New(fakeResolver{models.CapabilityLLM: openAIConfig()}, appropriate(), dispatcher, &fakeMeter{id: usage.UnknownID})

	resp := g.GenerateText(context.Background(), generateRequest())

	assert.True(t, resp.Success)
	assert.Equal(t, usage.UnknownID, resp.UsageID)
}

func TestGenerateText_LatencyFromPipelineEntry(t *testing.T) {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(1250 * time.Millisecond)}
	clock := func() time.Time {
		now := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return now
	}

	meter := &fakeMeter{}
	g := New(fakeResolver{models.CapabilityLLM: openAIConfig()}, appropriate(), &fakeDispatcher{result: &providers.Result{Text: "ok"}}, meter, WithClock(clock))

	resp := g.GenerateText(context.Background(), generateRequest())

	assert.Equal(t, int64(1250), resp.ResponseTimeMs)
	assert.Equal(t, 1250*time.Millisecond, meter.entries[0].Latency)
}

func TestTranslateText_Success(t *testing.T) {
	cfg := models.ServiceConfig{ServiceName: "google_cloud_ai", ServiceType: models.CapabilityTranslation, IsActive: true, CostPerRequest: decimal.RequireFromString("0.001")}
	dispatcher := &fakeDispatcher{result: &providers.Result{Text: "Vais de comboio?"}}
	meter := &fakeMeter{}
	g := New(fakeResolver{models.CapabilityTranslation: cfg}, appropriate(), dispatcher, meter)

	resp := g.TranslateText(context.Background(), TranslateRequest{
		Text:           "Are you going by train?",
		SourceLanguage: "en",
		TargetLanguage: "pt",
		Dialect:        "brazilian",
	})

	require.True(t, resp.Success, resp.Error)
	data := resp.Data.(TranslateResult)
	assert.Equal(t, "Vais de trem?", data.TranslatedText)
	assert.Equal(t, []string{"dialect_brazilian"}, resp.CulturalAdaptationsApplied)
	assert.Equal(t, DefaultTranslateConfidence, *resp.ConfidenceScore)
	assert.Equal(t, "brazilian", dispatcher.payloads[0].Dialect)

	require.Len(t, meter.entries, 1)
	entry := meter.entries[0]
	assert.Equal(t, "translation", entry.OperationType)
	assert.Equal(t, "en-pt-brazilian", entry.CulturalContext)
	assert.Equal(t, 23, entry.RequestTokens)
	assert.Equal(t, 13, entry.ResponseTokens)
}

func TestTranslateText_StandardDialectTag(t *testing.T) {
	cfg := models.ServiceConfig{ServiceName: "azure_cognitive_services", ServiceType: models.CapabilityTranslation, IsActive: true}
	meter := &fakeMeter{}
	g := New(fakeResolver{models.CapabilityTranslation: cfg}, appropriate(), &fakeDispatcher{result: &providers.Result{Text: "Olá"}}, meter)

	resp := g.TranslateText(context.Background(), TranslateRequest{Text: "Hello", SourceLanguage: "en", TargetLanguage: "pt"})

	require.True(t, resp.Success)
	assert.Equal(t, []string{"dialect_standard"}, resp.CulturalAdaptationsApplied)
	assert.Equal(t, "en-pt-standard", meter.entries[0].CulturalContext)
}

func TestTranslateText_FailureContext(t *testing.T) {
	meter := &fakeMeter{}
	g := New(fakeResolver{}, appropriate(), &fakeDispatcher{}, meter)

	resp := g.TranslateText(context.Background(), TranslateRequest{Text: "Hello", SourceLanguage: "en", TargetLanguage: "pt", Dialect: "continental"})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "no translation service available")
	require.Len(t, meter.entries, 1)
	assert.Equal(t, "en-pt", meter.entries[0].CulturalContext)
	assert.Equal(t, 5, meter.entries[0].RequestTokens)
}

func TestTranslateText_ServedFromCache(t *testing.T) {
	cfg := models.ServiceConfig{ServiceName: "google_cloud_ai", ServiceType: models.CapabilityTranslation, IsActive: true, CostPerRequest: decimal.RequireFromString("0.001")}
	dispatcher := &fakeDispatcher{result: &providers.Result{Text: "Bom dia"}}
	meter := &fakeMeter{}
	c := &memoryCache{entries: map[cache.Key]*cache.Entry{}}
	g := New(fakeResolver{models.CapabilityTranslation: cfg}, appropriate(), dispatcher, meter, WithTranslationCache(c, time.Hour))

	req := TranslateRequest{Text: "Good morning", SourceLanguage: "en", TargetLanguage: "pt", Dialect: "continental"}
	first := g.TranslateText(context.Background(), req)
	second := g.TranslateText(context.Background(), req)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.True(t, second.Cost.IsZero())
	assert.Equal(t, "Bom dia", second.Data.(TranslateResult).TranslatedText)
	assert.Equal(t, []string{"dialect_continental"}, second.CulturalAdaptationsApplied)
	assert.Equal(t, 1, dispatcher.calls())
	assert.Len(t, meter.entries, 2)
}

type brokenCache struct{ err error }

func (b brokenCache) Get(ctx context.Context, k cache.Key) (*cache.Entry, error) { return nil, b.err }

func (b brokenCache) Set(ctx context.Context, k cache.Key, entry *cache.Entry, ttl time.Duration) error {
	return b.err
}

func TestTranslateText_CacheErrorsAreLoggedAndBypassed(t *testing.T) {
	cfg := models.ServiceConfig{ServiceName: "google_cloud_ai", ServiceType: models.CapabilityTranslation, IsActive: true}
	req := TranslateRequest{Text: "Good morning", SourceLanguage: "en", TargetLanguage: "pt"}

	var logs bytes.Buffer
	dispatcher := &fakeDispatcher{result: &providers.Result{Text: "Bom dia"}}
	g := New(fakeResolver{models.CapabilityTranslation: cfg}, appropriate(), dispatcher, &fakeMeter{},
		WithTranslationCache(brokenCache{err: errors.New("dial tcp: connection refused")}, time.Hour),
		WithLogger(zerolog.New(&logs)))

	resp := g.TranslateText(context.Background(), req)

	require.True(t, resp.Success)
	assert.False(t, resp.CacheHit)
	assert.Equal(t, 1, dispatcher.calls())
	assert.Contains(t, logs.String(), "translation cache lookup failed")

	logs.Reset()
	g = New(fakeResolver{models.CapabilityTranslation: cfg}, appropriate(), dispatcher, &fakeMeter{},
		WithTranslationCache(&memoryCache{entries: map[cache.Key]*cache.Entry{}}, time.Hour),
		WithLogger(zerolog.New(&logs)))

	resp = g.TranslateText(context.Background(), req)

	require.True(t, resp.Success)
	assert.NotContains(t, logs.String(), "translation cache lookup failed")
}

func TestTranslateText_ValidationRequired(t *testing.T) {
	meter := &fakeMeter{}
	g := New(fakeResolver{}, appropriate(), &fakeDispatcher{}, meter)

	resp := g.TranslateText(context.Background(), TranslateRequest{SourceLanguage: "en", TargetLanguage: "pt"})

	assert.ErrorIs(t, resp.Err, ErrInvalidRequest)
	assert.Len(t, meter.entries, 1)
}

func TestAnalyzeSentiment_MergesLocalEmotions(t *testing.T) {
	cfg := models.ServiceConfig{ServiceName: "azure_cognitive_services", ServiceType: models.CapabilitySentiment, IsActive: true}
	dispatcher := &fakeDispatcher{result: &providers.Result{Sentiment: "negative", Confidence: 0.71}}
	meter := &fakeMeter{}
	g := New(fakeResolver{models.CapabilitySentiment: cfg}, appropriate(), dispatcher, meter)

	resp := g.AnalyzeSentiment(context.Background(), "Vou morrer de saudade da minha terra", "", "user-9")

	require.True(t, resp.Success, resp.Error)
	data := resp.Data.(SentimentResult)
	assert.Equal(t, "negative", data.Sentiment)
	assert.Equal(t, 0.71, data.Confidence)
	assert.Equal(t, 0.9, data.PortugueseEmotions.SaudadeIntensity)
	assert.True(t, data.RequiresEmotionalSupport)
	assert.True(t, data.CulturalContextDetected)
	assert.Equal(t, []string{"saudade_detection", "cultural_emotion_analysis"}, resp.CulturalAdaptationsApplied)
	assert.Equal(t, "pt", dispatcher.payloads[0].Language)

	require.Len(t, meter.entries, 1)
	assert.Equal(t, "sentiment_analysis", meter.entries[0].OperationType)
	assert.Equal(t, "saudade_analysis_pt", meter.entries[0].CulturalContext)
	assert.Equal(t, "user-9", meter.entries[0].UserID)
}

func TestAnalyzeSentiment_DefaultsWhenProviderSilent(t *testing.T) {
	cfg := models.ServiceConfig{ServiceName: "google_cloud_ai", ServiceType: models.CapabilitySentiment, IsActive: true}
	g := New(fakeResolver{models.CapabilitySentiment: cfg}, appropriate(), &fakeDispatcher{result: &providers.Result{}}, &fakeMeter{})

	resp := g.AnalyzeSentiment(context.Background(), "Hoje está frio", "pt", "")

	require.True(t, resp.Success)
	data := resp.Data.(SentimentResult)
	assert.Equal(t, "neutral", data.Sentiment)
	assert.Equal(t, DefaultSentimentConfidence, data.Confidence)
	assert.Zero(t, data.PortugueseEmotions.SaudadeIntensity)
	assert.False(t, data.RequiresEmotionalSupport)
}

func TestAnalyzeSentiment_ProviderFailure(t *testing.T) {
	cfg := models.ServiceConfig{ServiceName: "google_cloud_ai", ServiceType: models.CapabilitySentiment, IsActive: true}
	meter := &fakeMeter{}
	g := New(fakeResolver{models.CapabilitySentiment: cfg}, appropriate(), &fakeDispatcher{err: errors.New("boom")}, meter)

	resp := g.AnalyzeSentiment(context.Background(), "Olá", "pt", "")

	assert.False(t, resp.Success)
	require.Len(t, meter.entries, 1)
	assert.Equal(t, "sentiment_pt", meter.entries[0].CulturalContext)
	assert.Equal(t, 3, meter.entries[0].RequestTokens)
}

func TestOperations_ExactlyOneUsageRecordUnderConcurrency(t *testing.T) {
	resolver := fakeResolver{
		models.CapabilityLLM:         openAIConfig(),
		models.CapabilityTranslation: {ServiceName: "google_cloud_ai", ServiceType: models.CapabilityTranslation, IsActive: true},
	}
	meter := &fakeMeter{}
	dispatcher := &fakeDispatcher{result: &providers.Result{Text: "ok", Sentiment: "positive"}}
	g := New(resolver, appropriate(), dispatcher, meter)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			g.GenerateText(context.Background(), generateRequest())
		}()
		go func() {
			defer wg.Done()
			g.TranslateText(context.Background(), TranslateRequest{Text: "Hello", TargetLanguage: "pt"})
		}()
		go func() {
			defer wg.Done()
			// no sentiment service configured: fails, still recorded
			g.AnalyzeSentiment(context.Background(), "Olá", "pt", "")
		}()
	}
	wg.Wait()

	assert.Len(t, meter.entries, 3*n)
}
