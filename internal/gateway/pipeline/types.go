package pipeline

import (
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/cultural"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/emotion"
	"github.com/shopspring/decimal"
)

// PortugueseOptions are the optional cultural hints on a generation request
type PortugueseOptions struct {
	Region               string             `json:"region,omitempty"`
	Dialect              cultural.Dialect   `json:"dialect,omitempty"`
	FormalityLevel       cultural.Formality `json:"formality_level,omitempty"`
	SaudadeAwareness     bool               `json:"saudade_awareness,omitempty"`
	GenerationAdaptation cultural.Generation `json:"generation_adaptation,omitempty"`
}

// AIRequest is one logical generation call
type AIRequest struct {
	OperationType     string             `json:"operation_type"`
	InputData         map[string]any     `json:"input_data"`
	UserID            string             `json:"user_id,omitempty"`
	CulturalContext   string             `json:"cultural_context,omitempty"`
	PortugueseOptions *PortugueseOptions `json:"portuguese_specific_options,omitempty"`
}

// TranslateRequest is one logical translation call
type TranslateRequest struct {
	Text            string           `json:"text"`
	SourceLanguage  string           `json:"source_language"`
	TargetLanguage  string           `json:"target_language"`
	Dialect         cultural.Dialect `json:"dialect,omitempty"`
	CulturalContext string           `json:"cultural_context,omitempty"`
	UserID          string           `json:"user_id,omitempty"`
}

// SentimentRequest is one logical sentiment call
type SentimentRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// AIResponse is returned by every gateway operation, successful or not.
// UsageID is never empty.
type AIResponse struct {
	Success                    bool            `json:"success"`
	Data                       any             `json:"data,omitempty"`
	Error                      string          `json:"error,omitempty"`
	ServiceUsed                string          `json:"service_used"`
	ResponseTimeMs             int64           `json:"response_time_ms"`
	CulturalAdaptationsApplied []string        `json:"cultural_adaptations_applied"`
	ConfidenceScore            *float64        `json:"confidence_score,omitempty"`
	Cost                       decimal.Decimal `json:"cost"`
	UsageID                    string          `json:"usage_id"`
	RequestID                  string          `json:"request_id"`
	CacheHit                   bool            `json:"cache_hit,omitempty"`

	// Err is the typed failure behind Error, for callers that map it
	Err error `json:"-"`
}

// GenerateResult is the Data of a successful GenerateText
type GenerateResult struct {
	Text                 string `json:"text"`
	Model                string `json:"model,omitempty"`
	RegionalContext      string `json:"regional_context,omitempty"`
	GenerationAdaptation string `json:"generation_adaptation,omitempty"`
}

// TranslateResult is the Data of a successful TranslateText
type TranslateResult struct {
	TranslatedText string `json:"translated_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Dialect        string `json:"dialect"`
	Model          string `json:"model,omitempty"`
}

// SentimentResult is the Data of a successful AnalyzeSentiment
type SentimentResult struct {
	Sentiment                string           `json:"sentiment"`
	Confidence               float64          `json:"confidence"`
	Emotions                 []string         `json:"emotions,omitempty"`
	Intensity                float64          `json:"intensity,omitempty"`
	PortugueseEmotions       emotion.Emotions `json:"portuguese_emotions"`
	RequiresEmotionalSupport bool             `json:"requires_emotional_support"`
	CulturalContextDetected  bool             `json:"cultural_context_detected"`
}
