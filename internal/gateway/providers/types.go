package providers

import (
	"context"
	"strings"

	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
)

// Operation is the gateway operation an adapter is asked to perform
type Operation string

const (
	OpGenerateText     Operation = "generate_text"
	OpTranslate        Operation = "translate"
	OpAnalyzeSentiment Operation = "analyze_sentiment"
)

// Payload is the vendor-neutral input to an adapter. Which fields are used
// depends on the operation.
type Payload struct {
	// generate_text
	Prompt             string         `json:"prompt,omitempty"`
	SystemInstructions []string       `json:"system_instructions,omitempty"`
	Fields             map[string]any `json:"fields,omitempty"`

	// translate / analyze_sentiment
	Text           string `json:"text,omitempty"`
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
	Dialect        string `json:"dialect,omitempty"`
	Language       string `json:"language,omitempty"`
}

// SystemPrompt joins the system instructions into one prompt
func (p Payload) SystemPrompt() string {
	return strings.Join(p.SystemInstructions, "\n")
}

// Result is the vendor-neutral output of an adapter. Token counts are zero
// when the vendor does not report them; Confidence is zero when unknown.
type Result struct {
	Text           string   `json:"text,omitempty"`
	Model          string   `json:"model,omitempty"`
	Sentiment      string   `json:"sentiment,omitempty"`
	Confidence     float64  `json:"confidence,omitempty"`
	Intensity      float64  `json:"intensity,omitempty"`
	Emotions       []string `json:"emotions,omitempty"`
	RequestTokens  int      `json:"-"`
	ResponseTokens int      `json:"-"`

	// Raw holds vendor fields not mapped above
	Raw map[string]any `json:"raw,omitempty"`
}

func (p Payload) floatField(key string) (float32, bool) {
	switch v := p.Fields[key].(type) {
	case float64:
		return float32(v), true
	case float32:
		return v, true
	case int:
		return float32(v), true
	}
	return 0, false
}

func (p Payload) intField(key string) (int, bool) {
	switch v := p.Fields[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Adapter wraps one vendor endpoint for one capability. Implementations must
// be safe for concurrent use.
type Adapter interface {
	// Name is the service_name this adapter serves (e.g. "openai")
	Name() string

	// Capability is the service_type this adapter serves (e.g. "llm")
	Capability() string

	// Call performs op against the vendor using the registered config
	Call(ctx context.Context, op Operation, payload Payload, cfg models.ServiceConfig) (*Result, error)
}
