package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-2.5-flash"
)

// GeminiAdapter handles Google Gemini API requests
type GeminiAdapter struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
}

// GeminiRequest represents a request to Gemini's API
type GeminiRequest struct {
	Contents          []GeminiContent         `json:"contents"`
	SystemInstruction *GeminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

// GeminiContent represents content in Gemini format
type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a part of the content
type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiGenerationConfig represents generation parameters
type GeminiGenerationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// GeminiResponse represents a response from Gemini API
type GeminiResponse struct {
	Candidates    []GeminiCandidate `json:"candidates"`
	UsageMetadata GeminiUsage       `json:"usageMetadata"`
	ModelVersion  string            `json:"modelVersion"`
}

// GeminiCandidate represents a candidate response
type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

// GeminiUsage represents token usage
type GeminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

// NewGeminiAdapter creates a new Gemini adapter. An empty baseURL uses the
// public API.
func NewGeminiAdapter(apiKey, baseURL string) *GeminiAdapter {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiAdapter{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
}

func (a *GeminiAdapter) Name() string       { return "google_gemini" }
func (a *GeminiAdapter) Capability() string { return models.CapabilityLLM }

// Call makes a generateContent request to Gemini
func (a *GeminiAdapter) Call(ctx context.Context, op Operation, payload Payload, cfg models.ServiceConfig) (*Result, error) {
	if op != OpGenerateText {
		return nil, unsupportedOperation(a.Name(), op)
	}

	model := cfg.ConfigString("model", defaultGeminiModel)
	req := GeminiRequest{
		Contents: []GeminiContent{{Role: "user", Parts: []GeminiPart{{Text: payload.Prompt}}}},
	}
	if system := payload.SystemPrompt(); system != "" {
		req.SystemInstruction = &GeminiContent{Parts: []GeminiPart{{Text: system}}}
	}

	genCfg := &GeminiGenerationConfig{}
	if t, ok := payload.floatField("temperature"); ok {
		genCfg.Temperature = &t
	}
	if n, ok := payload.intField("max_tokens"); ok && n > 0 {
		genCfg.MaxOutputTokens = &n
	}
	if genCfg.Temperature != nil || genCfg.MaxOutputTokens != nil {
		req.GenerationConfig = genCfg
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.baseURL, url.PathEscape(model))

	var resp GeminiResponse
	if err := postJSON(ctx, a.httpClient, "Gemini", endpoint, googleKeyHeader(a.apiKey), req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("Gemini API returned no candidates")
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}

	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}

	return &Result{
		Text:           content.String(),
		Model:          model,
		RequestTokens:  resp.UsageMetadata.PromptTokenCount,
		ResponseTokens: resp.UsageMetadata.CandidatesTokenCount,
		Raw: map[string]any{
			"finish_reason": resp.Candidates[0].FinishReason,
		},
	}, nil
}
