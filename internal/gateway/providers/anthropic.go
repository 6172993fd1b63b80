package providers

import (
	"context"
	"strings"

	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-haiku-20241022"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 4096
)

// AnthropicAdapter handles Anthropic Claude API requests
type AnthropicAdapter struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
}

// AnthropicRequest represents a request to Anthropic's Messages API
type AnthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []AnthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
}

// AnthropicMessage represents a message in Anthropic format
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicResponse represents a response from Anthropic's API
type AnthropicResponse struct {
	ID         string                  `json:"id"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      AnthropicUsage          `json:"usage"`
}

// AnthropicContentBlock represents a content block
type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// AnthropicUsage represents token usage
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// NewAnthropicAdapter creates a new Anthropic adapter. An empty baseURL uses
// the public API.
func NewAnthropicAdapter(apiKey, baseURL string) *AnthropicAdapter {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &AnthropicAdapter{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
}

func (a *AnthropicAdapter) Name() string       { return "anthropic" }
func (a *AnthropicAdapter) Capability() string { return models.CapabilityLLM }

// Call makes a messages request to Anthropic
func (a *AnthropicAdapter) Call(ctx context.Context, op Operation, payload Payload, cfg models.ServiceConfig) (*Result, error) {
	if op != OpGenerateText {
		return nil, unsupportedOperation(a.Name(), op)
	}

	req := AnthropicRequest{
		Model:     cfg.ConfigString("model", defaultAnthropicModel),
		Messages:  []AnthropicMessage{{Role: "user", Content: payload.Prompt}},
		MaxTokens: anthropicMaxTokens,
		System:    payload.SystemPrompt(),
	}
	if n, ok := payload.intField("max_tokens"); ok && n > 0 {
		req.MaxTokens = n
	}
	if t, ok := payload.floatField("temperature"); ok {
		req.Temperature = &t
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp AnthropicResponse
	if err := postJSON(ctx, a.httpClient, "Anthropic", a.baseURL+"/v1/messages", headers, req, &resp); err != nil {
		return nil, err
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &Result{
		Text:           content.String(),
		Model:          resp.Model,
		RequestTokens:  resp.Usage.InputTokens,
		ResponseTokens: resp.Usage.OutputTokens,
		Raw: map[string]any{
			"id":          resp.ID,
			"stop_reason": resp.StopReason,
		},
	}, nil
}
