package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIAdapter handles OpenAI chat completion requests
type OpenAIAdapter struct {
	client *openai.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter
func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
	}
}

// NewOpenAIAdapterWithBaseURL points the adapter at an OpenAI compatible endpoint
func NewOpenAIAdapterWithBaseURL(apiKey, baseURL string) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(cfg),
	}
}

func (a *OpenAIAdapter) Name() string       { return "openai" }
func (a *OpenAIAdapter) Capability() string { return models.CapabilityLLM }

// Call makes a chat completion request to OpenAI
func (a *OpenAIAdapter) Call(ctx context.Context, op Operation, payload Payload, cfg models.ServiceConfig) (*Result, error) {
	if op != OpGenerateText {
		return nil, unsupportedOperation(a.Name(), op)
	}
	model := cfg.ConfigString("model", defaultOpenAIModel)
	return chatCompletion(ctx, a.client, model, payload)
}

// AzureOpenAIAdapter handles Azure OpenAI deployments. The configured
// deployment_name is sent as the model.
type AzureOpenAIAdapter struct {
	client *openai.Client
}

// NewAzureOpenAIAdapter creates a new Azure OpenAI adapter
func NewAzureOpenAIAdapter(apiKey, endpoint string) *AzureOpenAIAdapter {
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	cfg.AzureModelMapperFunc = func(model string) string {
		return model
	}
	return &AzureOpenAIAdapter{
		client: openai.NewClientWithConfig(cfg),
	}
}

func (a *AzureOpenAIAdapter) Name() string       { return "azure_openai" }
func (a *AzureOpenAIAdapter) Capability() string { return models.CapabilityLLM }

// Call makes a chat completion request to the configured Azure deployment
func (a *AzureOpenAIAdapter) Call(ctx context.Context, op Operation, payload Payload, cfg models.ServiceConfig) (*Result, error) {
	if op != OpGenerateText {
		return nil, unsupportedOperation(a.Name(), op)
	}
	deployment := cfg.ConfigString("deployment_name", cfg.ConfigString("model", ""))
	if deployment == "" {
		return nil, errors.New("azure_openai configuration is missing deployment_name")
	}
	return chatCompletion(ctx, a.client, deployment, payload)
}

func chatCompletion(ctx context.Context, client *openai.Client, model string, payload Payload) (*Result, error) {
	var messages []openai.ChatCompletionMessage
	if system := payload.SystemPrompt(); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: payload.Prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if t, ok := payload.floatField("temperature"); ok {
		req.Temperature = t
	}
	if n, ok := payload.intField("max_tokens"); ok {
		req.MaxTokens = n
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("OpenAI API returned no choices")
	}

	return &Result{
		Text:           resp.Choices[0].Message.Content,
		Model:          resp.Model,
		RequestTokens:  resp.Usage.PromptTokens,
		ResponseTokens: resp.Usage.CompletionTokens,
		Raw: map[string]any{
			"id":            resp.ID,
			"finish_reason": string(resp.Choices[0].FinishReason),
		},
	}, nil
}
