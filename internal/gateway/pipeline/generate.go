package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/cultural"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/providers"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
)

// ErrInvalidRequest is wrapped by request shape errors
var ErrInvalidRequest = errors.New("invalid request")

// promptKeys are checked in order for the generation prompt
var promptKeys = []string{"prompt", "text", "content"}

// GenerateText runs a text generation through the primary llm provider
func (g *Gateway) GenerateText(ctx context.Context, req AIRequest) AIResponse {
	operation := req.OperationType
	if operation == "" {
		operation = string(providers.OpGenerateText)
	}
	a := g.begin(operation, req.UserID)
	a.culturalContext = req.CulturalContext

	var opts PortugueseOptions
	if req.PortugueseOptions != nil {
		opts = *req.PortugueseOptions
	}
	if err := opts.validate(); err != nil {
		return g.fail(ctx, a, err)
	}

	cfg, err := g.registry.ResolvePrimary(ctx, models.CapabilityLLM)
	if err != nil {
		return g.fail(ctx, a, err)
	}
	a.service = cfg.ServiceName

	prompt := promptText(req.InputData)
	if prompt == "" {
		return g.fail(ctx, a, fmt.Errorf("%w: input_data.prompt is required", ErrInvalidRequest))
	}

	validation, err := g.validate(ctx, prompt, req.CulturalContext)
	if err != nil {
		return g.fail(ctx, a, err)
	}

	result, err := g.dispatcher.Dispatch(ctx, providers.OpGenerateText, preprocess(req.InputData, prompt, opts), cfg)
	if err != nil {
		return g.fail(ctx, a, err)
	}
	a.requestTokens = result.RequestTokens

	data := GenerateResult{
		Text:            result.Text,
		Model:           result.Model,
		RegionalContext: opts.Region,
	}
	adaptations := append([]string{}, validation.Enhancements...)

	if marker, ok := cultural.GenerationMarker(opts.GenerationAdaptation); ok {
		data.GenerationAdaptation = marker
	}
	if opts.Dialect != "" && opts.Dialect != cultural.DialectContinental {
		if adapted, changed := cultural.AdaptDialect(data.Text, opts.Dialect); changed {
			data.Text = adapted
			adaptations = append(adaptations, "dialect_"+string(opts.Dialect))
		}
	}

	return g.succeed(ctx, a, success{
		data:           data,
		adaptations:    adaptations,
		confidence:     orDefault(result.Confidence, DefaultGenerateConfidence),
		cost:           cfg.CostPerRequest,
		responseTokens: result.ResponseTokens,
	})
}

// preprocess merges the Portuguese hints into the provider payload
func preprocess(input map[string]any, prompt string, opts PortugueseOptions) providers.Payload {
	fields := make(map[string]any, len(input)+3)
	for k, v := range input {
		fields[k] = v
	}

	var instructions []string
	if system, ok := input["system"].(string); ok && strings.TrimSpace(system) != "" {
		instructions = append(instructions, system)
	}
	if opts.Region != "" {
		fields["regional_context"] = opts.Region
		instructions = append(instructions, "Regional context: "+opts.Region)
	}
	if opts.FormalityLevel != "" {
		instruction := cultural.FormalityInstructions(opts.FormalityLevel)
		fields["formality_instructions"] = instruction
		instructions = append(instructions, instruction)
	}
	if opts.SaudadeAwareness {
		fields["emotional_awareness"] = cultural.EmotionalAwarenessInstruction
		instructions = append(instructions, cultural.EmotionalAwarenessInstruction)
	}

	return providers.Payload{
		Prompt:             prompt,
		SystemInstructions: instructions,
		Fields:             fields,
	}
}

func promptText(input map[string]any) string {
	for _, key := range promptKeys {
		if s, ok := input[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func (o PortugueseOptions) validate() error {
	if o.Dialect != "" && !o.Dialect.Valid() {
		return fmt.Errorf("%w: unknown dialect %q", ErrInvalidRequest, o.Dialect)
	}
	if o.FormalityLevel != "" && !o.FormalityLevel.Valid() {
		return fmt.Errorf("%w: unknown formality level %q", ErrInvalidRequest, o.FormalityLevel)
	}
	if o.GenerationAdaptation != "" && !o.GenerationAdaptation.Valid() {
		return fmt.Errorf("%w: unknown generation %q", ErrInvalidRequest, o.GenerationAdaptation)
	}
	return nil
}
