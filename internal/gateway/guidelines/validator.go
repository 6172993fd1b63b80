// Package guidelines validates content against externally authored cultural
// guidelines before it is sent to a provider.
//
// Validation fails open: when guidelines cannot be fetched the content is
// treated as appropriate with an accuracy score of 0.5. This keeps the
// gateway available during a store outage but means enforcement is silently
// off for that window, so every fallback is logged as a degraded-enforcement
// event and counted in luso_gateway_guideline_fail_open_total.
package guidelines

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/metrics"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
	"github.com/rs/zerolog"
)

// FailOpenScore is the accuracy score reported when guidelines are unavailable
const FailOpenScore = 0.5

// Store is the read side of the config store used by the validator
type Store interface {
	ListActiveGuidelines(ctx context.Context) ([]models.CulturalGuideline, error)
}

// Result is the outcome of validating one payload
type Result struct {
	IsAppropriate  bool           `json:"is_culturally_appropriate"`
	AccuracyScore  float64        `json:"cultural_accuracy_score"`
	Violations     []string       `json:"violations_detected"`
	Enhancements   []string       `json:"cultural_enhancements"`
	RegionalScores map[string]int `json:"regional_appropriateness"`
	Degraded       bool           `json:"degraded,omitempty"`
}

// ViolationError rejects content before any provider is called
type ViolationError struct {
	Violations []string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("cultural guideline violation: %s", strings.Join(e.Violations, ", "))
}

// Validator checks content against the active guidelines
type Validator struct {
	store   Store
	compile Compiler
	logger  zerolog.Logger
}

// Option configures the validator
type Option func(*Validator)

// WithCompiler replaces the default rule compiler
func WithCompiler(c Compiler) Option {
	return func(v *Validator) {
		v.compile = c
	}
}

// WithLogger sets the validator logger
func WithLogger(logger zerolog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// NewValidator creates a validator. Guidelines are fetched on every call.
func NewValidator(store Store, opts ...Option) *Validator {
	v := &Validator{
		store:   store,
		compile: CompileTermRule,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With().Str("component", "guidelines").Logger()
	return v
}

// Validate scores content against every active guideline
func (v *Validator) Validate(ctx context.Context, content, culturalContext string) Result {
	guidelines, err := v.store.ListActiveGuidelines(ctx)
	if err != nil {
		metrics.GuidelineFailOpen.Inc()
		v.logger.Warn().Err(err).
			Str("event", "guideline_fetch_failed").
			Str("cultural_context", culturalContext).
			Msg("cultural guideline enforcement degraded, failing open")
		return Result{
			IsAppropriate:  true,
			AccuracyScore:  FailOpenScore,
			Violations:     []string{},
			Enhancements:   []string{},
			RegionalScores: map[string]int{},
			Degraded:       true,
		}
	}

	result := Result{
		Violations:     []string{},
		Enhancements:   []string{},
		RegionalScores: map[string]int{},
	}

	total := 0
	for _, g := range guidelines {
		if !g.IsActive {
			continue
		}

		rule, err := v.compile(g)
		if err != nil {
			v.logger.Warn().Err(err).Str("guideline_id", g.ID).Msg("skipping guideline with invalid rule")
			continue
		}
		total++

		violation, violated := rule.Violates(content)
		if violated {
			result.Violations = append(result.Violations, violation)
		}

		if enhancement, ok := rule.SuggestsEnhancement(content); ok {
			result.Enhancements = append(result.Enhancements, enhancement)
		}

		// A tally of clean guidelines per region, not a probability
		score := 1
		if violated {
			score = 0
		}
		for _, region := range g.PortugueseRegionsApplicable {
			result.RegionalScores[region] += score
		}
	}

	result.IsAppropriate = len(result.Violations) == 0
	result.AccuracyScore = 1.0
	if total > 0 {
		result.AccuracyScore = float64(total-len(result.Violations)) / float64(total)
	}

	return result
}
