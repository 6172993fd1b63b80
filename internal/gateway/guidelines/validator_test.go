package guidelines

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	guidelines []models.CulturalGuideline
	err        error
}

func (s *fakeStore) ListActiveGuidelines(ctx context.Context) ([]models.CulturalGuideline, error) {
	return s.guidelines, s.err
}

func guideline(id string, regions []string, rule string) models.CulturalGuideline {
	return models.CulturalGuideline{
		ID:                          id,
		IsActive:                    true,
		PortugueseRegionsApplicable: regions,
		Rule:                        json.RawMessage(rule),
	}
}

func TestValidate_NoGuidelines(t *testing.T) {
	v := NewValidator(&fakeStore{})

	result := v.Validate(context.Background(), "Olá a todos", "")

	assert.True(t, result.IsAppropriate)
	assert.Equal(t, 1.0, result.AccuracyScore)
	assert.Empty(t, result.Violations)
	assert.Empty(t, result.RegionalScores)
	assert.False(t, result.Degraded)
}

func TestValidate_ViolationsAndRegionalScores(t *testing.T) {
	store := &fakeStore{guidelines: []models.CulturalGuideline{
		guideline("g1", []string{"portugal", "brazil"},
			`{"prohibited_terms":["Preguiçoso"],"violation_message":"no national stereotypes"}`),
		guideline("g2", []string{"portugal", "angola"},
			`{"enhancement_triggers":["fado"],"enhancement":"fado_heritage_context"}`),
		guideline("g3", []string{"cape_verde"}, ``),
		guideline("g4", nil, `{"prohibited_terms":["nunca usado"]}`),
	}}
	v := NewValidator(store)

	result := v.Validate(context.Background(), "O português preguiçoso ouve Fado", "lisbon")

	assert.False(t, result.IsAppropriate)
	require.Len(t, result.Violations, 1)
	assert.Contains(t, result.Violations[0], "no national stereotypes")
	assert.Equal(t, []string{"fado_heritage_context"}, result.Enhancements)
	assert.InDelta(t, 0.75, result.AccuracyScore, 1e-9)
	assert.Equal(t, map[string]int{"portugal": 1, "brazil": 0, "angola": 1, "cape_verde": 1}, result.RegionalScores)
}

func TestValidate_InvalidRuleIsSkipped(t *testing.T) {
	store := &fakeStore{guidelines: []models.CulturalGuideline{
		guideline("broken", []string{"portugal"}, `{"prohibited_terms":`),
		guideline("ok", []string{"portugal"}, `{"prohibited_terms":["insulto"]}`),
	}}
	v := NewValidator(store)

	result := v.Validate(context.Background(), "um insulto", "")

	assert.False(t, result.IsAppropriate)
	assert.Equal(t, 0.0, result.AccuracyScore)
	assert.Equal(t, map[string]int{"portugal": 0}, result.RegionalScores)
}

func TestValidate_FailOpen(t *testing.T) {
	v := NewValidator(&fakeStore{err: errors.New("connection reset")})

	result := v.Validate(context.Background(), "qualquer coisa", "porto")

	assert.True(t, result.IsAppropriate)
	assert.Equal(t, FailOpenScore, result.AccuracyScore)
	assert.True(t, result.Degraded)
	assert.Empty(t, result.Violations)
	assert.Empty(t, result.Enhancements)
}

type alwaysViolates struct{}

func (alwaysViolates) Violates(string) (string, bool)            { return "custom", true }
func (alwaysViolates) SuggestsEnhancement(string) (string, bool) { return "", false }

func TestValidate_CustomCompiler(t *testing.T) {
	store := &fakeStore{guidelines: []models.CulturalGuideline{guideline("g1", nil, `opaque`)}}
	v := NewValidator(store, WithCompiler(func(models.CulturalGuideline) (Rule, error) {
		return alwaysViolates{}, nil
	}))

	result := v.Validate(context.Background(), "texto", "")

	assert.False(t, result.IsAppropriate)
	assert.Equal(t, []string{"custom"}, result.Violations)
}

func TestViolationError(t *testing.T) {
	err := &ViolationError{Violations: []string{"a", "b"}}
	assert.Equal(t, "cultural guideline violation: a, b", err.Error())
}

func TestCompileTermRule_DefaultMessageUsesTitle(t *testing.T) {
	g := guideline("g9", nil, `{"prohibited_terms":["x"]}`)
	g.Title = "Respect regional identity"

	rule, err := CompileTermRule(g)
	require.NoError(t, err)

	msg, ok := rule.Violates("X marks")
	assert.True(t, ok)
	assert.Equal(t, `Respect regional identity (matched "x")`, msg)
}
