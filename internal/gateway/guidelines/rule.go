package guidelines

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
)

// Rule is the compiled form of a guideline's rule body
type Rule interface {
	// Violates returns a violation message when content breaks the rule
	Violates(content string) (string, bool)

	// SuggestsEnhancement returns an enhancement tag when the rule has
	// something to add for content
	SuggestsEnhancement(content string) (string, bool)
}

// Compiler turns a stored guideline into a Rule
type Compiler func(g models.CulturalGuideline) (Rule, error)

// termRule is the default rule body stored in ai_cultural_guidelines.rule
type termRule struct {
	ID                  string   `json:"-"`
	ProhibitedTerms     []string `json:"prohibited_terms"`
	ViolationMessage    string   `json:"violation_message"`
	EnhancementTriggers []string `json:"enhancement_triggers"`
	Enhancement         string   `json:"enhancement"`
}

// CompileTermRule is the default Compiler. An empty rule body compiles to a
// rule that never fires.
func CompileTermRule(g models.CulturalGuideline) (Rule, error) {
	rule := &termRule{ID: g.ID}
	if len(g.Rule) == 0 || string(g.Rule) == "null" {
		return rule, nil
	}

	if err := json.Unmarshal(g.Rule, rule); err != nil {
		return nil, fmt.Errorf("guideline %s: invalid rule: %w", g.ID, err)
	}

	rule.ProhibitedTerms = lowerAll(rule.ProhibitedTerms)
	rule.EnhancementTriggers = lowerAll(rule.EnhancementTriggers)

	if rule.ViolationMessage == "" {
		rule.ViolationMessage = fmt.Sprintf("guideline %s", g.ID)
		if g.Title != "" {
			rule.ViolationMessage = g.Title
		}
	}

	return rule, nil
}

func (r *termRule) Violates(content string) (string, bool) {
	lower := strings.ToLower(content)
	for _, term := range r.ProhibitedTerms {
		if term != "" && strings.Contains(lower, term) {
			return fmt.Sprintf("%s (matched %q)", r.ViolationMessage, term), true
		}
	}
	return "", false
}

func (r *termRule) SuggestsEnhancement(content string) (string, bool) {
	if r.Enhancement == "" {
		return "", false
	}
	lower := strings.ToLower(content)
	for _, trigger := range r.EnhancementTriggers {
		if trigger != "" && strings.Contains(lower, trigger) {
			return r.Enhancement, true
		}
	}
	return "", false
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, strings.ToLower(strings.TrimSpace(t)))
	}
	return out
}
