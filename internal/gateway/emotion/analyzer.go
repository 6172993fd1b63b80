// Package emotion scores Portuguese text for saudade, nostalgia and cultural
// emotion markers.
//
// The scores are lexical heuristics driven by a versioned lexicon, not a
// statistical model. Their output can route a person towards community
// support, so every score must be explainable from the lexicon alone.
package emotion

import (
	"math"
	"strings"
)

// Thresholds above which a text is flagged for emotional support
const (
	SaudadeSupportThreshold   = 0.7
	NostalgiaSupportThreshold = 0.8
)

// Emotions is the local analysis attached to every sentiment response
type Emotions struct {
	SaudadeIntensity float64  `json:"saudade_intensity"`
	NostalgiaLevel   float64  `json:"nostalgia_level"`
	CulturalMarkers  []string `json:"cultural_markers"`
	LexiconVersion   string   `json:"lexicon_version"`
}

// RequiresEmotionalSupport reports whether the scores cross the support thresholds
func (e Emotions) RequiresEmotionalSupport() bool {
	return e.SaudadeIntensity > SaudadeSupportThreshold || e.NostalgiaLevel > NostalgiaSupportThreshold
}

// CulturalContextDetected reports whether any marker matched
func (e Emotions) CulturalContextDetected() bool {
	return len(e.CulturalMarkers) > 0
}

// Analyzer applies a lexicon to text. It is safe for concurrent use.
type Analyzer struct {
	lex *Lexicon
}

// NewAnalyzer creates an analyzer over lex
func NewAnalyzer(lex *Lexicon) *Analyzer {
	return &Analyzer{lex: lex}
}

// Version returns the lexicon version in use
func (a *Analyzer) Version() string {
	return a.lex.Version
}

// SaudadeIntensity scores longing in [0,1]
func (a *Analyzer) SaudadeIntensity(text string) float64 {
	lower := strings.ToLower(text)
	rules := a.lex.Saudade

	score := float64(countMatches(lower, rules.Keywords)) * rules.Weight
	if anyMatch(lower, rules.Intensifiers.Phrases) {
		score += rules.Intensifiers.Weight
	}
	if anyMatch(lower, rules.Extreme.Phrases) {
		score += rules.Extreme.Weight
	}
	return clamp(score)
}

// NostalgiaIntensity scores nostalgia in [0,1]
func (a *Analyzer) NostalgiaIntensity(text string) float64 {
	lower := strings.ToLower(text)
	return clamp(float64(countMatches(lower, a.lex.Nostalgia.Keywords)) * a.lex.Nostalgia.Weight)
}

// CulturalMarkers returns the marker tags with at least one keyword in text,
// in lexicon order
func (a *Analyzer) CulturalMarkers(text string) []string {
	lower := strings.ToLower(text)
	markers := []string{}
	for _, m := range a.lex.Markers {
		if anyMatch(lower, m.Keywords) {
			markers = append(markers, m.Tag)
		}
	}
	return markers
}

// Analyze runs every heuristic over text
func (a *Analyzer) Analyze(text string) Emotions {
	return Emotions{
		SaudadeIntensity: a.SaudadeIntensity(text),
		NostalgiaLevel:   a.NostalgiaIntensity(text),
		CulturalMarkers:  a.CulturalMarkers(text),
		LexiconVersion:   a.lex.Version,
	}
}

func countMatches(lower string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			n++
		}
	}
	return n
}

func anyMatch(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// clamp bounds to [0,1] and rounds away float noise from summed weights
func clamp(v float64) float64 {
	v = math.Round(v*1e4) / 1e4
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
