package emotion

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// PhraseSet is a weighted group of phrases that adds its weight once when any
// phrase matches
type PhraseSet struct {
	Weight  float64  `yaml:"weight"`
	Phrases []string `yaml:"phrases"`
}

// KeywordScale adds Weight for every distinct keyword found
type KeywordScale struct {
	Weight   float64  `yaml:"weight"`
	Keywords []string `yaml:"keywords"`
}

// SaudadeRules extends a keyword scale with intensifier phrases
type SaudadeRules struct {
	KeywordScale `yaml:",inline"`
	Intensifiers PhraseSet `yaml:"intensifiers"`
	Extreme      PhraseSet `yaml:"extreme"`
}

// Marker is a cultural-emotion category backed by a keyword list
type Marker struct {
	Tag      string   `yaml:"tag"`
	Keywords []string `yaml:"keywords"`
}

// Lexicon is the versioned rule data behind the analyzer
type Lexicon struct {
	Version   string       `yaml:"version"`
	Saudade   SaudadeRules `yaml:"saudade"`
	Nostalgia KeywordScale `yaml:"nostalgia"`
	Markers   []Marker     `yaml:"markers"`
}

// DefaultLexicon returns the lexicon compiled into the binary
func DefaultLexicon() (*Lexicon, error) {
	return ParseLexicon(defaultLexiconYAML)
}

// MustDefaultLexicon is like DefaultLexicon but panics if the embedded
// lexicon is invalid
func MustDefaultLexicon() *Lexicon {
	lex, err := DefaultLexicon()
	if err != nil {
		panic(fmt.Sprintf("emotion: embedded lexicon: %v", err))
	}
	return lex
}

// LoadLexicon reads a lexicon from a YAML file
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes and validates a YAML lexicon. Keywords are lowercased.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}

	if err := lex.validate(); err != nil {
		return nil, err
	}

	lex.Saudade.Keywords = normalize(lex.Saudade.Keywords)
	lex.Saudade.Intensifiers.Phrases = normalize(lex.Saudade.Intensifiers.Phrases)
	lex.Saudade.Extreme.Phrases = normalize(lex.Saudade.Extreme.Phrases)
	lex.Nostalgia.Keywords = normalize(lex.Nostalgia.Keywords)
	for i := range lex.Markers {
		lex.Markers[i].Keywords = normalize(lex.Markers[i].Keywords)
	}

	return &lex, nil
}

func (l *Lexicon) validate() error {
	if l.Version == "" {
		return fmt.Errorf("lexicon version is required")
	}

	weights := map[string]float64{
		"saudade.weight":              l.Saudade.Weight,
		"saudade.intensifiers.weight": l.Saudade.Intensifiers.Weight,
		"saudade.extreme.weight":      l.Saudade.Extreme.Weight,
		"nostalgia.weight":            l.Nostalgia.Weight,
	}
	for name, w := range weights {
		if w < 0 {
			return fmt.Errorf("lexicon %s must not be negative", name)
		}
	}

	seen := make(map[string]bool)
	for _, m := range l.Markers {
		if m.Tag == "" {
			return fmt.Errorf("lexicon marker without tag")
		}
		if seen[m.Tag] {
			return fmt.Errorf("duplicate lexicon marker %q", m.Tag)
		}
		seen[m.Tag] = true
	}

	return nil
}

// normalize lowercases and de-duplicates so each keyword counts once
func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
