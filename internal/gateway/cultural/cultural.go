// Package cultural holds the deterministic Portuguese adaptation transforms
// used around provider calls: formality instructions, dialect rewriting and
// diaspora generation markers. Nothing here performs I/O.
package cultural

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Dialect of Portuguese targeted by a request
type Dialect string

const (
	DialectContinental Dialect = "continental"
	DialectBrazilian   Dialect = "brazilian"
	DialectAfrican     Dialect = "african"
)

// Valid reports whether d is a known dialect
func (d Dialect) Valid() bool {
	switch d {
	case DialectContinental, DialectBrazilian, DialectAfrican:
		return true
	}
	return false
}

// Formality register requested for generated content
type Formality string

const (
	FormalityFormal     Formality = "formal"
	FormalityInformal   Formality = "informal"
	FormalityRespectful Formality = "respectful"
)

// Valid reports whether f is a known formality level
func (f Formality) Valid() bool {
	switch f {
	case FormalityFormal, FormalityInformal, FormalityRespectful:
		return true
	}
	return false
}

// Generation of the diaspora a response is adapted for
type Generation string

const (
	GenerationFirst  Generation = "first"
	GenerationSecond Generation = "second"
	GenerationThird  Generation = "third"
)

// Valid reports whether g is a known generation
func (g Generation) Valid() bool {
	switch g {
	case GenerationFirst, GenerationSecond, GenerationThird:
		return true
	}
	return false
}

// FormalityInstructions maps a formality level to the instruction sent to the model
func FormalityInstructions(level Formality) string {
	switch level {
	case FormalityFormal:
		return "use formal register for business/official contexts"
	case FormalityRespectful:
		return "use respectful register for elders/authority"
	case FormalityInformal:
		return "use casual register for friends/family"
	default:
		return "use standard register"
	}
}

// EmotionalAwarenessInstruction is attached when saudade awareness is requested
const EmotionalAwarenessInstruction = "enable deep emotional awareness of Lusophone concepts such as saudade"

type substitution struct {
	pattern     *regexp.Regexp
	replacement string
}

// brazilianSubstitutions rewrites European Portuguese forms into their
// Brazilian equivalents. Longer phrases come first so they win over the
// single words they contain.
var brazilianSubstitutions = compileSubstitutions([][2]string{
	{"pequeno-almoço", "café da manhã"},
	{"convosco", "com vocês"},
	{"contigo", "com você"},
	{"vossos", "de vocês"},
	{"vossas", "de vocês"},
	{"vosso", "de vocês"},
	{"vossa", "de vocês"},
	{"vós", "vocês"},
	{"tu", "você"},
	{"autocarro", "ônibus"},
	{"comboio", "trem"},
	{"telemóvel", "celular"},
	{"casa de banho", "banheiro"},
	{"frigorífico", "geladeira"},
})

func compileSubstitutions(pairs [][2]string) []substitution {
	subs := make([]substitution, 0, len(pairs))
	for _, p := range pairs {
		// \b is ASCII-only in RE2, so word edges are spelled out with Unicode letter classes
		pattern := regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}-])(` + regexp.QuoteMeta(p[0]) + `)($|[^\p{L}\p{N}-])`)
		subs = append(subs, substitution{pattern: pattern, replacement: p[1]})
	}
	return subs
}

// AdaptDialect rewrites text for dialect and reports whether it changed.
//
// continental (or empty) is the identity transform. african is an explicit
// no-op: no African Portuguese substitution rules are defined yet, so text
// passes through unchanged and callers must not report an adaptation.
func AdaptDialect(text string, dialect Dialect) (string, bool) {
	switch dialect {
	case DialectBrazilian:
		out := text
		for _, sub := range brazilianSubstitutions {
			out = replaceWords(out, sub)
		}
		return out, out != text
	case DialectAfrican:
		return text, false
	default:
		return text, false
	}
}

func replaceWords(text string, sub substitution) string {
	// Matches share their boundary characters, so repeat until stable to
	// catch adjacent occurrences ("tu tu").
	for i := 0; i < 4; i++ {
		next := sub.pattern.ReplaceAllStringFunc(text, func(m string) string {
			parts := sub.pattern.FindStringSubmatch(m)
			return parts[1] + matchCase(parts[2], sub.replacement) + parts[3]
		})
		if next == text {
			return next
		}
		text = next
	}
	return text
}

// matchCase keeps a leading capital or an all-caps original
func matchCase(original, replacement string) string {
	if original == strings.ToUpper(original) && strings.ToUpper(original) != strings.ToLower(original) && utf8.RuneCountInString(original) > 1 {
		return strings.ToUpper(replacement)
	}
	first, _ := utf8.DecodeRuneInString(original)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(replacement)
		return string(unicode.ToUpper(r)) + replacement[size:]
	}
	return replacement
}

// GenerationMarker returns the tag attached to a response adapted for a
// diaspora generation. It only tags; content is not rewritten.
func GenerationMarker(g Generation) (string, bool) {
	if !g.Valid() {
		return "", false
	}
	return string(g) + "_generation", true
}
