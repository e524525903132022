// Package labels decides which tokens name a field.
package labels

import (
	"slices"
	"strings"

	"github.com/MeKo-Tech/readout/internal/tokens"
)

// Config controls label detection and key cleaning.
type Config struct {
	// Delimiter marks a token as a label wherever it appears in the text.
	Delimiter string
	// Vocabulary lists bare field names that are labels without a delimiter.
	Vocabulary []string
	// StripChars are removed from a label's text to form its record key.
	StripChars string
}

// DefaultConfig returns the detector settings for fitness readouts.
func DefaultConfig() Config {
	return Config{
		Delimiter:  ":",
		Vocabulary: []string{"Distance", "Calories"},
		StripChars: ":#",
	}
}

// Detector flags label tokens.
type Detector struct {
	cfg Config
}

// NewDetector builds a detector. The vocabulary is copied.
func NewDetector(cfg Config) *Detector {
	cfg.Vocabulary = slices.Clone(cfg.Vocabulary)
	return &Detector{cfg: cfg}
}

// IsLabel reports whether text names a field.
func (d *Detector) IsLabel(text string) bool {
	if d.cfg.Delimiter != "" && strings.Contains(text, d.cfg.Delimiter) {
		return true
	}
	return slices.Contains(d.cfg.Vocabulary, strings.TrimSpace(text))
}

// Detect returns the label tokens in input order.
func (d *Detector) Detect(toks []tokens.Token) []tokens.Token {
	var out []tokens.Token
	for _, t := range toks {
		if d.IsLabel(t.Text) {
			out = append(out, t)
		}
	}
	return out
}

// Key returns the record key for a label's text.
func (d *Detector) Key(text string) string {
	return CleanKey(text, d.cfg.StripChars)
}

// CleanKey removes every rune in strip from text and trims the result.
func CleanKey(text, strip string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(strip, r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(cleaned)
}
