package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/readout/internal/matcher"
)

// Builder constructs an Extractor with fluent configuration.
type Builder struct {
	cfg Config
}

// NewBuilder creates a builder seeded with DefaultConfig.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithLineGap sets the maximum vertical distance between grouped fragments.
func (b *Builder) WithLineGap(px float64) *Builder {
	b.cfg.Grouping.MaxLineGap = px
	return b
}

// WithGlyphGap sets the maximum horizontal distance between grouped fragments.
func (b *Builder) WithGlyphGap(px float64) *Builder {
	b.cfg.Grouping.MaxGlyphGap = px
	return b
}

// WithColumnOffset sets the horizontal tolerance for label matching.
func (b *Builder) WithColumnOffset(px float64) *Builder {
	b.cfg.Matcher.MaxColumnOffset = px
	return b
}

// WithVocabulary replaces the known label words. Empty entries are dropped.
func (b *Builder) WithVocabulary(words []string) *Builder {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			cleaned = append(cleaned, w)
		}
	}
	b.cfg.Labels.Vocabulary = cleaned
	return b
}

// WithDelimiter sets the substring that marks any token as a label.
func (b *Builder) WithDelimiter(d string) *Builder {
	b.cfg.Labels.Delimiter = d
	return b
}

// WithStripChars sets the characters removed from label text to form keys.
func (b *Builder) WithStripChars(chars string) *Builder {
	b.cfg.Labels.StripChars = chars
	return b
}

// WithAssignment selects greedy or exclusive label matching.
func (b *Builder) WithAssignment(a matcher.Assignment) *Builder {
	b.cfg.Matcher.Assignment = a
	return b
}

// WithMinConfidence sets the token confidence floor.
func (b *Builder) WithMinConfidence(c float64) *Builder {
	b.cfg.MinConfidence = c
	return b
}

// GetConfig returns the accumulated configuration.
func (b *Builder) GetConfig() Config { return b.cfg }

// Validate checks the accumulated configuration.
func (b *Builder) Validate() error { return b.cfg.Validate() }

// Build validates the configuration and returns an Extractor.
func (b *Builder) Build() (*Extractor, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	return New(b.cfg), nil
}

// Validate rejects thresholds that would make grouping or matching
// meaningless.
func (c Config) Validate() error {
	if c.Grouping.MaxLineGap <= 0 {
		return fmt.Errorf("max line gap must be positive, got %g", c.Grouping.MaxLineGap)
	}
	if c.Grouping.MaxGlyphGap <= 0 {
		return fmt.Errorf("max glyph gap must be positive, got %g", c.Grouping.MaxGlyphGap)
	}
	if c.Matcher.MaxColumnOffset <= 0 {
		return fmt.Errorf("max column offset must be positive, got %g", c.Matcher.MaxColumnOffset)
	}
	if _, err := matcher.ParseAssignment(string(c.Matcher.Assignment)); err != nil {
		return err
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be within [0, 1], got %g", c.MinConfidence)
	}
	if c.Labels.Delimiter == "" && len(c.Labels.Vocabulary) == 0 {
		return errors.New("label detection needs a delimiter or a vocabulary")
	}
	return nil
}
