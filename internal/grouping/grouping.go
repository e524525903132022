// Package grouping reassembles multi-character numeric literals that the
// recognizer split into single-glyph tokens.
//
// Grouping is a filter followed by a fold. Tokens are put in reading order,
// everything that is not a number fragment is dropped, and the fold then
// fuses each fragment into the open group when it sits close enough to the
// previous fragment. Dropped tokens never take part in the adjacency test, so
// two digits with a word between them are still compared to each other.
package grouping

import (
	"cmp"
	"slices"
	"strings"

	"github.com/MeKo-Tech/readout/internal/tokens"
)

// Bullet is the glyph some renderers use for the decimal separator.
const Bullet = "•"

// Config holds the adjacency thresholds, in pixels.
type Config struct {
	// MaxLineGap is the exclusive bound on |dy| between consecutive fragments.
	MaxLineGap float64
	// MaxGlyphGap is the exclusive bound on |dx| between consecutive fragments.
	MaxGlyphGap float64
}

// DefaultConfig returns thresholds tuned for UI-rendered readouts.
func DefaultConfig() Config {
	return Config{MaxLineGap: 30, MaxGlyphGap: 100}
}

// NumericGroup is a composite token built from adjacent number fragments.
// Text uses "." in place of the bullet; X and Y are the members' mean anchor.
type NumericGroup struct {
	Text    string         `json:"text" yaml:"text"`
	X       float64        `json:"x" yaml:"x"`
	Y       float64        `json:"y" yaml:"y"`
	Members []tokens.Token `json:"members" yaml:"members"`
}

// IsNumberFragment reports whether text can be part of a numeric literal:
// ASCII digits with optional "." or "•" separators, or a lone separator.
func IsNumberFragment(text string) bool {
	if text == "." || text == Bullet {
		return true
	}
	digits := strings.NewReplacer(".", "", Bullet, "").Replace(text)
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ReadingOrder returns a copy of toks sorted top-to-bottom, then left-to-right.
// Equal positions keep their input order.
func ReadingOrder(toks []tokens.Token) []tokens.Token {
	out := slices.Clone(toks)
	slices.SortStableFunc(out, func(a, b tokens.Token) int {
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.X, b.X)
	})
	return out
}

// Fragments keeps only the number fragments, preserving order.
func Fragments(toks []tokens.Token) []tokens.Token {
	out := make([]tokens.Token, 0, len(toks))
	for _, t := range toks {
		if IsNumberFragment(t.Text) {
			out = append(out, t)
		}
	}
	return out
}

// Group runs the full filter-then-fold over toks and returns the groups in
// flush order, which is the reading order of each group's first member.
func Group(toks []tokens.Token, cfg Config) []NumericGroup {
	return Fold(Fragments(ReadingOrder(toks)), cfg)
}

// Fold fuses consecutive fragments. frags must already be filtered and in
// reading order.
func Fold(frags []tokens.Token, cfg Config) []NumericGroup {
	var groups []NumericGroup
	var open []tokens.Token

	for i, t := range frags {
		if i > 0 && adjacent(frags[i-1], t, cfg) {
			open = append(open, t)
			continue
		}
		if len(open) > 0 {
			groups = append(groups, flush(open))
		}
		open = []tokens.Token{t}
	}
	if len(open) > 0 {
		groups = append(groups, flush(open))
	}
	return groups
}

func adjacent(prev, cur tokens.Token, cfg Config) bool {
	return abs(cur.Y-prev.Y) < cfg.MaxLineGap && abs(cur.X-prev.X) < cfg.MaxGlyphGap
}

func flush(members []tokens.Token) NumericGroup {
	var b strings.Builder
	var sumX, sumY float64
	for _, m := range members {
		b.WriteString(strings.ReplaceAll(m.Text, Bullet, "."))
		sumX += m.X
		sumY += m.Y
	}
	n := float64(len(members))
	return NumericGroup{
		Text:    b.String(),
		X:       sumX / n,
		Y:       sumY / n,
		Members: slices.Clone(members),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
