// Package matcher associates each label with the numeric group displayed
// directly above it.
//
// A group is a candidate for a label when it lies strictly above the label
// and within MaxColumnOffset pixels horizontally. In greedy mode every label
// independently takes its nearest candidate, so one group can serve several
// labels. Exclusive mode solves a minimum-weight bipartite assignment over
// the same candidate predicate instead.
package matcher

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/MeKo-Tech/readout/internal/grouping"
	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/tidwall/rtree"
)

// Assignment selects how labels share groups.
type Assignment string

const (
	// Greedy lets every label take its nearest candidate.
	Greedy Assignment = "greedy"
	// Exclusive assigns each group to at most one label.
	Exclusive Assignment = "exclusive"
)

// ParseAssignment validates an assignment mode name. Empty means Greedy.
func ParseAssignment(s string) (Assignment, error) {
	switch Assignment(s) {
	case "", Greedy:
		return Greedy, nil
	case Exclusive:
		return Exclusive, nil
	default:
		return "", fmt.Errorf("unknown assignment mode %q (must be one of: greedy, exclusive)", s)
	}
}

// Config holds the matching settings.
type Config struct {
	// MaxColumnOffset is the exclusive bound on |group.X - label.X|.
	MaxColumnOffset float64
	Assignment      Assignment
}

// DefaultConfig returns the greedy matcher with a 150px column tolerance.
func DefaultConfig() Config {
	return Config{MaxColumnOffset: 150, Assignment: Greedy}
}

// Match pairs a label with the group chosen for it.
type Match struct {
	Label tokens.Token          `json:"label" yaml:"label"`
	Group grouping.NumericGroup `json:"group" yaml:"group"`
	// Gap is label.Y - group.Y, always positive.
	Gap float64 `json:"gap" yaml:"gap"`
}

// Outcome is the result of one matching pass.
type Outcome struct {
	Matches   []Match        `json:"matches" yaml:"matches"`
	Unmatched []tokens.Token `json:"unmatched" yaml:"unmatched"`
}

// Matcher indexes a set of groups for repeated candidate lookups.
type Matcher struct {
	cfg    Config
	groups []grouping.NumericGroup
	index  rtree.RTreeG[int]
}

// New indexes groups. The slice is not copied and must not be modified
// while the Matcher is in use.
func New(groups []grouping.NumericGroup, cfg Config) *Matcher {
	m := &Matcher{cfg: cfg, groups: groups}
	for i, g := range groups {
		pt := [2]float64{g.X, g.Y}
		m.index.Insert(pt, pt, i)
	}
	return m
}

// Candidates returns the indexes of the groups eligible for label, best
// first: smallest vertical gap, then leftmost, then earliest flushed.
func (m *Matcher) Candidates(label tokens.Token) []int {
	lo := [2]float64{label.X - m.cfg.MaxColumnOffset, math.Inf(-1)}
	hi := [2]float64{label.X + m.cfg.MaxColumnOffset, label.Y}

	var out []int
	m.index.Search(lo, hi, func(_, _ [2]float64, i int) bool {
		if m.eligible(label, m.groups[i]) {
			out = append(out, i)
		}
		return true
	})
	slices.SortFunc(out, func(a, b int) int {
		return m.compare(label, a, b)
	})
	return out
}

// Match runs one pass over labels, in order.
func (m *Matcher) Match(labels []tokens.Token) Outcome {
	if m.cfg.Assignment == Exclusive {
		return m.matchExclusive(labels)
	}
	return m.matchGreedy(labels)
}

func (m *Matcher) matchGreedy(labels []tokens.Token) Outcome {
	var out Outcome
	for _, label := range labels {
		cands := m.Candidates(label)
		if len(cands) == 0 {
			out.Unmatched = append(out.Unmatched, label)
			continue
		}
		out.Matches = append(out.Matches, m.pair(label, cands[0]))
	}
	return out
}

func (m *Matcher) eligible(label tokens.Token, g grouping.NumericGroup) bool {
	return g.Y < label.Y && math.Abs(g.X-label.X) < m.cfg.MaxColumnOffset
}

func (m *Matcher) compare(label tokens.Token, a, b int) int {
	ga, gb := m.groups[a], m.groups[b]
	if c := cmp.Compare(label.Y-ga.Y, label.Y-gb.Y); c != 0 {
		return c
	}
	if c := cmp.Compare(ga.X, gb.X); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

func (m *Matcher) pair(label tokens.Token, i int) Match {
	g := m.groups[i]
	return Match{Label: label, Group: g, Gap: label.Y - g.Y}
}

// MatchLabels is a convenience wrapper for a single pass.
func MatchLabels(labels []tokens.Token, groups []grouping.NumericGroup, cfg Config) Outcome {
	return New(groups, cfg).Match(labels)
}
