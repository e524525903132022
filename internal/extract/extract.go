// Package extract runs the full token-to-record pipeline for one bundle:
// ingest, filter, group numeric fragments, detect labels, match labels to
// the nearest value above them and coerce the matched text.
package extract

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/readout/internal/coerce"
	"github.com/MeKo-Tech/readout/internal/grouping"
	"github.com/MeKo-Tech/readout/internal/labels"
	"github.com/MeKo-Tech/readout/internal/matcher"
	"github.com/MeKo-Tech/readout/internal/tokens"
)

// Config holds every threshold and vocabulary setting of the pipeline.
type Config struct {
	Grouping grouping.Config
	Labels   labels.Config
	Matcher  matcher.Config
	// MinConfidence drops tokens scored below it; 0 keeps everything.
	MinConfidence float64
}

// DefaultConfig returns the reference thresholds and vocabulary.
func DefaultConfig() Config {
	return Config{
		Grouping: grouping.DefaultConfig(),
		Labels:   labels.DefaultConfig(),
		Matcher:  matcher.DefaultConfig(),
	}
}

// Degradation records a matched value that could not be parsed as a number.
type Degradation struct {
	Key  string `json:"key" yaml:"key"`
	Text string `json:"text" yaml:"text"`
}

// Result is the record for one bundle plus the intermediate stages that
// produced it.
type Result struct {
	Source    string                  `json:"source,omitempty" yaml:"source,omitempty"`
	Record    *coerce.Record          `json:"record" yaml:"record"`
	Tokens    []tokens.Token          `json:"tokens" yaml:"tokens"`
	Groups    []grouping.NumericGroup `json:"groups" yaml:"groups"`
	Labels    []tokens.Token          `json:"labels" yaml:"labels"`
	Matches   []matcher.Match         `json:"matches" yaml:"matches"`
	Unmatched []tokens.Token          `json:"unmatched" yaml:"unmatched"`
	Degraded  []Degradation           `json:"degraded" yaml:"degraded"`
	Duration  time.Duration           `json:"duration_ns" yaml:"duration_ns"`
}

// Extractor is safe for concurrent use; it holds only immutable settings.
type Extractor struct {
	cfg      Config
	detector *labels.Detector
}

// New returns an extractor bound to cfg.
func New(cfg Config) *Extractor {
	return &Extractor{cfg: cfg, detector: labels.NewDetector(cfg.Labels)}
}

// Config returns the extractor's settings.
func (e *Extractor) Config() Config { return e.cfg }

// Extract ingests a bundle and runs the pipeline on it. Malformed bundles
// fail with an error wrapping tokens.ErrMalformedInput and yield no result.
func (e *Extractor) Extract(b *tokens.Bundle) (*Result, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil bundle", tokens.ErrMalformedInput)
	}
	toks, err := b.Tokens()
	if err != nil {
		return nil, err
	}
	res := e.ExtractTokens(toks)
	res.Source = b.Source
	return res, nil
}

// ExtractTokens runs the pipeline on already ingested tokens.
func (e *Extractor) ExtractTokens(toks []tokens.Token) *Result {
	start := time.Now()

	toks = tokens.FilterConfidence(toks, e.cfg.MinConfidence)
	slog.Debug("Tokens ingested", "count", len(toks))
	for _, t := range toks {
		slog.Debug("Token", "text", t.Text, "x", t.X, "y", t.Y, "confidence", t.Confidence)
	}

	groups := grouping.Group(toks, e.cfg.Grouping)
	for _, g := range groups {
		slog.Debug("Numeric group", "text", g.Text, "x", g.X, "y", g.Y, "members", len(g.Members))
	}

	found := e.detector.Detect(toks)
	slog.Debug("Labels detected", "count", len(found))

	outcome := matcher.MatchLabels(found, groups, e.cfg.Matcher)

	res := &Result{
		Record:    coerce.NewRecord(),
		Tokens:    toks,
		Groups:    groups,
		Labels:    found,
		Matches:   outcome.Matches,
		Unmatched: outcome.Unmatched,
	}
	for _, m := range outcome.Matches {
		key := e.detector.Key(m.Label.Text)
		val := coerce.Coerce(m.Group.Text)
		if val.Degraded() {
			res.Degraded = append(res.Degraded, Degradation{Key: key, Text: m.Group.Text})
			slog.Debug("Value kept as text", "key", key, "text", m.Group.Text)
		}
		res.Record.Set(key, val)
		slog.Debug("Matched", "label", m.Label.Text, "value", m.Group.Text, "gap", m.Gap)
	}
	for _, l := range outcome.Unmatched {
		slog.Debug("Label has no value above it", "label", l.Text, "x", l.X, "y", l.Y)
	}

	res.Duration = time.Since(start)
	slog.Debug("Extraction completed",
		"keys", res.Record.Len(),
		"unmatched", len(res.Unmatched),
		"degraded", len(res.Degraded),
		"duration_ms", res.Duration.Milliseconds())
	return res
}

// Extract runs a one-off extraction with cfg.
func Extract(b *tokens.Bundle, cfg Config) (*Result, error) {
	return New(cfg).Extract(b)
}
