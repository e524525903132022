package config

import (
	"strings"
	"testing"

	"github.com/MeKo-Tech/readout/internal/matcher"
	"github.com/MeKo-Tech/readout/internal/report"
)

const infoLevel = "info"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected log level %q, got %q", infoLevel, cfg.LogLevel)
	}
	if cfg.Extraction.MaxLineGap != 30 {
		t.Errorf("Expected max_line_gap 30, got %v", cfg.Extraction.MaxLineGap)
	}
	if cfg.Extraction.MaxGlyphGap != 100 {
		t.Errorf("Expected max_glyph_gap 100, got %v", cfg.Extraction.MaxGlyphGap)
	}
	if cfg.Extraction.MaxColumnOffset != 150 {
		t.Errorf("Expected max_column_offset 150, got %v", cfg.Extraction.MaxColumnOffset)
	}
	if strings.Join(cfg.Extraction.Vocabulary, ",") != "Distance,Calories" {
		t.Errorf("Unexpected vocabulary %v", cfg.Extraction.Vocabulary)
	}
	if cfg.Extraction.LabelDelimiter != ":" {
		t.Errorf("Expected delimiter ':', got %q", cfg.Extraction.LabelDelimiter)
	}
	if cfg.Extraction.Assignment != string(matcher.Greedy) {
		t.Errorf("Expected greedy assignment, got %q", cfg.Extraction.Assignment)
	}
	if cfg.Output.Format != report.FormatText {
		t.Errorf("Expected text output, got %q", cfg.Output.Format)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.OCR.Engine != "tesseract" || cfg.OCR.Language != "eng" {
		t.Errorf("Unexpected OCR defaults %+v", cfg.OCR)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"yml format", func(c *Config) { c.Output.Format = "yml" }, ""},
		{"zero line gap", func(c *Config) { c.Extraction.MaxLineGap = 0 }, "max_line_gap"},
		{"negative glyph gap", func(c *Config) { c.Extraction.MaxGlyphGap = -1 }, "max_glyph_gap"},
		{"zero column offset", func(c *Config) { c.Extraction.MaxColumnOffset = 0 }, "max_column_offset"},
		{"confidence above one", func(c *Config) { c.Extraction.MinConfidence = 1.5 }, "min_confidence"},
		{"unknown assignment", func(c *Config) { c.Extraction.Assignment = "random" }, "assignment"},
		{"exclusive assignment", func(c *Config) { c.Extraction.Assignment = "exclusive" }, ""},
		{"no label rule", func(c *Config) {
			c.Extraction.LabelDelimiter = ""
			c.Extraction.Vocabulary = nil
		}, "cannot both be empty"},
		{"vocabulary only", func(c *Config) { c.Extraction.LabelDelimiter = "" }, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"zero upload", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max upload"},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSec = 0 }, "invalid timeout"},
		{"rate limit without quota", func(c *Config) {
			c.Server.RateLimit.Enabled = true
			c.Server.RateLimit.RequestsPerMinute = 0
		}, "invalid rate limit"},
		{"zero workers", func(c *Config) { c.Batch.Workers = 0 }, "invalid batch workers"},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "paddle" }, "invalid OCR engine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestToExtractionConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extraction.MaxLineGap = 40
	cfg.Extraction.MaxGlyphGap = 80
	cfg.Extraction.MaxColumnOffset = 200
	cfg.Extraction.Vocabulary = []string{"Pace"}
	cfg.Extraction.LabelDelimiter = "="
	cfg.Extraction.KeyStripChars = "="
	cfg.Extraction.Assignment = "exclusive"
	cfg.Extraction.MinConfidence = 0.25

	ext := cfg.ToExtractionConfig()
	if ext.Grouping.MaxLineGap != 40 || ext.Grouping.MaxGlyphGap != 80 {
		t.Errorf("Unexpected grouping config %+v", ext.Grouping)
	}
	if ext.Matcher.MaxColumnOffset != 200 || ext.Matcher.Assignment != matcher.Exclusive {
		t.Errorf("Unexpected matcher config %+v", ext.Matcher)
	}
	if ext.Labels.Delimiter != "=" || ext.Labels.StripChars != "=" {
		t.Errorf("Unexpected labels config %+v", ext.Labels)
	}
	if len(ext.Labels.Vocabulary) != 1 || ext.Labels.Vocabulary[0] != "Pace" {
		t.Errorf("Unexpected vocabulary %v", ext.Labels.Vocabulary)
	}
	if ext.MinConfidence != 0.25 {
		t.Errorf("Expected min confidence 0.25, got %v", ext.MinConfidence)
	}
	if err := ext.Validate(); err != nil {
		t.Errorf("Converted config should validate: %v", err)
	}

	// The conversion copies the vocabulary.
	ext.Labels.Vocabulary[0] = "changed"
	if cfg.Extraction.Vocabulary[0] != "Pace" {
		t.Error("ToExtractionConfig shares the vocabulary slice")
	}
}

func TestToExtractionConfig_DefaultsMatchPipeline(t *testing.T) {
	cfg := DefaultConfig()
	ext := cfg.ToExtractionConfig()
	if ext.Grouping.MaxLineGap != 30 || ext.Grouping.MaxGlyphGap != 100 || ext.Matcher.MaxColumnOffset != 150 {
		t.Errorf("Default thresholds not carried over: %+v", ext)
	}
}

func TestToBatchConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Format = "json"
	cfg.Output.File = "out.json"
	cfg.Output.Diagnostics = true
	cfg.Batch.Workers = 3
	cfg.Batch.ContinueOnError = true
	cfg.Batch.Recursive = true
	cfg.Batch.Exclude = []string{"skip*"}

	b := cfg.ToBatchConfig()
	if b.Format != "json" || b.OutputFile != "out.json" || !b.Diagnostics {
		t.Errorf("Unexpected output settings %+v", b)
	}
	if b.Workers != 3 || !b.ContinueOnError || !b.Recursive {
		t.Errorf("Unexpected batch settings %+v", b)
	}
	if len(b.IncludePatterns) != 3 {
		t.Errorf("Expected default include patterns, got %v", b.IncludePatterns)
	}
	if len(b.ExcludePatterns) != 1 || b.ExcludePatterns[0] != "skip*" {
		t.Errorf("Unexpected exclude patterns %v", b.ExcludePatterns)
	}
}

func TestToOCRConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCR.Language = "deu"
	o := cfg.ToOCRConfig()
	if o.Engine != "tesseract" || o.Language != "deu" {
		t.Errorf("Unexpected OCR config %+v", o)
	}
}

func TestValidateThreshold(t *testing.T) {
	tests := []struct {
		value   float64
		wantErr bool
	}{
		{0.0, false},
		{0.5, false},
		{1.0, false},
		{-0.1, true},
		{1.1, true},
	}
	for _, tt := range tests {
		err := validateThreshold(tt.value, "test")
		if (err != nil) != tt.wantErr {
			t.Errorf("validateThreshold(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}
