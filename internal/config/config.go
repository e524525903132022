package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/readout/internal/batch"
	"github.com/MeKo-Tech/readout/internal/extract"
	"github.com/MeKo-Tech/readout/internal/grouping"
	"github.com/MeKo-Tech/readout/internal/labels"
	"github.com/MeKo-Tech/readout/internal/matcher"
	"github.com/MeKo-Tech/readout/internal/ocr"
	"github.com/MeKo-Tech/readout/internal/report"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	ext := extract.DefaultConfig()
	ocrCfg := ocr.DefaultConfig()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Extraction: ExtractionConfig{
			MaxLineGap:      ext.Grouping.MaxLineGap,
			MaxGlyphGap:     ext.Grouping.MaxGlyphGap,
			MaxColumnOffset: ext.Matcher.MaxColumnOffset,
			Vocabulary:      slices.Clone(ext.Labels.Vocabulary),
			LabelDelimiter:  ext.Labels.Delimiter,
			KeyStripChars:   ext.Labels.StripChars,
			Assignment:      string(ext.Matcher.Assignment),
			MinConfidence:   ext.MinConfidence,
		},
		Output: OutputConfig{
			Format: report.FormatText,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     10,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 120,
				RequestsPerHour:   3000,
				MaxRequestsPerDay: 20000,
				MaxDataPerDay:     500 * 1024 * 1024,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: false,
			Include:         slices.Clone(batch.DefaultIncludePatterns),
		},
		OCR: OCRConfig{
			Engine:   ocrCfg.Engine,
			Language: ocrCfg.Language,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Output.Format != "" {
		if _, err := report.ParseFormat(c.Output.Format); err != nil {
			return fmt.Errorf("invalid output format: %w", err)
		}
	}

	if err := validatePositive(c.Extraction.MaxLineGap, "extraction.max_line_gap"); err != nil {
		return err
	}
	if err := validatePositive(c.Extraction.MaxGlyphGap, "extraction.max_glyph_gap"); err != nil {
		return err
	}
	if err := validatePositive(c.Extraction.MaxColumnOffset, "extraction.max_column_offset"); err != nil {
		return err
	}
	if err := validateThreshold(c.Extraction.MinConfidence, "extraction.min_confidence"); err != nil {
		return err
	}
	if _, err := matcher.ParseAssignment(c.Extraction.Assignment); err != nil {
		return fmt.Errorf("invalid extraction.assignment: %w", err)
	}
	if c.Extraction.LabelDelimiter == "" && len(c.Extraction.Vocabulary) == 0 {
		return fmt.Errorf("invalid extraction: label_delimiter and vocabulary cannot both be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("invalid rate limit: %d requests per minute (must be positive)", c.Server.RateLimit.RequestsPerMinute)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	if c.OCR.Engine != "" && c.OCR.Engine != ocr.EngineTesseract {
		return fmt.Errorf("invalid OCR engine: %s (must be: %s)", c.OCR.Engine, ocr.EngineTesseract)
	}

	return nil
}

// ToExtractionConfig converts the config to the pipeline's configuration.
func (c *Config) ToExtractionConfig() extract.Config {
	assignment, err := matcher.ParseAssignment(c.Extraction.Assignment)
	if err != nil {
		assignment = matcher.Greedy
	}
	return extract.Config{
		Grouping: grouping.Config{
			MaxLineGap:  c.Extraction.MaxLineGap,
			MaxGlyphGap: c.Extraction.MaxGlyphGap,
		},
		Labels: labels.Config{
			Delimiter:  c.Extraction.LabelDelimiter,
			Vocabulary: slices.Clone(c.Extraction.Vocabulary),
			StripChars: c.Extraction.KeyStripChars,
		},
		Matcher: matcher.Config{
			MaxColumnOffset: c.Extraction.MaxColumnOffset,
			Assignment:      assignment,
		},
		MinConfidence: c.Extraction.MinConfidence,
	}
}

// ToBatchConfig converts the config to the batch processor's configuration.
func (c *Config) ToBatchConfig() *batch.Config {
	cfg := batch.DefaultConfig()
	cfg.Extraction = c.ToExtractionConfig()
	cfg.Format = c.Output.Format
	cfg.OutputFile = c.Output.File
	cfg.Diagnostics = c.Output.Diagnostics
	cfg.Workers = c.Batch.Workers
	cfg.ContinueOnError = c.Batch.ContinueOnError
	cfg.Recursive = c.Batch.Recursive
	if len(c.Batch.Include) > 0 {
		cfg.IncludePatterns = slices.Clone(c.Batch.Include)
	}
	cfg.ExcludePatterns = slices.Clone(c.Batch.Exclude)
	return cfg
}

// ToOCRConfig converts the config to the OCR adapter's configuration.
func (c *Config) ToOCRConfig() ocr.Config {
	return ocr.Config{Engine: c.OCR.Engine, Language: c.OCR.Language}
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// validatePositive validates a pixel distance.
func validatePositive(value float64, name string) error {
	if value <= 0 {
		return fmt.Errorf("invalid %s: %g (must be positive)", name, value)
	}
	return nil
}
