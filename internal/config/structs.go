//nolint:lll
package config

// Config represents the complete configuration for readout. It covers every
// command (extract, batch, image, serve) and is loaded from configuration
// files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Extraction thresholds and vocabulary
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction" json:"extraction"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// OCR engine configuration (for image command)
	OCR OCRConfig `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
}

// ExtractionConfig contains the token-to-record pipeline settings.
type ExtractionConfig struct {
	MaxLineGap      float64  `mapstructure:"max_line_gap" yaml:"max_line_gap" json:"max_line_gap"`
	MaxGlyphGap     float64  `mapstructure:"max_glyph_gap" yaml:"max_glyph_gap" json:"max_glyph_gap"`
	MaxColumnOffset float64  `mapstructure:"max_column_offset" yaml:"max_column_offset" json:"max_column_offset"`
	Vocabulary      []string `mapstructure:"vocabulary" yaml:"vocabulary" json:"vocabulary"`
	LabelDelimiter  string   `mapstructure:"label_delimiter" yaml:"label_delimiter" json:"label_delimiter"`
	KeyStripChars   string   `mapstructure:"key_strip_chars" yaml:"key_strip_chars" json:"key_strip_chars"`
	Assignment      string   `mapstructure:"assignment" yaml:"assignment" json:"assignment"`
	MinConfidence   float64  `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format      string `mapstructure:"format" yaml:"format" json:"format"`
	File        string `mapstructure:"file" yaml:"file" json:"file"`
	Diagnostics bool   `mapstructure:"diagnostics" yaml:"diagnostics" json:"diagnostics"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request and data quotas.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

// OCRConfig selects the OCR engine used by the image command.
type OCRConfig struct {
	Engine   string `mapstructure:"engine" yaml:"engine" json:"engine"`
	Language string `mapstructure:"language" yaml:"language" json:"language"`
}
