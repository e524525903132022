// Package server exposes the extraction pipeline over HTTP and WebSocket.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MeKo-Tech/readout/internal/extract"
	"github.com/MeKo-Tech/readout/internal/ocr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	extractor   *extract.Extractor
	recognizer  ocr.Recognizer
	rateLimiter *RateLimiter
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	diagnostics bool
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	Extraction  extract.Config
	// Diagnostics makes /extract return the full result by default.
	Diagnostics bool
	// RateLimit enables per-client quotas when non-nil.
	RateLimit *RateLimitConfig
	// Recognizer serves /extract/image; nil disables the endpoint.
	Recognizer ocr.Recognizer
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
	OCR     bool   `json:"ocr"`
}

// ConfigResponse is returned by GET /config.
type ConfigResponse struct {
	MaxLineGap      float64  `json:"max_line_gap"`
	MaxGlyphGap     float64  `json:"max_glyph_gap"`
	MaxColumnOffset float64  `json:"max_column_offset"`
	Vocabulary      []string `json:"vocabulary"`
	LabelDelimiter  string   `json:"label_delimiter"`
	KeyStripChars   string   `json:"key_strip_chars"`
	Assignment      string   `json:"assignment"`
	MinConfidence   float64  `json:"min_confidence"`
}

// ExtractResponse wraps a result or an error.
type ExtractResponse struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewServer creates a new server instance.
func NewServer(config Config) (*Server, error) {
	if err := config.Extraction.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction config: %w", err)
	}
	if config.MaxUploadMB <= 0 {
		return nil, errors.New("max upload size must be positive")
	}

	s := &Server{
		extractor:   extract.New(config.Extraction),
		recognizer:  config.Recognizer,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		diagnostics: config.Diagnostics,
	}
	if config.RateLimit != nil {
		s.rateLimiter = NewRateLimiterFromConfig(*config.RateLimit)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.recognizer != nil {
		return s.recognizer.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/config", s.corsMiddleware(s.configHandler))
	mux.HandleFunc("/extract", s.corsMiddleware(s.rateLimitMiddleware(s.extractHandler)))
	mux.HandleFunc("/extract/image", s.corsMiddleware(s.rateLimitMiddleware(s.extractImageHandler)))
	mux.HandleFunc("/ws/extract", s.rateLimitMiddleware(s.extractWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) maxUploadBytes() int64 {
	return s.maxUploadMB * 1024 * 1024
}
