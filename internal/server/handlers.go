package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/readout/internal/extract"
	"github.com/MeKo-Tech/readout/internal/report"
	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/MeKo-Tech/readout/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		OCR:     s.recognizer != nil,
	})
}

// configHandler reports the thresholds and vocabulary in effect.
func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.extractor.Config()
	s.writeJSON(w, http.StatusOK, ConfigResponse{
		MaxLineGap:      cfg.Grouping.MaxLineGap,
		MaxGlyphGap:     cfg.Grouping.MaxGlyphGap,
		MaxColumnOffset: cfg.Matcher.MaxColumnOffset,
		Vocabulary:      cfg.Labels.Vocabulary,
		LabelDelimiter:  cfg.Labels.Delimiter,
		KeyStripChars:   cfg.Labels.StripChars,
		Assignment:      string(cfg.Matcher.Assignment),
		MinConfidence:   cfg.MinConfidence,
	})
}

// extractHandler runs the pipeline on a token bundle posted as JSON or YAML.
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.ContentLength > 0 {
		uploadSizeBytes.Observe(float64(r.ContentLength))
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())

	b, err := tokens.DecodeBundle(r.Body, bundleFormat(r))
	if err != nil {
		extractRequestsTotal.WithLabelValues("bundle", "error").Inc()
		s.writeErrorResponse(w, err.Error(), decodeStatus(err))
		return
	}
	if b.Source == "" {
		b.Source = r.URL.Query().Get("source")
	}

	res, err := s.runExtraction("bundle", b)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), extractStatus(err))
		return
	}

	s.writeResult(w, r, res)
}

// runExtraction extracts one bundle and records metrics under kind.
func (s *Server) runExtraction(kind string, b *tokens.Bundle) (*extract.Result, error) {
	start := time.Now()
	res, err := s.extractor.Extract(b)
	if err != nil {
		extractRequestsTotal.WithLabelValues(kind, "error").Inc()
		slog.Warn("Extraction failed", "type", kind, "error", err)
		return nil, err
	}

	extractRequestsTotal.WithLabelValues(kind, "success").Inc()
	extractDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	recordKeys.WithLabelValues(kind).Observe(float64(res.Record.Len()))
	unmatchedLabelsTotal.WithLabelValues(kind).Add(float64(len(res.Unmatched)))
	degradedValuesTotal.WithLabelValues(kind).Add(float64(len(res.Degraded)))
	slog.Debug("Extraction completed",
		"type", kind,
		"source", res.Source,
		"keys", res.Record.Len(),
		"unmatched", len(res.Unmatched))
	return res, nil
}

// writeResult renders res in the format requested by the "format" query
// parameter: json (default), yaml or text.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, res *extract.Result) {
	diagnostics := s.diagnostics
	if v := r.URL.Query().Get("diagnostics"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			s.writeErrorResponse(w, "invalid diagnostics flag: "+v, http.StatusBadRequest)
			return
		}
		diagnostics = parsed
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = report.FormatJSON
	}
	format, err := report.ParseFormat(format)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if format == report.FormatJSON {
		var result any = report.Summarize(res)
		if diagnostics {
			result = res
		}
		s.writeJSON(w, http.StatusOK, ExtractResponse{Success: true, Result: result})
		return
	}

	out, err := report.Format(res, format, diagnostics)
	if err != nil {
		s.writeErrorResponse(w, "formatting failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if format == report.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	_, _ = w.Write([]byte(out))
}

// bundleFormat picks the body decoder from the "input" query parameter or
// the Content-Type header.
func bundleFormat(r *http.Request) string {
	if in := strings.ToLower(r.URL.Query().Get("input")); in != "" {
		if in == "yml" {
			return tokens.FormatYAML
		}
		return in
	}
	if strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "yaml") {
		return tokens.FormatYAML
	}
	return tokens.FormatJSON
}

func decodeStatus(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, tokens.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}

func extractStatus(err error) int {
	if errors.Is(err, tokens.ErrMalformedInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ExtractResponse{Success: false, Error: message})
}
