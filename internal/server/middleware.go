package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware adds CORS headers and records request metrics.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()
		next(rw, r)
		duration := time.Since(start)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
	}
}

// rateLimitMiddleware enforces rate limiting and quotas.
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil {
			next(w, r)
			return
		}

		clientID := getClientIP(r)
		var dataSize int64
		if r.ContentLength > 0 {
			dataSize = r.ContentLength
		}

		if err := s.rateLimiter.CheckRateLimit(clientID, dataSize); err != nil {
			slog.Warn("Request rejected by rate limiter", "client", clientID, "error", err)
			s.handleRateLimitError(w, err)
			return
		}

		next(w, r)
	}
}

// handleRateLimitError writes a 429 describing the exceeded limit.
func (s *Server) handleRateLimitError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var response map[string]any
	var rateErr *RateLimitError
	var quotaErr *QuotaExceededError
	switch {
	case errors.As(err, &rateErr):
		rateLimitHits.WithLabelValues(rateErr.Type).Inc()
		w.Header().Set("X-RateLimit-Type", rateErr.Type)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rateErr.Limit))
		w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rateErr.RetryAfter.Seconds()))
		w.WriteHeader(http.StatusTooManyRequests)
		response = map[string]any{
			"error": "rate_limit_exceeded", "type": rateErr.Type, "limit": rateErr.Limit,
			"retry_after": rateErr.RetryAfter.Seconds(), "message": rateErr.Error(),
		}
	case errors.As(err, &quotaErr):
		rateLimitHits.WithLabelValues(quotaErr.Type).Inc()
		w.Header().Set("X-Quota-Type", quotaErr.Type)
		w.Header().Set("X-Quota-Limit", strconv.FormatInt(quotaErr.Limit, 10))
		w.Header().Set("X-Quota-Used", strconv.FormatInt(quotaErr.Used, 10))
		w.Header().Set("X-Quota-Resets", quotaErr.Resets.UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusTooManyRequests)
		response = map[string]any{
			"error": "quota_exceeded", "type": quotaErr.Type, "limit": quotaErr.Limit,
			"used": quotaErr.Used, "resets": quotaErr.Resets.Format(time.RFC3339), "message": quotaErr.Error(),
		}
	default:
		w.WriteHeader(http.StatusInternalServerError)
		response = map[string]any{"error": "internal_error", "message": "Rate limiting check failed"}
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode rate limit response", "error", err)
	}
}

// getClientIP extracts the client IP address from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The first entry is the originating client.
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
