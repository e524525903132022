package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/readout/internal/ocr"
	"github.com/MeKo-Tech/readout/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for the extraction API",
		Long: `Start an HTTP server that extracts records from posted token bundles.

The server provides the following endpoints:
  POST /extract        - Extract a record from a JSON or YAML bundle
  POST /extract/image  - Run OCR on an uploaded image (Tesseract builds only)
  GET  /ws/extract     - WebSocket streaming extraction
  GET  /config         - Thresholds and vocabulary in effect
  GET  /health         - Health check endpoint
  GET  /metrics        - Prometheus metrics

Examples:
  readout serve
  readout serve --port 8080
  readout serve --host 0.0.0.0 --port 3000 --rate-limit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd)
		},
	}

	addExtractionFlags(cmd.Flags())
	fs := cmd.Flags()
	fs.StringP("host", "H", "localhost", "server host")
	fs.IntP("port", "p", 8080, "server port")
	fs.String("cors-origin", "*", "CORS allowed origins")
	fs.Int("max-upload-size", 10, "maximum request body size in MB")
	fs.Int("timeout", 30, "request timeout in seconds")
	fs.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	fs.Bool("diagnostics", false, "return full diagnostics by default")
	fs.String("language", "eng", "OCR language for /extract/image")
	fs.Bool("rate-limit", false, "enable rate limiting")
	fs.Int("requests-per-minute", 120, "maximum requests per minute per client")
	fs.Int("requests-per-hour", 3000, "maximum requests per hour per client")
	fs.Int("max-requests-per-day", 20000, "maximum requests per day per client")
	fs.Int64("max-data-per-day", 500*1024*1024, "maximum bytes uploaded per day per client")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	cfg := a.cfg.Server

	serverConfig := server.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		CORSOrigin:  cfg.CORSOrigin,
		MaxUploadMB: int64(cfg.MaxUploadMB),
		TimeoutSec:  cfg.TimeoutSec,
		Extraction:  a.cfg.ToExtractionConfig(),
		Diagnostics: a.cfg.Output.Diagnostics,
	}
	if cfg.RateLimit.Enabled {
		serverConfig.RateLimit = &server.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			RequestsPerHour:   cfg.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: cfg.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     cfg.RateLimit.MaxDataPerDay,
		}
	}

	rec, err := newRecognizer(a.cfg.ToOCRConfig())
	switch {
	case errors.Is(err, ocr.ErrOCRNotEnabled):
		slog.Info("OCR disabled, /extract/image will answer 501")
	case err != nil:
		return fmt.Errorf("failed to initialize OCR: %w", err)
	default:
		serverConfig.Recognizer = rec
	}

	srv, err := server.NewServer(serverConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              serverConfig.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.TimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.TimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting readout server", "host", cfg.Host, "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case err := <-serveErr:
		if err != nil {
			slog.Error("Server error", "error", err)
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}
	slog.Info("Graceful shutdown completed")
	return runErr
}
