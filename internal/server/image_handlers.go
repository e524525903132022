package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/readout/internal/ocr"
)

// extractImageHandler runs OCR on an uploaded screenshot and extracts a
// record from the recognized tokens.
func (s *Server) extractImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.recognizer == nil {
		s.writeErrorResponse(w, ocr.ErrOCRNotEnabled.Error(), http.StatusNotImplemented)
		return
	}

	path, name, err := s.saveUploadedImage(w, r)
	if err != nil {
		extractRequestsTotal.WithLabelValues("image", "error").Inc()
		return // error already written
	}
	defer func() { _ = os.Remove(path) }()

	if _, err := ocr.ImageBounds(path); err != nil {
		extractRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	b, err := s.recognizer.Recognize(ctx, path)
	if err != nil {
		extractRequestsTotal.WithLabelValues("image", "error").Inc()
		slog.Error("OCR failed", "file", name, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		s.writeErrorResponse(w, "OCR processing failed: "+err.Error(), status)
		return
	}
	b.Source = name

	res, err := s.runExtraction("image", b)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), extractStatus(err))
		return
	}
	s.writeResult(w, r, res)
}

// saveUploadedImage copies the multipart "image" field to a temp file the
// recognizer can open by path.
func (s *Server) saveUploadedImage(w http.ResponseWriter, r *http.Request) (string, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())

	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return "", "", err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return "", "", err
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	ext := strings.ToLower(filepath.Ext(header.Filename))
	tmp, err := os.CreateTemp("", "readout-upload-*"+ext)
	if err != nil {
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return "", "", err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return "", "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return "", "", err
	}
	return tmp.Name(), header.Filename, nil
}
