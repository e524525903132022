package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/MeKo-Tech/readout/internal/ocr"
	"github.com/MeKo-Tech/readout/internal/testutil"
	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartImage(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func readoutPNG(t *testing.T) []byte {
	t.Helper()
	path := testutil.SaveReadoutImage(t, t.TempDir(), "readout.png", testutil.DefaultReadoutImageConfig())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func postImage(t *testing.T, s *Server, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/extract/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestExtractImageHandler_OCRDisabled(t *testing.T) {
	s := newTestServer(t, nil)
	body, ct := multipartImage(t, "image", "readout.png", readoutPNG(t))

	rec := postImage(t, s, body, ct)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Contains(t, rec.Body.String(), "OCR support not enabled")
}

func TestExtractImageHandler_Success(t *testing.T) {
	var seenPath string
	s := newTestServer(t, func(c *Config) {
		c.Recognizer = ocr.RecognizerFunc(func(ctx context.Context, path string) (*tokens.Bundle, error) {
			seenPath = path
			return testutil.ReadoutBundle(), nil
		})
	})
	body, ct := multipartImage(t, "image", "treadmill.png", readoutPNG(t))

	rec := postImage(t, s, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp extractBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "treadmill.png", resp.Result.Source)
	assert.Equal(t, map[string]any{"Distance": 9.8, "Calories": 320.0}, resp.Result.Record)

	// The upload is removed once the request is done.
	assert.NotEmpty(t, seenPath)
	assert.False(t, testutil.FileExists(seenPath))
}

func TestExtractImageHandler_Errors(t *testing.T) {
	failing := errors.New("engine crashed")
	s := newTestServer(t, func(c *Config) {
		c.Recognizer = ocr.RecognizerFunc(func(ctx context.Context, path string) (*tokens.Bundle, error) {
			return nil, failing
		})
	})

	t.Run("missing field", func(t *testing.T) {
		body, ct := multipartImage(t, "file", "readout.png", readoutPNG(t))
		assert.Equal(t, http.StatusBadRequest, postImage(t, s, body, ct).Code)
	})

	t.Run("not an image", func(t *testing.T) {
		body, ct := multipartImage(t, "image", "readout.png", []byte("plain text"))
		rec := postImage(t, s, body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid image format")
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := postImage(t, s, bytes.NewBufferString("{}"), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("recognizer failure", func(t *testing.T) {
		body, ct := multipartImage(t, "image", "readout.png", readoutPNG(t))
		rec := postImage(t, s, body, ct)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "engine crashed")
	})

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/extract/image", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
