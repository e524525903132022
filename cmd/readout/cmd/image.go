package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/readout/internal/extract"
	"github.com/MeKo-Tech/readout/internal/ocr"
	"github.com/MeKo-Tech/readout/internal/report"
	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/spf13/cobra"
)

// newRecognizer is replaced in tests.
var newRecognizer = ocr.New

func newImageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image [images...]",
		Short: "Run OCR on screenshots and extract their records",
		Long: `Recognize the text on one or more readout screenshots and extract a record
from each. Requires a build with Tesseract support (-tags tesseract).

Examples:
  readout image treadmill.png
  readout image *.png --format json --language deu
  readout image shot.png --save-bundle bundles/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImage(cmd, args)
		},
	}
	addExtractionFlags(cmd.Flags())
	addOutputFlags(cmd.Flags())
	cmd.Flags().String("language", "eng", "OCR language")
	cmd.Flags().String("engine", ocr.EngineTesseract, "OCR engine")
	cmd.Flags().String("save-bundle", "", "directory to write the recognized token bundles to")
	return cmd
}

func (a *app) runImage(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	rec, err := newRecognizer(cfg.ToOCRConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize OCR: %w", err)
	}
	defer func() { _ = rec.Close() }()

	saveDir, _ := cmd.Flags().GetString("save-bundle")
	if saveDir != "" {
		if err := os.MkdirAll(saveDir, 0o750); err != nil {
			return fmt.Errorf("failed to create bundle directory: %w", err)
		}
	}

	ex := extract.New(cfg.ToExtractionConfig())
	entries := make([]report.Entry, 0, len(args))
	failed := 0
	for _, path := range args {
		res, err := recognizeAndExtract(cmd, rec, ex, path, saveDir)
		if err != nil {
			failed++
			slog.Error("Image failed", "file", path, "error", err)
		}
		entries = append(entries, report.Entry{File: path, Result: res, Err: err})
	}

	var out string
	if len(entries) == 1 {
		if entries[0].Err != nil {
			return entries[0].Err
		}
		out, err = report.Format(entries[0].Result, cfg.Output.Format, cfg.Output.Diagnostics)
	} else {
		out, err = report.FormatMany(entries, cfg.Output.Format, cfg.Output.Diagnostics)
	}
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}
	if err := writeOutput(cmd, cfg.Output.File, out); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(entries))
	}
	return nil
}

func recognizeAndExtract(cmd *cobra.Command, rec ocr.Recognizer, ex *extract.Extractor, path, saveDir string) (*extract.Result, error) {
	bounds, err := ocr.ImageBounds(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("Recognizing image", "file", path, "width", bounds.Dx(), "height", bounds.Dy())

	b, err := rec.Recognize(cmd.Context(), path)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	if b.Source == "" {
		b.Source = path
	}
	if saveDir != "" {
		if err := saveBundle(saveDir, path, b); err != nil {
			return nil, err
		}
	}
	return ex.Extract(b)
}

// saveBundle writes b as <saveDir>/<image base name>.json.
func saveBundle(saveDir, imagePath string, b *tokens.Bundle) error {
	base := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	path := filepath.Join(saveDir, base+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	slog.Info("Bundle saved", "file", path)
	return nil
}
