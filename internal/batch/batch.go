// Package batch extracts records from many token bundle files in parallel.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/readout/internal/extract"
	"github.com/MeKo-Tech/readout/internal/report"
	"github.com/MeKo-Tech/readout/internal/tokens"
	"golang.org/x/sync/errgroup"
)

// ErrNoInputFiles is returned when discovery finds nothing to process.
var ErrNoInputFiles = errors.New("no bundle files found")

// ProcessBatch extracts every bundle file found under paths. Results keep
// discovery order regardless of completion order. Without ContinueOnError
// the first failure cancels the remaining work.
func ProcessBatch(ctx context.Context, paths []string, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Extraction.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction config: %w", err)
	}

	include := config.IncludePatterns
	if len(include) == 0 {
		include = DefaultIncludePatterns
	}
	files, err := discoverBundleFiles(paths, config.Recursive, include, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover bundle files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoInputFiles
	}

	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}

	progress := progressFor(config)
	ex := extract.New(config.Extraction)
	entries := make([]report.Entry, len(files))

	slog.Info("Starting batch", "files", len(files), "workers", workers)
	progress.OnStart(len(files))
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var done atomic.Int64
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := processFile(ex, file)
			entries[i] = report.Entry{File: file, Result: res, Err: err}
			n := int(done.Add(1))
			if err != nil {
				slog.Warn("Bundle failed", "file", file, "error", err)
				progress.OnError(n, err)
				if !config.ContinueOnError {
					return fmt.Errorf("%s: %w", file, err)
				}
			}
			progress.OnProgress(n, len(files))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}
	progress.OnComplete()

	result := &Result{
		Entries:     entries,
		Files:       files,
		Duration:    time.Since(startTime),
		WorkerCount: workers,
	}
	stats := result.Stats()
	slog.Info("Batch completed",
		"processed", stats.Processed,
		"failed", stats.Failed,
		"duration_ms", result.Duration.Milliseconds())
	return result, nil
}

func processFile(ex *extract.Extractor, path string) (*extract.Result, error) {
	b, err := tokens.LoadBundle(path)
	if err != nil {
		return nil, err
	}
	return ex.Extract(b)
}

func progressFor(config *Config) ProgressCallback {
	if config.Progress != nil {
		return config.Progress
	}
	if config.ShowProgress && !config.Quiet {
		return NewConsoleProgressCallback(os.Stderr, "Extracting: ").
			WithUpdateInterval(config.ProgressInterval)
	}
	return NoOpProgressCallback{}
}
