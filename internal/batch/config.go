package batch

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/MeKo-Tech/readout/internal/extract"
	"github.com/MeKo-Tech/readout/internal/report"
)

// DefaultIncludePatterns select the bundle file types LoadBundle understands.
var DefaultIncludePatterns = []string{"*.json", "*.yaml", "*.yml"}

// Config holds all configuration for batch processing.
type Config struct {
	Extraction extract.Config

	// Output settings
	Format      string
	OutputFile  string
	Diagnostics bool

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
	// Progress overrides the callback derived from ShowProgress.
	Progress ProgressCallback
}

// DefaultConfig returns a batch configuration using every CPU.
func DefaultConfig() *Config {
	return &Config{
		Extraction:       extract.DefaultConfig(),
		Format:           report.FormatText,
		Workers:          runtime.NumCPU(),
		IncludePatterns:  DefaultIncludePatterns,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Result holds the result of batch processing, one entry per file in
// discovery order.
type Result struct {
	Entries     []report.Entry
	Files       []string
	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes a batch run.
type Stats struct {
	Total            int
	Processed        int
	Failed           int
	Keys             int
	Unmatched        int
	Degraded         int
	Duration         time.Duration
	AveragePerFile   time.Duration
	ThroughputPerSec float64
}

// Stats computes the run's statistics.
func (r *Result) Stats() Stats {
	s := Stats{Total: len(r.Files), Duration: r.Duration}
	for _, e := range r.Entries {
		if e.Err != nil || e.Result == nil {
			s.Failed++
			continue
		}
		s.Processed++
		s.Keys += e.Result.Record.Len()
		s.Unmatched += len(e.Result.Unmatched)
		s.Degraded += len(e.Result.Degraded)
	}
	if s.Processed > 0 && r.Duration > 0 {
		s.AveragePerFile = r.Duration / time.Duration(s.Processed)
		s.ThroughputPerSec = float64(s.Processed) / r.Duration.Seconds()
	}
	return s
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string, diagnostics bool) (string, error) {
	return report.FormatMany(r.Entries, format, diagnostics)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, diagnostics, quiet bool) error {
	output, err := r.FormatResults(format, diagnostics)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}

	_, _ = fmt.Fprint(w, output)
	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", stats.Total)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.Processed)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	_, _ = fmt.Fprintf(w, "  Keys extracted: %d\n", stats.Keys)
	_, _ = fmt.Fprintf(w, "  Unmatched labels: %d\n", stats.Unmatched)
	_, _ = fmt.Fprintf(w, "  Values kept as text: %d\n", stats.Degraded)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per file: %v\n", stats.AveragePerFile.Round(time.Microsecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f files/sec\n", stats.ThroughputPerSec)
}
