package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/readout/internal/extract"
	"github.com/MeKo-Tech/readout/internal/report"
	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/spf13/cobra"
)

const stdinArg = "-"

func newExtractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [bundle files...]",
		Short: "Extract a record from OCR token bundles",
		Long: `Extract a key/value record from one or more token bundles: the JSON or
YAML files holding an OCR engine's rec_texts, rec_scores and rec_polys.

Use "-" to read a single bundle from stdin.

Examples:
  readout extract result.json
  readout extract result.yaml --format json
  readout extract a.json b.json --diagnostics
  cat result.json | readout extract - --format yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd, args)
		},
	}
	addExtractionFlags(cmd.Flags())
	addOutputFlags(cmd.Flags())
	cmd.Flags().String("input-format", tokens.FormatJSON, "format of a bundle read from stdin: json or yaml")
	return cmd
}

func (a *app) runExtract(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	ex := extract.New(cfg.ToExtractionConfig())

	entries := make([]report.Entry, 0, len(args))
	failed := 0
	for _, arg := range args {
		res, err := a.extractOne(cmd, ex, arg)
		if err != nil {
			failed++
			slog.Error("Extraction failed", "file", arg, "error", err)
		}
		entries = append(entries, report.Entry{File: arg, Result: res, Err: err})
	}

	var out string
	var err error
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
		return fmt.Errorf("%d of %d bundles failed", failed, len(entries))
	}
	return nil
}

func (a *app) extractOne(cmd *cobra.Command, ex *extract.Extractor, arg string) (*extract.Result, error) {
	var b *tokens.Bundle
	var err error
	if arg == stdinArg {
		format, _ := cmd.Flags().GetString("input-format")
		b, err = tokens.DecodeBundle(cmd.InOrStdin(), format)
		if err == nil && b.Source == "" {
			b.Source = "stdin"
		}
	} else {
		b, err = tokens.LoadBundle(arg)
	}
	if err != nil {
		return nil, err
	}
	return ex.Extract(b)
}

// writeOutput writes to file when one is given, otherwise to stdout.
func writeOutput(cmd *cobra.Command, file, out string) error {
	if file == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(file, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	slog.Info("Results written", "file", file)
	return nil
}
