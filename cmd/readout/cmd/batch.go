package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/readout/internal/batch"
	"github.com/spf13/cobra"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [files or directories...]",
		Short: "Extract records from many token bundles in parallel",
		Long: `Discover token bundle files and extract a record from each using a pool
of workers. Results are reported in discovery order.

Examples:
  readout batch dumps/
  readout batch dumps/ --recursive --workers 8 --format json --output results.json
  readout batch a.json b.yaml --continue-on-error --stats
  readout batch dumps/ --exclude "draft-*" --progress`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args)
		},
	}

	addExtractionFlags(cmd.Flags())
	addOutputFlags(cmd.Flags())
	fs := cmd.Flags()
	fs.IntP("workers", "w", 4, "number of parallel workers")
	fs.Bool("continue-on-error", false, "keep going when a bundle fails")
	fs.BoolP("recursive", "r", false, "descend into subdirectories")
	fs.StringSlice("include", batch.DefaultIncludePatterns, "file name patterns to include")
	fs.StringSlice("exclude", nil, "file name patterns to exclude")
	fs.Bool("progress", false, "show a progress bar")
	fs.BoolP("quiet", "q", false, "suppress progress and status messages")
	fs.Bool("stats", false, "print processing statistics")
	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, args []string) error {
	cfg := a.cfg.ToBatchConfig()
	cfg.ShowProgress, _ = cmd.Flags().GetBool("progress")
	cfg.Quiet, _ = cmd.Flags().GetBool("quiet")
	cfg.ShowStats, _ = cmd.Flags().GetBool("stats")
	if cfg.ShowProgress && !cfg.Quiet {
		cfg.Progress = batch.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Extracting: ").
			WithUpdateInterval(cfg.ProgressInterval)
	}

	result, err := batch.ProcessBatch(cmd.Context(), args, cfg)
	if err != nil {
		return err
	}

	if err := result.SaveResults(cmd.OutOrStdout(), cfg.Format, cfg.OutputFile, cfg.Diagnostics, cfg.Quiet); err != nil {
		return err
	}
	if cfg.ShowStats {
		result.PrintStats(cmd.ErrOrStderr())
	}

	if stats := result.Stats(); stats.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", stats.Failed, stats.Total)
	}
	return nil
}
