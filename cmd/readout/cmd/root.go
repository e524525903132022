// Package cmd implements the readout command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/readout/internal/config"
	"github.com/MeKo-Tech/readout/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags onto configuration keys. Only the flags
// of the command being run are bound, so commands may share flag names.
var flagKeys = map[string]string{
	"log-level":            "log_level",
	"verbose":              "verbose",
	"line-gap":             "extraction.max_line_gap",
	"glyph-gap":            "extraction.max_glyph_gap",
	"column-offset":        "extraction.max_column_offset",
	"vocabulary":           "extraction.vocabulary",
	"delimiter":            "extraction.label_delimiter",
	"strip-chars":          "extraction.key_strip_chars",
	"assignment":           "extraction.assignment",
	"min-confidence":       "extraction.min_confidence",
	"format":               "output.format",
	"output":               "output.file",
	"diagnostics":          "output.diagnostics",
	"workers":              "batch.workers",
	"continue-on-error":    "batch.continue_on_error",
	"recursive":            "batch.recursive",
	"include":              "batch.include",
	"exclude":              "batch.exclude",
	"language":             "ocr.language",
	"engine":               "ocr.engine",
	"host":                 "server.host",
	"port":                 "server.port",
	"cors-origin":          "server.cors_origin",
	"max-upload-size":      "server.max_upload_mb",
	"timeout":              "server.timeout_sec",
	"shutdown-timeout":     "server.shutdown_timeout",
	"rate-limit":           "server.rate_limit.enabled",
	"requests-per-minute":  "server.rate_limit.requests_per_minute",
	"requests-per-hour":    "server.rate_limit.requests_per_hour",
	"max-requests-per-day": "server.rate_limit.max_requests_per_day",
	"max-data-per-day":     "server.rate_limit.max_data_per_day",
}

// app carries the state shared by one invocation's commands.
type app struct {
	v       *viper.Viper
	loader  *config.Loader
	cfg     *config.Config
	cfgFile string
}

// NewRootCommand builds the command tree with its own configuration state.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	a.loader = config.NewLoaderWithViper(a.v)

	rootCmd := &cobra.Command{
		Use:   "readout",
		Short: "Extract labeled values from OCR output of device readouts",
		Long: `readout turns the text fragments an OCR engine recognized on a display
screenshot (treadmill, bike computer, fitness app) into a key/value record.

Digits the recognizer split apart are joined back into numbers, field labels
are detected by vocabulary or a trailing colon, and every label takes the
nearest number above it in the same column.

Examples:
  readout extract result.json
  readout extract result.yaml --format json --diagnostics
  readout batch dumps/ --recursive --workers 8
  readout image screenshot.png
  readout serve --port 8080`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
				return nil
			}
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/readout, /etc/readout)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("version", false, "print version information and exit")

	rootCmd.AddCommand(
		newExtractCmd(a),
		newBatchCmd(a),
		newImageCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// setup binds the running command's flags, loads the configuration and
// installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = a.v.BindPFlag(key, f)
		}
	})

	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg

	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		}
	}

	// Logs go to stderr so stdout carries only results.
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return nil
}

// addExtractionFlags registers the pipeline threshold and vocabulary flags.
func addExtractionFlags(fs *pflag.FlagSet) {
	fs.Float64("line-gap", 30, "maximum vertical distance between digits of one number (px)")
	fs.Float64("glyph-gap", 100, "maximum horizontal distance between digits of one number (px)")
	fs.Float64("column-offset", 150, "maximum horizontal distance between a label and its value (px)")
	fs.StringSlice("vocabulary", []string{"Distance", "Calories"}, "bare words treated as labels")
	fs.String("delimiter", ":", "text marking a token as a label")
	fs.String("strip-chars", ":#", "characters removed from labels to form keys")
	fs.String("assignment", "greedy", "label to value assignment: greedy or exclusive")
	fs.Float64("min-confidence", 0, "drop tokens recognized below this confidence (0..1)")
}

// addOutputFlags registers the report flags.
func addOutputFlags(fs *pflag.FlagSet) {
	fs.StringP("format", "f", "text", "output format: text, json or yaml")
	fs.StringP("output", "o", "", "write results to file instead of stdout")
	fs.Bool("diagnostics", false, "include tokens, groups, labels and matches")
}
