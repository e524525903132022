package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/readout/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and generate configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the resolved configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := yaml.Marshal(a.cfg)
				if err != nil {
					return fmt.Errorf("failed to encode configuration: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "generate [file]",
			Short: "Write a configuration file holding every default",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				filename := config.ConfigFileName + ".yaml"
				if len(args) == 1 {
					filename = args[0]
				}
				if err := config.GenerateDefaultConfigFile(filename); err != nil {
					return fmt.Errorf("failed to generate config: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", filename)
				return nil
			},
		},
		&cobra.Command{
			Use:   "paths",
			Short: "List where configuration files are searched",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				a.loader.PrintConfigInfo(cmd.OutOrStdout())
			},
		},
	)
	return cmd
}
