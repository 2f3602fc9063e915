package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/authcore/internal/logging"
)

// NewRootCmd creates the loadtest command.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "authcore-loadtest",
		Short:         "Load test authcore authorize and refresh paths",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := readConfig(cmd.Flags(), configFile)
			if err != nil {
				return err
			}

			logger := logging.Setup("authcore-loadtest", version, cfg.LogFormat, logging.ParseLevel(cfg.LogLevel), os.Stderr)
			rep, err := run(cmd.Context(), cfg, cmd.OutOrStdout(), logger)
			if err != nil {
				return err
			}
			rep.print(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "YAML config file path")
	registerFlags(cmd.Flags())
	return cmd
}
