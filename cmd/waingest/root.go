package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"waingest/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "waingest",
		Short: "Waingest ingests WhatsApp chat exports into a queryable message store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configLevel := ""
			if cfg != nil {
				configLevel = cfg.LogLevel
			}
			warning, err := configureLoggerForCLI(logLevel, configLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newIngestCmd(cfg),
		newExportCmd(cfg),
		newTokenCmd(),
	)

	return cmd
}
