package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"waingest/internal/config"
	"waingest/internal/ingest"
)

func newIngestCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <export.zip>",
		Short: "Ingest a WhatsApp chat export archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zipPath := args[0]
			if _, err := os.Stat(zipPath); err != nil {
				return fmt.Errorf("read export archive: %w", err)
			}

			logger := slog.Default().With("component", "ingest")
			docs, orch, err := openPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer docs.Close()

			workDir, err := os.MkdirTemp("", "waingest-*")
			if err != nil {
				return fmt.Errorf("create working directory: %w", err)
			}
			if err := ingest.Unpack(zipPath, workDir); err != nil {
				_ = os.RemoveAll(workDir)
				return fmt.Errorf("unpack %s: %w", filepath.Base(zipPath), err)
			}

			taskID := ingest.NewTaskID()
			// RunTask removes workDir on every exit path.
			if err := orch.RunTask(cmd.Context(), taskID, workDir, filepath.Base(zipPath)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ingestion completed (task %s)\n", taskID)
			return nil
		},
	}
}
