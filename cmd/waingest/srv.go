package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"waingest/internal/config"
	"waingest/internal/server"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the waingest API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			docs, orch, err := openPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer docs.Close()

			srv := server.New(addr, docs, orch, cfg, logger)
			return srv.ListenAndServe()
		},
	}
}
