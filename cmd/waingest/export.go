package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"waingest/internal/config"
	"waingest/internal/docstore"
	"waingest/internal/identity"
	"waingest/internal/ledger"
)

func newExportCmd(cfg *config.Config) *cobra.Command {
	var (
		outputPath string
		byID       bool
	)

	cmd := &cobra.Command{
		Use:   "export <group>",
		Short: "Export a group and its messages as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID := args[0]
			if !byID {
				groupID = identity.GroupID(args[0])
			}

			if cfg == nil || cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}
			docs, err := docstore.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer docs.Close()

			ctx := cmd.Context()
			group, err := docs.Get(ctx, ledger.GroupPath(groupID))
			if err != nil {
				return fmt.Errorf("load group %q: %w", args[0], err)
			}
			msgs, err := docs.List(ctx, ledger.MessagesPath(groupID), 0, 0)
			if err != nil {
				return fmt.Errorf("load messages for %q: %w", args[0], err)
			}

			messages := make([]map[string]any, 0, len(msgs))
			for _, doc := range msgs {
				fields := doc.Fields
				fields["id"] = doc.ID
				messages = append(messages, fields)
			}
			export := map[string]any{
				"group_id": groupID,
				"group":    group,
				"messages": messages,
			}

			w := os.Stdout
			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(export); err != nil {
				return fmt.Errorf("encode export: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}
			slog.Default().Info("exported group", "group_id", groupID, "messages", len(messages))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&byID, "id", false, "treat the argument as a group ID instead of a name")

	return cmd
}
