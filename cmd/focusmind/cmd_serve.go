package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hrygo/focusmind/plugin/ai/engine"
	"github.com/hrygo/focusmind/server"
)

func serveCmd() *cobra.Command {
	var snapshotFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the context engine over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			snap, err := loadSnapshot(snapshotFile)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			eng, err := engine.Open(ctx, prof, snap.Sources(), engine.WithLogger(slog.Default()))
			if err != nil {
				return fmt.Errorf("serve: opening engine: %w", err)
			}
			defer func() { _ = eng.Close() }()

			return server.NewServer(prof, eng, snap).Start(ctx)
		},
	}
	cmd.Flags().StringVar(&snapshotFile, "snapshot", "", "seed the pushed activity data from a JSON or YAML file")
	return cmd
}
