package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func learnCmd() *cobra.Command {
	var snapshotFile string

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Analyze the snapshot sessions once and print the learned profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := openWithSnapshot(ctx, snapshotFile)
			if err != nil {
				return fmt.Errorf("learn: %w", err)
			}
			defer func() { _ = eng.Close() }()

			p, err := eng.Learner().RunOnce(ctx, eng.Sources().Sessions)
			if err != nil {
				return fmt.Errorf("learn: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}
	cmd.Flags().StringVar(&snapshotFile, "snapshot", "", "activity snapshot file (JSON or YAML)")
	return cmd
}
