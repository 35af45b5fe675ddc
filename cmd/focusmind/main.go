package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hrygo/focusmind/internal/profile"
	"github.com/hrygo/focusmind/plugin/ai/activity"
	"github.com/hrygo/focusmind/plugin/ai/engine"
)

var (
	configFile string
	prof       *profile.Profile
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:          "focusmind",
		Short:        "FocusMind context engine for a focus timer assistant",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			prof, err = profile.Load(configFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := prof.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			slog.SetDefault(newLogger(prof.Logging.Level, prof.Logging.Format))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to focusmind.yaml")

	rootCmd.AddCommand(
		serveCmd(),
		contextCmd(),
		reportCmd(),
		learnCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger(level, format string) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// loadSnapshot reads path, or returns an empty snapshot when path is empty.
func loadSnapshot(path string) (*activity.Snapshot, error) {
	if path == "" {
		return activity.NewSnapshot(), nil
	}
	return activity.LoadSnapshotFile(path)
}

// openWithSnapshot opens an engine reading from the snapshot at path.
func openWithSnapshot(ctx context.Context, path string) (*engine.Engine, error) {
	snap, err := loadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return engine.Open(ctx, prof, snap.Sources(), engine.WithLogger(slog.Default()))
}
