package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func contextCmd() *cobra.Command {
	var snapshotFile string

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print the assembled system prompt context for a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openWithSnapshot(cmd.Context(), snapshotFile)
			if err != nil {
				return fmt.Errorf("context: %w", err)
			}
			defer func() { _ = eng.Close() }()

			res := eng.Assembler().Build(cmd.Context())
			fmt.Println(res.Context)
			fmt.Fprintf(os.Stderr, "\n(%d tokens, built in %s)\n", res.TotalTokens, res.BuildTime)
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshotFile, "snapshot", "", "activity snapshot file (JSON or YAML)")
	return cmd
}

func reportCmd() *cobra.Command {
	var (
		snapshotFile string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the intelligence report for a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openWithSnapshot(cmd.Context(), snapshotFile)
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}
			defer func() { _ = eng.Close() }()

			report := eng.Assembler().GenerateIntelligenceReport(cmd.Context())
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			perf := report.Performance
			fmt.Printf("Today:     %d of %d min (%d%%), %d sessions\n", perf.TodayMinutes, perf.GoalMinutes, perf.TodayPercent, perf.TodaySessions)
			fmt.Printf("Week:      %d min\n", perf.WeekMinutes)
			fmt.Printf("Streak:    %d days (longest %d)\n", perf.Streak, perf.LongestStreak)
			fmt.Printf("Momentum:  %s\n", report.Patterns.Momentum)
			fmt.Printf("Energy:    %s, streak risk %s\n", report.UserState.Energy, report.UserState.StreakRisk)
			if len(report.Opportunities) > 0 {
				fmt.Println("\nOpportunities:")
				for _, s := range report.Opportunities {
					fmt.Printf("  %-16s %s\n", s.Kind, s.Message)
				}
			}
			if len(report.Risks) > 0 {
				fmt.Println("\nRisks:")
				for _, s := range report.Risks {
					fmt.Printf("  %-16s %s\n", s.Kind, s.Message)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshotFile, "snapshot", "", "activity snapshot file (JSON or YAML)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
