package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewStatsCommand creates and returns the stats subcommand
func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus index statistics and recent check runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd)
		},
		SilenceUsage: true,
	}

	cmd.Flags().Int("runs", 5, "number of recent check runs to show")

	return cmd
}

func runStats(cmd *cobra.Command) error {
	env, err := newAppEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := env.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pages:       %d\n", stats.Pages)
	fmt.Fprintf(out, "Examples:    %d\n", stats.Examples)
	fmt.Fprintf(out, "Transcripts: %d\n", stats.Transcripts)
	fmt.Fprintf(out, "Check runs:  %d\n", stats.CheckRuns)
	if stats.LastRun != nil {
		fmt.Fprintf(out, "Last run:    %s (%d errors, %d warnings)\n",
			stats.LastRun.StartedAt.Local().Format("2006-01-02 15:04:05"),
			stats.LastRun.Errors, stats.LastRun.Warnings)
	}

	limit, _ := cmd.Flags().GetInt("runs")
	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}

	fmt.Fprintln(out, "\nRecent check runs:")
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tPAGES\tERRORS\tWARNINGS\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.PagesChecked, r.Errors, r.Warnings, r.Duration.Round(time.Millisecond))
	}
	return w.Flush()
}
