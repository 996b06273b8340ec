package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewSearchCommand creates and returns the search subcommand
func NewSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed pages by title, body, or example source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0])
		},
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 20, "maximum number of results")

	return cmd
}

func runSearch(cmd *cobra.Command, query string) error {
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
	if stats.Pages == 0 {
		return fmt.Errorf("index is empty; run `notectl index` first")
	}

	limit, _ := cmd.Flags().GetInt("limit")
	results, err := store.Search(ctx, query, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "No pages match %q\n", query)
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s\t%s\t(matched %s)\n", r.Slug, r.Title, r.Matched)
	}
	return nil
}
