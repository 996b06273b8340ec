package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewListCommand creates and returns the list subcommand
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List corpus pages with example and transcript counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd)
		},
		SilenceUsage: true,
	}
}

func runList(cmd *cobra.Command) error {
	env, err := newAppEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	pages, failures, err := env.LoadPages()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tTITLE\tEXAMPLES\tTRANSCRIPTS\tFILE")
	for _, p := range pages {
		rel := p.Path
		if r, err := filepath.Rel(env.Root, p.Path); err == nil {
			rel = r
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			p.Slug, p.Title, len(p.Examples), p.TranscriptCount(), rel)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if failures > 0 {
		return fmt.Errorf("%d pages failed to parse", failures)
	}
	return nil
}
