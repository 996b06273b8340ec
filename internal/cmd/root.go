// Package cmd implements the notectl command tree.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for notectl
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notectl",
		Short: "Manage a corpus of book-note pages",
		Long: `notectl maintains a directory of Markdown note pages containing code
examples paired with their expected-output transcripts.

It parses pages, keeps a searchable SQLite index, and checks documentation
fidelity: runnable examples carry transcripts, transcripts look like real
terminal sessions, links resolve, and recorded golden outputs still match.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("root", "", "corpus root (default: NOTECTL_HOME or nearest .notectl.yaml)")
	cmd.PersistentFlags().String("log-level", "", "log verbosity: trace, debug, info, warn, error")

	cmd.AddCommand(NewCheckCommand())
	cmd.AddCommand(NewIndexCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewSearchCommand())
	cmd.AddCommand(NewShowCommand())
	cmd.AddCommand(NewStatsCommand())
	cmd.AddCommand(NewFmtCommand())
	cmd.AddCommand(NewWatchCommand())

	return cmd
}
