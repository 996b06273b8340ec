package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luizgsa21/notectl/internal/config"
	"github.com/luizgsa21/notectl/internal/filelock"
)

// NewIndexCommand creates and returns the index subcommand
func NewIndexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the corpus index",
		Long: `Scan the corpus, parse every page, and rebuild the SQLite index used
by search and stats. Pages that no longer exist on disk are dropped from
the index. Safe to run while other notectl processes are active: writes
are serialized through a file lock.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd)
		},
		SilenceUsage: true,
	}
}

func runIndex(cmd *cobra.Command) error {
	env, err := newAppEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	pages, failures, err := env.LoadPages()
	if err != nil {
		return err
	}

	if _, err := config.StateDir(env.Root); err != nil {
		return err
	}
	lock := filelock.New(env.LockPath())
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	store, err := env.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	seen := make(map[string]bool, len(pages))
	for _, page := range pages {
		if err := store.ReindexPage(ctx, page); err != nil {
			return err
		}
		seen[page.Slug] = true
		env.Log.Debugf("indexed %s (%d examples)", page.Slug, len(page.Examples))
	}

	// Drop index entries whose pages left the corpus
	indexed, err := store.ListPages(ctx)
	if err != nil {
		return err
	}
	stale := 0
	for _, p := range indexed {
		if !seen[p.Slug] {
			if err := store.DeletePage(ctx, p.Slug); err != nil {
				return err
			}
			stale++
		}
	}

	env.Log.Infof("indexed %d pages (%d stale entries removed)", len(pages), stale)
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d pages into %s\n", len(pages), store.Path())

	if failures > 0 {
		return fmt.Errorf("%d pages failed to parse", failures)
	}
	return nil
}
