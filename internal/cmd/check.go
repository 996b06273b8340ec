package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/luizgsa21/notectl/internal/checker"
	"github.com/luizgsa21/notectl/internal/config"
	"github.com/luizgsa21/notectl/internal/display"
	"github.com/luizgsa21/notectl/internal/filelock"
	"github.com/luizgsa21/notectl/internal/models"
	"github.com/luizgsa21/notectl/internal/parser"
	"github.com/luizgsa21/notectl/internal/registry"
)

// NewCheckCommand creates and returns the check subcommand
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [page-file]...",
		Short: "Check documentation fidelity of corpus pages",
		Long: `Parse pages and run the fidelity rules:
  - runnable examples carry expected-output transcripts
  - console transcripts open with a $-prefixed command
  - fenced blocks carry language tags
  - intra-corpus links resolve
  - slugs are unique
  - transcripts match recorded golden outputs

With no arguments the whole corpus is checked. Exit code is 1 when any
error-severity finding (or parse failure) occurs; warnings alone exit 0.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
		SilenceUsage: true,
	}

	cmd.Flags().Bool("strict", false, "treat warnings as errors")
	cmd.Flags().Bool("no-index", false, "do not record the run in the index")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	env, err := newAppEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		env.Cfg.Check.Strict = true
	}

	var pages []*models.Page
	var failures int
	if len(args) > 0 {
		pages, failures = parseNamedPages(env, args)
	} else {
		pages, failures, err = env.LoadPages()
		if err != nil {
			return err
		}
	}
	if len(pages) == 0 && failures == 0 {
		return fmt.Errorf("no pages found under %s", env.CorpusDir())
	}

	out := cmd.OutOrStdout()

	started := time.Now()
	chk := checker.New(env.Root, env.Cfg.Check)

	var progress *display.ProgressIndicator
	if len(pages) > 1 {
		progress = display.NewProgressIndicator(out, len(pages))
		progress.Start()
	}
	reports := runChecksConcurrently(env, chk, pages, progress)
	if progress != nil {
		progress.Complete()
	}
	duration := time.Since(started)

	errorCount, warnCount := 0, 0
	for _, r := range reports {
		for _, f := range r.Findings {
			display.PrintFinding(out, f)
		}
		errorCount += r.ErrorCount()
		warnCount += r.WarnCount()
	}
	display.PrintReportSummary(out, len(reports), errorCount, warnCount)

	if noIndex, _ := cmd.Flags().GetBool("no-index"); !noIndex {
		if err := recordRun(env, started, duration, reports); err != nil {
			env.Log.Warnf("recording check run failed: %v", err)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d pages failed to parse", failures)
	}
	if errorCount > 0 {
		return fmt.Errorf("check failed with %d errors", errorCount)
	}
	return nil
}

// parseNamedPages parses explicitly named page files.
func parseNamedPages(env *appEnv, paths []string) ([]*models.Page, int) {
	p := parser.NewPageParser()
	var pages []*models.Page
	failures := 0
	for _, path := range paths {
		if info, err := os.Stat(path); err != nil {
			env.Log.Errorf("access %s: %v", path, err)
			failures++
			continue
		} else if info.IsDir() {
			env.Log.Errorf("%s is a directory (run check without arguments for the whole corpus)", path)
			failures++
			continue
		}
		page, err := p.ParseFile(path)
		if err != nil {
			env.Log.Errorf("%v", err)
			failures++
			continue
		}
		pages = append(pages, page)
	}
	return pages, failures
}

// runChecksConcurrently loads pages into the live registry and fans rule
// evaluation out over a bounded worker pool. Workers hold a reference on
// the page they are checking, so a concurrent watcher relinking the entry
// cannot pull it out from under them.
func runChecksConcurrently(env *appEnv, chk *checker.Checker, pages []*models.Page, progress *display.ProgressIndicator) []*models.CheckReport {
	reg := registry.New(registry.Strategy(env.Cfg.RegistryStrategy))
	defer reg.Close()

	for _, p := range pages {
		if err := reg.Put(p.Slug, p); err != nil {
			env.Log.Errorf("registry put %s: %v", p.Slug, err)
		}
	}

	files := checker.CorpusFiles(pages)
	cross := chk.CrossFindings(pages)

	workers := env.Cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	slugs := reg.Slugs()
	jobs := make(chan string)

	var mu sync.Mutex
	bySlug := make(map[string]*models.CheckReport, len(slugs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slug := range jobs {
				h, err := reg.Acquire(slug)
				if err != nil {
					continue
				}
				r := chk.CheckPage(h.Page(), files)
				h.Release()

				r.Findings = append(r.Findings, cross[slug]...)
				chk.Finalize(r)

				mu.Lock()
				bySlug[slug] = r
				if progress != nil {
					progress.Step(r.Path)
				}
				mu.Unlock()
			}
		}()
	}

	for _, slug := range slugs {
		jobs <- slug
	}
	close(jobs)
	wg.Wait()

	reports := make([]*models.CheckReport, 0, len(bySlug))
	for _, slug := range slugs {
		if r, ok := bySlug[slug]; ok {
			reports = append(reports, r)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Page < reports[j].Page })
	return reports
}

// recordRun stores the run in the index under the corpus write lock.
func recordRun(env *appEnv, started time.Time, duration time.Duration, reports []*models.CheckReport) error {
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
	runID, err := store.RecordCheckRun(ctx, started, duration, reports)
	if err != nil {
		return err
	}
	env.Log.Debugf("recorded check run %s", runID)

	if pruned, err := store.PruneRuns(ctx, env.Cfg.Index.KeepRunsDays); err != nil {
		env.Log.Warnf("pruning old runs failed: %v", err)
	} else if pruned > 0 {
		env.Log.Debugf("pruned %d old check runs", pruned)
	}
	return nil
}
