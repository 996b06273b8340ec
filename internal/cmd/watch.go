package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luizgsa21/notectl/internal/checker"
	"github.com/luizgsa21/notectl/internal/display"
	"github.com/luizgsa21/notectl/internal/fileutil"
	"github.com/luizgsa21/notectl/internal/index"
	"github.com/luizgsa21/notectl/internal/logger"
	"github.com/luizgsa21/notectl/internal/parser"
	"github.com/luizgsa21/notectl/internal/registry"
	"github.com/luizgsa21/notectl/internal/watch"
)

// NewWatchCommand creates and returns the watch subcommand
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-check and re-index pages as they change",
		Long: `Watch the corpus directory and, on every page save, re-parse the page,
refresh the live registry and the index, and print any new findings.
Deleted pages are dropped from both. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd)
		},
		SilenceUsage: true,
	}
}

func runWatch(cmd *cobra.Command) error {
	env, err := newAppEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	pages, _, err := env.LoadPages()
	if err != nil {
		return err
	}

	store, err := env.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	reg := registry.New(registry.Strategy(env.Cfg.RegistryStrategy))
	defer reg.Close()

	h := &watchHandler{
		chk:    checker.New(env.Root, env.Cfg.Check),
		reg:    reg,
		store:  store,
		parser: parser.NewPageParser(),
		log:    env.Log,
		out:    cmd.OutOrStdout(),
		files:  make(map[string]bool),
	}
	for _, p := range pages {
		if err := reg.Put(p.Slug, p); err != nil {
			return err
		}
		h.files[filepath.Clean(p.Path)] = true
	}
	env.Log.Infof("loaded %d pages into the registry (%s locking)", len(pages), env.Cfg.RegistryStrategy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := watch.New(env.CorpusDir(), env.Cfg.WatchDebounce, h, env.Log)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	env.Log.Infof("watch stopped")
	return nil
}

// watchHandler applies page events to the registry, the index, and the
// checker. fsnotify delivers events from one goroutine, but debounce timers
// fire on their own, so the file set has its own lock.
type watchHandler struct {
	chk    *checker.Checker
	reg    *registry.Registry
	store  *index.Store
	parser *parser.PageParser
	log    logger.Logger
	out    io.Writer

	mu    sync.Mutex
	files map[string]bool
}

func (h *watchHandler) PageChanged(path string) {
	page, err := h.parser.ParseFile(path)
	if err != nil {
		h.log.Errorf("%v", err)
		return
	}
	if page.Frontmatter.Draft {
		h.log.Debugf("ignoring draft %s", path)
		return
	}

	if err := h.reg.Put(page.Slug, page); err != nil {
		h.log.Errorf("registry put %s: %v", page.Slug, err)
		return
	}
	h.mu.Lock()
	h.files[filepath.Clean(path)] = true
	files := make(map[string]bool, len(h.files))
	for k, v := range h.files {
		files[k] = v
	}
	h.mu.Unlock()

	if err := h.store.ReindexPage(context.Background(), page); err != nil {
		h.log.Warnf("reindex %s: %v", page.Slug, err)
	}

	handle, err := h.reg.Acquire(page.Slug)
	if err != nil {
		return
	}
	r := h.chk.CheckPage(handle.Page(), files)
	handle.Release()
	h.chk.Finalize(r)

	for _, f := range r.Findings {
		display.PrintFinding(h.out, f)
	}
	if r.Clean() {
		fmt.Fprintf(h.out, "%s: ok\n", page.Slug)
	}
}

func (h *watchHandler) PageRemoved(path string) {
	slug := fileutil.Slug(path)

	h.mu.Lock()
	delete(h.files, filepath.Clean(path))
	h.mu.Unlock()

	h.reg.Remove(slug)
	if err := h.store.DeletePage(context.Background(), slug); err != nil {
		h.log.Warnf("deindex %s: %v", slug, err)
	}
	fmt.Fprintf(h.out, "%s: removed\n", slug)
}
