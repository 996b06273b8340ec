// Package watch re-processes corpus pages as they change on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/luizgsa21/notectl/internal/logger"
)

// Handler receives debounced page events. Paths are absolute. Remove is
// called for deleted or renamed-away pages.
type Handler interface {
	PageChanged(path string)
	PageRemoved(path string)
}

// Watcher watches a corpus directory tree for Markdown changes, coalescing
// bursts of events (editors write several times per save) into one handler
// call per page.
type Watcher struct {
	dir      string
	debounce time.Duration
	handler  Handler
	log      logger.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a Watcher over dir. debounce <= 0 defaults to 250ms.
func New(dir string, debounce time.Duration, handler Handler, log logger.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		handler:  handler,
		log:      log,
		timers:   make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled. Subdirectories are watched
// recursively, including ones created while running.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.dir); err != nil {
		return err
	}

	w.log.Infof("watching %s (debounce %s)", w.dir, w.debounce)

	for {
		select {
		case <-ctx.Done():
			w.flushTimers()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	name := event.Name
	base := filepath.Base(name)

	// New directories need their own watch before events inside them fire
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if !strings.HasPrefix(base, ".") {
				if err := w.addRecursive(fsw, name); err != nil {
					w.log.Warnf("watch new directory %s: %v", name, err)
				}
			}
			return
		}
	}

	if !strings.EqualFold(filepath.Ext(base), ".md") || strings.HasPrefix(base, ".") {
		return
	}

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.cancelTimer(name)
		w.log.Debugf("page removed: %s", name)
		w.handler.PageRemoved(name)

	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		w.scheduleChange(name)
	}
}

// scheduleChange (re)arms the debounce timer for a page.
func (w *Watcher) scheduleChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		w.log.Debugf("page changed: %s", path)
		w.handler.PageChanged(path)
	})
}

func (w *Watcher) cancelTimer(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
		delete(w.timers, path)
	}
}

// flushTimers stops all pending debounce timers at shutdown.
func (w *Watcher) flushTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

// addRecursive watches dir and every non-hidden subdirectory under it.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
