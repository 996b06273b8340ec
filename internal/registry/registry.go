// Package registry keeps the live, parsed pages shared between concurrent
// readers (check workers, the watcher, show/search) as a reference-counted
// table.
//
// The table is a map of entries guarded by one registry lock. Each entry
// carries a reference count, guarded by the registry lock, and a page
// pointer. Two locking strategies are supported:
//
//   - Coarse (default): the registry lock also guards every entry's page
//     pointer. One lock, trivially deadlock-free.
//   - Fine: each entry's page pointer is guarded by the entry's own mutex,
//     so readers of different pages do not serialize on the registry lock.
//
// Lock ordering under the fine strategy is registry lock strictly before
// entry lock. No code path acquires the registry lock while holding an
// entry lock, which rules out circular wait.
//
// A holder of a Handle may use the page until it calls Release. Removing an
// entry unlinks it from the table immediately; the entry is freed (the
// OnFree hook runs) by Remove itself when no references are outstanding,
// otherwise by whichever holder releases last.
package registry

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/luizgsa21/notectl/internal/models"
)

// Strategy selects how entry pages are locked.
type Strategy string

const (
	// StrategyCoarse guards pages with the registry lock
	StrategyCoarse Strategy = "coarse"

	// StrategyFine guards each entry's page with its own mutex
	StrategyFine Strategy = "fine"
)

var (
	// ErrNotFound is returned by Acquire for slugs not in the registry
	ErrNotFound = errors.New("registry: page not found")

	// ErrClosed is returned for operations on a closed registry
	ErrClosed = errors.New("registry: closed")
)

// entry is one reference-counted slot in the table.
type entry struct {
	slug string

	// mu guards page under the fine strategy only
	mu   sync.Mutex
	page *models.Page

	// refs and unlinked are guarded by Registry.mu under both strategies
	refs     int
	unlinked bool
}

// Registry is a reference-counted table of live pages keyed by slug.
type Registry struct {
	strategy Strategy

	// mu is the registry lock: guards entries, every entry's refs and
	// unlinked flag, and (coarse strategy) every entry's page
	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	// OnFree, if set before use, is called after the last reference to an
	// unlinked entry drains. Called without any registry or entry lock held.
	OnFree func(slug string, page *models.Page)
}

// New creates an empty registry with the given strategy. Unknown strategies
// fall back to coarse.
func New(strategy Strategy) *Registry {
	if strategy != StrategyFine {
		strategy = StrategyCoarse
	}
	return &Registry{
		strategy: strategy,
		entries:  make(map[string]*entry),
	}
}

// Strategy returns the locking strategy in use.
func (r *Registry) Strategy() Strategy {
	return r.strategy
}

// Put inserts or replaces the page stored under slug. Outstanding handles
// for an existing entry observe the new page: the entry lock (fine) or the
// registry lock (coarse) is exactly what makes the replacement safe against
// concurrent readers.
func (r *Registry) Put(slug string, page *models.Page) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}

	e, ok := r.entries[slug]
	if !ok {
		r.entries[slug] = &entry{slug: slug, page: page}
		r.mu.Unlock()
		return nil
	}

	if r.strategy == StrategyFine {
		// Registry lock is held; taking the entry lock here follows the
		// global order
		e.mu.Lock()
		e.page = page
		e.mu.Unlock()
		r.mu.Unlock()
		return nil
	}

	e.page = page
	r.mu.Unlock()
	return nil
}

// Acquire returns a handle on the entry under slug, incrementing its
// reference count. The caller must Release the handle when done.
func (r *Registry) Acquire(slug string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	e, ok := r.entries[slug]
	if !ok {
		return nil, ErrNotFound
	}

	e.refs++
	return &Handle{registry: r, entry: e}, nil
}

// Remove unlinks the entry under slug. If no handles are outstanding the
// entry is freed immediately; otherwise the last Release frees it. Removing
// an absent slug is a no-op.
func (r *Registry) Remove(slug string) {
	r.mu.Lock()
	e, ok := r.entries[slug]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.entries, slug)
	e.unlinked = true
	free := e.refs == 0
	r.mu.Unlock()

	if free {
		r.free(e)
	}
}

// Len returns the number of linked entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Slugs returns the sorted slugs of all linked entries.
func (r *Registry) Slugs() []string {
	r.mu.Lock()
	slugs := make([]string, 0, len(r.entries))
	for slug := range r.entries {
		slugs = append(slugs, slug)
	}
	r.mu.Unlock()

	sort.Strings(slugs)
	return slugs
}

// Close marks the registry closed and unlinks every entry. Entries with no
// outstanding handles are freed; the rest are freed as their holders
// release. Subsequent Put/Acquire calls return ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true

	var freeable []*entry
	for slug, e := range r.entries {
		delete(r.entries, slug)
		e.unlinked = true
		if e.refs == 0 {
			freeable = append(freeable, e)
		}
	}
	r.mu.Unlock()

	for _, e := range freeable {
		r.free(e)
	}
}

// free runs the OnFree hook for a fully drained, unlinked entry. No locks
// are held: the entry is unreachable (unlinked, zero refs), so its page is
// no longer shared.
func (r *Registry) free(e *entry) {
	if r.OnFree != nil {
		r.OnFree(e.slug, e.page)
	}
}

// Handle is one acquired reference to a registry entry.
type Handle struct {
	registry *Registry
	entry    *entry
	released atomic.Bool
}

// Slug returns the slug the handle was acquired under.
func (h *Handle) Slug() string {
	return h.entry.slug
}

// Page returns the entry's current page. Safe to call concurrently with
// Put on the same entry.
func (h *Handle) Page() *models.Page {
	if h.registry.strategy == StrategyFine {
		h.entry.mu.Lock()
		defer h.entry.mu.Unlock()
		return h.entry.page
	}

	h.registry.mu.Lock()
	defer h.registry.mu.Unlock()
	return h.entry.page
}

// Release drops the reference. The holder that drops the last reference of
// an unlinked entry frees it. Releasing an already released handle is a
// no-op.
func (h *Handle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}

	r := h.registry
	r.mu.Lock()
	h.entry.refs--
	free := h.entry.unlinked && h.entry.refs == 0
	r.mu.Unlock()

	if free {
		r.free(h.entry)
	}
}
