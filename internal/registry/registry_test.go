package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/luizgsa21/notectl/internal/models"
)

func page(title string) *models.Page {
	return &models.Page{Slug: "p", Title: title}
}

func strategies(t *testing.T, fn func(t *testing.T, r *Registry)) {
	for _, s := range []Strategy{StrategyCoarse, StrategyFine} {
		t.Run(string(s), func(t *testing.T) {
			fn(t, New(s))
		})
	}
}

func TestAcquireRelease(t *testing.T) {
	strategies(t, func(t *testing.T, r *Registry) {
		if err := r.Put("posix-mutexes", page("v1")); err != nil {
			t.Fatalf("put: %v", err)
		}

		h, err := r.Acquire("posix-mutexes")
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		if h.Page().Title != "v1" {
			t.Errorf("expected v1, got %s", h.Page().Title)
		}
		h.Release()

		if _, err := r.Acquire("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPutReplacesVisibleToHolders(t *testing.T) {
	strategies(t, func(t *testing.T, r *Registry) {
		if err := r.Put("p", page("v1")); err != nil {
			t.Fatal(err)
		}
		h, err := r.Acquire("p")
		if err != nil {
			t.Fatal(err)
		}
		defer h.Release()

		if err := r.Put("p", page("v2")); err != nil {
			t.Fatal(err)
		}
		if got := h.Page().Title; got != "v2" {
			t.Errorf("holder should observe replaced page, got %s", got)
		}
	})
}

func TestRemoveWithoutHoldersFreesImmediately(t *testing.T) {
	strategies(t, func(t *testing.T, r *Registry) {
		var freed []string
		r.OnFree = func(slug string, p *models.Page) { freed = append(freed, slug) }

		if err := r.Put("p", page("v1")); err != nil {
			t.Fatal(err)
		}
		r.Remove("p")

		if len(freed) != 1 || freed[0] != "p" {
			t.Errorf("expected immediate free of p, got %v", freed)
		}
		if r.Len() != 0 {
			t.Errorf("expected empty registry, got %d entries", r.Len())
		}
	})
}

func TestLastHolderFreesUnlinkedEntry(t *testing.T) {
	strategies(t, func(t *testing.T, r *Registry) {
		var freed []string
		r.OnFree = func(slug string, p *models.Page) { freed = append(freed, slug) }

		if err := r.Put("p", page("v1")); err != nil {
			t.Fatal(err)
		}
		h1, _ := r.Acquire("p")
		h2, _ := r.Acquire("p")

		r.Remove("p")
		if len(freed) != 0 {
			t.Fatalf("entry freed while references outstanding: %v", freed)
		}

		// Holders of an unlinked entry still see a live page
		if h1.Page().Title != "v1" {
			t.Errorf("holder lost page after unlink: %s", h1.Page().Title)
		}

		h1.Release()
		if len(freed) != 0 {
			t.Fatal("entry freed before last reference dropped")
		}
		h2.Release()
		if len(freed) != 1 {
			t.Fatalf("last release must free, got %v", freed)
		}
	})
}

func TestDoubleReleaseIsNoop(t *testing.T) {
	strategies(t, func(t *testing.T, r *Registry) {
		var frees int
		r.OnFree = func(string, *models.Page) { frees++ }

		if err := r.Put("p", page("v1")); err != nil {
			t.Fatal(err)
		}
		h, _ := r.Acquire("p")
		r.Remove("p")

		h.Release()
		h.Release()
		if frees != 1 {
			t.Errorf("double release must free exactly once, got %d", frees)
		}
	})
}

func TestClose(t *testing.T) {
	strategies(t, func(t *testing.T, r *Registry) {
		var freed []string
		var mu sync.Mutex
		r.OnFree = func(slug string, p *models.Page) {
			mu.Lock()
			freed = append(freed, slug)
			mu.Unlock()
		}

		_ = r.Put("a", page("a"))
		_ = r.Put("b", page("b"))
		h, _ := r.Acquire("b")

		r.Close()

		if err := r.Put("c", page("c")); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed from Put, got %v", err)
		}
		if _, err := r.Acquire("a"); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed from Acquire, got %v", err)
		}

		mu.Lock()
		n := len(freed)
		mu.Unlock()
		if n != 1 {
			t.Errorf("expected only unreferenced entry freed at close, got %v", freed)
		}

		h.Release()
		mu.Lock()
		n = len(freed)
		mu.Unlock()
		if n != 2 {
			t.Errorf("expected held entry freed after release, got %v", freed)
		}
	})
}

func TestSlugsSorted(t *testing.T) {
	r := New(StrategyCoarse)
	for _, slug := range []string{"threads", "go-reflection", "posix-mutexes"} {
		if err := r.Put(slug, page(slug)); err != nil {
			t.Fatal(err)
		}
	}

	slugs := r.Slugs()
	want := []string{"go-reflection", "posix-mutexes", "threads"}
	for i := range want {
		if slugs[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, slugs)
		}
	}
}

// TestConcurrentChurn exercises the invariant under contention: readers
// acquire and release while a writer replaces and relinks the entry. Run
// with -race.
func TestConcurrentChurn(t *testing.T) {
	strategies(t, func(t *testing.T, r *Registry) {
		var frees sync.Map
		r.OnFree = func(slug string, p *models.Page) {
			frees.Store(fmt.Sprintf("%s/%s", slug, p.Title), true)
		}

		if err := r.Put("p", page("v0")); err != nil {
			t.Fatal(err)
		}

		const readers = 8
		const iterations = 500

		var wg sync.WaitGroup
		for i := 0; i < readers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < iterations; j++ {
					h, err := r.Acquire("p")
					if err != nil {
						continue // unlinked at this moment
					}
					if h.Page() == nil {
						t.Error("holder observed nil page")
					}
					h.Release()
				}
			}()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				_ = r.Put("p", page(fmt.Sprintf("v%d", j)))
				if j%50 == 0 {
					r.Remove("p")
					_ = r.Put("p", page("relinked"))
				}
			}
		}()

		wg.Wait()
	})
}
