package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("# page\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanPages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go-reflection.md"))
	writeFile(t, filepath.Join(dir, "threads", "posix-mutexes.md"))
	writeFile(t, filepath.Join(dir, "threads", "notes.txt"))
	writeFile(t, filepath.Join(dir, ".git", "ignored.md"))
	writeFile(t, filepath.Join(dir, "testdata", "fixture.md"))
	writeFile(t, filepath.Join(dir, "_drafts", "wip.md"))

	pages, err := ScanPages(dir, DefaultScanOptions())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	want := []string{
		filepath.Join(dir, "go-reflection.md"),
		filepath.Join(dir, "threads", "posix-mutexes.md"),
	}
	if len(pages) != len(want) {
		t.Fatalf("expected %d pages, got %d: %v", len(want), len(pages), pages)
	}
	for i := range want {
		if pages[i] != want[i] {
			t.Errorf("page %d: expected %s, got %s", i, want[i], pages[i])
		}
	}
}

func TestScanPagesIncludeDrafts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "_drafts", "wip.md"))

	opts := DefaultScanOptions()
	opts.IncludeDrafts = true
	pages, err := ScanPages(dir, opts)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected draft page included, got %v", pages)
	}
}

func TestScanPagesNonRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.md"))
	writeFile(t, filepath.Join(dir, "nested", "deep.md"))

	pages, err := ScanPages(dir, ScanOptions{Recursive: false})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(pages) != 1 || filepath.Base(pages[0]) != "top.md" {
		t.Errorf("expected only top.md, got %v", pages)
	}
}

func TestScanPagesErrors(t *testing.T) {
	if _, err := ScanPages(filepath.Join(t.TempDir(), "missing"), DefaultScanOptions()); err == nil {
		t.Error("expected error for missing directory")
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir.md")
	writeFile(t, file)
	if _, err := ScanPages(file, DefaultScanOptions()); err == nil {
		t.Error("expected error for non-directory path")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"docs/POSIX Threads.md", "posix-threads"},
		{"go_reflection.md", "go-reflection"},
		{"/abs/path/laws-of-reflection.md", "laws-of-reflection"},
	}
	for _, tt := range tests {
		if got := Slug(tt.path); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
