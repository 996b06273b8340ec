package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanOptions configures corpus directory scanning.
type ScanOptions struct {
	// Recursive enables descending into subdirectories
	Recursive bool

	// ExcludeDirs lists directory names to skip (dot-directories are always skipped)
	ExcludeDirs []string

	// IncludeDrafts includes pages under a _drafts directory
	IncludeDrafts bool
}

// DefaultScanOptions returns the options used by the CLI: recursive, skipping
// the usual non-corpus directories.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Recursive:   true,
		ExcludeDirs: []string{"node_modules", "vendor", "testdata"},
	}
}

// ScanPages returns the sorted paths of every Markdown page under dir.
func ScanPages(dir string, opts ScanOptions) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("access corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	excluded := make(map[string]bool, len(opts.ExcludeDirs))
	for _, name := range opts.ExcludeDirs {
		excluded[name] = true
	}

	var pages []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}

		if d.IsDir() {
			if path == dir {
				return nil
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			if excluded[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if d.Name() == "_drafts" && !opts.IncludeDrafts {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			pages = append(pages, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(pages)
	return pages, nil
}

// Slug derives a page slug from its path: the base name without extension,
// lowercased with spaces and underscores collapsed to hyphens.
func Slug(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.ToLower(base)
	base = strings.ReplaceAll(base, " ", "-")
	base = strings.ReplaceAll(base, "_", "-")
	return base
}
