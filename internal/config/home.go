package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindCorpusRoot resolves the corpus root directory.
// Priority order:
//  1. explicit path argument (if non-empty)
//  2. NOTECTL_HOME environment variable
//  3. nearest ancestor of the working directory containing .notectl.yaml
//  4. the working directory itself
func FindCorpusRoot(explicit string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("resolve corpus root: %w", err)
		}
		return abs, nil
	}

	if home := os.Getenv("NOTECTL_HOME"); home != "" {
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	current := cwd
	for {
		if _, err := os.Stat(filepath.Join(current, ConfigFileName)); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return cwd, nil
}

// StateDir returns the .notectl state directory under the corpus root,
// creating it if necessary.
func StateDir(root string) (string, error) {
	dir := filepath.Join(root, ".notectl")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}
	return dir, nil
}
