package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/luizgsa21/notectl/internal/config"
	"github.com/luizgsa21/notectl/internal/fileutil"
	"github.com/luizgsa21/notectl/internal/index"
	"github.com/luizgsa21/notectl/internal/logger"
	"github.com/luizgsa21/notectl/internal/models"
	"github.com/luizgsa21/notectl/internal/parser"
)

// appEnv carries the resolved environment every subcommand needs: corpus
// root, configuration, and loggers.
type appEnv struct {
	Root string
	Cfg  *config.Config
	Log  logger.Logger

	fileLog *logger.FileLogger
}

// newAppEnv resolves the corpus root, loads configuration, and sets up
// console plus file logging.
func newAppEnv(cmd *cobra.Command) (*appEnv, error) {
	rootFlag, _ := cmd.Flags().GetString("root")
	root, err := config.FindCorpusRoot(rootFlag)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(filepath.Join(root, config.ConfigFileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.LogLevel
	if flagLevel, _ := cmd.Flags().GetString("log-level"); flagLevel != "" {
		level = flagLevel
	}

	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), level)

	logDir := cfg.LogDir
	if !filepath.IsAbs(logDir) {
		logDir = filepath.Join(root, logDir)
	}
	fileLog, err := logger.NewFileLogger(logDir, level)
	if err != nil {
		// A read-only corpus should not block read commands
		console.Warnf("file logging disabled: %v", err)
		return &appEnv{Root: root, Cfg: cfg, Log: console}, nil
	}

	return &appEnv{
		Root:    root,
		Cfg:     cfg,
		Log:     logger.NewMulti(console, fileLog),
		fileLog: fileLog,
	}, nil
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.fileLog != nil {
		e.fileLog.Close()
	}
}

// CorpusDir returns the absolute pages directory.
func (e *appEnv) CorpusDir() string {
	if filepath.IsAbs(e.Cfg.CorpusDir) {
		return e.Cfg.CorpusDir
	}
	return filepath.Join(e.Root, e.Cfg.CorpusDir)
}

// OpenStore opens the index database.
func (e *appEnv) OpenStore() (*index.Store, error) {
	dbPath := e.Cfg.Index.DBPath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(e.Root, dbPath)
	}
	return index.NewStore(dbPath)
}

// LockPath returns the path of the flock guarding index writes.
func (e *appEnv) LockPath() string {
	return filepath.Join(e.Root, ".notectl", "index.lock")
}

// ScanCorpus returns the paths of every page file under the corpus.
func (e *appEnv) ScanCorpus() ([]string, error) {
	return fileutil.ScanPages(e.CorpusDir(), fileutil.DefaultScanOptions())
}

// LoadPages scans and parses the whole corpus. Pages that fail to parse
// are skipped with a logged error; the count of failures is returned so
// commands can reflect them in their exit status.
func (e *appEnv) LoadPages() ([]*models.Page, int, error) {
	paths, err := fileutil.ScanPages(e.CorpusDir(), fileutil.DefaultScanOptions())
	if err != nil {
		return nil, 0, err
	}

	p := parser.NewPageParser()
	var pages []*models.Page
	failures := 0
	for _, path := range paths {
		page, err := p.ParseFile(path)
		if err != nil {
			e.Log.Errorf("%v", err)
			failures++
			continue
		}
		if page.Frontmatter.Draft {
			e.Log.Debugf("skipping draft %s", path)
			continue
		}
		pages = append(pages, page)
	}
	return pages, failures, nil
}
