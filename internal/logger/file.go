package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileLogger records command runs to timestamped files under a log
// directory and maintains a latest.log symlink pointing at the most recent
// run. It is safe for concurrent use.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing under logDir at the given
// level. The directory is created if needed.
func NewFileLogger(logDir, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	// Timestamped filename: run-YYYYMMDD-HHMMSS.log
	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", timestamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("create run log file: %w", err)
	}

	if err := updateLatestSymlink(logDir, runFile); err != nil {
		file.Close()
		return nil, err
	}

	return &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}, nil
}

// updateLatestSymlink points latest.log at the current run file, replacing
// any previous link. Platforms without symlink support are tolerated.
func updateLatestSymlink(logDir, runFile string) error {
	symlinkPath := filepath.Join(logDir, "latest.log")

	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			return fmt.Errorf("remove old symlink: %w", err)
		}
	}

	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		// Not fatal: some filesystems (and Windows without privileges)
		// refuse symlinks
		return nil
	}
	return nil
}

// Path returns the path of the current run log file.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

// Close closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.runLog != nil {
		err := fl.runLog.Close()
		fl.runLog = nil
		return err
	}
	return nil
}

func (fl *FileLogger) log(level, format string, args ...any) {
	if logLevelToInt(level) < logLevelToInt(fl.logLevel) {
		return
	}

	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.runLog == nil {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(fl.runLog, "%s [%s] %s\n", timestamp, level, fmt.Sprintf(format, args...))
}

// Tracef logs at trace level.
func (fl *FileLogger) Tracef(format string, args ...any) { fl.log("trace", format, args...) }

// Debugf logs at debug level.
func (fl *FileLogger) Debugf(format string, args ...any) { fl.log("debug", format, args...) }

// Infof logs at info level.
func (fl *FileLogger) Infof(format string, args ...any) { fl.log("info", format, args...) }

// Warnf logs at warn level.
func (fl *FileLogger) Warnf(format string, args ...any) { fl.log("warn", format, args...) }

// Errorf logs at error level.
func (fl *FileLogger) Errorf(format string, args ...any) { fl.log("error", format, args...) }

// Multi fans log calls out to several loggers (typically console + file).
type Multi struct {
	loggers []Logger
}

// NewMulti creates a Multi from the given loggers, skipping nils.
func NewMulti(loggers ...Logger) *Multi {
	m := &Multi{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Tracef logs at trace level to all loggers.
func (m *Multi) Tracef(format string, args ...any) {
	for _, l := range m.loggers {
		l.Tracef(format, args...)
	}
}

// Debugf logs at debug level to all loggers.
func (m *Multi) Debugf(format string, args ...any) {
	for _, l := range m.loggers {
		l.Debugf(format, args...)
	}
}

// Infof logs at info level to all loggers.
func (m *Multi) Infof(format string, args ...any) {
	for _, l := range m.loggers {
		l.Infof(format, args...)
	}
}

// Warnf logs at warn level to all loggers.
func (m *Multi) Warnf(format string, args ...any) {
	for _, l := range m.loggers {
		l.Warnf(format, args...)
	}
}

// Errorf logs at error level to all loggers.
func (m *Multi) Errorf(format string, args ...any) {
	for _, l := range m.loggers {
		l.Errorf(format, args...)
	}
}
