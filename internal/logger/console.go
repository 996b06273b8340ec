// Package logger provides the leveled loggers used by notectl commands.
//
// ConsoleLogger writes human-readable progress to a terminal, FileLogger
// records full runs under .notectl/logs/. Both are safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Logger is the leveled logging interface commands depend on.
type Logger interface {
	Tracef(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs to a writer with [HH:MM:SS] timestamps and optional
// color. Messages below the configured level are dropped.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger writing to w.
// If w is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive);
// empty or invalid levels default to "info".
// Color is enabled when w is a TTY and NO_COLOR is unset.
func NewConsoleLogger(w io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      w,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(w),
	}
}

// isTerminal reports whether w is a color-capable terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel lowercases and validates a level, defaulting to info.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// logLevelToInt converts a level name to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	}
	return levelInfo
}

// shouldLog reports whether a message at messageLevel passes the filter.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// levelColor returns the sprint function used to tint a level tag.
func levelColor(level string) func(format string, a ...any) string {
	switch level {
	case "warn":
		return color.YellowString
	case "error":
		return color.RedString
	case "debug", "trace":
		return color.HiBlackString
	}
	return color.CyanString
}

func (cl *ConsoleLogger) log(level, format string, args ...any) {
	if cl.writer == nil || !cl.shouldLog(level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	timestamp := time.Now().Format("15:04:05")
	tag := strings.ToUpper(level)
	if cl.colorOutput {
		tag = levelColor(level)("%s", tag)
	}
	fmt.Fprintf(cl.writer, "[%s] %s %s\n", timestamp, tag, fmt.Sprintf(format, args...))
}

// Tracef logs at trace level.
func (cl *ConsoleLogger) Tracef(format string, args ...any) { cl.log("trace", format, args...) }

// Debugf logs at debug level.
func (cl *ConsoleLogger) Debugf(format string, args ...any) { cl.log("debug", format, args...) }

// Infof logs at info level.
func (cl *ConsoleLogger) Infof(format string, args ...any) { cl.log("info", format, args...) }

// Warnf logs at warn level.
func (cl *ConsoleLogger) Warnf(format string, args ...any) { cl.log("warn", format, args...) }

// Errorf logs at error level.
func (cl *ConsoleLogger) Errorf(format string, args ...any) { cl.log("error", format, args...) }
