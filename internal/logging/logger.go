// Package logging provides structured JSON logging for ai-barometer, built
// on log/slog.
//
// Usage:
//
//	if err := logging.Init(repoRoot); err != nil {
//	    // handle error
//	}
//	defer logging.Close()
//
//	ctx = logging.WithRepo(ctx, repoRoot)
//	ctx = logging.WithCommit(ctx, hash)
//	logging.Info(ctx, "note attached", slog.String("agent", "claude"))
package logging

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevelEnvVar controls log verbosity when set.
const LogLevelEnvVar = "AI_BAROMETER_LOG_LEVEL"

// LogDir is the directory (relative to repo root) where hook logs live.
const LogDir = ".ai-barometer"

// LogFileName is the hook pipeline's log file within LogDir.
const LogFileName = "hook.log"

var (
	logger       *slog.Logger
	logFile      *os.File
	logBufWriter *bufio.Writer
	mu           sync.RWMutex
)

// Init opens (creating if necessary) the hook log file under
// <repoRoot>/.ai-barometer/hook.log and installs it as the package logger.
// On any failure to create the file, falls back to stderr rather than
// erroring — logging must never be the reason a commit is blocked.
func Init(repoRoot string) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	level := parseLogLevel(os.Getenv(LogLevelEnvVar))

	dir := filepath.Join(repoRoot, LogDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	path := filepath.Join(dir, LogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // fixed path under repo
	if err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	logFile = f
	logBufWriter = bufio.NewWriterSize(f, 8192)
	logger = createLogger(logBufWriter, level)
	return nil
}

// Close flushes and closes the log file. Safe to call multiple times, and
// safe to call when Init was never called.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func createLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs at DEBUG level with context values automatically attached.
func Debug(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelDebug, msg, attrs...) }

// Info logs at INFO level with context values automatically attached.
func Info(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelInfo, msg, attrs...) }

// Warn logs at WARN level with context values automatically attached.
func Warn(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelWarn, msg, attrs...) }

// Error logs at ERROR level with context values automatically attached.
func Error(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelError, msg, attrs...) }

// LogDuration logs msg with a duration_ms attribute measured from start.
// Intended for defer use:
//
//	defer logging.LogDuration(ctx, slog.LevelInfo, "hook completed", time.Now())
func LogDuration(ctx context.Context, level slog.Level, msg string, start time.Time, attrs ...any) {
	allAttrs := make([]any, 0, len(attrs)+1)
	allAttrs = append(allAttrs, slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	allAttrs = append(allAttrs, attrs...)
	log(ctx, level, msg, allAttrs...)
}

func log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	l := getLogger()

	var allAttrs []any
	if repo := RepoFromContext(ctx); repo != "" {
		allAttrs = append(allAttrs, slog.String("repo", repo))
	}
	if commit := CommitFromContext(ctx); commit != "" {
		allAttrs = append(allAttrs, slog.String("commit", commit))
	}
	if component := ComponentFromContext(ctx); component != "" {
		allAttrs = append(allAttrs, slog.String("component", component))
	}
	if agent := AgentFromContext(ctx); agent != "" {
		allAttrs = append(allAttrs, slog.String("agent", agent))
	}
	allAttrs = append(allAttrs, attrs...)

	l.Log(nil, level, msg, allAttrs...) //nolint:staticcheck // context values already extracted as attrs
}
