package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// EventLogger writes a timestamped, append-only JSONL event log for a single
// hydration run, independent of the package-level hook logger. One line per
// notable event (session_scanned, session_skipped, note_attached,
// hash_skipped_no_commit), so a run can be replayed or audited later.
type EventLogger struct {
	path   string
	file   *os.File
	logger *slog.Logger
}

// NewEventLogger creates a new timestamped event log file under
// <configDir>/backfill.<timestamp>.log and returns a logger writing JSONL
// rows to it. The caller must call Close when done.
func NewEventLogger(configDir string, now time.Time) (*EventLogger, error) {
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	name := fmt.Sprintf("backfill.%s.log", now.UTC().Format("20060102T150405.000000000Z"))
	path := filepath.Join(configDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // fixed, timestamped path
	if err != nil {
		return nil, fmt.Errorf("creating backfill log file: %w", err)
	}

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &EventLogger{path: path, file: f, logger: slog.New(handler)}, nil
}

// Path returns the path of the underlying log file.
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Event records a single event with arbitrary payload attributes. Never
// fails the caller: write errors are swallowed, matching the pipeline-wide
// rule that observability never blocks or fails the operation it describes.
func (l *EventLogger) Event(event string, attrs ...any) {
	if l == nil {
		return
	}
	allAttrs := make([]any, 0, len(attrs)+1)
	allAttrs = append(allAttrs, slog.String("event", event))
	allAttrs = append(allAttrs, attrs...)
	l.logger.Info("", allAttrs...)
}

// Close closes the underlying file. Safe to call on a nil *EventLogger.
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
