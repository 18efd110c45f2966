package sigdex

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with ingest-specific helpers so operations log
// with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler falls
// back to a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that emits JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewTextLogger creates a Logger that emits human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))}
}

// LogAdd logs an add operation.
func (l *Logger) LogAdd(id uint64, postingCount int, err error) {
	if err != nil {
		l.Error("add failed",
			"id", id,
			"postings", postingCount,
			"error", err,
		)
	} else {
		l.Debug("add completed",
			"id", id,
			"postings", postingCount,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(id uint64, found bool, err error) {
	if err != nil {
		l.Error("delete failed",
			"id", id,
			"error", err,
		)
	} else {
		l.Debug("delete completed",
			"id", id,
			"found", found,
		)
	}
}

// LogRollback logs a failed cleanup after a failed add. The primary failure
// is reported separately; rollback errors are logged and swallowed.
func (l *Logger) LogRollback(id uint64, err error) {
	l.Error("rollback after failed add",
		"id", id,
		"error", err,
	)
}

// LogStatistics logs a statistics emission.
func (l *Logger) LogStatistics(shardCount int, err error) {
	if err != nil {
		l.Error("statistics write failed",
			"shards", shardCount,
			"error", err,
		)
	} else {
		l.Info("statistics written",
			"shards", shardCount,
		)
	}
}
