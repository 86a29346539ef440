// Package log builds the slog loggers the application injects into its
// components.
//
// There is no global logger: main constructs one with New and hands it down,
// and each component narrows it with logger.With("component", ...). Tests
// pass NewNop or capture output through NewWithWriter.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger aliases *slog.Logger so constructors can name the dependency
// without introducing a wrapper interface.
type Logger = *slog.Logger

// Config selects handler behavior for New and NewWithWriter.
type Config struct {
	// Level is the minimum level emitted. The zero value is slog.LevelInfo.
	Level slog.Level

	// JSON switches from the text handler to the JSON handler.
	JSON bool

	// AddSource annotates records with the file and line of the call site.
	AddSource bool
}

// New returns a logger writing to stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter returns a logger writing to w. Tests use it with a
// bytes.Buffer to assert on emitted records.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewNop returns a logger that discards everything. Test-only; production
// callers configure New so failures stay observable.
func NewNop() Logger {
	return slog.New(slog.DiscardHandler)
}
