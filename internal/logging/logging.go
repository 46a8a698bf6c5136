// Package logging configures the process-wide slog logger. Pipeline stages
// log structured key/value pairs (job_key, stage, latency) so a triage run
// can be reconstructed from the log stream alone; output is text on a TTY
// and JSON otherwise, overridable via LOG_FORMAT.
package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// New builds a logger from the environment: LOG_FORMAT (text/json, default
// by TTY detection) and LOG_LEVEL (debug/info/warn/error, default info).
// Source locations are attached and shortened to repo-relative paths.
func New() *slog.Logger {
	wd, _ := os.Getwd()
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(os.Getenv("LOG_LEVEL")),
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				if src, ok := a.Value.Any().(*slog.Source); ok {
					if rel, err := filepath.Rel(wd, src.File); err == nil {
						src.File = rel
					} else {
						src.File = filepath.Base(src.File)
					}
				}
			}
			return a
		},
	}
	return slog.New(newHandler(opts))
}

// SetDefault installs a freshly configured logger as the slog default and
// returns it, so main can both keep a handle and let library code that logs
// via slog.Default() share the same sink.
func SetDefault() *slog.Logger {
	logger := New()
	slog.SetDefault(logger)
	return logger
}

func newHandler(opts *slog.HandlerOptions) slog.Handler {
	format := os.Getenv("LOG_FORMAT")
	if format == "text" || (format == "" && isatty(os.Stdout)) {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isatty(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
