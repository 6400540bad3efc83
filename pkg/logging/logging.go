// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config holds logging configuration options.
type Config struct {
	Level slog.Level
	// JSON switches from the text handler to the JSON handler.
	JSON bool
	// Output defaults to os.Stderr so reports on stdout stay clean.
	Output io.Writer
}

// DefaultConfig is used until the config file has been read. LOG_LEVEL
// sets the level; it defaults to INFO.
func DefaultConfig() Config {
	return Config{
		Level:  ParseLevel(os.Getenv("LOG_LEVEL")),
		Output: os.Stderr,
	}
}

// ParseLevel accepts debug, info, warn, warning and error in any case.
// Anything else maps to INFO.
func ParseLevel(level string) slog.Level {
	level = strings.TrimSpace(level)
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Setup installs a logger built from cfg as the slog default and returns it.
// Debug loggers annotate records with the calling file and line.
func Setup(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.Level <= slog.LevelDebug,
		ReplaceAttr: shortSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// shortSource trims source paths to the file name.
func shortSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}
	if src, ok := a.Value.Any().(*slog.Source); ok {
		src.File = filepath.Base(src.File)
	}
	return a
}
