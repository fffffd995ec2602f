// Package log builds the process slog.Logger from configuration.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures New.
type Options struct {
	Level   slog.Leveler
	Format  string
	NoColor bool
}

// sensitiveKeys are masked in every format.
var sensitiveKeys = map[string]bool{
	"dsn":               true,
	"password":          true,
	"secret":            true,
	"secret_access_key": true,
	"session_token":     true,
}

const masked = "***"

// New returns a logger writing to w. Text output on a terminal is colored
// with tint; other text output uses slog.TextHandler.
func New(w io.Writer, opts Options) *slog.Logger {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	if strings.EqualFold(opts.Format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: redact}))
	}
	if f, ok := w.(*os.File); ok && !opts.NoColor && isatty.IsTerminal(f.Fd()) {
		return slog.New(tint.NewHandler(colorable.NewColorable(f), &tint.Options{
			Level:       level,
			TimeFormat:  "15:04:05.000",
			ReplaceAttr: redact,
		}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: redact}))
}

// ParseLevel maps debug, info, warn and error (any case) to a slog.Level.
// Blank means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, masked)
	}
	return a
}
