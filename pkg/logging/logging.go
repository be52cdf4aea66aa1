// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Options configures New.
type Options struct {
	Level  string
	Format string
	// File, when set, receives a JSON copy of every record.
	File string
	// Writer replaces stderr as the primary sink.
	Writer io.Writer
}

// New returns a logger and a close function for any file sink. The level
// is shared by every sink.
func New(opts Options) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	if err := level.UnmarshalText([]byte(strings.ToUpper(orDefault(opts.Level, "INFO")))); err != nil {
		return nil, nil, fmt.Errorf("log level %q: %w", opts.Level, err)
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	switch strings.ToLower(orDefault(opts.Format, "text")) {
	case "text":
		handlers = append(handlers, slog.NewTextHandler(w, hopts))
	case "json":
		handlers = append(handlers, slog.NewJSONHandler(w, hopts))
	default:
		return nil, nil, fmt.Errorf("log format %q: want text or json", opts.Format)
	}

	closer := func() error { return nil }
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, hopts))
		closer = f.Close
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
