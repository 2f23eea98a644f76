// Package logging builds the process logger. The TUI owns the terminal, so
// records go to a file; one-shot commands may mirror them to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options select the destination and verbosity.
type Options struct {
	File   string
	Level  string
	Stderr bool
}

// New returns a text logger and the closer for its file. With no file and
// no stderr the logger discards everything.
func New(opt Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opt.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		writers []io.Writer
		closer  io.Closer = nopCloser{}
	)
	if opt.File != "" {
		if err := os.MkdirAll(filepath.Dir(opt.File), 0o700); err != nil {
			return nil, nil, fmt.Errorf("mkdir: %w", err)
		}
		f, err := os.OpenFile(opt.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}
	if opt.Stderr {
		writers = append(writers, os.Stderr)
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closer, nil
}

// ParseLevel accepts debug, info, warn and error. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
