package logging

import (
	"context"
	"log/slog"
)

// runLogHandler writes every record to the console handler and mirrors it
// into the per-run JSON file. Each side filters on its own level, so the run
// file can keep slot traces the console hides.
type runLogHandler struct {
	console slog.Handler
	file    slog.Handler
}

func newRunLogHandler(console, file slog.Handler) slog.Handler {
	switch {
	case console == nil && file == nil:
		return NoopHandler{}
	case file == nil:
		return console
	case console == nil:
		return file
	}
	return &runLogHandler{console: console, file: file}
}

func (h *runLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

func (h *runLogHandler) Handle(ctx context.Context, record slog.Record) error {
	var consoleErr error
	if h.console.Enabled(ctx, record.Level) {
		consoleErr = h.console.Handle(ctx, record.Clone())
	}
	if h.file.Enabled(ctx, record.Level) {
		if err := h.file.Handle(ctx, record); err != nil {
			return err
		}
	}
	return consoleErr
}

func (h *runLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runLogHandler{console: h.console.WithAttrs(attrs), file: h.file.WithAttrs(attrs)}
}

func (h *runLogHandler) WithGroup(name string) slog.Handler {
	return &runLogHandler{console: h.console.WithGroup(name), file: h.file.WithGroup(name)}
}
