package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// DefaultMaxListItems is the longest list logged verbatim.
const DefaultMaxListItems = 8

// CompactHandler wraps an slog.Handler and shortens []string attributes
// longer than its limit to "first … last (n items)".
//
// Design decision: a handler wrapper rather than a custom logger, so every
// component keeps taking a plain *slog.Logger and the compaction works with
// both the text and the JSON handler.
type CompactHandler struct {
	// handler is the underlying slog handler that receives compacted records.
	handler slog.Handler

	// maxItems is the longest list passed through unchanged.
	maxItems int
}

// NewCompactHandler creates a CompactHandler wrapping handler.
// If handler is nil, slog.Default().Handler() is used. A maxItems below 2 is
// replaced with DefaultMaxListItems.
func NewCompactHandler(handler slog.Handler, maxItems int) *CompactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if maxItems < 2 {
		maxItems = DefaultMaxListItems
	}
	return &CompactHandler{handler: handler, maxItems: maxItems}
}

// Enabled reports whether the handler handles records at the given level.
func (h *CompactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle compacts the record's attributes and passes it on.
func (h *CompactHandler) Handle(ctx context.Context, r slog.Record) error {
	compacted := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		compacted.AddAttrs(h.compactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, compacted)
}

// WithAttrs returns a new handler with the given attributes added.
func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	compacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		compacted[i] = h.compactAttr(a)
	}
	return &CompactHandler{handler: h.handler.WithAttrs(compacted), maxItems: h.maxItems}
}

// WithGroup returns a new handler with the given group name.
func (h *CompactHandler) WithGroup(name string) slog.Handler {
	return &CompactHandler{handler: h.handler.WithGroup(name), maxItems: h.maxItems}
}

func (h *CompactHandler) compactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		compacted := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			compacted[i] = h.compactAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(compacted...)}
	}

	if a.Value.Kind() != slog.KindAny {
		return a
	}
	list, ok := a.Value.Any().([]string)
	if !ok || len(list) <= h.maxItems {
		return a
	}
	return slog.String(a.Key, Compact(list))
}

// Compact renders a list as "first … last (n items)".
// Lists of fewer than two elements are rendered in full.
func Compact(list []string) string {
	switch len(list) {
	case 0:
		return "[]"
	case 1:
		return fmt.Sprintf("[%s]", list[0])
	default:
		return fmt.Sprintf("%s … %s (%d items)", list[0], list[len(list)-1], len(list))
	}
}

// NewLogger creates a text logger with list compaction.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	textHandler := slog.NewTextHandler(w, handlerOptions(verbose))
	return slog.New(NewCompactHandler(textHandler, DefaultMaxListItems))
}

// NewJSONLogger creates a JSON logger with list compaction.
// Useful for structured log aggregation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, handlerOptions(verbose))
	return slog.New(NewCompactHandler(jsonHandler, DefaultMaxListItems))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
