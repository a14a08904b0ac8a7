// Package logging wraps log/slog with the fields used across treeview.
package logging

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Logger wraps slog.Logger with treeview-specific helpers.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler. A nil handler discards output.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.DiscardHandler
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewText writes human-readable logs to w without timestamps.
func NewText(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// NewJSON writes one JSON object per record to w.
func NewJSON(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Nop discards all output.
func Nop() *Logger {
	return New(nil)
}

// WithFile tags records with the input file.
func (l *Logger) WithFile(name string) *Logger {
	return &Logger{Logger: l.Logger.With("file", name)}
}

// Load describes a loaded document.
type Load struct {
	Format  string
	Roots   int
	Nodes   int64
	Lazy    bool
	Elapsed time.Duration
}

// LogLoad logs the outcome of loading one file. Use WithFile to name it.
func (l *Logger) LogLoad(ctx context.Context, ld Load, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed", "error", err)
		return
	}
	l.InfoContext(ctx, "loaded",
		"format", ld.Format,
		"roots", ld.Roots,
		"nodes", ld.Nodes,
		"lazy", ld.Lazy,
		"elapsed", ld.Elapsed,
	)
}

// LogParquet records the layout of an opened Parquet file.
func (l *Logger) LogParquet(rows, rowGroups int, columns []string) {
	l.Debug("parquet opened",
		"rows", rows,
		"row_groups", rowGroups,
		"columns", columns,
	)
}

// LogRendered records how much of a document printing had to build.
func (l *Logger) LogRendered(ctx context.Context, built, roots int, nodes int64) {
	l.DebugContext(ctx, "rendered",
		"roots_built", built,
		"roots", roots,
		"nodes", nodes,
	)
}

// LogBatch summarizes a multi-file load.
func (l *Logger) LogBatch(ctx context.Context, total, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "load completed with failures",
			"total", total,
			"failed", failed,
		)
		return
	}
	l.DebugContext(ctx, "load completed", "total", total)
}

// LogSearch logs a search over the loaded documents.
func (l *Logger) LogSearch(ctx context.Context, query string, matches int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed", "query", query, "error", err)
		return
	}
	l.DebugContext(ctx, "search completed", "query", query, "matches", matches)
}

// LogQuery logs a JSONPath evaluation.
func (l *Logger) LogQuery(ctx context.Context, expr string, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed", "expr", expr, "error", err)
		return
	}
	l.DebugContext(ctx, "query completed", "expr", expr, "results", results)
}
