package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type ctxKey struct{}

// HandlerOptions configures the handler returned by NewHandler.
type HandlerOptions struct {
	SlogOpts *slog.HandlerOptions
	Service  string
	Writer   io.Writer
}

// Handler is a JSON slog handler that adds service metadata and the
// attributes stored in the context to every record.
type Handler struct {
	slog.Handler
}

// NewHandler creates a new Handler. A nil opts logs at info level to stdout.
func NewHandler(opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.SlogOpts == nil {
		opts.SlogOpts = &slog.HandlerOptions{Level: slog.LevelInfo}
	}

	hostname, _ := os.Hostname()

	var base slog.Handler = slog.NewJSONHandler(opts.Writer, opts.SlogOpts)
	attrs := []slog.Attr{slog.String("hostname", hostname)}
	if opts.Service != "" {
		attrs = append(attrs, slog.String("service", opts.Service))
	}

	return &Handler{Handler: base.WithAttrs(attrs)}
}

// Handle adds the context attributes to the record.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}

	return h.Handler.Handle(ctx, r)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{Handler: h.Handler.WithGroup(name)}
}

// WithAttrs returns a copy of ctx carrying attrs for every record logged
// with it.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	existing, _ := ctx.Value(ctxKey{}).([]slog.Attr)

	merged := make([]slog.Attr, 0, len(existing)+len(attrs))
	merged = append(merged, existing...)
	merged = append(merged, attrs...)

	return context.WithValue(ctx, ctxKey{}, merged)
}

// ParseLevel converts a level name to slog.Level, falling back to info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}

	return l
}
