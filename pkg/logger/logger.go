package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
)

const (
	LevelDebug string = "DEBUG"
	LevelInfo  string = "INFO"
	LevelWarn  string = "WARN"
	LevelError string = "ERROR"
)

var levels = map[string]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, err error, args ...any)
}

type logger struct {
	slog *slog.Logger
}

// InitLogger writes to stdout.
func InitLogger(serviceName, logLevel string) Logger {
	return New(os.Stdout, serviceName, logLevel)
}

// New builds a logger writing JSON lines to out. Unknown levels log
// everything.
func New(out io.Writer, serviceName, logLevel string) Logger {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	level, ok := levels[logLevel]
	if !ok {
		level = slog.LevelDebug
	}

	h := &contextHandler{
		next: slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: renameAttr,
		}),
	}

	return &logger{
		slog: slog.New(h).With(
			slog.String("service", serviceName),
			slog.String("hostname", hostname),
		),
	}
}

// renameAttr emits "message" and an RFC 3339 "timestamp".
func renameAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.MessageKey:
		return slog.Attr{Key: "message", Value: a.Value}
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			return slog.String("timestamp", t.Format(time.RFC3339))
		}
	}
	return a
}

// contextHandler adds the non-empty LogCtx fields of ctx to each record.
type contextHandler struct {
	next slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if c, ok := ctx.Value(wrap.LogCtxKey).(wrap.LogCtx); ok {
		for _, f := range [...]struct{ key, val string }{
			{"action", c.Action},
			{"driver_id", c.DriverID},
			{"request_id", c.RequestID},
			{"ride_id", c.RideID},
			{"offer_id", c.OfferID},
		} {
			if f.val != "" {
				r.AddAttrs(slog.String(f.key, f.val))
			}
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name)}
}

func (l *logger) Debug(ctx context.Context, msg string, args ...any) {
	l.slog.DebugContext(ctx, msg, args...)
}

func (l *logger) Info(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, args...)
}

func (l *logger) Warn(ctx context.Context, msg string, args ...any) {
	l.slog.WarnContext(ctx, msg, args...)
}

// Error logs err under "error.msg"; a nil err is logged as "<nil>".
func (l *logger) Error(ctx context.Context, msg string, err error, args ...any) {
	text := "<nil>"
	if err != nil {
		text = err.Error()
	}
	l.slog.ErrorContext(ctx, msg, append([]any{slog.Group("error", slog.String("msg", text))}, args...)...)
}

// ValidateLogLevel reports whether lvl is one of DEBUG, INFO, WARN, ERROR.
func ValidateLogLevel(lvl string) bool {
	_, ok := levels[lvl]
	return ok
}
