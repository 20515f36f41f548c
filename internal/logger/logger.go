// Package logger builds the zerolog logger and its log/slog bridge, and
// carries per-request log fields through context.
package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level     string
	Console   bool
	SampleN   int
	Service   string
	Component string
}

// Build configures zerolog globals and returns the root logger. Unknown
// levels fall back to info.
func Build(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "msg"

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	base := zerolog.New(out)
	if n := safeUint32(cfg.SampleN); n > 0 {
		base = base.Sample(&zerolog.BasicSampler{N: n})
	}

	zc := base.With().Timestamp()
	if cfg.Service != "" {
		zc = zc.Str("service", cfg.Service)
	}
	if cfg.Component != "" {
		zc = zc.Str("component", cfg.Component)
	}
	return zc.Logger()
}

// fields is the request-scoped set attached to every line logged with the
// context. It is copied on write so that parents stay untouched.
type fields struct {
	requestID string
	route     string
	component string
	calc      string
	files     []string
}

type ctxKey struct{}

func current(ctx context.Context) fields {
	f, _ := ctx.Value(ctxKey{}).(fields)
	return f
}

func with(ctx context.Context, mut func(*fields)) context.Context {
	f := current(ctx)
	mut(&f)
	return context.WithValue(ctx, ctxKey{}, f)
}

// WithRequestID stores reqID, generating one when it is empty.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		reqID = NewID()
	}
	return with(ctx, func(f *fields) { f.requestID = reqID })
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string { return current(ctx).requestID }

func WithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return with(ctx, func(f *fields) { f.route = route })
}

func WithComponent(ctx context.Context, component string) context.Context {
	if component == "" {
		return ctx
	}
	return with(ctx, func(f *fields) { f.component = component })
}

// WithCalc tags log lines emitted while one calculation kind runs.
func WithCalc(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return with(ctx, func(f *fields) { f.calc = kind })
}

// WithFiles records the survey files a request reads.
func WithFiles(ctx context.Context, files []string) context.Context {
	if len(files) == 0 {
		return ctx
	}
	cp := append([]string(nil), files...)
	return with(ctx, func(f *fields) { f.files = cp })
}

// FromContext returns a child of parent carrying the context fields. A nil
// parent discards output.
func FromContext(ctx context.Context, parent *zerolog.Logger) *zerolog.Logger {
	base := zerolog.New(io.Discard)
	if parent != nil {
		base = *parent
	}
	f := current(ctx)
	w := base.With()
	for _, kv := range [...]struct{ k, v string }{
		{"request_id", f.requestID},
		{"route", f.route},
		{"component", f.component},
		{"calc", f.calc},
	} {
		if kv.v != "" {
			w = w.Str(kv.k, kv.v)
		}
	}
	if len(f.files) > 0 {
		w = w.Strs("files", f.files)
	}
	l := w.Logger()
	return &l
}

func NewID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func safeUint32(n int) uint32 {
	if n <= 0 {
		return 0
	}
	if n > int(math.MaxUint32) {
		return math.MaxUint32
	}
	return uint32(n)
}
