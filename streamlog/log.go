// Package streamlog builds the structured loggers used by the stream buffers
// and the streambuf command: xlog loggers backed by zerolog.
package streamlog

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/trickstertwo/xlog"
)

type adapter struct {
	l zerolog.Logger
}

var _ xlog.Adapter = (*adapter)(nil)

func (a *adapter) With(fs []xlog.Field) xlog.Adapter {
	ctx := a.l.With()
	for i := range fs {
		ctx = appendCtxField(ctx, &fs[i])
	}
	return &adapter{l: ctx.Logger()}
}

func (a *adapter) Log(level xlog.Level, msg string, at time.Time, fields []xlog.Field) {
	ev := a.l.WithLevel(toZerolog(level))
	if ev == nil {
		return
	}
	ev.Str("ts", at.UTC().Format(time.RFC3339Nano))
	for i := range fields {
		appendEventField(ev, &fields[i])
	}
	ev.Msg(msg)
}

// Fatal maps to error so that logging never exits the process.
func toZerolog(l xlog.Level) zerolog.Level {
	switch {
	case l <= xlog.LevelTrace:
		return zerolog.TraceLevel
	case l <= xlog.LevelDebug:
		return zerolog.DebugLevel
	case l <= xlog.LevelInfo:
		return zerolog.InfoLevel
	case l <= xlog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func appendEventField(ev *zerolog.Event, f *xlog.Field) {
	switch f.Kind {
	case xlog.KindString:
		ev.Str(f.K, f.Str)
	case xlog.KindInt64:
		ev.Int64(f.K, f.Int64)
	case xlog.KindUint64:
		ev.Uint64(f.K, f.Uint64)
	case xlog.KindFloat64:
		ev.Float64(f.K, f.Float64)
	case xlog.KindBool:
		ev.Bool(f.K, f.Bool)
	case xlog.KindDuration:
		ev.Dur(f.K, f.Dur)
	case xlog.KindTime:
		ev.Time(f.K, f.Time)
	case xlog.KindError:
		ev.AnErr(f.K, f.Err)
	case xlog.KindBytes:
		ev.Int(f.K+"_len", len(f.Bytes))
	default:
		ev.Interface(f.K, f.Any)
	}
}

func appendCtxField(ctx zerolog.Context, f *xlog.Field) zerolog.Context {
	switch f.Kind {
	case xlog.KindString:
		return ctx.Str(f.K, f.Str)
	case xlog.KindInt64:
		return ctx.Int64(f.K, f.Int64)
	case xlog.KindUint64:
		return ctx.Uint64(f.K, f.Uint64)
	case xlog.KindFloat64:
		return ctx.Float64(f.K, f.Float64)
	case xlog.KindBool:
		return ctx.Bool(f.K, f.Bool)
	case xlog.KindDuration:
		return ctx.Dur(f.K, f.Dur)
	case xlog.KindTime:
		return ctx.Time(f.K, f.Time)
	case xlog.KindError:
		return ctx.AnErr(f.K, f.Err)
	case xlog.KindBytes:
		return ctx.Int(f.K+"_len", len(f.Bytes))
	default:
		return ctx.Interface(f.K, f.Any)
	}
}

func build(zl zerolog.Logger, min xlog.Level) *xlog.Logger {
	l, err := xlog.NewBuilder().
		WithAdapter(&adapter{l: zl}).
		WithMinLevel(min).
		Build()
	if err != nil {
		// Build only fails without an adapter.
		panic(err)
	}
	return l
}

// New returns a logger writing JSON lines to w, dropping entries below min.
func New(w io.Writer, min xlog.Level) *xlog.Logger {
	return build(zerolog.New(w).Level(toZerolog(min)), min)
}

// Discard returns a logger that drops everything.
func Discard() *xlog.Logger {
	return build(zerolog.Nop(), xlog.LevelFatal+1)
}

// ParseLevel maps trace|debug|info|warn|error|fatal to an xlog level. The
// empty string is info.
func ParseLevel(s string) (xlog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return xlog.LevelTrace, nil
	case "debug":
		return xlog.LevelDebug, nil
	case "info", "":
		return xlog.LevelInfo, nil
	case "warn", "warning":
		return xlog.LevelWarn, nil
	case "error":
		return xlog.LevelError, nil
	case "fatal":
		return xlog.LevelFatal, nil
	default:
		return 0, fmt.Errorf("streamlog: unknown level %q", s)
	}
}
