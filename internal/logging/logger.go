// Package logging builds the slog loggers used across synth and carries them
// through context.Context.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mdobak/go-xerrors"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/afero"
)

// LevelTrace sits below slog.LevelDebug for per-row sampling diagnostics.
const LevelTrace = slog.Level(-8)

// Options configures New.
type Options struct {
	Level  slog.Level
	Fs     afero.Fs  // Filesystem for File; defaults to the OS filesystem
	File   string    // JSON log file; empty disables file logging
	Stderr io.Writer // Text output; defaults to os.Stderr
}

// New builds a logger that writes JSON to Options.File and human-readable text
// to Options.Stderr. Text output is always enabled when no file is configured,
// and in debug mode otherwise.
//
// The returned close function releases the log file.
func New(opts Options) (*slog.Logger, func() error, error) {
	handlerOpts := &slog.HandlerOptions{
		Level:       opts.Level,
		ReplaceAttr: replaceAttr,
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	closeFn := func() error { return nil }
	var handlers []slog.Handler

	if opts.File != "" {
		fs := opts.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		if err := fs.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := fs.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closeFn = f.Close
		handlers = append(handlers, slog.NewJSONHandler(f, handlerOpts))
	}

	if opts.File == "" || opts.Level <= slog.LevelDebug {
		handlers = append(handlers, slog.NewTextHandler(stderr, handlerOpts))
	}

	return slog.New(slogmulti.Fanout(handlers...)), closeFn, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Error logs err at error level with its stack trace attached.
func Error(ctx context.Context, logger *slog.Logger, msg string, err error, args ...any) {
	args = append(args, slog.Any("error", xerrors.New(err)))
	logger.ErrorContext(ctx, msg, args...)
}

// ParseLevel converts a config string to a slog level. Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindAny {
		if err, ok := a.Value.Any().(error); ok {
			a.Value = fmtErr(err)
		}
	}
	return a
}

func fmtErr(err error) slog.Value {
	attrs := []slog.Attr{slog.String("msg", err.Error())}
	if frames := marshalStack(err); frames != nil {
		attrs = append(attrs, slog.Any("trace", frames))
	}
	return slog.GroupValue(attrs...)
}

func marshalStack(err error) []stackFrame {
	trace := xerrors.StackTrace(err)
	if len(trace) == 0 {
		return nil
	}
	frames := trace.Frames()
	out := make([]stackFrame, len(frames))
	for i, f := range frames {
		out[i] = stackFrame{
			Source: filepath.Join(filepath.Base(filepath.Dir(f.File)), filepath.Base(f.File)),
			Func:   filepath.Base(f.Function),
			Line:   f.Line,
		}
	}
	return out
}
