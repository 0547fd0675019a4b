package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TextOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: slog.LevelInfo, Stderr: &buf})
	require.NoError(t, err)
	defer closeFn()

	logger.Info("fit complete", "plugin", "uniform_sampler")
	logger.Debug("hidden")

	assert.Contains(t, buf.String(), "fit complete")
	assert.Contains(t, buf.String(), "plugin=uniform_sampler")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_FileFanout(t *testing.T) {
	fs := afero.NewMemMapFs()
	var buf bytes.Buffer

	logger, closeFn, err := New(Options{Level: slog.LevelDebug, Fs: fs, File: "logs/synth.log", Stderr: &buf})
	require.NoError(t, err)

	logger.Debug("debug message")
	require.NoError(t, closeFn())

	data, err := afero.ReadFile(fs, "logs/synth.log")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"debug message"`)
	assert.Contains(t, buf.String(), "debug message")
}

func TestNew_FileOnlyAboveDebug(t *testing.T) {
	fs := afero.NewMemMapFs()
	var buf bytes.Buffer

	logger, closeFn, err := New(Options{Level: slog.LevelInfo, Fs: fs, File: "synth.log", Stderr: &buf})
	require.NoError(t, err)
	logger.Info("to file")
	require.NoError(t, closeFn())

	assert.Empty(t, buf.String())
	data, err := afero.ReadFile(fs, "synth.log")
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestError_AttachesTrace(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger, closeFn, err := New(Options{Level: slog.LevelInfo, Fs: fs, File: "err.log"})
	require.NoError(t, err)

	Error(context.Background(), logger, "save failed", errors.New("disk full"))
	require.NoError(t, closeFn())

	data, err := afero.ReadFile(fs, "err.log")
	require.NoError(t, err)
	assert.Contains(t, string(data), "disk full")
	assert.Contains(t, string(data), `"trace"`)
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	logger := Discard()
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelTrace, ParseLevel("trace"))
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
