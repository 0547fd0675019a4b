package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/synth/internal/plugin"
	"github.com/born-ml/synth/internal/store"
	"github.com/born-ml/synth/internal/version"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	color.NoColor = true

	fs := afero.NewMemMapFs()
	var b strings.Builder
	b.WriteString("a,b,label\n")
	for i := range 60 {
		fmt.Fprintf(&b, "%d,%.2f,%d\n", i%13, float64(i)*0.5, i%2)
	}
	require.NoError(t, afero.WriteFile(fs, "/data/train.csv", []byte(b.String()), 0o644))

	models, err := store.NewFS(afero.NewMemMapFs(), "/models")
	require.NoError(t, err)

	a := &app{fs: fs, store: models}
	t.Cleanup(func() { _ = a.close() })
	return a
}

func run(a *app, args ...string) (string, error) {
	cmd := newRootCmd(a)
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func fitOne(t *testing.T, a *app, name string, extra ...string) string {
	t.Helper()
	args := append([]string{"fit", "--plugin", name, "--data", "/data/train.csv", "--seed", "3"}, extra...)
	out, err := run(a, args...)
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 2, out)
	assert.Equal(t, name, fields[0])
	return fields[1]
}

func TestVersionCmd(t *testing.T) {
	out, err := run(newTestApp(t), "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Version)
	assert.Contains(t, out, version.MajorVersion())
}

func TestListCmd(t *testing.T) {
	a := newTestApp(t)

	out, err := run(a, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "generic")
	assert.Contains(t, out, "uniform_sampler")
	assert.Contains(t, out, "dp_histogram")

	out, err = run(a, "list", "--category", "privacy", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "dp_histogram")
	assert.Contains(t, out, "epsilon")
	assert.NotContains(t, out, "uniform_sampler")

	_, err = run(a, "list", "--category", "images")
	assert.Error(t, err)
}

func TestFitAndGenerate(t *testing.T) {
	a := newTestApp(t)

	out, err := run(a, "fit",
		"-p", "uniform_sampler", "-p", "marginal_distributions",
		"--data", "/data/train.csv", "--param", "n_bins=5", "--out", "/saved")
	// uniform_sampler does not declare n_bins.
	require.ErrorIs(t, err, plugin.ErrUnknownParam)
	assert.Empty(t, out)

	out, err = run(a, "fit",
		"-p", "uniform_sampler", "-p", "gaussian_mixture",
		"--data", "/data/train.csv", "--out", "/saved", "--seed", "7")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	records, err := a.store.List(context.Background(), store.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	id := strings.Fields(lines[0])[1]
	_, err = run(a, "generate", "--model", id, "--count", "25", "--out", "/out/rows.csv")
	require.NoError(t, err)
	rows, err := afero.ReadFile(a.fs, "/out/rows.csv")
	require.NoError(t, err)
	csvLines := strings.Split(strings.TrimSpace(string(rows)), "\n")
	assert.Equal(t, "a,b,label", csvLines[0])
	assert.Len(t, csvLines, 26)

	// The copy written with --out loads without the store.
	file := strings.Fields(lines[1])[2]
	out, err = run(a, "generate", "--model", file, "-n", "10")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 11)
}

func TestFitRejectsTimeSeriesPlugins(t *testing.T) {
	a := newTestApp(t)

	for _, name := range []string{"ts_bootstrap", "ts_autoregressive"} {
		out, err := run(a, "fit", "-p", "uniform_sampler", "-p", name, "--data", "/data/train.csv")
		require.ErrorIs(t, err, plugin.ErrUnsupportedData, name)
		assert.Contains(t, err.Error(), name)
		assert.Empty(t, out)
	}

	// Nothing is stored when any requested plugin is rejected.
	records, err := a.store.List(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	// The plugin name is checked before the data path.
	_, err = run(a, "fit", "-p", "ts_bootstrap", "--data", "/data/missing.csv")
	assert.ErrorIs(t, err, plugin.ErrUnsupportedData)
}

func TestGenerateConstraints(t *testing.T) {
	a := newTestApp(t)
	id := fitOne(t, a, "uniform_sampler")

	out, err := run(a, "generate", "--model", id, "-n", "30", "--constraint", "label == 1", "--seed", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 31)
	for _, line := range lines[1:] {
		assert.True(t, strings.HasSuffix(line, ",1"), line)
	}

	_, err = run(a, "generate", "--model", id, "--constraint", "label ~ 1")
	assert.ErrorIs(t, err, plugin.ErrInvalidConstraint)
}

func TestGenerateUnknownModel(t *testing.T) {
	a := newTestApp(t)

	_, err := run(a, "generate", "--model", "no-such-thing")
	assert.Error(t, err)

	_, err = run(a, "generate", "--model", "8a0f6a3e-56a8-4f5e-8d33-4a8b4c1b2d10")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInspectCmd(t *testing.T) {
	a := newTestApp(t)
	id := fitOne(t, a, "marginal_distributions")

	out, err := run(a, "inspect", id, "--attributes")
	require.NoError(t, err)
	assert.Contains(t, out, "plugin: marginal_distributions")
	assert.Contains(t, out, "category: generic")
	assert.Contains(t, out, "version: \""+version.MajorVersion()+"\"")
	assert.Contains(t, out, "tensors:")
	assert.Contains(t, out, "params")
}

func TestModelsCmd(t *testing.T) {
	a := newTestApp(t)
	first := fitOne(t, a, "uniform_sampler")
	second := fitOne(t, a, "dp_histogram")

	out, err := run(a, "models")
	require.NoError(t, err)
	assert.Contains(t, out, first)
	assert.Contains(t, out, second)

	out, err = run(a, "models", "--category", "privacy")
	require.NoError(t, err)
	assert.NotContains(t, out, first)
	assert.Contains(t, out, second)

	out, err = run(a, "models", "rm", first)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+first)

	_, err = run(a, "models", "rm", first)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
