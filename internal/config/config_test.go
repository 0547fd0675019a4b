package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synth.yaml")
	content := `
log_level: debug
seed: 42
strict: false
store:
  backend: sqlite
  path: /tmp/models.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.False(t, cfg.Strict)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/models.db", cfg.Store.Path)
	assert.Equal(t, 500, cfg.SamplingPatience)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 1\n"), 0o600))

	t.Setenv("SYNTH_SEED", "7")
	t.Setenv("SYNTH_STORE_BACKEND", "memory")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "s3"
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = Default()
	cfg.Store.Root = ""
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = Default()
	cfg.SamplingPatience = 0
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
}
