package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/synth/internal/config"
	"github.com/born-ml/synth/internal/serialization"
	"github.com/born-ml/synth/internal/version"
)

func envelopeBytes(t *testing.T, plugin, category string) []byte {
	t.Helper()
	env := serialization.NewEnvelope(plugin, category)
	require.NoError(t, env.Set("fitted", true))
	data, err := serialization.Save(env)
	require.NoError(t, err)
	return data
}

type backend struct {
	name    string
	open    func(t *testing.T) Store
	corrupt func(t *testing.T, s Store, rec Record)
}

func backends() []backend {
	return []backend{
		{
			name: "fs",
			open: func(t *testing.T) Store {
				s, err := NewFS(afero.NewMemMapFs(), "/models")
				require.NoError(t, err)
				return s
			},
			corrupt: func(t *testing.T, s Store, rec Record) {
				fsStore := s.(*FS)
				require.NoError(t, afero.WriteFile(fsStore.fs, fsStore.blobPath(rec), []byte("garbage"), 0o644))
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) Store {
				s, err := OpenSQLite(filepath.Join(t.TempDir(), "models.db"))
				require.NoError(t, err)
				return s
			},
			corrupt: func(t *testing.T, s Store, rec Record) {
				db := s.(*SQLite).db
				_, err := db.Exec(`UPDATE models SET data = ? WHERE id = ?`, []byte("garbage"), rec.ID.String())
				require.NoError(t, err)
			},
		},
	}
}

func TestStore_PutGet(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			data := envelopeBytes(t, "uniform_sampler", "generic")
			rec, err := s.Put(ctx, Record{}, data)
			require.NoError(t, err)

			assert.NotEqual(t, uuid.Nil, rec.ID)
			assert.Equal(t, "uniform_sampler", rec.Plugin)
			assert.Equal(t, "generic", rec.Category)
			assert.Equal(t, version.MajorVersion(), rec.Version)
			assert.Equal(t, Digest(data), rec.Digest)
			assert.Equal(t, int64(len(data)), rec.Size)
			assert.False(t, rec.CreatedAt.IsZero())

			got, gotData, err := s.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, data, gotData)
			assert.Equal(t, rec.ID, got.ID)
			assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
			assert.Equal(t, rec.Digest, got.Digest)
		})
	}
}

func TestStore_ListFilter(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			inputs := []struct{ plugin, category string }{
				{"uniform_sampler", "generic"},
				{"dp_histogram", "privacy"},
				{"marginal_distributions", "generic"},
			}
			var ids []uuid.UUID
			for i, in := range inputs {
				rec, err := s.Put(ctx, Record{CreatedAt: base.Add(time.Duration(i) * time.Minute)},
					envelopeBytes(t, in.plugin, in.category))
				require.NoError(t, err)
				ids = append(ids, rec.ID)
			}

			all, err := s.List(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			for i, rec := range all {
				assert.Equal(t, ids[i], rec.ID)
			}

			generic, err := s.List(ctx, Filter{Category: "generic"})
			require.NoError(t, err)
			require.Len(t, generic, 2)
			assert.Equal(t, "uniform_sampler", generic[0].Plugin)
			assert.Equal(t, "marginal_distributions", generic[1].Plugin)

			byPlugin, err := s.List(ctx, Filter{Plugin: "dp_histogram"})
			require.NoError(t, err)
			require.Len(t, byPlugin, 1)
			assert.Equal(t, ids[1], byPlugin[0].ID)

			none, err := s.List(ctx, Filter{Plugin: "dp_histogram", Category: "generic"})
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			rec, err := s.Put(ctx, Record{}, envelopeBytes(t, "dummy_sampler", "generic"))
			require.NoError(t, err)

			require.NoError(t, s.Delete(ctx, rec.ID))
			_, _, err = s.Get(ctx, rec.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, rec.ID), ErrNotFound)

			all, err := s.List(ctx, Filter{})
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestStore_Errors(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			_, _, err := s.Get(ctx, uuid.New())
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = s.Put(ctx, Record{}, nil)
			assert.ErrorIs(t, err, ErrInvalidRecord)

			_, err = s.Put(ctx, Record{}, []byte("not an envelope"))
			assert.ErrorIs(t, err, ErrInvalidRecord)

			_, err = s.Put(ctx, Record{Plugin: "x", Category: "../escape", Version: "0.1"}, []byte("x"))
			assert.ErrorIs(t, err, ErrInvalidRecord)

			rec, err := s.Put(ctx, Record{}, envelopeBytes(t, "dummy_sampler", "generic"))
			require.NoError(t, err)
			_, err = s.Put(ctx, Record{ID: rec.ID}, envelopeBytes(t, "dummy_sampler", "generic"))
			assert.ErrorIs(t, err, ErrInvalidRecord)

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err = s.List(cancelled, Filter{})
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestStore_Corrupt(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			rec, err := s.Put(ctx, Record{}, envelopeBytes(t, "dummy_sampler", "generic"))
			require.NoError(t, err)
			b.corrupt(t, s, rec)

			_, _, err = s.Get(ctx, rec.ID)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestFS_Layout(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := NewFS(fs, "/models")
	require.NoError(t, err)
	ctx := context.Background()

	rec, err := s.Put(ctx, Record{}, envelopeBytes(t, "dp_gaussian", "privacy"))
	require.NoError(t, err)

	ok, err := afero.Exists(fs, "/models/privacy/"+rec.ID.String()+".synth")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = afero.Exists(fs, "/models/index.json")
	require.NoError(t, err)
	assert.True(t, ok)

	// A second store over the same tree sees the indexed record.
	reopened, err := NewFS(fs, "/models")
	require.NoError(t, err)
	got, _, err := reopened.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Digest, got.Digest)
}

func TestSQLite_MigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	rec, err := s.Put(context.Background(), Record{}, envelopeBytes(t, "dummy_sampler", "generic"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	var applied int
	require.NoError(t, reopened.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)

	_, _, err = reopened.Get(context.Background(), rec.ID)
	require.NoError(t, err)
}

func TestUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (x INT);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (x INT);\n", UpMigration(content))
	assert.Equal(t, "CREATE TABLE b (y INT);", UpMigration("CREATE TABLE b (y INT);"))
}

func TestOpen(t *testing.T) {
	s, err := Open(config.Store{Backend: config.BackendMemory})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(config.Store{Backend: config.BackendSQLite, Path: filepath.Join(t.TempDir(), "m.db")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(config.Store{Backend: "redis"})
	assert.Error(t, err)
}
