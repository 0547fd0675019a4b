// Package store persists fitted plugin envelopes so they can be listed and
// reloaded later by id.
//
// Two backends share the Store interface: a filesystem layout on top of afero
// (also used, over an in-memory afero.Fs, as the memory backend) and a single
// sqlite database file.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/born-ml/synth/internal/config"
	"github.com/born-ml/synth/internal/serialization"
)

var (
	// ErrNotFound is returned when no model exists for an id.
	ErrNotFound = errors.New("store: model not found")
	// ErrCorrupt is returned when stored bytes no longer match their digest.
	ErrCorrupt = errors.New("store: model data corrupt")
	// ErrInvalidRecord is returned when a record cannot be stored.
	ErrInvalidRecord = errors.New("store: invalid record")
)

// Record describes one stored model.
type Record struct {
	ID        uuid.UUID `json:"id" yaml:"id"`
	Plugin    string    `json:"plugin" yaml:"plugin"`
	Category  string    `json:"category" yaml:"category"`
	Version   string    `json:"version" yaml:"version"`
	Digest    string    `json:"digest" yaml:"digest"` // xxhash64 of the envelope bytes, hex
	Size      int64     `json:"size" yaml:"size"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Plugin   string
	Category string
}

// Match reports whether r passes the filter.
func (f Filter) Match(r Record) bool {
	if f.Plugin != "" && f.Plugin != r.Plugin {
		return false
	}
	if f.Category != "" && f.Category != r.Category {
		return false
	}
	return true
}

// Store is a persisted model catalog.
type Store interface {
	// Put stores data and returns the completed record. Plugin, Category and
	// Version are read from the envelope header when left empty.
	Put(ctx context.Context, rec Record, data []byte) (Record, error)
	Get(ctx context.Context, id uuid.UUID) (Record, []byte, error)
	List(ctx context.Context, filter Filter) ([]Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Close() error
}

// Open builds the store selected by cfg.
func Open(cfg config.Store) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendMemory:
		return NewFS(afero.NewMemMapFs(), "/")
	case config.BackendFS:
		return NewFS(afero.NewOsFs(), cfg.Root)
	case config.BackendSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}

// Digest returns the hex xxhash64 of data.
func Digest(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// ParseID parses a textual model id.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: invalid id %q: %w", s, err)
	}
	return id, nil
}

// prepare fills the derived fields of rec for data.
func prepare(rec Record, data []byte, now time.Time) (Record, error) {
	if len(data) == 0 {
		return Record{}, fmt.Errorf("%w: empty data", ErrInvalidRecord)
	}
	if rec.Plugin == "" || rec.Category == "" || rec.Version == "" {
		h, err := serialization.ReadHeader(bytes.NewReader(data))
		if err != nil {
			return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
		if rec.Plugin == "" {
			rec.Plugin = h.Plugin
		}
		if rec.Category == "" {
			rec.Category = h.Category
		}
		if rec.Version == "" {
			rec.Version = h.Version
		}
	}
	if rec.Plugin == "" || rec.Category == "" {
		return Record{}, fmt.Errorf("%w: plugin and category are required", ErrInvalidRecord)
	}
	if strings.ContainsAny(rec.Category, `/\`) || rec.Category == "." || rec.Category == ".." {
		return Record{}, fmt.Errorf("%w: category %q", ErrInvalidRecord, rec.Category)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Millisecond)
	rec.Digest = Digest(data)
	rec.Size = int64(len(data))
	return rec, nil
}

// verify checks data against the digest recorded for it.
func verify(rec Record, data []byte) error {
	if int64(len(data)) != rec.Size || Digest(data) != rec.Digest {
		return fmt.Errorf("%w: %s", ErrCorrupt, rec.ID)
	}
	return nil
}

// sortRecords orders records oldest first, ties broken by id.
func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID.String() < records[j].ID.String()
	})
}
