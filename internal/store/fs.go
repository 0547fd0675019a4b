package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	indexFile = "index.json"
	blobExt   = ".synth"
)

// FS stores envelopes as files: <root>/<category>/<id>.synth, with every
// record listed in <root>/index.json.
type FS struct {
	mu    sync.Mutex
	fs    afero.Fs
	root  string
	index map[uuid.UUID]Record
	now   func() time.Time
}

// NewFS opens (creating if needed) a filesystem store under root.
func NewFS(fs afero.Fs, root string) (*FS, error) {
	if root == "" {
		return nil, fmt.Errorf("store: empty root")
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root %s: %w", root, err)
	}
	s := &FS{fs: fs, root: root, index: make(map[uuid.UUID]Record), now: time.Now}
	if err := s.readIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FS) blobPath(rec Record) string {
	return filepath.Join(s.root, rec.Category, rec.ID.String()+blobExt)
}

func (s *FS) readIndex() error {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.root, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read index: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%w: index: %w", ErrCorrupt, err)
	}
	for _, rec := range records {
		s.index[rec.ID] = rec
	}
	return nil
}

// writeIndex rewrites the index through a temporary file and a rename.
func (s *FS) writeIndex() error {
	records := make([]Record, 0, len(s.index))
	for _, rec := range s.index {
		records = append(records, rec)
	}
	sortRecords(records)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode index: %w", err)
	}
	path := filepath.Join(s.root, indexFile)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write index: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: write index: %w", err)
	}
	return nil
}

// Put implements Store.
func (s *FS) Put(ctx context.Context, rec Record, data []byte) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	rec, err := prepare(rec, data, s.now())
	if err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[rec.ID]; ok {
		return Record{}, fmt.Errorf("%w: id %s already stored", ErrInvalidRecord, rec.ID)
	}
	if err := s.fs.MkdirAll(filepath.Join(s.root, rec.Category), 0o755); err != nil {
		return Record{}, fmt.Errorf("store: create category dir: %w", err)
	}
	path := s.blobPath(rec)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return Record{}, fmt.Errorf("store: write %s: %w", path, err)
	}
	s.index[rec.ID] = rec
	if err := s.writeIndex(); err != nil {
		delete(s.index, rec.ID)
		_ = s.fs.Remove(path)
		return Record{}, err
	}
	return rec, nil
}

// Get implements Store.
func (s *FS) Get(ctx context.Context, id uuid.UUID) (Record, []byte, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, nil, err
	}
	s.mu.Lock()
	rec, ok := s.index[id]
	s.mu.Unlock()
	if !ok {
		return Record{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	data, err := afero.ReadFile(s.fs, s.blobPath(rec))
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, nil, fmt.Errorf("%w: %s: blob missing", ErrCorrupt, id)
	}
	if err != nil {
		return Record{}, nil, fmt.Errorf("store: read %s: %w", id, err)
	}
	if err := verify(rec, data); err != nil {
		return Record{}, nil, err
	}
	return rec, data, nil
}

// List implements Store.
func (s *FS) List(ctx context.Context, filter Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]Record, 0, len(s.index))
	for _, rec := range s.index {
		if filter.Match(rec) {
			records = append(records, rec)
		}
	}
	sortRecords(records)
	return records, nil
}

// Delete implements Store.
func (s *FS) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.index, id)
	if err := s.writeIndex(); err != nil {
		s.index[id] = rec
		return err
	}
	if err := s.fs.Remove(s.blobPath(rec)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store: remove %s: %w", id, err)
	}
	return nil
}

// Close implements Store.
func (s *FS) Close() error { return nil }
