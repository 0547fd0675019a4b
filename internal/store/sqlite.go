package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/born-ml/synth/internal/store/migrations"
)

// SQLite stores envelopes as blobs in a single sqlite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// OpenSQLite opens the database at path and applies the embedded migrations.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store: sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ApplyMigrations(context.Background(), db, migrations.FS, ""); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Put implements Store.
func (s *SQLite) Put(ctx context.Context, rec Record, data []byte) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	rec, err := prepare(rec, data, s.now())
	if err != nil {
		return Record{}, err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO models (id, plugin, category, version, digest, size, created_at, data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Plugin, rec.Category, rec.Version,
		rec.Digest, rec.Size, toMillis(rec.CreatedAt), data,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Record{}, fmt.Errorf("%w: id %s already stored", ErrInvalidRecord, rec.ID)
		}
		return Record{}, fmt.Errorf("store: insert model: %w", err)
	}
	return rec, nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, id uuid.UUID) (Record, []byte, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, nil, err
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, plugin, category, version, digest, size, created_at, data
FROM models WHERE id = ?`, id.String())

	var data []byte
	rec, err := scanRecord(row, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, nil, fmt.Errorf("store: get model: %w", err)
	}
	if err := verify(rec, data); err != nil {
		return Record{}, nil, err
	}
	return rec, data, nil
}

// List implements Store.
func (s *SQLite) List(ctx context.Context, filter Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := `SELECT id, plugin, category, version, digest, size, created_at FROM models`
	var (
		where []string
		args  []any
	)
	if filter.Plugin != "" {
		where = append(where, "plugin = ?")
		args = append(args, filter.Plugin)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list models: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("store: list models: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list models: %w", err)
	}
	return records, nil
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("store: delete model: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete model: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row; data receives the blob column when non-nil.
func scanRecord(row scanner, data *[]byte) (Record, error) {
	var (
		rec     Record
		id      string
		created int64
	)
	dest := []any{&id, &rec.Plugin, &rec.Category, &rec.Version, &rec.Digest, &rec.Size, &created}
	if data != nil {
		dest = append(dest, data)
	}
	if err := row.Scan(dest...); err != nil {
		return Record{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Record{}, fmt.Errorf("%w: id %q", ErrCorrupt, id)
	}
	rec.ID = parsed
	rec.CreatedAt = fromMillis(created)
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
