package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"filebutler/internal/config"
)

// Store manages file metadata persistence backed by SQLite.
type Store struct {
	db       *sql.DB
	path     string
	maxFiles int
}

// Open initializes or connects to the index database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.IndexPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, maxFiles: cfg.Index.MaxIndexedFiles}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

const recordColumns = `id, path, name, label, caption, category, tags_json, indexed_at`

// FilenamesWithTags returns the set of file names that already carry tags,
// used to decide which files in a batch still need indexing.
func (s *Store) FilenamesWithTags(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT name FROM files WHERE tags_json != '' AND tags_json != '[]'`,
	)
	if err != nil {
		return nil, fmt.Errorf("query tagged filenames: %w", err)
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan filename: %w", err)
		}
		names[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filenames: %w", err)
	}
	return names, nil
}

// GetByPath fetches a record by its exact path. Returns nil when absent.
func (s *Store) GetByPath(ctx context.Context, path string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM files WHERE path = ?`,
		filepath.Clean(path),
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by path: %w", err)
	}
	return record, nil
}

// GetByName fetches the first record matching a file name. Returns nil when
// absent. Used as a fallback when a file moved since it was indexed.
func (s *Store) GetByName(ctx context.Context, name string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM files WHERE name = ? ORDER BY id LIMIT 1`,
		name,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by name: %w", err)
	}
	return record, nil
}

// UpdatePath rewrites the stored path (and name) for a record after a move.
// Returns false when the record does not exist.
func (s *Store) UpdatePath(ctx context.Context, id int64, newPath string) (bool, error) {
	cleaned := filepath.Clean(newPath)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE files SET path = ?, name = ? WHERE id = ?`,
		cleaned,
		filepath.Base(cleaned),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("update path: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Count returns the number of indexed files.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return count, nil
}

func (s *Store) insertOrReplace(ctx context.Context, record *Record) (*Record, error) {
	tags, err := json.Marshal(record.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO files (path, name, label, caption, category, tags_json, indexed_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             name = excluded.name, label = excluded.label, caption = excluded.caption,
             category = excluded.category, tags_json = excluded.tags_json,
             indexed_at = excluded.indexed_at`,
		record.Path,
		record.Name,
		nullableString(record.Label),
		nullableString(record.Caption),
		nullableString(record.Category),
		string(tags),
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		record.ID = id
	}
	return s.GetByPath(ctx, record.Path)
}

func scanRecord(row *sql.Row) (*Record, error) {
	var (
		record    Record
		label     sql.NullString
		caption   sql.NullString
		category  sql.NullString
		tagsJSON  string
		indexedAt string
	)
	if err := row.Scan(
		&record.ID, &record.Path, &record.Name,
		&label, &caption, &category, &tagsJSON, &indexedAt,
	); err != nil {
		return nil, err
	}
	record.Label = label.String
	record.Caption = caption.String
	record.Category = category.String
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &record.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, indexedAt); err == nil {
		record.IndexedAt = ts
	}
	return &record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
