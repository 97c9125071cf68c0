package index

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    label TEXT,
    caption TEXT,
    category TEXT,
    tags_json TEXT NOT NULL DEFAULT '[]',
    indexed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_name ON files(name);
`

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
