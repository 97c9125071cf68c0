// Package index persists file metadata in SQLite: paths, derived tags,
// labels, and categories. It is the durable side of organization; everything
// else in the engine treats it as the single source of truth for where an
// indexed file lives.
package index
