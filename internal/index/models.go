package index

import "time"

// Record is one indexed file with its derived metadata.
type Record struct {
	ID        int64
	Path      string
	Name      string
	Label     string
	Caption   string
	Category  string
	Tags      []string
	IndexedAt time.Time
}

// IndexResult reports the outcome of indexing a single file. LimitReached is
// distinct from Err: it means the store refused the file because the
// configured capacity is exhausted, and callers should stop submitting more.
type IndexResult struct {
	Success      bool
	LimitReached bool
	Err          error
}
