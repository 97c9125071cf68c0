package index

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"filebutler/internal/services"
)

// IndexSingleFile derives metadata for one file and persists it. When forceAI
// is false, a file that is already indexed at the same path is left untouched.
// A LimitReached result means the configured capacity is exhausted; callers
// should stop submitting files but may continue with whatever was indexed.
func (s *Store) IndexSingleFile(ctx context.Context, path string, forceAI bool) IndexResult {
	cleaned := filepath.Clean(path)

	existing, err := s.GetByPath(ctx, cleaned)
	if err != nil {
		return IndexResult{Err: err}
	}
	if existing != nil && !forceAI {
		return IndexResult{Success: true}
	}

	if existing == nil && s.maxFiles > 0 {
		count, err := s.Count(ctx)
		if err != nil {
			return IndexResult{Err: err}
		}
		if count >= int64(s.maxFiles) {
			return IndexResult{
				LimitReached: true,
				Err:          services.Wrap(services.ErrCapacity, "indexing", "index file", "file index is full", nil),
			}
		}
	}

	name := filepath.Base(cleaned)
	record := &Record{
		Path:     cleaned,
		Name:     name,
		Label:    strings.TrimSuffix(name, filepath.Ext(name)),
		Category: categorize(name),
		Tags:     deriveTags(name),
	}
	if _, err := s.insertOrReplace(ctx, record); err != nil {
		return IndexResult{Err: err}
	}
	return IndexResult{Success: true}
}

var categoriesByExt = map[string]string{
	".jpg": "photos", ".jpeg": "photos", ".png": "photos", ".gif": "photos",
	".heic": "photos", ".webp": "photos", ".svg": "photos", ".bmp": "photos",
	".pdf": "docs", ".doc": "docs", ".docx": "docs", ".txt": "docs",
	".md": "docs", ".rtf": "docs", ".odt": "docs", ".xls": "docs",
	".xlsx": "docs", ".csv": "docs", ".ppt": "docs", ".pptx": "docs",
	".mp4": "videos", ".mov": "videos", ".mkv": "videos", ".avi": "videos",
	".webm": "videos",
	".mp3": "audio", ".wav": "audio", ".flac": "audio", ".m4a": "audio",
	".ogg": "audio",
	".zip": "archives", ".tar": "archives", ".gz": "archives",
	".rar": "archives", ".7z": "archives",
}

func categorize(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if category, ok := categoriesByExt[ext]; ok {
		return category
	}
	return "misc"
}

const maxDerivedTags = 8

func deriveTags(name string) []string {
	seen := map[string]struct{}{}
	tags := make([]string, 0, maxDerivedTags)

	add := func(tag string) {
		if tag == "" || len(tags) >= maxDerivedTags {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	add(categorize(name))
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")); ext != "" {
		add(ext)
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	tokens := strings.FieldsFunc(strings.ToLower(stem), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sort.SliceStable(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })
	for _, token := range tokens {
		if len(token) >= 3 {
			add(token)
		}
	}
	return tags
}
