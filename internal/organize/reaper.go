package organize

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filebutler/internal/logging"
)

// ReapEmptyDirs removes empty directories under root, deepest first so that
// a chain of nested empty folders collapses in one pass. The root itself and
// hidden directories are never removed. Returns how many were deleted.
func ReapEmptyDirs(root string, logger *slog.Logger) int {
	root = filepath.Clean(root)
	if logger == nil {
		logger = logging.NewNop()
	}

	var dirs []string
	_ = filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil || !entry.IsDir() {
			return nil
		}
		if filepath.Clean(path) == root {
			return nil
		}
		if strings.HasPrefix(filepath.Base(path), ".") {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})

	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(filepath.Separator)) > strings.Count(dirs[j], string(filepath.Separator))
	})

	removed := 0
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			logger.Debug("could not remove empty folder", logging.String(logging.FieldPath, dir), logging.Error(err))
			continue
		}
		removed++
		logger.Debug("removed empty folder", logging.String(logging.FieldPath, dir))
	}
	if removed > 0 {
		logger.Info("removed empty folders", logging.Int("removed", removed))
	}
	return removed
}
