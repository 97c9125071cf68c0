package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"filebutler/internal/organize"
)

// scanFolderTree walks folder and its subdirectories (hidden ones skipped)
// and returns every file that passes the ignore rules. When excludeOrganized
// is set, files recorded as already organized are filtered out so completed
// batches are not reprocessed.
func (w *Watcher) scanFolderTree(folder string, excludeOrganized bool) []string {
	folder = filepath.Clean(folder)
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return nil
	}

	var paths []string
	_ = filepath.WalkDir(folder, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if path != folder && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if organize.ShouldIgnore(path, w.oracle) {
			return nil
		}
		if excludeOrganized && w.isOrganized(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	return paths
}

// listNewTopLevelFiles returns files sitting directly in folder that have not
// been processed yet. Detection is deliberately shallow; organized batches
// create subfolders the poll must not descend into.
func (w *Watcher) listNewTopLevelFiles(folder string) []string {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		if organize.ShouldIgnore(path, w.oracle) {
			continue
		}
		if w.isProcessed(path) || w.isOrganized(path) {
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

// existingSubfolders lists the visible directories directly inside folder,
// the candidate targets for organize-as-is mode.
func existingSubfolders(folder string) []string {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	return names
}

// modifiedSince reports whether the file at path was modified at or after
// cutoff. Unreadable files pass the filter so they are not silently dropped.
func modifiedSince(path string, cutoff time.Time) bool {
	if cutoff.IsZero() {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return !info.ModTime().Before(cutoff)
}
