package organize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"filebutler/internal/fileutil"
	"filebutler/internal/index"
	"filebutler/internal/logging"
)

// IndexUpdater is the slice of the index store the mover needs to keep
// stored paths in sync with moved files.
type IndexUpdater interface {
	GetByPath(ctx context.Context, path string) (*index.Record, error)
	GetByName(ctx context.Context, name string) (*index.Record, error)
	UpdatePath(ctx context.Context, id int64, newPath string) (bool, error)
}

// PinAwareOracle extends exclusion checks with pin migration so a pinned
// file stays pinned at its new location.
type PinAwareOracle interface {
	ExclusionOracle
	PinMoved(oldPath, newPath string) bool
}

// Move records one completed file move.
type Move struct {
	ID     int64
	From   string
	To     string
	Folder string
}

// MoveFailure records one file that could not be moved.
type MoveFailure struct {
	Path string
	Err  error
}

// Report summarizes an execution pass. Touched holds the final location of
// every file the pass handled, including files skipped because they were
// already in place; callers use it to mark files organized.
type Report struct {
	Moves   []Move
	Failed  []MoveFailure
	Skipped int
	Touched []string
}

// Mover executes validated plans against the filesystem.
type Mover struct {
	index  IndexUpdater
	oracle PinAwareOracle
	logger *slog.Logger
}

// NewMover builds a mover. index and oracle may be nil; the corresponding
// bookkeeping is skipped.
func NewMover(idx IndexUpdater, oracle PinAwareOracle, logger *slog.Logger) *Mover {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mover{index: idx, oracle: oracle, logger: logger}
}

// Execute moves every file the plan assigns into its folder under root.
// Files already at their destination are counted as touched without moving,
// which keeps repeated runs from stacking conflict suffixes. A cancelled
// context stops between files and returns the partial report.
func (m *Mover) Execute(ctx context.Context, plan *Plan, filesByID map[int64]string, root string) *Report {
	report := &Report{}
	if plan == nil {
		return report
	}

	for _, folder := range plan.Order {
		destDir := filepath.Join(root, folder)
		for _, id := range plan.Folders[folder] {
			select {
			case <-ctx.Done():
				return report
			default:
			}

			src, ok := filesByID[id]
			if !ok || src == "" {
				continue
			}
			if _, err := os.Stat(src); err != nil {
				continue
			}

			if IsAlreadyInPlace(src, destDir) || NormalizedEqual(filepath.Dir(src), destDir) {
				report.Skipped++
				report.Touched = append(report.Touched, src)
				continue
			}

			dest, err := m.moveIntoFolder(src, destDir)
			if err != nil {
				report.Failed = append(report.Failed, MoveFailure{Path: src, Err: err})
				m.logger.Error("move failed", logging.String(logging.FieldPath, src), logging.Error(err))
				continue
			}

			report.Moves = append(report.Moves, Move{ID: id, From: src, To: dest, Folder: folder})
			report.Touched = append(report.Touched, dest)
			m.logger.Info(
				"organized file",
				logging.String(logging.FieldPath, src),
				logging.String("dest", dest),
				logging.String(logging.FieldFolder, folder),
			)

			m.afterMove(ctx, src, dest)
		}
	}

	if report.Skipped > 0 {
		m.logger.Info("skipped files already in place", logging.Int("skipped", report.Skipped))
	}
	return report
}

// Flatten moves every non-ignored file in subdirectories of root up into
// root, then reaps the directories left empty. Name conflicts get the
// " (n)" suffix so nothing is overwritten.
func (m *Mover) Flatten(ctx context.Context, root string) (int, []MoveFailure) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		m.logger.Warn("cannot flatten, not a directory", logging.String(logging.FieldPath, root))
		return 0, nil
	}

	var candidates []string
	_ = filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if filepath.Dir(path) == root {
			return nil
		}
		if ShouldIgnore(path, m.oracle) {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if len(candidates) == 0 {
		return 0, nil
	}

	moved := 0
	var failures []MoveFailure
	for _, src := range candidates {
		select {
		case <-ctx.Done():
			return moved, failures
		default:
		}

		dest := nextFreePath(root, filepath.Base(src), flattenSuffix)
		if err := moveFile(src, dest); err != nil {
			failures = append(failures, MoveFailure{Path: src, Err: err})
			m.logger.Error("flatten move failed", logging.String(logging.FieldPath, src), logging.Error(err))
			continue
		}
		moved++
		m.logger.Info("flattened file", logging.String(logging.FieldPath, src), logging.String("dest", dest))
		m.afterMove(ctx, src, dest)
	}

	if removed := ReapEmptyDirs(root, m.logger); removed > 0 {
		m.logger.Info("removed empty folders after flatten", logging.Int("removed", removed))
	}
	return moved, failures
}

func (m *Mover) moveIntoFolder(src, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	dest := nextFreePath(destDir, filepath.Base(src), organizeSuffix)
	if err := moveFile(src, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// afterMove keeps pins and the index pointing at the file's new location.
// Both are best-effort; a bookkeeping failure never rolls back the move.
func (m *Mover) afterMove(ctx context.Context, src, dest string) {
	if m.oracle != nil && m.oracle.PinMoved(src, dest) {
		m.logger.Info("updated pin to follow moved file", logging.String(logging.FieldPath, dest))
	}
	if m.index == nil {
		return
	}
	record, err := m.index.GetByPath(ctx, src)
	if err == nil && record == nil {
		record, err = m.index.GetByName(ctx, filepath.Base(src))
	}
	if err != nil || record == nil {
		m.logger.Warn("could not find moved file in index", logging.String(logging.FieldPath, src))
		return
	}
	if _, err := m.index.UpdatePath(ctx, record.ID, dest); err != nil {
		m.logger.Warn("index path update failed", logging.String(logging.FieldPath, dest), logging.Error(err))
	}
}

// organizeSuffix produces name_1.ext style conflict names for plan moves.
func organizeSuffix(stem string, counter int) string {
	return fmt.Sprintf("%s_%d", stem, counter)
}

// flattenSuffix produces "name (1).ext" style conflict names for flattening.
func flattenSuffix(stem string, counter int) string {
	return fmt.Sprintf("%s (%d)", stem, counter)
}

// nextFreePath returns dir/name, or the first suffixed variant that does not
// already exist.
func nextFreePath(dir, name string, suffix func(stem string, counter int) string) string {
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
		return candidate
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for counter := 1; ; counter++ {
		candidate = filepath.Join(dir, suffix(stem, counter)+ext)
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

// moveFile renames src to dest, falling back to copy-and-remove when the
// destination is on a different filesystem.
func moveFile(src, dest string) error {
	renameErr := os.Rename(src, dest)
	if renameErr == nil {
		return nil
	}
	var linkErr *os.LinkError
	if errors.As(renameErr, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if err := fileutil.CopyFile(src, dest); err != nil {
			return fmt.Errorf("cross-device copy: %w", err)
		}
		return os.Remove(src)
	}
	return renameErr
}
