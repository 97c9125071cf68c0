package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"filebutler/internal/index"
	"filebutler/internal/logging"
	"filebutler/internal/organize"
	"filebutler/internal/services"
	"filebutler/internal/services/planner"
)

// Index is the slice of the index store the watcher depends on.
type Index interface {
	FilenamesWithTags(ctx context.Context) (map[string]struct{}, error)
	IndexSingleFile(ctx context.Context, path string, forceAI bool) index.IndexResult
	GetByPath(ctx context.Context, path string) (*index.Record, error)
	GetByName(ctx context.Context, name string) (*index.Record, error)
	UpdatePath(ctx context.Context, id int64, newPath string) (bool, error)
}

// batch is one unit of worker work: a set of files in a folder, the
// instruction in force, and (in organize-as-is mode) the allowed folders.
type batch struct {
	files           []string
	folder          string
	instruction     string
	existingFolders []string
}

// workerResult is delivered on the done channel when a worker exits.
type workerResult struct {
	folder    string
	processed []string
}

// runWorker processes one batch: index what's new, ask the planner, execute
// the sanitized plan. It always delivers a result on done, even on panic, so
// a crashing worker can never wedge the scheduler.
func (w *Watcher) runWorker(ctx context.Context, work batch, done chan<- workerResult) {
	batchID := uuid.NewString()
	ctx = services.WithBatchID(ctx, batchID)
	ctx = services.WithFolder(ctx, work.folder)
	logger := logging.WithContext(ctx, w.logger)

	var processed []string
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker panicked", logging.Any("panic", r))
			w.events.Error("", fmt.Sprintf("worker crashed: %v", r))
		}
		if len(processed) == 0 {
			processed = append(processed, work.files...)
		}
		done <- workerResult{folder: work.folder, processed: processed}
	}()

	logger.Info("worker started", logging.Int("files", len(work.files)))
	if len(work.files) == 0 {
		return
	}

	w.indexBatch(ctx, work.files)
	if ctx.Err() != nil {
		return
	}

	files, filesByID := w.describeBatch(ctx, work.files)
	if len(files) == 0 {
		return
	}

	w.events.StatusChanged(fmt.Sprintf("Analyzing %d file(s)...", len(files)))
	plan, err := w.planner.RequestPlan(ctx, planner.Request{
		Files:           files,
		Instruction:     work.instruction,
		FolderName:      filepath.Base(work.folder),
		ExistingFolders: work.existingFolders,
	})
	if err != nil {
		logger.Error("plan request failed", logging.Error(err))
		w.events.Error("", err.Error())
		w.notifyError(ctx, err, "planning")
		return
	}
	if plan == nil {
		logger.Warn("no usable plan for batch")
		return
	}

	plan = w.sanitizePlan(ctx, plan, filesByID, len(work.existingFolders) > 0)
	if plan == nil {
		return
	}
	if len(work.existingFolders) > 0 {
		plan = organize.Restrict(plan, organize.NewFolderMatcher(work.existingFolders), logger)
	}

	report := w.mover.Execute(ctx, plan, filesByID, work.folder)
	for _, move := range report.Moves {
		w.events.FileOrganized(move.From, move.To, move.Folder)
	}
	for _, failure := range report.Failed {
		w.events.Error(failure.Path, failure.Err.Error())
	}
	processed = report.Touched

	switch {
	case len(report.Moves) > 0:
		w.events.StatusChanged(fmt.Sprintf("Organized %d file(s)", len(report.Moves)))
		w.notifyBatch(ctx, work.folder, len(report.Moves), len(plan.Order))
	default:
		w.events.StatusChanged("All files already organized")
	}
	logger.Info(
		"worker finished",
		logging.Int("moved", len(report.Moves)),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", len(report.Failed)),
	)
}

// indexBatch indexes files that don't yet carry tags. Indexing stops at the
// capacity limit but the batch continues with whatever metadata exists.
func (w *Watcher) indexBatch(ctx context.Context, files []string) {
	logger := logging.WithContext(ctx, w.logger)

	tagged, err := w.index.FilenamesWithTags(ctx)
	if err != nil {
		logger.Warn("could not load tagged filenames", logging.Error(err))
		tagged = map[string]struct{}{}
	}

	var toIndex []string
	for _, path := range files {
		if _, ok := tagged[filepath.Base(path)]; !ok {
			toIndex = append(toIndex, path)
		}
	}
	if len(toIndex) == 0 {
		return
	}

	w.events.StatusChanged(fmt.Sprintf("Indexing %d new file(s)...", len(toIndex)))
	indexed := 0
	for i, path := range toIndex {
		if ctx.Err() != nil {
			return
		}
		result := w.index.IndexSingleFile(ctx, path, false)
		switch {
		case result.LimitReached:
			logger.Warn("index limit reached, skipping remaining files", logging.Int("remaining", len(toIndex)-i))
			w.events.Error(path, "file index limit reached")
			w.notifyIndexLimit(ctx)
			return
		case result.Err != nil:
			logger.Warn("index failed", logging.String(logging.FieldPath, path), logging.Error(result.Err))
		case result.Success:
			indexed++
			w.events.FileIndexed(path)
		}
		if i < len(toIndex)-1 {
			w.pause(ctx, w.cfg.IndexPause())
		}
	}
	if indexed > 0 {
		logger.Info("indexed new files", logging.Int("indexed", indexed))
		w.events.StatusChanged(fmt.Sprintf("Indexed %d file(s), now organizing...", indexed))
	}
}

// describeBatch assigns sequential IDs (1..n) to the batch and enriches each
// entry with index metadata. The planner only ever sees these batch-local
// IDs, never database rows.
func (w *Watcher) describeBatch(ctx context.Context, paths []string) ([]planner.FileInfo, map[int64]string) {
	files := make([]planner.FileInfo, 0, len(paths))
	filesByID := make(map[int64]string, len(paths))

	for i, path := range paths {
		id := int64(i + 1)
		info := planner.FileInfo{
			ID:   id,
			Name: filepath.Base(path),
			Ext:  filepath.Ext(path),
		}
		if stat, err := os.Stat(path); err == nil {
			info.Size = stat.Size()
		}
		if record, err := w.index.GetByPath(ctx, path); err == nil && record != nil {
			info.Label = record.Label
			info.Caption = record.Caption
			info.Tags = record.Tags
		}
		files = append(files, info)
		filesByID[id] = path
	}
	return files, filesByID
}

// sanitizePlan runs the repair and safety pipeline. Restricted batches are
// never topped up with a fallback folder; their leftover files stay put.
func (w *Watcher) sanitizePlan(ctx context.Context, plan *organize.Plan, filesByID map[int64]string, restricted bool) *organize.Plan {
	logger := logging.WithContext(ctx, w.logger)

	validIDs := make(map[int64]struct{}, len(filesByID))
	for id := range filesByID {
		validIDs[id] = struct{}{}
	}

	plan = organize.Deduplicate(plan, logger)
	plan = organize.DiscardUnknown(plan, validIDs, logger)
	if !restricted {
		plan = organize.EnsureAllIncluded(plan, validIDs, logger)
	}

	if problems := organize.Validate(plan, validIDs); len(problems) > 0 {
		logger.Warn("plan failed validation", logging.Any("problems", problems))
		w.events.Error("", fmt.Sprintf("plan rejected: %v", problems))
		return nil
	}
	return plan
}

func (w *Watcher) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (w *Watcher) notifyBatch(ctx context.Context, folder string, moved, folders int) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.NotifyBatchOrganized(ctx, folder, moved, folders); err != nil {
		w.logger.Warn("batch notification failed", logging.Error(err))
	}
}

func (w *Watcher) notifyError(ctx context.Context, err error, label string) {
	if w.notifier == nil {
		return
	}
	if notifyErr := w.notifier.NotifyError(ctx, err, label); notifyErr != nil {
		w.logger.Warn("error notification failed", logging.Error(notifyErr))
	}
}

func (w *Watcher) notifyIndexLimit(ctx context.Context) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.NotifyIndexLimitReached(ctx, w.cfg.Index.MaxIndexedFiles); err != nil {
		w.logger.Warn("index limit notification failed", logging.Error(err))
	}
}
