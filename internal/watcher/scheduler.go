package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"filebutler/internal/config"
	"filebutler/internal/logging"
	"filebutler/internal/notifications"
	"filebutler/internal/organize"
	"filebutler/internal/services/planner"
)

// Watcher polls folders for new files and drives the organize pipeline.
// All exported methods are safe for concurrent use.
type Watcher struct {
	cfg      *config.Config
	logger   *slog.Logger
	index    Index
	planner  planner.Service
	oracle   organize.PinAwareOracle
	notifier notifications.Service
	events   Events
	mover    *organize.Mover

	mu           sync.Mutex
	folders      []string
	instructions map[string]string
	running      bool
	busy         bool
	checkCount   int
	pending      map[string]time.Time
	processed    map[string]struct{}
	organized    map[string]struct{}
	queue        []batch
	cancel       context.CancelFunc
	loopDone     chan struct{}

	done chan workerResult
}

// New assembles a watcher from its collaborators. events may be nil.
func New(
	cfg *config.Config,
	idx Index,
	plannerSvc planner.Service,
	oracle organize.PinAwareOracle,
	notifier notifications.Service,
	events Events,
	logger *slog.Logger,
) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if events == nil {
		events = NopEvents{}
	}
	logger = logger.With(logging.String(logging.FieldComponent, "watcher"))
	return &Watcher{
		cfg:          cfg,
		logger:       logger,
		index:        idx,
		planner:      plannerSvc,
		oracle:       oracle,
		notifier:     notifier,
		events:       events,
		mover:        organize.NewMover(idx, oracle, logger),
		instructions: make(map[string]string),
		pending:      make(map[string]time.Time),
		processed:    make(map[string]struct{}),
		organized:    make(map[string]struct{}),
		done:         make(chan workerResult, 1),
	}
}

// AddFolder registers a directory for watching. Returns an error when the
// path is not a directory.
func (w *Watcher) AddFolder(folder string) error {
	folder = filepath.Clean(folder)
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("not a valid directory: %s", folder)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.folders {
		if organize.NormalizedEqual(existing, folder) {
			return nil
		}
	}
	w.folders = append(w.folders, folder)
	w.logger.Info("added watch folder", logging.String(logging.FieldFolder, folder))
	return nil
}

// RemoveFolder drops a directory from the watch list.
func (w *Watcher) RemoveFolder(folder string) {
	folder = filepath.Clean(folder)
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, existing := range w.folders {
		if organize.NormalizedEqual(existing, folder) {
			w.folders = slices.Delete(w.folders, i, i+1)
			w.logger.Info("removed watch folder", logging.String(logging.FieldFolder, folder))
			return
		}
	}
}

// ClearFolders drops every watched folder and its instruction.
func (w *Watcher) ClearFolders() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.folders = nil
	w.instructions = make(map[string]string)
	w.logger.Info("cleared all watch folders")
}

// Folders returns the current watch list.
func (w *Watcher) Folders() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.folders)
}

// SetInstruction records the organization instruction for a folder.
func (w *Watcher) SetInstruction(folder, instruction string) {
	folder = filepath.Clean(folder)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.instructions[folder] = instruction
}

// InstructionFor returns the instruction configured for a folder.
func (w *Watcher) InstructionFor(folder string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.instructions[filepath.Clean(folder)]
}

// IsRunning reports whether the polling loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Start begins watching. Depending on opts it first flattens folder trees
// and organizes files already present, then launches the polling loop.
func (w *Watcher) Start(ctx context.Context, opts StartOptions) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	if len(w.folders) == 0 {
		w.mu.Unlock()
		w.events.StatusChanged("No folders configured to watch")
		return errors.New("no folders to watch")
	}
	w.running = true
	w.pending = make(map[string]time.Time)
	w.processed = make(map[string]struct{})
	w.checkCount = 0
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.loopDone = make(chan struct{})
	folders := slices.Clone(w.folders)
	w.mu.Unlock()

	// A worker result left over from a previous run must not be mistaken
	// for fresh work.
	select {
	case <-w.done:
	default:
	}

	w.events.StatusChanged(fmt.Sprintf("Starting watch on %d folder(s)...", len(folders)))
	w.logger.Info("starting watcher", logging.Int("folders", len(folders)))

	if opts.FlattenFirst {
		total := 0
		for _, folder := range folders {
			moved, _ := w.mover.Flatten(runCtx, folder)
			total += moved
		}
		if total > 0 {
			w.events.StatusChanged(fmt.Sprintf("Flattened %d files from subfolders", total))
		}
	}
	if opts.OrganizeExisting {
		w.organizeExisting(runCtx, folders, opts.CatchUpSince)
	}

	if w.notifier != nil {
		if err := w.notifier.NotifyWatchStarted(runCtx, len(folders)); err != nil {
			w.logger.Warn("watch start notification failed", logging.Error(err))
		}
	}

	go w.run(runCtx)
	w.events.StatusChanged(w.watchingStatus())
	return nil
}

// Stop halts the polling loop, waiting up to the configured grace period.
// A worker mid-batch is cancelled; its late result is absorbed by the done
// channel's buffer on the next Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	loopDone := w.loopDone
	w.pending = make(map[string]time.Time)
	w.queue = nil
	w.mu.Unlock()

	cancel()
	select {
	case <-loopDone:
	case <-time.After(w.cfg.StopGrace()):
		w.logger.Warn("watcher loop did not stop within grace period")
	}

	w.mu.Lock()
	w.busy = false
	w.mu.Unlock()

	w.events.StatusChanged("Watcher stopped")
	w.logger.Info("watcher stopped")
	if w.notifier != nil {
		if err := w.notifier.NotifyWatchStopped(context.Background()); err != nil {
			w.logger.Warn("watch stop notification failed", logging.Error(err))
		}
	}
}

// OrganizeSingleFolder organizes one folder on demand. With flattenFirst the
// folder structure is rebuilt from scratch; without it, only the folder's
// existing subfolders may receive files. Returns true when a batch was
// dispatched; callers waiting on completion can then expect a BatchFinished
// callback.
func (w *Watcher) OrganizeSingleFolder(ctx context.Context, folder string, flattenFirst bool) bool {
	folder = filepath.Clean(folder)
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		w.logger.Warn("cannot organize, not a directory", logging.String(logging.FieldFolder, folder))
		return false
	}

	w.mu.Lock()
	instruction := w.instructions[folder]
	w.mu.Unlock()

	if flattenFirst {
		if moved, _ := w.mover.Flatten(ctx, folder); moved > 0 {
			w.events.StatusChanged(fmt.Sprintf("Flattened %d files, now organizing...", moved))
		}
	}

	var existing []string
	if !flattenFirst {
		existing = existingSubfolders(folder)
	}

	files := w.scanFolderTree(folder, false)
	if len(files) == 0 {
		w.events.StatusChanged(fmt.Sprintf("No files to organize in %s", filepath.Base(folder)))
		return false
	}

	w.events.StatusChanged(fmt.Sprintf("Organizing %d files in %s...", len(files), filepath.Base(folder)))

	w.mu.Lock()
	loopRunning := w.running
	w.mu.Unlock()

	w.dispatch(ctx, batch{files: files, folder: folder, instruction: instruction, existingFolders: existing})

	// Without a polling loop there is nobody to collect the worker's result,
	// so one-shot invocations drain it themselves.
	if !loopRunning {
		go func() {
			select {
			case result := <-w.done:
				w.onWorkerFinished(ctx, result)
			case <-ctx.Done():
			}
		}()
	}
	return true
}

// OrganizeFolders applies a per-folder choice: rebuild, organize in place,
// or leave alone. It returns the number of batches dispatched; callers
// waiting on completion can expect that many BatchFinished callbacks.
func (w *Watcher) OrganizeFolders(ctx context.Context, choices map[string]FolderChoice) int {
	dispatched := 0
	for folder, choice := range choices {
		switch choice {
		case ReorganizeAll:
			if w.OrganizeSingleFolder(ctx, folder, true) {
				dispatched++
			}
		case OrganizeAsIs:
			if w.OrganizeSingleFolder(ctx, folder, false) {
				dispatched++
			}
		case ContinueWatching:
			// Polling picks up new files; nothing to do now.
		}
	}
	return dispatched
}

// organizeExisting batches up the files already present in each folder,
// honoring the catch-up cutoff.
func (w *Watcher) organizeExisting(ctx context.Context, folders []string, cutoff time.Time) {
	total := 0
	for _, folder := range folders {
		var files []string
		for _, path := range w.scanFolderTree(folder, false) {
			if modifiedSince(path, cutoff) {
				files = append(files, path)
			}
		}
		if len(files) == 0 {
			continue
		}
		total += len(files)
		w.mu.Lock()
		instruction := w.instructions[folder]
		w.mu.Unlock()
		w.dispatch(ctx, batch{files: files, folder: folder, instruction: instruction})
	}
	if total == 0 {
		w.events.StatusChanged("No existing files to organize")
		return
	}
	w.events.StatusChanged(fmt.Sprintf("Organizing %d existing files...", total))
	w.logger.Info("organizing existing files", logging.Int("files", total))
}

// run is the scheduler loop. It owns the poll timer, worker completion
// handling, and the periodic empty-folder cleanup.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.loopDone)
	for {
		select {
		case <-ctx.Done():
			return
		case result := <-w.done:
			w.onWorkerFinished(ctx, result)
		case <-time.After(w.cfg.PollInterval()):
			w.tick(ctx)
		}
	}
}

// tick is one poll pass: periodic cleanup, then new-file detection with
// debouncing. A file dispatches only after sitting unchanged in pending for
// the debounce threshold.
func (w *Watcher) tick(ctx context.Context) {
	w.mu.Lock()
	w.checkCount++
	runCleanup := w.checkCount >= w.cfg.Watcher.CleanupEveryTick
	if runCleanup {
		w.checkCount = 0
	}
	folders := slices.Clone(w.folders)
	w.mu.Unlock()

	if runCleanup {
		for _, folder := range folders {
			if removed := organize.ReapEmptyDirs(folder, w.logger); removed > 0 {
				w.logger.Info(
					"periodic cleanup removed empty folders",
					logging.String(logging.FieldFolder, folder),
					logging.Int("removed", removed),
				)
			}
		}
	}

	now := time.Now()
	present := make(map[string]struct{})
	for _, folder := range folders {
		for _, path := range w.listNewTopLevelFiles(folder) {
			present[path] = struct{}{}

			w.mu.Lock()
			firstSeen, seen := w.pending[path]
			if !seen {
				w.pending[path] = now
				w.mu.Unlock()
				w.logger.Debug("new file detected", logging.String(logging.FieldPath, path))
				continue
			}
			stable := now.Sub(firstSeen) >= w.cfg.DebounceThreshold()
			if stable {
				delete(w.pending, path)
			}
			instruction := w.instructions[folder]
			w.mu.Unlock()

			if stable {
				w.dispatch(ctx, batch{files: []string{path}, folder: folder, instruction: instruction})
			}
		}
	}

	// Files that vanished or were organized while pending must not linger;
	// a name reappearing later counts as a fresh sighting.
	w.mu.Lock()
	for path := range w.pending {
		if _, ok := present[path]; !ok {
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()
}

// dispatch hands a batch to the worker, or queues its folder when a worker
// is already running. Queue entries coalesce per folder: a folder already
// waiting is not queued again, because the queued entry re-scans the folder
// and will pick up these files too.
func (w *Watcher) dispatch(ctx context.Context, work batch) {
	w.mu.Lock()
	if w.busy {
		for _, queued := range w.queue {
			if organize.NormalizedEqual(queued.folder, work.folder) {
				w.mu.Unlock()
				w.logger.Debug("folder already queued, skipping duplicate", logging.String(logging.FieldFolder, work.folder))
				return
			}
		}
		w.queue = append(w.queue, work)
		w.mu.Unlock()
		w.logger.Info("worker busy, queued folder", logging.String(logging.FieldFolder, work.folder))
		return
	}
	w.busy = true
	w.mu.Unlock()

	w.logger.Info(
		"starting worker",
		logging.String(logging.FieldFolder, work.folder),
		logging.Int("files", len(work.files)),
	)
	go w.runWorker(ctx, work, w.done)
}

// onWorkerFinished records what the batch touched, then drains the queue:
// each queued folder is re-scanned from disk, skipping files already
// organized, so stale queue entries cannot re-move fresh results. A folder
// with nothing new is dropped along with its duplicates.
func (w *Watcher) onWorkerFinished(ctx context.Context, result workerResult) {
	w.mu.Lock()
	for _, path := range result.processed {
		cleaned := filepath.Clean(path)
		w.organized[cleaned] = struct{}{}
		w.processed[cleaned] = struct{}{}
	}
	w.busy = false
	w.mu.Unlock()

	w.logger.Info(
		"worker finished, marked files organized",
		logging.String(logging.FieldFolder, result.folder),
		logging.Int("files", len(result.processed)),
	)
	w.events.BatchFinished(result.folder, result.processed)

	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.mu.Unlock()
			w.events.StatusChanged(w.watchingStatus())
			return
		}
		next := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		files := w.scanFolderTree(next.folder, true)
		if len(files) > 0 {
			next.files = files
			w.mu.Lock()
			w.busy = true
			w.mu.Unlock()
			w.logger.Info(
				"processing queued folder",
				logging.String(logging.FieldFolder, next.folder),
				logging.Int("files", len(files)),
			)
			go w.runWorker(ctx, next, w.done)
			return
		}

		w.logger.Info("queued folder has no new files", logging.String(logging.FieldFolder, next.folder))
		w.mu.Lock()
		remaining := w.queue[:0:0]
		for _, queued := range w.queue {
			if !organize.NormalizedEqual(queued.folder, next.folder) {
				remaining = append(remaining, queued)
			}
		}
		w.queue = remaining
		w.mu.Unlock()
	}
}

func (w *Watcher) watchingStatus() string {
	w.mu.Lock()
	count := len(w.folders)
	w.mu.Unlock()
	return fmt.Sprintf("Watching %d folder(s) for new files...", count)
}

func (w *Watcher) isProcessed(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.processed[filepath.Clean(path)]
	return ok
}

func (w *Watcher) isOrganized(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.organized[filepath.Clean(path)]
	return ok
}
