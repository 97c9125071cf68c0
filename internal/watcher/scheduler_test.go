package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"filebutler/internal/config"
	"filebutler/internal/index"
	"filebutler/internal/organize"
	"filebutler/internal/services/planner"
)

type fakeIndex struct {
	mu       sync.Mutex
	nextID   int64
	records  map[string]*index.Record
	indexed  []string
	atLimit  bool
	failNext bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: make(map[string]*index.Record)}
}

func (f *fakeIndex) FilenamesWithTags(ctx context.Context) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make(map[string]struct{}, len(f.records))
	for _, record := range f.records {
		if len(record.Tags) > 0 {
			names[record.Name] = struct{}{}
		}
	}
	return names, nil
}

func (f *fakeIndex) IndexSingleFile(ctx context.Context, path string, forceAI bool) index.IndexResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.atLimit {
		return index.IndexResult{LimitReached: true}
	}
	if f.failNext {
		f.failNext = false
		return index.IndexResult{Err: os.ErrPermission}
	}
	f.nextID++
	f.records[path] = &index.Record{
		ID:   f.nextID,
		Path: path,
		Name: filepath.Base(path),
		Tags: []string{"tagged"},
	}
	f.indexed = append(f.indexed, path)
	return index.IndexResult{Success: true}
}

func (f *fakeIndex) GetByPath(ctx context.Context, path string) (*index.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[path], nil
}

func (f *fakeIndex) GetByName(ctx context.Context, name string) (*index.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.Name == name {
			return record, nil
		}
	}
	return nil, nil
}

func (f *fakeIndex) UpdatePath(ctx context.Context, id int64, newPath string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for path, record := range f.records {
		if record.ID == id {
			delete(f.records, path)
			record.Path = newPath
			f.records[newPath] = record
			return true, nil
		}
	}
	return false, nil
}

type fakePlanner struct {
	mu       sync.Mutex
	requests []planner.Request
	respond  func(planner.Request) (*organize.Plan, error)
}

func (f *fakePlanner) RequestPlan(ctx context.Context, req planner.Request) (*organize.Plan, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return nil, nil
	}
	return respond(req)
}

func (f *fakePlanner) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeOracle struct{}

func (fakeOracle) ShouldExclude(string) bool { return false }
func (fakeOracle) IsPinned(string) bool      { return false }
func (fakeOracle) PinMoved(_, _ string) bool { return false }

type recordingEvents struct {
	mu       sync.Mutex
	indexed  []string
	moves    []string
	statuses []string
	errors   []string
	finished chan string
}

func newRecordingEvents() *recordingEvents {
	return &recordingEvents{finished: make(chan string, 16)}
}

func (r *recordingEvents) FileIndexed(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, path)
}

func (r *recordingEvents) FileOrganized(source, dest, folder string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moves = append(r.moves, dest)
}

func (r *recordingEvents) StatusChanged(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *recordingEvents) Error(path string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

func (r *recordingEvents) BatchFinished(folder string, processed []string) {
	select {
	case r.finished <- folder:
	default:
	}
}

func (r *recordingEvents) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func (r *recordingEvents) moveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.moves)
}

func newTestWatcher(t *testing.T) (*Watcher, *fakeIndex, *fakePlanner, *recordingEvents) {
	t.Helper()
	cfg := config.Default()
	cfg.Watcher.IndexPauseMillis = 0
	idx := newFakeIndex()
	plan := &fakePlanner{}
	events := newRecordingEvents()
	w := New(&cfg, idx, plan, fakeOracle{}, nil, events, nil)
	return w, idx, plan, events
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitForBatch(t *testing.T, events *recordingEvents) string {
	t.Helper()
	select {
	case folder := <-events.finished:
		return folder
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch to finish")
		return ""
	}
}

func singleFolderPlan(folder string, ids ...int64) func(planner.Request) (*organize.Plan, error) {
	return func(req planner.Request) (*organize.Plan, error) {
		plan := organize.NewPlan()
		for _, id := range ids {
			plan.Add(folder, id)
		}
		return plan, nil
	}
}

func TestAddRemoveFolders(t *testing.T) {
	w, _, _, _ := newTestWatcher(t)
	dir := t.TempDir()

	if err := w.AddFolder(dir); err != nil {
		t.Fatalf("AddFolder: %v", err)
	}
	if err := w.AddFolder(dir); err != nil {
		t.Fatalf("duplicate AddFolder: %v", err)
	}
	if got := len(w.Folders()); got != 1 {
		t.Fatalf("folders = %d, want 1", got)
	}

	if err := w.AddFolder(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}

	w.SetInstruction(dir, "by topic")
	if got := w.InstructionFor(dir); got != "by topic" {
		t.Fatalf("instruction = %q", got)
	}

	w.RemoveFolder(dir)
	if got := len(w.Folders()); got != 0 {
		t.Fatalf("folders after remove = %d, want 0", got)
	}
}

func TestStartRequiresFolders(t *testing.T) {
	w, _, _, _ := newTestWatcher(t)
	if err := w.Start(context.Background(), StartOptions{}); err == nil {
		t.Fatal("expected error starting with no folders")
	}
	if w.IsRunning() {
		t.Fatal("watcher should not be running")
	}
}

func TestTickDebouncesNewFiles(t *testing.T) {
	w, _, plan, _ := newTestWatcher(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	writeFile(t, path)
	if err := w.AddFolder(dir); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	// First sighting only records the file as pending.
	w.tick(ctx)
	if plan.requestCount() != 0 {
		t.Fatal("file dispatched before debounce elapsed")
	}

	// Still within the debounce window.
	w.tick(ctx)
	if plan.requestCount() != 0 {
		t.Fatal("file dispatched before debounce elapsed")
	}

	w.mu.Lock()
	w.pending[path] = time.Now().Add(-w.cfg.DebounceThreshold() - time.Second)
	w.mu.Unlock()

	plan.respond = singleFolderPlan("Documents", 1)
	w.tick(ctx)

	result := <-w.done
	if len(result.processed) != 1 {
		t.Fatalf("processed = %v, want one file", result.processed)
	}
	want := filepath.Join(dir, "Documents", "report.pdf")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("file not organized to %s: %v", want, err)
	}
	w.mu.Lock()
	pendingLeft := len(w.pending)
	w.mu.Unlock()
	if pendingLeft != 0 {
		t.Fatalf("pending entries left = %d, want 0", pendingLeft)
	}
}

func TestTickDropsVanishedPendingFiles(t *testing.T) {
	w, _, plan, _ := newTestWatcher(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "ephemeral.txt")
	writeFile(t, path)
	if err := w.AddFolder(dir); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	w.tick(ctx)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	w.mu.Lock()
	w.pending[path] = time.Now().Add(-w.cfg.DebounceThreshold() - time.Second)
	w.mu.Unlock()

	w.tick(ctx)

	if plan.requestCount() != 0 {
		t.Fatal("vanished file must never dispatch")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) != 0 {
		t.Fatalf("pending = %v, want empty", w.pending)
	}
}

func TestDispatchCoalescesPerFolder(t *testing.T) {
	w, _, _, _ := newTestWatcher(t)
	ctx := context.Background()

	w.mu.Lock()
	w.busy = true
	w.mu.Unlock()

	w.dispatch(ctx, batch{folder: "/watch/a", files: []string{"/watch/a/x.txt"}})
	w.dispatch(ctx, batch{folder: "/watch/a", files: []string{"/watch/a/y.txt"}})
	w.dispatch(ctx, batch{folder: "/watch/b", files: []string{"/watch/b/z.txt"}})

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) != 2 {
		t.Fatalf("queue length = %d, want 2", len(w.queue))
	}
	if w.queue[0].folder != "/watch/a" || w.queue[1].folder != "/watch/b" {
		t.Fatalf("unexpected queue order: %q, %q", w.queue[0].folder, w.queue[1].folder)
	}
}

func TestWorkerFinishedDrainsQueue(t *testing.T) {
	w, _, plan, _ := newTestWatcher(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	writeFile(t, path)

	plan.respond = singleFolderPlan("Notes", 1)

	w.mu.Lock()
	w.busy = true
	w.queue = []batch{{folder: dir}}
	w.mu.Unlock()

	w.onWorkerFinished(context.Background(), workerResult{folder: "/done/elsewhere"})

	result := <-w.done
	if result.folder != dir {
		t.Fatalf("queued worker folder = %q, want %q", result.folder, dir)
	}
	if _, err := os.Stat(filepath.Join(dir, "Notes", "notes.txt")); err != nil {
		t.Fatalf("queued batch did not organize file: %v", err)
	}
}

func TestQueueDrainSkipsOrganizedFiles(t *testing.T) {
	w, _, plan, _ := newTestWatcher(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "done.txt")
	writeFile(t, path)

	// A previous batch already placed this file; the stale queue entry must
	// not re-dispatch it.
	w.mu.Lock()
	w.busy = true
	w.organized[path] = struct{}{}
	w.queue = []batch{{folder: dir}, {folder: dir}}
	w.mu.Unlock()

	w.onWorkerFinished(context.Background(), workerResult{folder: dir})

	if plan.requestCount() != 0 {
		t.Fatal("stale queue entry re-dispatched an organized file")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) != 0 {
		t.Fatalf("queue length = %d, want 0", len(w.queue))
	}
	if w.busy {
		t.Fatal("watcher stuck busy with empty queue")
	}
}

func TestWorkerFinishedMarksProcessed(t *testing.T) {
	w, _, _, events := newTestWatcher(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "Docs", "a.txt")

	w.onWorkerFinished(context.Background(), workerResult{folder: dir, processed: []string{dest}})

	if !w.isOrganized(dest) {
		t.Fatal("processed file not marked organized")
	}
	if !w.isProcessed(dest) {
		t.Fatal("processed file not marked processed")
	}
	if got := waitForBatch(t, events); got != dir {
		t.Fatalf("batch finished folder = %q, want %q", got, dir)
	}
}

func TestTickPeriodicCleanup(t *testing.T) {
	w, _, _, _ := newTestWatcher(t)
	dir := t.TempDir()
	empty := filepath.Join(dir, "leftover")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := w.AddFolder(dir); err != nil {
		t.Fatal(err)
	}
	w.cfg.Watcher.CleanupEveryTick = 1

	w.tick(context.Background())

	if _, err := os.Stat(empty); !os.IsNotExist(err) {
		t.Fatal("empty folder survived periodic cleanup")
	}
}

func TestStartOrganizesExistingAndStops(t *testing.T) {
	w, _, plan, events := newTestWatcher(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.txt"))
	writeFile(t, filepath.Join(dir, "two.txt"))
	if err := w.AddFolder(dir); err != nil {
		t.Fatal(err)
	}

	plan.respond = singleFolderPlan("Text", 1, 2)

	if err := w.Start(context.Background(), StartOptions{OrganizeExisting: true}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()
	if !w.IsRunning() {
		t.Fatal("watcher not running after Start")
	}

	waitForBatch(t, events)
	for _, name := range []string{"one.txt", "two.txt"} {
		if _, err := os.Stat(filepath.Join(dir, "Text", name)); err != nil {
			t.Fatalf("%s not organized: %v", name, err)
		}
	}

	w.Stop()
	if w.IsRunning() {
		t.Fatal("watcher still running after Stop")
	}
	// Stop again is a no-op.
	w.Stop()
}

func TestCatchUpSinceFiltersOldFiles(t *testing.T) {
	w, _, plan, _ := newTestWatcher(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "stale.txt"))

	w.organizeExisting(context.Background(), []string{dir}, time.Now().Add(time.Hour))

	if plan.requestCount() != 0 {
		t.Fatal("file older than the catch-up cutoff was dispatched")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		t.Fatal("no batch should have started")
	}
}

func TestOrganizeSingleFolderAsIs(t *testing.T) {
	w, _, plan, events := newTestWatcher(t)
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Photos"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "pic.jpg"))
	writeFile(t, filepath.Join(dir, "odd.bin"))

	// The model proposes a close variant of an existing folder plus one it
	// invented; only the real folder receives files.
	plan.respond = func(req planner.Request) (*organize.Plan, error) {
		if len(req.ExistingFolders) != 1 || req.ExistingFolders[0] != "Photos" {
			t.Errorf("existing folders = %v, want [Photos]", req.ExistingFolders)
		}
		p := organize.NewPlan()
		p.Add("photos", 1)
		p.Add("Inventions", 2)
		return p, nil
	}

	w.OrganizeSingleFolder(context.Background(), dir, false)
	waitForBatch(t, events)

	moved := 0
	if _, err := os.Stat(filepath.Join(dir, "Photos", "pic.jpg")); err == nil {
		moved++
	}
	if _, err := os.Stat(filepath.Join(dir, "Photos", "odd.bin")); err == nil {
		moved++
	}
	if moved != 1 {
		t.Fatalf("moved = %d files into Photos, want exactly 1", moved)
	}
	if _, err := os.Stat(filepath.Join(dir, "Inventions")); !os.IsNotExist(err) {
		t.Fatal("invented folder was created in as-is mode")
	}
}

func TestOrganizeFoldersAppliesChoices(t *testing.T) {
	w, _, plan, events := newTestWatcher(t)

	rebuild := t.TempDir()
	writeFile(t, filepath.Join(rebuild, "nested", "deep.txt"))

	asIs := t.TempDir()
	if err := os.MkdirAll(filepath.Join(asIs, "Docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(asIs, "memo.txt"))

	skipped := t.TempDir()
	writeFile(t, filepath.Join(skipped, "untouched.txt"))

	plan.respond = func(req planner.Request) (*organize.Plan, error) {
		p := organize.NewPlan()
		folder := "Sorted"
		if len(req.ExistingFolders) > 0 {
			folder = req.ExistingFolders[0]
		}
		for _, f := range req.Files {
			p.Add(folder, f.ID)
		}
		return p, nil
	}

	dispatched := w.OrganizeFolders(context.Background(), map[string]FolderChoice{
		rebuild: ReorganizeAll,
		asIs:    OrganizeAsIs,
		skipped: ContinueWatching,
	})
	if dispatched != 2 {
		t.Fatalf("dispatched = %d, want 2", dispatched)
	}
	waitForBatch(t, events)
	waitForBatch(t, events)

	if _, err := os.Stat(filepath.Join(rebuild, "Sorted", "deep.txt")); err != nil {
		t.Fatalf("rebuild folder not organized: %v", err)
	}
	if _, err := os.Stat(filepath.Join(asIs, "Docs", "memo.txt")); err != nil {
		t.Fatalf("as-is folder not organized: %v", err)
	}
	if _, err := os.Stat(filepath.Join(skipped, "untouched.txt")); err != nil {
		t.Fatal("continue-watching folder must be left alone")
	}
	if plan.requestCount() != 2 {
		t.Fatalf("plan requests = %d, want 2", plan.requestCount())
	}
}

func TestOrganizeSingleFolderFlattensFirst(t *testing.T) {
	w, _, plan, events := newTestWatcher(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "old", "deep", "buried.txt"))

	plan.respond = func(req planner.Request) (*organize.Plan, error) {
		p := organize.NewPlan()
		for _, f := range req.Files {
			p.Add("Recovered", f.ID)
		}
		return p, nil
	}

	w.OrganizeSingleFolder(context.Background(), dir, true)
	waitForBatch(t, events)

	if _, err := os.Stat(filepath.Join(dir, "Recovered", "buried.txt")); err != nil {
		t.Fatalf("flattened file not organized: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "old")); !os.IsNotExist(err) {
		t.Fatal("emptied subfolder was not removed")
	}
}
