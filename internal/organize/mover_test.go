package organize

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"filebutler/internal/index"
	"filebutler/internal/logging"
)

type fakeIndex struct {
	byPath  map[string]*index.Record
	updates map[int64]string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{byPath: map[string]*index.Record{}, updates: map[int64]string{}}
}

func (f *fakeIndex) add(id int64, path string) {
	f.byPath[path] = &index.Record{ID: id, Path: path, Name: filepath.Base(path)}
}

func (f *fakeIndex) GetByPath(_ context.Context, path string) (*index.Record, error) {
	return f.byPath[filepath.Clean(path)], nil
}

func (f *fakeIndex) GetByName(_ context.Context, name string) (*index.Record, error) {
	for _, record := range f.byPath {
		if record.Name == name {
			return record, nil
		}
	}
	return nil, nil
}

func (f *fakeIndex) UpdatePath(_ context.Context, id int64, newPath string) (bool, error) {
	f.updates[id] = newPath
	return true, nil
}

type fakePins struct {
	fakeOracle
	moved map[string]string
}

func (f *fakePins) PinMoved(oldPath, newPath string) bool {
	if !f.pinned[oldPath] {
		return false
	}
	if f.moved == nil {
		f.moved = map[string]string{}
	}
	f.moved[oldPath] = newPath
	return true
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExecuteMovesFilesIntoPlanFolders(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.jpg")
	writeFile(t, a)
	writeFile(t, b)

	idx := newFakeIndex()
	idx.add(1, a)
	idx.add(2, b)

	plan := NewPlan()
	plan.Add("docs", 1)
	plan.Add("photos", 2)

	mover := NewMover(idx, &fakePins{}, logging.NewNop())
	report := mover.Execute(context.Background(), plan, map[int64]string{1: a, 2: b}, root)

	if len(report.Moves) != 2 {
		t.Fatalf("moves = %d, want 2", len(report.Moves))
	}
	if _, err := os.Stat(filepath.Join(root, "docs", "a.txt")); err != nil {
		t.Fatalf("a.txt not in docs: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "photos", "b.jpg")); err != nil {
		t.Fatalf("b.jpg not in photos: %v", err)
	}
	if idx.updates[1] != filepath.Join(root, "docs", "a.txt") {
		t.Fatalf("index update for 1 = %q", idx.updates[1])
	}
	if len(report.Touched) != 2 {
		t.Fatalf("touched = %v", report.Touched)
	}
}

func TestExecuteConflictSuffix(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "report.pdf")
	writeFile(t, src)
	writeFile(t, filepath.Join(root, "docs", "report.pdf"))
	writeFile(t, filepath.Join(root, "docs", "report_1.pdf"))

	plan := NewPlan()
	plan.Add("docs", 1)

	mover := NewMover(newFakeIndex(), &fakePins{}, logging.NewNop())
	report := mover.Execute(context.Background(), plan, map[int64]string{1: src}, root)

	if len(report.Moves) != 1 {
		t.Fatalf("moves = %+v", report.Moves)
	}
	want := filepath.Join(root, "docs", "report_2.pdf")
	if report.Moves[0].To != want {
		t.Fatalf("dest = %q, want %q", report.Moves[0].To, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("suffixed file missing: %v", err)
	}
}

func TestExecuteSkipsFilesAlreadyInPlace(t *testing.T) {
	root := t.TempDir()
	inPlace := filepath.Join(root, "docs", "a.txt")
	writeFile(t, inPlace)

	plan := NewPlan()
	plan.Add("docs", 1)

	mover := NewMover(newFakeIndex(), &fakePins{}, logging.NewNop())
	report := mover.Execute(context.Background(), plan, map[int64]string{1: inPlace}, root)

	if len(report.Moves) != 0 {
		t.Fatalf("moves = %+v, want none", report.Moves)
	}
	if report.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", report.Skipped)
	}
	if len(report.Touched) != 1 || report.Touched[0] != inPlace {
		t.Fatalf("touched = %v", report.Touched)
	}
	if _, err := os.Stat(filepath.Join(root, "docs", "a_1.txt")); err == nil {
		t.Fatal("skip must not create a suffixed copy")
	}
}

func TestExecuteIsIdempotent(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.txt")
	writeFile(t, src)

	plan := NewPlan()
	plan.Add("docs", 1)

	mover := NewMover(newFakeIndex(), &fakePins{}, logging.NewNop())
	first := mover.Execute(context.Background(), plan, map[int64]string{1: src}, root)
	if len(first.Moves) != 1 {
		t.Fatalf("first pass moves = %d", len(first.Moves))
	}

	moved := first.Moves[0].To
	second := mover.Execute(context.Background(), plan, map[int64]string{1: moved}, root)
	if len(second.Moves) != 0 || second.Skipped != 1 {
		t.Fatalf("second pass = %+v", second)
	}
}

func TestExecuteSkipsMissingSources(t *testing.T) {
	root := t.TempDir()
	plan := NewPlan()
	plan.Add("docs", 1)

	mover := NewMover(newFakeIndex(), &fakePins{}, logging.NewNop())
	report := mover.Execute(context.Background(), plan, map[int64]string{1: filepath.Join(root, "gone.txt")}, root)
	if len(report.Moves) != 0 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.txt")
	writeFile(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := NewPlan()
	plan.Add("docs", 1)

	mover := NewMover(newFakeIndex(), &fakePins{}, logging.NewNop())
	report := mover.Execute(ctx, plan, map[int64]string{1: src}, root)
	if len(report.Moves) != 0 {
		t.Fatalf("moves = %+v, want none after cancel", report.Moves)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should be untouched: %v", err)
	}
}

func TestExecuteMigratesPins(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "keep.txt")
	writeFile(t, src)

	pins := &fakePins{fakeOracle: fakeOracle{pinned: map[string]bool{src: true}}}
	plan := NewPlan()
	plan.Add("docs", 1)

	mover := NewMover(newFakeIndex(), pins, logging.NewNop())
	mover.Execute(context.Background(), plan, map[int64]string{1: src}, root)

	if pins.moved[src] != filepath.Join(root, "docs", "keep.txt") {
		t.Fatalf("pin migration = %v", pins.moved)
	}
}

func TestFlattenMovesNestedFilesToRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.txt"))
	writeFile(t, filepath.Join(root, "sub", "nested.txt"))
	writeFile(t, filepath.Join(root, "sub", "deeper", "leaf.txt"))
	writeFile(t, filepath.Join(root, "junk", ".DS_Store"))

	mover := NewMover(newFakeIndex(), &fakePins{}, logging.NewNop())
	moved, failures := mover.Flatten(context.Background(), root)
	if len(failures) != 0 {
		t.Fatalf("failures = %v", failures)
	}
	if moved != 2 {
		t.Fatalf("moved = %d, want 2", moved)
	}
	for _, name := range []string{"top.txt", "nested.txt", "leaf.txt"} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Errorf("%s missing from root: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "sub")); !os.IsNotExist(err) {
		t.Fatal("empty subfolder should be reaped after flatten")
	}
	// A folder still holding an ignored artifact is not empty and stays.
	if _, err := os.Stat(filepath.Join(root, "junk")); err != nil {
		t.Fatalf("junk folder should survive: %v", err)
	}
}

func TestFlattenConflictSuffix(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"))
	writeFile(t, filepath.Join(root, "sub", "a.txt"))

	mover := NewMover(newFakeIndex(), &fakePins{}, logging.NewNop())
	moved, _ := mover.Flatten(context.Background(), root)
	if moved != 1 {
		t.Fatalf("moved = %d, want 1", moved)
	}
	if _, err := os.Stat(filepath.Join(root, "a (1).txt")); err != nil {
		t.Fatalf("flatten conflict name missing: %v", err)
	}
}
