package organize

import (
	"os"
	"path/filepath"
	"testing"

	"filebutler/internal/logging"
)

func TestReapEmptyDirsRemovesNestedChains(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "keep", "file.txt"))

	removed := ReapEmptyDirs(root, logging.NewNop())
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
	if _, err := os.Stat(filepath.Join(root, "a")); !os.IsNotExist(err) {
		t.Fatal("empty chain should be fully removed")
	}
	if _, err := os.Stat(filepath.Join(root, "keep")); err != nil {
		t.Fatalf("non-empty folder removed: %v", err)
	}
}

func TestReapEmptyDirsNeverRemovesRoot(t *testing.T) {
	root := t.TempDir()
	removed := ReapEmptyDirs(root, logging.NewNop())
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("root removed: %v", err)
	}
}

func TestReapEmptyDirsSkipsHidden(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".config"), 0o755); err != nil {
		t.Fatal(err)
	}
	removed := ReapEmptyDirs(root, logging.NewNop())
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	if _, err := os.Stat(filepath.Join(root, ".config")); err != nil {
		t.Fatalf("hidden folder removed: %v", err)
	}
}
