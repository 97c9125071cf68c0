package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"filebutler/internal/config"
	"filebutler/internal/organize"
)

// WatchEntry is one persisted watched folder and its instruction.
type WatchEntry struct {
	Path        string `toml:"path"`
	Instruction string `toml:"instruction,omitempty"`
}

type watchlistFile struct {
	Folders []WatchEntry `toml:"folders"`
}

// Watchlist persists the set of watched folders across runs. The on-disk
// format is a TOML file in the data directory.
type Watchlist struct {
	path string

	mu      sync.Mutex
	entries []WatchEntry
}

// LoadWatchlist reads the persisted folder list, returning an empty list
// when none exists yet.
func LoadWatchlist(cfg *config.Config) (*Watchlist, error) {
	l := &Watchlist{path: filepath.Join(cfg.Paths.DataDir, "folders.toml")}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	var stored watchlistFile
	if err := toml.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}
	for _, entry := range stored.Folders {
		trimmed := strings.TrimSpace(entry.Path)
		if trimmed == "" {
			continue
		}
		l.entries = append(l.entries, WatchEntry{
			Path:        filepath.Clean(trimmed),
			Instruction: entry.Instruction,
		})
	}
	return l, nil
}

// Entries returns a copy of the persisted folders.
func (l *Watchlist) Entries() []WatchEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]WatchEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Add persists a folder. Re-adding an existing folder updates its
// instruction instead of duplicating the entry.
func (l *Watchlist) Add(folder, instruction string) error {
	folder = filepath.Clean(folder)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, entry := range l.entries {
		if organize.NormalizedEqual(entry.Path, folder) {
			l.entries[i].Instruction = instruction
			return l.saveLocked()
		}
	}
	l.entries = append(l.entries, WatchEntry{Path: folder, Instruction: instruction})
	return l.saveLocked()
}

// Remove drops a folder from the list. Returns false when it was not listed.
func (l *Watchlist) Remove(folder string) (bool, error) {
	folder = filepath.Clean(folder)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, entry := range l.entries {
		if organize.NormalizedEqual(entry.Path, folder) {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true, l.saveLocked()
		}
	}
	return false, nil
}

// InstructionFor returns the persisted instruction for a folder.
func (l *Watchlist) InstructionFor(folder string) string {
	folder = filepath.Clean(folder)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range l.entries {
		if organize.NormalizedEqual(entry.Path, folder) {
			return entry.Instruction
		}
	}
	return ""
}

// Apply registers every persisted folder with the watcher. Folders that no
// longer exist on disk are reported but do not abort the rest.
func (l *Watchlist) Apply(w *Watcher) []error {
	var errs []error
	for _, entry := range l.Entries() {
		if err := w.AddFolder(entry.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		if entry.Instruction != "" {
			w.SetInstruction(entry.Path, entry.Instruction)
		}
	}
	return errs
}

func (l *Watchlist) saveLocked() error {
	data, err := toml.Marshal(watchlistFile{Folders: l.entries})
	if err != nil {
		return fmt.Errorf("encode watchlist: %w", err)
	}
	if dir := filepath.Dir(l.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write watchlist: %w", err)
	}
	return nil
}
