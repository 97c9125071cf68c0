package exclusions

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	ignore "github.com/sabhiram/go-gitignore"

	"filebutler/internal/config"
	"filebutler/internal/logging"
)

// Oracle decides whether a path must be left alone. It combines user-defined
// gitignore-style exclusion patterns with pinned (protected) paths, and keeps
// pins in sync when the organizer itself moves a pinned file.
type Oracle struct {
	logger   *slog.Logger
	matcher  *ignore.GitIgnore
	pinsPath string

	mu   sync.Mutex
	pins []string
}

type pinFile struct {
	Pinned []string `toml:"pinned"`
}

// New builds an oracle from configuration, loading any persisted pins.
func New(cfg *config.Config, logger *slog.Logger) (*Oracle, error) {
	o := &Oracle{
		logger:   logging.NewComponentLogger(logger, "exclusions"),
		matcher:  ignore.CompileIgnoreLines(cfg.Exclusions.Patterns...),
		pinsPath: cfg.PinsPath(),
	}
	if err := o.loadPins(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Oracle) loadPins() error {
	data, err := os.ReadFile(o.pinsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read pins: %w", err)
	}
	var stored pinFile
	if err := toml.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parse pins: %w", err)
	}
	pins := make([]string, 0, len(stored.Pinned))
	for _, pin := range stored.Pinned {
		if trimmed := strings.TrimSpace(pin); trimmed != "" {
			pins = append(pins, filepath.Clean(trimmed))
		}
	}
	o.pins = pins
	return nil
}

func (o *Oracle) savePinsLocked() error {
	data, err := toml.Marshal(pinFile{Pinned: o.pins})
	if err != nil {
		return fmt.Errorf("encode pins: %w", err)
	}
	if dir := filepath.Dir(o.pinsPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create pin directory: %w", err)
		}
	}
	if err := os.WriteFile(o.pinsPath, data, 0o644); err != nil {
		return fmt.Errorf("write pins: %w", err)
	}
	return nil
}

// ShouldExclude reports whether the path is protected by a pin or matches a
// user exclusion pattern.
func (o *Oracle) ShouldExclude(path string) bool {
	if o.IsPinned(path) {
		return true
	}
	if o.matcher == nil {
		return false
	}
	if o.matcher.MatchesPath(filepath.Base(path)) {
		return true
	}
	return o.matcher.MatchesPath(path)
}

// IsPinned reports whether the path is pinned, either exactly or by living
// inside a pinned directory.
func (o *Oracle) IsPinned(path string) bool {
	normalized := filepath.Clean(path)
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, pin := range o.pins {
		if normalized == pin {
			return true
		}
		if strings.HasPrefix(normalized, pin+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// PinMoved updates a pin when its file has been moved, persisting the change.
// Returns true when a pin was rewritten.
func (o *Oracle) PinMoved(oldPath, newPath string) bool {
	oldNorm := filepath.Clean(oldPath)
	newNorm := filepath.Clean(newPath)

	o.mu.Lock()
	defer o.mu.Unlock()
	for i, pin := range o.pins {
		if pin != oldNorm {
			continue
		}
		o.pins[i] = newNorm
		if err := o.savePinsLocked(); err != nil {
			o.logger.Warn("failed to persist moved pin", logging.Error(err), logging.String(logging.FieldPath, newNorm))
		} else {
			o.logger.Info("pin followed moved file",
				logging.String("from", oldNorm),
				logging.String("to", newNorm),
			)
		}
		return true
	}
	return false
}

// Pin protects a path from organization.
func (o *Oracle) Pin(path string) error {
	normalized := filepath.Clean(path)
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, pin := range o.pins {
		if pin == normalized {
			return nil
		}
	}
	o.pins = append(o.pins, normalized)
	sort.Strings(o.pins)
	return o.savePinsLocked()
}

// Unpin removes protection from a path.
func (o *Oracle) Unpin(path string) error {
	normalized := filepath.Clean(path)
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, pin := range o.pins {
		if pin == normalized {
			o.pins = append(o.pins[:i], o.pins[i+1:]...)
			return o.savePinsLocked()
		}
	}
	return nil
}

// Pinned returns a copy of all pinned paths.
func (o *Oracle) Pinned() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.pins))
	copy(out, o.pins)
	return out
}
