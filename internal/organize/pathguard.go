package organize

import (
	"path/filepath"
	"runtime"
	"strings"
)

// ignoredNames are artifacts that should never be indexed or moved.
var ignoredNames = map[string]struct{}{
	".ds_store":       {},
	"thumbs.db":       {},
	"desktop.ini":     {},
	".gitignore":      {},
	".gitkeep":        {},
	"__pycache__":     {},
	".localized":      {},
	".spotlight-v100": {},
}

// ignoredExtensions mark files still being written by browsers or tools.
var ignoredExtensions = map[string]struct{}{
	".tmp":        {},
	".temp":       {},
	".crdownload": {},
	".part":       {},
	".partial":    {},
	".download":   {},
}

// ExclusionOracle answers whether a path is excluded from organization by
// user configuration (ignore patterns or pins).
type ExclusionOracle interface {
	ShouldExclude(path string) bool
	IsPinned(path string) bool
}

/// ShouldIgnore reports whether a file must be left alone entirely: junk
// artifacts, partial downloads, dotfiles, and anything the oracle excludes.
// A nil oracle only applies the built-in rules.
func ShouldIgnore(path string, oracle ExclusionOracle) bool {
	name := filepath.Base(path)
	lower := strings.ToLower(name)

	if _, ok := ignoredNames[lower]; ok {
		return true
	}
	if _, ok := ignoredExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return true
	}
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
		return true
	}
	if strings.HasPrefix(lower, ".git") {
		return true
	}
	if oracle != nil && oracle.ShouldExclude(path) {
		return true
	}
	return false
}

// NormalizedEqual compares two paths after cleaning, and case-insensitively
// on platforms with case-insensitive default filesystems.
func NormalizedEqual(a, b string) bool {
	ca := filepath.Clean(a)
	cb := filepath.Clean(b)
	if ca == cb {
		return true
	}
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		return strings.EqualFold(ca, cb)
	}
	return false
}

// IsAlreadyInPlace reports whether moving src into destDir would be a no-op:
// either the destination equals the source, or the file already sits directly
// inside destDir under the same name.
func IsAlreadyInPlace(src, destDir string) bool {
	target := filepath.Join(destDir, filepath.Base(src))
	return NormalizedEqual(src, target)
}
