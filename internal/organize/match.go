package organize

import (
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"filebutler/internal/logging"
)

// FolderMatcher maps planner-suggested folder names onto an existing set of
// folders. When no existing folders are configured every name passes through
// unchanged.
type FolderMatcher struct {
	existing []string
	fold     cases.Caser
}

// NewFolderMatcher builds a matcher over the given existing folder names.
func NewFolderMatcher(existing []string) *FolderMatcher {
	return &FolderMatcher{existing: existing, fold: cases.Fold()}
}

// Restricted reports whether the matcher limits plans to existing folders.
func (m *FolderMatcher) Restricted() bool {
	return m != nil && len(m.existing) > 0
}

// Match resolves a suggested folder name to an existing folder. It tries an
// exact case-folded match, then a match with spaces, hyphens, and underscores
// stripped, then a substring match in either direction. The second return is
// false when nothing matches; in restricted mode those files stay in place.
func (m *FolderMatcher) Match(suggested string) (string, bool) {
	if !m.Restricted() {
		return suggested, true
	}

	trimmed := m.fold.String(strings.TrimSpace(suggested))
	for _, existing := range m.existing {
		if m.fold.String(existing) == trimmed {
			return existing, true
		}
	}

	normalized := m.normalize(suggested)
	for _, existing := range m.existing {
		if m.normalize(existing) == normalized {
			return existing, true
		}
	}

	for _, existing := range m.existing {
		folded := m.fold.String(existing)
		if strings.Contains(folded, trimmed) || strings.Contains(trimmed, folded) {
			return existing, true
		}
	}

	return "", false
}

func (m *FolderMatcher) normalize(s string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "_", "")
	return replacer.Replace(m.fold.String(s))
}

// Restrict rewrites a plan through the matcher: folders that resolve to an
// existing folder are renamed (and merged when two suggestions map to the
// same target), folders that resolve to nothing are dropped so their files
// are left untouched.
func Restrict(plan *Plan, matcher *FolderMatcher, logger *slog.Logger) *Plan {
	if plan == nil || !matcher.Restricted() {
		return plan
	}

	restricted := NewPlan()
	skipped := 0
	for _, folder := range plan.Order {
		ids := plan.Folders[folder]
		if len(ids) == 0 {
			continue
		}
		target, ok := matcher.Match(folder)
		if !ok {
			skipped++
			if logger != nil {
				logger.Info(
					"no existing folder matches suggestion, leaving files in place",
					logging.String(logging.FieldFolder, folder),
					logging.Int("files", len(ids)),
				)
			}
			continue
		}
		if target != folder && logger != nil {
			logger.Info(
				"mapped suggested folder to existing folder",
				logging.String("suggested", folder),
				logging.String(logging.FieldFolder, target),
			)
		}
		for _, id := range ids {
			restricted.Add(target, id)
		}
	}
	if skipped > 0 && logger != nil {
		logger.Info("skipped folders with no existing match", logging.Int("folders", skipped))
	}
	return restricted
}
