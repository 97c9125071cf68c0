package organize

import (
	"fmt"
	"log/slog"
	"strings"

	"filebutler/internal/logging"
)

// MaxFolderDepth bounds how deep plan folders may nest below the watch root.
const MaxFolderDepth = 2

// dangerousFolderNames can never be organization targets.
var dangerousFolderNames = map[string]struct{}{
	"system32":      {},
	"windows":       {},
	"program files": {},
	"programdata":   {},
	"$recycle.bin":  {},
}

// fallbackFolders are tried in order when missing files need a home.
var fallbackFolders = []string{"misc", "other", "unsorted"}

// Deduplicate removes file IDs that appear in more than one folder, keeping
// the first occurrence in plan order. Folders left empty are dropped.
func Deduplicate(plan *Plan, logger *slog.Logger) *Plan {
	if plan == nil {
		return nil
	}
	cleaned := NewPlan()
	seen := make(map[int64]struct{})
	removed := 0
	for _, folder := range plan.Order {
		for _, id := range plan.Folders[folder] {
			if _, dup := seen[id]; dup {
				removed++
				continue
			}
			seen[id] = struct{}{}
			cleaned.Add(folder, id)
		}
	}
	if removed > 0 && logger != nil {
		logger.Warn("removed duplicate file assignments from plan", logging.Int("duplicates", removed))
	}
	return cleaned
}

// DiscardUnknown drops file IDs the index does not know about. The planner
// occasionally invents IDs; discarding them is safer than failing the batch.
func DiscardUnknown(plan *Plan, validIDs map[int64]struct{}, logger *slog.Logger) *Plan {
	if plan == nil {
		return nil
	}
	cleaned := NewPlan()
	dropped := 0
	for _, folder := range plan.Order {
		for _, id := range plan.Folders[folder] {
			if _, ok := validIDs[id]; !ok {
				dropped++
				continue
			}
			cleaned.Add(folder, id)
		}
	}
	if dropped > 0 && logger != nil {
		logger.Warn("dropped unknown file ids from plan", logging.Int("dropped", dropped))
	}
	return cleaned
}

// EnsureAllIncluded adds any file ID missing from the plan to a fallback
// folder so nothing is left behind. An existing misc, other, or unsorted
// folder is reused before a new misc folder is created.
func EnsureAllIncluded(plan *Plan, allIDs map[int64]struct{}, logger *slog.Logger) *Plan {
	if plan == nil {
		plan = NewPlan()
	}
	assigned := plan.AssignedIDs()
	var missing []int64
	for id := range allIDs {
		if _, ok := assigned[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return plan
	}

	target := ""
	for _, name := range fallbackFolders {
		if _, ok := plan.Folders[name]; ok {
			target = name
			break
		}
	}
	if target == "" {
		target = fallbackFolders[0]
	}
	for _, id := range missing {
		plan.Add(target, id)
	}
	if logger != nil {
		logger.Warn(
			"plan missed files, routed to fallback folder",
			logging.Int("missing", len(missing)),
			logging.String(logging.FieldFolder, target),
		)
	}
	return plan
}

// ValidateFolderName rejects folder names that could escape or damage the
// watch root: traversal, absolute paths, drive letters, system directories,
// and nesting beyond MaxFolderDepth.
func ValidateFolderName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("folder name is empty")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("path traversal not allowed: %q", name)
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return fmt.Errorf("absolute paths not allowed: %q", name)
	}
	if strings.Contains(name, ":") {
		return fmt.Errorf("drive letters not allowed: %q", name)
	}
	if _, ok := dangerousFolderNames[strings.ToLower(name)]; ok {
		return fmt.Errorf("system folder name not allowed: %q", name)
	}
	depth := strings.Count(strings.ReplaceAll(name, "\\", "/"), "/") + 1
	if depth > MaxFolderDepth {
		return fmt.Errorf("folder too deep (%d > %d): %q", depth, MaxFolderDepth, name)
	}
	return nil
}

// Validate is the final safety gate before any file moves. It returns every
// problem found so the whole plan can be rejected with full context.
func Validate(plan *Plan, validIDs map[int64]struct{}) []string {
	if plan == nil || len(plan.Order) == 0 {
		return []string{"plan is empty"}
	}

	var problems []string
	seen := make(map[int64]struct{})
	for _, folder := range plan.Order {
		if err := ValidateFolderName(folder); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		for _, id := range plan.Folders[folder] {
			if _, ok := validIDs[id]; !ok {
				problems = append(problems, fmt.Sprintf("unknown file id: %d", id))
			} else if _, dup := seen[id]; dup {
				problems = append(problems, fmt.Sprintf("duplicate file id: %d", id))
			}
			seen[id] = struct{}{}
		}
	}
	return problems
}
