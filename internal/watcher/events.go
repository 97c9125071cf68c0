package watcher

// Events receives watcher lifecycle callbacks. Implementations must be quick;
// callbacks run on the scheduler and worker goroutines.
type Events interface {
	// FileIndexed fires after a file is newly indexed.
	FileIndexed(path string)
	// FileOrganized fires after a file lands at its destination.
	FileOrganized(source, dest, folder string)
	// StatusChanged carries human-readable progress updates.
	StatusChanged(status string)
	// Error reports a failure tied to a path; path is empty when the whole
	// batch failed rather than one file.
	Error(path string, message string)
	// BatchFinished fires when a worker completes, listing every file the
	// batch touched in its final location.
	BatchFinished(folder string, processed []string)
}

// NopEvents discards all callbacks.
type NopEvents struct{}

func (NopEvents) FileIndexed(string)             {}
func (NopEvents) FileOrganized(_, _, _ string)   {}
func (NopEvents) StatusChanged(string)           {}
func (NopEvents) Error(_, _ string)              {}
func (NopEvents) BatchFinished(string, []string) {}
