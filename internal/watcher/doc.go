// Package watcher runs the auto-organize loop: it polls watched folders for
// new files, debounces them until stable, and hands batches to a single
// background worker that indexes the files, requests an organization plan,
// and executes the resulting moves. A periodic pass reaps folders left empty
// by earlier moves.
package watcher
