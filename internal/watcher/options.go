package watcher

import "time"

// StartOptions controls the initial pass when watching begins.
type StartOptions struct {
	// OrganizeExisting organizes files already present in watched folders
	// before the polling loop starts.
	OrganizeExisting bool
	// FlattenFirst moves every nested file up to its folder root before
	// organizing, resetting the folder structure.
	FlattenFirst bool
	// CatchUpSince, when set, limits the initial pass to files modified at
	// or after this time. Files older than it are left alone.
	CatchUpSince time.Time
}

// FolderChoice selects how a single folder is handled by OrganizeFolders.
type FolderChoice int

const (
	// ReorganizeAll flattens the folder and rebuilds its structure.
	ReorganizeAll FolderChoice = iota + 1
	// OrganizeAsIs files everything into the folder's existing subfolders
	// without creating new ones.
	OrganizeAsIs
	// ContinueWatching leaves the folder untouched; only new files are
	// picked up by the polling loop.
	ContinueWatching
)
