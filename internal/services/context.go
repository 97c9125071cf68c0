package services

import "context"

type contextKey string

const (
	batchIDKey contextKey = "batch_id"
	folderKey  contextKey = "folder"
)

// WithBatchID annotates context with the worker batch identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the worker batch identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(batchIDKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithFolder annotates context with the watched folder being processed.
func WithFolder(ctx context.Context, folder string) context.Context {
	if folder == "" {
		return ctx
	}
	return context.WithValue(ctx, folderKey, folder)
}

// FolderFromContext returns the watched folder if present.
func FolderFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(folderKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}
