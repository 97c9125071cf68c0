// Package notifications delivers watcher events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when notifications are disabled, so the
// watcher can call it unconditionally.
package notifications
