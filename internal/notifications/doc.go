// Package notifications delivers publish lifecycle events via pluggable
// notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Upload and error events can be toggled independently so a quiet
// deployment still hears about credential problems.
package notifications
