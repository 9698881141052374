// Package notifications delivers optional push notifications for task
// lifecycle events via ntfy. Without a configured topic every call is a noop.
package notifications
