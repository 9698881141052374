// Package tasks persists processing tasks in SQLite. The registry is
// transient state: the default backing database lives in memory and task
// records do not survive a daemon restart.
package tasks
