// Package workflow admits tasks, bounds their concurrency, and drives the
// processing pipeline for each one. The runner owns the task lifecycle from
// submission to terminal state: it records the task, acquires a worker slot,
// runs the stage sequencer under the whole-task deadline, and persists the
// result or failure. A background sweep evicts expired terminal tasks.
package workflow
