// Package pipeline sequences the ordered processing stages of one task,
// mapping stage-internal progress into fixed percentage windows and
// separating fatal from recoverable stage failures.
package pipeline
