// Package api defines the transport-friendly representations of task state
// served by the daemon and consumed by the CLI. Conversions bound what leaves
// the process: error details are reduced to a kind and a short message, and
// raw stack or wrapped error chains never appear in a payload.
package api
