// Package providers implements the fallback router over named remote
// backends. One logical operation (a synthesis call, a document upload) is
// tried against an ordered, name-deduplicated endpoint list, each candidate
// wrapped in the bounded-retry call executor. Callers may pin a single
// endpoint to bypass fallback entirely.
package providers
