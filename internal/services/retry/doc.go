// Package retry provides the resilient call executor: a bounded
// retry-with-backoff wrapper around a single external call. It knows nothing
// about pipelines or providers; the fallback router layers provider ordering
// on top of it.
package retry
