// Package storage publishes rendered documents to remote storage backends
// through the provider fallback router.
package storage
