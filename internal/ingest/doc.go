// Package ingest classifies source files by kind so the pipeline can route
// them to the right extraction path.
package ingest
