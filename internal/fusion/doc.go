// Package fusion post-processes structured knowledge (deduplication, field
// backfill) and renders the final document as markdown or JSON.
package fusion
