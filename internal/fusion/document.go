package fusion

import (
	"time"

	"distill/internal/synth"
)

// Document is the assembled outcome of one pipeline run, ready for rendering.
type Document struct {
	Filename      string
	SourceType    string
	SourcePath    string
	ExtractedText string
	Knowledge     *synth.Knowledge
	StyleContext  map[string]any

	CreatedAt      time.Time
	ProcessingTime time.Duration
	// Errors holds recorded non-fatal stage failures.
	Errors []string
}
