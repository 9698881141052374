package pipeline

import (
	"context"
	"time"

	"distill/internal/ingest"
	"distill/internal/synth"
	"distill/internal/tasks"
)

// Execution is the mutable state threaded through one pipeline run. Stages
// read what earlier stages produced and write their own contribution.
type Execution struct {
	TaskID     string
	SourcePath string
	Filename   string
	Options    tasks.Options
	WorkDir    string

	Kind          ingest.Kind
	ExtractedText string
	StyleContext  map[string]any
	Knowledge     *synth.Knowledge

	OutputPath      string
	StorageLocation string

	StartedAt time.Time

	// Errors accumulates non-fatal stage failures for the final document.
	Errors []string
}

// SubReport reports stage-internal progress as a fraction in [0,1].
type SubReport func(fraction float64)

// Stage is one step of the pipeline with its progress window.
type Stage struct {
	Name  string
	Label string

	// Start and End bound the stage's slice of the overall 0-100 progress.
	Start int
	End   int

	// Fatal stages abort the run on failure; non-fatal failures are recorded
	// on the execution and the run continues.
	Fatal bool

	// Applies gates the stage; nil means always. Skipped stages still fire
	// their window endpoint so progress keeps moving.
	Applies func(*Execution) bool

	Execute func(ctx context.Context, exec *Execution, report SubReport) error
}
