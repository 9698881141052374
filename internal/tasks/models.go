package tasks

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a task. Transitions only move forward:
// queued, processing, then exactly one of completed or failed.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{StatusQueued, StatusProcessing, StatusCompleted, StatusFailed}

// IsTerminal reports whether a status ends the lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ValidStatus reports whether the value is a known lifecycle status.
func ValidStatus(value string) bool {
	for _, s := range allStatuses {
		if string(s) == value {
			return true
		}
	}
	return false
}

// Options carries per-task processing choices supplied at submission.
type Options struct {
	Intent       string `json:"intent,omitempty"`
	DocType      string `json:"doc_type,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
	// Provider pins synthesis to one configured backend.
	Provider string `json:"provider,omitempty"`
}

// Task is one processing request tracked by the registry.
type Task struct {
	ID         string
	SourcePath string
	Filename   string
	Status     Status

	Progress  int
	StepLabel string

	ErrorKind    string
	ErrorMessage string

	OptionsJSON string
	ResultJSON  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Options decodes the stored submission options.
func (t *Task) Options() Options {
	var opts Options
	if strings.TrimSpace(t.OptionsJSON) == "" {
		return opts
	}
	_ = json.Unmarshal([]byte(t.OptionsJSON), &opts)
	return opts
}

// IsTerminal reports whether the task reached a final state.
func (t *Task) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// NewID returns a short task identifier.
func NewID() string {
	return uuid.NewString()[:8]
}

// HealthSummary describes aggregated task counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Queued     int
	Processing int
	Completed  int
	Failed     int
}
