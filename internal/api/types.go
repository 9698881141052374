package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// TaskView describes one tracked task in a transport-friendly format.
type TaskView struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	SourcePath string `json:"sourcePath,omitempty"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	StepLabel  string `json:"stepLabel,omitempty"`

	ErrorKind    string `json:"errorKind,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	Options json.RawMessage `json:"options,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`

	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// TaskListResponse wraps a collection of tasks for API responses.
type TaskListResponse struct {
	Tasks []TaskView `json:"tasks"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	Task TaskView `json:"task"`
}

// HealthResponse summarizes daemon readiness and task counts.
type HealthResponse struct {
	Status     string `json:"status"`
	Total      int    `json:"total"`
	Queued     int    `json:"queued"`
	Processing int    `json:"processing"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
}

// ErrorResponse is the uniform error payload for failed API calls.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
