package api

import (
	"encoding/json"

	"distill/internal/tasks"
)

// FromTask converts a task record to its API representation.
func FromTask(task *tasks.Task) TaskView {
	if task == nil {
		return TaskView{}
	}

	view := TaskView{
		ID:           task.ID,
		Filename:     task.Filename,
		SourcePath:   task.SourcePath,
		Status:       string(task.Status),
		Progress:     task.Progress,
		StepLabel:    task.StepLabel,
		ErrorKind:    task.ErrorKind,
		ErrorMessage: task.ErrorMessage,
	}
	if raw := task.OptionsJSON; raw != "" {
		view.Options = json.RawMessage(raw)
	}
	if raw := task.ResultJSON; raw != "" {
		view.Result = json.RawMessage(raw)
	}
	if !task.CreatedAt.IsZero() {
		view.CreatedAt = task.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !task.UpdatedAt.IsZero() {
		view.UpdatedAt = task.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return view
}

// FromTasks converts a slice of task records into API DTOs.
func FromTasks(records []*tasks.Task) []TaskView {
	if len(records) == 0 {
		return nil
	}
	out := make([]TaskView, 0, len(records))
	for _, task := range records {
		out = append(out, FromTask(task))
	}
	return out
}

// FromHealth converts the store summary into the health payload. Status is
// "ok" unless the store itself was unreachable, which callers signal by
// passing ok=false.
func FromHealth(summary tasks.HealthSummary, ok bool) HealthResponse {
	status := "ok"
	if !ok {
		status = "degraded"
	}
	return HealthResponse{
		Status:     status,
		Total:      summary.Total,
		Queued:     summary.Queued,
		Processing: summary.Processing,
		Completed:  summary.Completed,
		Failed:     summary.Failed,
	}
}
