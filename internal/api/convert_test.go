package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"distill/internal/tasks"
)

func TestFromTask(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	task := &tasks.Task{
		ID:          "ab12cd34",
		SourcePath:  "/in/talk.mp4",
		Filename:    "talk.mp4",
		Status:      tasks.StatusProcessing,
		Progress:    42,
		StepLabel:   "Synthesizing knowledge",
		OptionsJSON: `{"intent":"content"}`,
		CreatedAt:   created,
		UpdatedAt:   created.Add(time.Minute),
	}

	view := FromTask(task)
	if view.ID != "ab12cd34" || view.Status != "processing" || view.Progress != 42 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.CreatedAt != "2026-03-14T09:26:53.000Z" {
		t.Fatalf("unexpected createdAt: %q", view.CreatedAt)
	}
	if string(view.Options) != `{"intent":"content"}` {
		t.Fatalf("unexpected options: %s", view.Options)
	}
	if view.Result != nil {
		t.Fatalf("expected no result for in-flight task, got %s", view.Result)
	}
}

func TestFromTaskFailureCarriesKindAndMessageOnly(t *testing.T) {
	task := &tasks.Task{
		ID:           "ff00aa11",
		Filename:     "blob.xyz",
		Status:       tasks.StatusFailed,
		ErrorKind:    "unsupported_input",
		ErrorMessage: "identify: unsupported extension .xyz",
	}

	encoded, err := json.Marshal(FromTask(task))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	payload := string(encoded)
	if !strings.Contains(payload, `"errorKind":"unsupported_input"`) {
		t.Fatalf("missing error kind: %s", payload)
	}
	if strings.Contains(payload, "result") {
		t.Fatalf("failed task must not carry a result: %s", payload)
	}
}

func TestFromTaskNil(t *testing.T) {
	if view := FromTask(nil); view.ID != "" {
		t.Fatalf("expected zero view, got %+v", view)
	}
	if out := FromTasks(nil); out != nil {
		t.Fatalf("expected nil slice, got %v", out)
	}
}

func TestFromHealth(t *testing.T) {
	summary := tasks.HealthSummary{Total: 4, Queued: 1, Processing: 1, Completed: 1, Failed: 1}
	resp := FromHealth(summary, true)
	if resp.Status != "ok" || resp.Total != 4 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp := FromHealth(tasks.HealthSummary{}, false); resp.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", resp.Status)
	}
}
