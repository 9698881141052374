package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"distill/internal/services"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestJSONLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("task queued", String(FieldTaskID, "ab12cd34"))
	logger.Debug("suppressed")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %s", len(lines), data)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if record["msg"] != "task queued" || record["level"] != "info" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record[FieldTaskID] != "ab12cd34" {
		t.Fatalf("missing task_id attr: %v", record)
	}
}

func TestConsoleHandlerPullsComponentForward(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	logger, err := New(Options{Level: "debug", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	NewComponentLogger(logger, "pipeline").Info("stage started", String(FieldStage, "extract"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if !strings.Contains(line, "pipeline: stage started") {
		t.Fatalf("component not rendered as prefix: %q", line)
	}
	if !strings.Contains(line, "stage=extract") {
		t.Fatalf("attr missing: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not repeat as a field: %q", line)
	}
}

func TestContextFields(t *testing.T) {
	ctx := services.WithTaskID(context.Background(), "ab12cd34")
	ctx = services.WithStage(ctx, "synthesize")

	fields := ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != FieldTaskID || fields[0].Value.String() != "ab12cd34" {
		t.Fatalf("unexpected first field: %v", fields[0])
	}
	if fields[1].Key != FieldStage || fields[1].Value.String() != "synthesize" {
		t.Fatalf("unexpected second field: %v", fields[1])
	}
}
