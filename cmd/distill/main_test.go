package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"distill/internal/daemon"
	"distill/internal/logging"
	"distill/internal/notifications"
	"distill/internal/pipeline"
	"distill/internal/testsupport"
	"distill/internal/workflow"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeEmptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func startTestDaemon(t *testing.T) string {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	stages := []pipeline.Stage{
		{
			Name:  "noop",
			Label: "Processing",
			Start: 5,
			End:   95,
			Fatal: true,
			Execute: func(context.Context, *pipeline.Execution, pipeline.SubReport) error {
				return nil
			},
		},
	}
	seq := pipeline.NewSequencer(stages, cfg.StageTimeout(), logging.NewNop())
	runner := workflow.NewRunner(cfg, store, seq, notifications.NewService(cfg), logging.NewNop())
	d, err := daemon.New(cfg, store, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return "http://" + d.Addr()
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output missing target path: %s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init to refuse overwrite")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite init: %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	cfgPath := writeEmptyConfig(t)
	t.Setenv("DEEPSEEK_API_KEY", "super-secret-key")

	out, err := runCommand(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret-key") {
		t.Fatalf("redacted output leaked an API key: %s", out)
	}
	if !strings.Contains(out, "workflow") {
		t.Fatalf("output missing workflow section: %s", out)
	}
}

func TestConfigPath(t *testing.T) {
	cfgPath := writeEmptyConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if !strings.Contains(out, cfgPath) {
		t.Fatalf("expected %s in output, got %s", cfgPath, out)
	}
}

func TestSubmitAndListAgainstDaemon(t *testing.T) {
	baseURL := startTestDaemon(t)
	cfgPath := writeEmptyConfig(t)

	source := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(source, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := runCommand(t, "--config", cfgPath, "--server", baseURL,
		"submit", source, "--local", "--wait")
	if err != nil {
		t.Fatalf("submit: %v (%s)", err, out)
	}
	if !strings.Contains(out, "completed") {
		t.Fatalf("expected completion message, got %s", out)
	}

	out, err = runCommand(t, "--config", cfgPath, "--server", baseURL, "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "notes.txt") {
		t.Fatalf("list output missing task: %s", out)
	}

	out, err = runCommand(t, "--config", cfgPath, "--server", baseURL, "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !strings.Contains(out, "Daemon: ok") {
		t.Fatalf("unexpected health output: %s", out)
	}
}

func TestNormalizeServerURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"127.0.0.1:7788", "http://127.0.0.1:7788"},
		{"http://127.0.0.1:7788/", "http://127.0.0.1:7788"},
		{"0.0.0.0:7788", "http://127.0.0.1:7788"},
		{"https://distill.example.com", "https://distill.example.com"},
	}
	for _, tc := range cases {
		got, err := normalizeServerURL(tc.in)
		if err != nil {
			t.Fatalf("normalizeServerURL(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("normalizeServerURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := normalizeServerURL("  "); err == nil {
		t.Fatal("expected error for empty address")
	}
}
