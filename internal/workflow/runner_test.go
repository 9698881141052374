package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"distill/internal/config"
	"distill/internal/logging"
	"distill/internal/notifications"
	"distill/internal/pipeline"
	"distill/internal/services"
	"distill/internal/tasks"
	"distill/internal/testsupport"
)

func newRunner(t *testing.T, cfg *config.Config, stages []pipeline.Stage) (*Runner, *tasks.Store) {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	seq := pipeline.NewSequencer(stages, cfg.StageTimeout(), logging.NewNop())
	runner := NewRunner(cfg, store, seq, notifications.NewService(cfg), logging.NewNop())
	if err := runner.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Stop(ctx)
	})
	return runner, store
}

func writeSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("body"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func waitForTerminal(t *testing.T, store *tasks.Store, id string) *tasks.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if task.IsTerminal() {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", id)
	return nil
}

func TestSubmitRejectsInvalidOptions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner, _ := newRunner(t, cfg, nil)

	source := writeSource(t, "notes.txt")
	cases := []tasks.Options{
		{Intent: "summarize"},
		{DocType: "report"},
		{OutputFormat: "yaml"},
	}
	for _, opts := range cases {
		_, err := runner.Submit(context.Background(), source, opts)
		if err == nil {
			t.Fatalf("expected rejection for options %+v", opts)
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
}

func TestSubmitRejectsMissingSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner, _ := newRunner(t, cfg, nil)

	_, err := runner.Submit(context.Background(), filepath.Join(t.TempDir(), "absent.txt"), tasks.Options{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitRequiresStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	seq := pipeline.NewSequencer(nil, cfg.StageTimeout(), logging.NewNop())
	runner := NewRunner(cfg, store, seq, notifications.NewService(cfg), logging.NewNop())

	if _, err := runner.Submit(context.Background(), writeSource(t, "a.txt"), tasks.Options{}); err == nil {
		t.Fatal("expected submission before Start to fail")
	}
}

func TestRunnerCompletesTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stages := []pipeline.Stage{
		{
			Name:  "render",
			Label: "Rendering output",
			Start: 10,
			End:   90,
			Fatal: true,
			Execute: func(_ context.Context, exec *pipeline.Execution, _ pipeline.SubReport) error {
				out := filepath.Join(cfg.Paths.OutputDir, "result.md")
				if err := os.WriteFile(out, []byte("# done"), 0o644); err != nil {
					return err
				}
				exec.OutputPath = out
				return nil
			},
		},
	}
	runner, store := newRunner(t, cfg, stages)

	task, err := runner.Submit(context.Background(), writeSource(t, "talk.txt"), tasks.Options{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if task.Status != tasks.StatusQueued {
		t.Fatalf("expected queued at submission, got %s", task.Status)
	}

	final := waitForTerminal(t, store, task.ID)
	if final.Status != tasks.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", final.Status, final.ErrorMessage)
	}
	if final.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", final.Progress)
	}
	if final.StepLabel != "Processing complete" {
		t.Fatalf("unexpected step label %q", final.StepLabel)
	}
	if !strings.Contains(final.ResultJSON, "result.md") {
		t.Fatalf("result payload missing output path: %s", final.ResultJSON)
	}
	if final.ErrorKind != "" || final.ErrorMessage != "" {
		t.Fatalf("completed task carries error fields: %q %q", final.ErrorKind, final.ErrorMessage)
	}
}

func TestRunnerRecordsFatalFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stages := []pipeline.Stage{
		{
			Name:  "identify",
			Label: "Identifying input",
			Start: 5,
			End:   10,
			Fatal: true,
			Execute: func(_ context.Context, exec *pipeline.Execution, _ pipeline.SubReport) error {
				if strings.HasSuffix(exec.Filename, ".xyz") {
					return services.Wrap(services.ErrUnsupportedInput, "identify", "",
						"unsupported extension .xyz", nil)
				}
				return nil
			},
		},
	}
	runner, store := newRunner(t, cfg, stages)

	failing, err := runner.Submit(context.Background(), writeSource(t, "blob.xyz"), tasks.Options{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	final := waitForTerminal(t, store, failing.ID)
	if final.Status != tasks.StatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if final.ErrorKind != services.KindUnsupportedInput {
		t.Fatalf("expected kind %q, got %q", services.KindUnsupportedInput, final.ErrorKind)
	}
	if final.ResultJSON != "" {
		t.Fatalf("failed task carries a result: %s", final.ResultJSON)
	}

	// The slot released by the failure must be reusable.
	ok, err := runner.Submit(context.Background(), writeSource(t, "good.txt"), tasks.Options{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if final := waitForTerminal(t, store, ok.ID); final.Status != tasks.StatusCompleted {
		t.Fatalf("follow-up task did not complete: %s (%s)", final.Status, final.ErrorMessage)
	}
}

func TestRunnerConcurrencyCeiling(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithConcurrency(2))

	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	stages := []pipeline.Stage{
		{
			Name:  "hold",
			Label: "Holding",
			Start: 5,
			End:   95,
			Fatal: true,
			Execute: func(ctx context.Context, _ *pipeline.Execution, _ pipeline.SubReport) error {
				cur := inFlight.Add(1)
				defer inFlight.Add(-1)
				for {
					seen := peak.Load()
					if cur <= seen || peak.CompareAndSwap(seen, cur) {
						break
					}
				}
				select {
				case <-release:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		},
	}
	runner, store := newRunner(t, cfg, stages)

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		task, err := runner.Submit(context.Background(), writeSource(t, "doc.txt"), tasks.Options{})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, task.ID)
	}

	deadline := time.Now().Add(5 * time.Second)
	for inFlight.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(release)

	for _, id := range ids {
		if final := waitForTerminal(t, store, id); final.Status != tasks.StatusCompleted {
			t.Fatalf("task %s: expected completed, got %s (%s)", id, final.Status, final.ErrorMessage)
		}
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("concurrency ceiling breached: %d tasks in flight", got)
	}
	if got := peak.Load(); got != 2 {
		t.Fatalf("expected both worker slots in use at peak, saw %d", got)
	}
}

func TestRunnerTaskDeadline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.TaskTimeoutSeconds = 1
	stages := []pipeline.Stage{
		{
			Name:  "stall",
			Label: "Stalling",
			Start: 5,
			End:   95,
			Fatal: true,
			Execute: func(ctx context.Context, _ *pipeline.Execution, _ pipeline.SubReport) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}
	runner, store := newRunner(t, cfg, stages)

	task, err := runner.Submit(context.Background(), writeSource(t, "slow.txt"), tasks.Options{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	final := waitForTerminal(t, store, task.ID)
	if final.Status != tasks.StatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if final.ErrorKind != services.KindPipelineTimeout {
		t.Fatalf("expected kind %q, got %q", services.KindPipelineTimeout, final.ErrorKind)
	}
}

func TestStopDrainsRunningTasks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	started := make(chan struct{}, 1)
	stages := []pipeline.Stage{
		{
			Name:  "wait",
			Label: "Waiting",
			Start: 5,
			End:   95,
			Fatal: true,
			Execute: func(ctx context.Context, _ *pipeline.Execution, _ pipeline.SubReport) error {
				select {
				case started <- struct{}{}:
				default:
				}
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}
	runner, store := newRunner(t, cfg, stages)

	task, err := runner.Submit(context.Background(), writeSource(t, "doc.txt"), tasks.Options{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	final, err := store.GetByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.Status != tasks.StatusFailed {
		t.Fatalf("expected interrupted task to be failed, got %s", final.Status)
	}
	if final.ErrorKind != services.KindShutdown {
		t.Fatalf("expected kind %q, got %q", services.KindShutdown, final.ErrorKind)
	}
}

func TestStopDoesNotReportQueuedTaskAsTimedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Concurrency = 1
	started := make(chan struct{}, 1)
	stages := []pipeline.Stage{
		{
			Name:  "wait",
			Label: "Waiting",
			Start: 5,
			End:   95,
			Fatal: true,
			Execute: func(ctx context.Context, _ *pipeline.Execution, _ pipeline.SubReport) error {
				select {
				case started <- struct{}{}:
				default:
				}
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}
	runner, store := newRunner(t, cfg, stages)

	if _, err := runner.Submit(context.Background(), writeSource(t, "first.txt"), tasks.Options{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started
	queued, err := runner.Submit(context.Background(), writeSource(t, "second.txt"), tasks.Options{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	final, err := store.GetByID(context.Background(), queued.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.Status != tasks.StatusFailed {
		t.Fatalf("expected queued task to be failed, got %s", final.Status)
	}
	if final.ErrorKind != services.KindShutdown {
		t.Fatalf("expected kind %q, got %q", services.KindShutdown, final.ErrorKind)
	}
}
