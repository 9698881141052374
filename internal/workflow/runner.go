package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"distill/internal/config"
	"distill/internal/fusion"
	"distill/internal/logging"
	"distill/internal/notifications"
	"distill/internal/pipeline"
	"distill/internal/services"
	"distill/internal/synth"
	"distill/internal/tasks"
)

// Runner coordinates task processing. Submissions are recorded immediately
// and processed asynchronously; a buffered-channel semaphore keeps the number
// of in-flight pipelines at or below the configured concurrency.
type Runner struct {
	cfg      *config.Config
	store    *tasks.Store
	seq      *pipeline.Sequencer
	notifier notifications.Service
	logger   *slog.Logger

	slots chan struct{}

	mu      sync.Mutex
	running bool
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner constructs a runner over the given sequencer and task store.
func NewRunner(cfg *config.Config, store *tasks.Store, seq *pipeline.Sequencer, notifier notifications.Service, logger *slog.Logger) *Runner {
	concurrency := cfg.Workflow.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Runner{
		cfg:      cfg,
		store:    store,
		seq:      seq,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		slots:    make(chan struct{}, concurrency),
	}
}

// Start enables submissions and launches the eviction sweep.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("workflow: runner already started")
	}
	r.baseCtx, r.cancel = context.WithCancel(context.Background())
	r.running = true

	r.wg.Add(1)
	go r.evictionLoop(r.baseCtx)

	r.logger.Info("runner started",
		logging.Int("concurrency", cap(r.slots)),
		logging.Duration("task_timeout", r.cfg.TaskTimeout()),
	)
	return nil
}

// Stop cancels in-flight work and waits for task goroutines to drain, bounded
// by the provided context.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("workflow: shutdown wait: %w", ctx.Err())
	}
}

// Submit validates the source and options, records a queued task, and starts
// processing in the background. The returned task reflects the queued state.
func (r *Runner) Submit(ctx context.Context, sourcePath string, opts tasks.Options) (*tasks.Task, error) {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()
	if !running {
		return nil, errors.New("workflow: runner not started")
	}

	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "submit", "invalid source path", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "submit",
			fmt.Sprintf("source not readable: %s", absPath), err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "", "submit",
			fmt.Sprintf("source is a directory: %s", absPath), nil)
	}

	task, err := r.store.NewTask(ctx, absPath, opts)
	if err != nil {
		return nil, err
	}
	r.logger.Info("task queued",
		logging.String(logging.FieldTaskID, task.ID),
		logging.String("filename", task.Filename),
		logging.String(logging.FieldEventType, "task_queued"),
	)
	if err := r.notifier.NotifyTaskQueued(ctx, task.ID, task.Filename); err != nil {
		r.logger.Warn("queued notification failed", logging.Error(err))
	}

	r.wg.Add(1)
	go r.run(task)
	return task, nil
}

// run drives one task to a terminal state. Terminal store writes use a fresh
// context so a timed-out task still gets recorded.
func (r *Runner) run(task *tasks.Task) {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(r.baseCtx, r.cfg.TaskTimeout())
	defer cancel()

	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		r.finishFailed(task, admissionFailure(ctx.Err()))
		return
	}
	defer func() { <-r.slots }()
	// Both select branches can be ready when a slot frees during shutdown.
	if ctx.Err() != nil {
		r.finishFailed(task, admissionFailure(ctx.Err()))
		return
	}

	if err := r.store.SetProcessing(ctx, task.ID); err != nil {
		r.finishFailed(task, err)
		return
	}

	workDir, err := os.MkdirTemp(r.cfg.Paths.DataDir, "task-"+task.ID+"-*")
	if err != nil {
		r.finishFailed(task, fmt.Errorf("workflow: create work dir: %w", err))
		return
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			r.logger.Warn("work dir cleanup failed",
				logging.String(logging.FieldTaskID, task.ID),
				logging.Error(err),
			)
		}
	}()

	exec := &pipeline.Execution{
		TaskID:     task.ID,
		SourcePath: task.SourcePath,
		Filename:   task.Filename,
		Options:    task.Options(),
		WorkDir:    workDir,
		StartedAt:  time.Now(),
	}
	report := func(percent int, label string) {
		if err := r.store.UpdateProgress(context.Background(), task.ID, percent, label); err != nil {
			r.logger.Debug("progress update failed",
				logging.String(logging.FieldTaskID, task.ID),
				logging.Error(err),
			)
		}
	}

	if err := r.seq.Run(ctx, exec, report); err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrStageTimeout):
			err = services.Wrap(services.ErrPipelineTimeout, "", "", "task deadline exceeded", err)
		case errors.Is(ctx.Err(), context.Canceled):
			err = services.Wrap(services.ErrShutdown, "", "", "processing interrupted by shutdown", err)
		}
		r.finishFailed(task, err)
		return
	}
	r.finishCompleted(task, exec)
}

// admissionFailure classifies a task that never reached processing: the task
// deadline lapsing in the queue is a timeout, anything else is shutdown.
func admissionFailure(cause error) error {
	if errors.Is(cause, context.DeadlineExceeded) {
		return services.Wrap(services.ErrPipelineTimeout, "", "",
			"task deadline exceeded while waiting for a worker slot", cause)
	}
	return services.Wrap(services.ErrShutdown, "", "",
		"shutdown before processing started", cause)
}

func (r *Runner) finishCompleted(task *tasks.Task, exec *pipeline.Execution) {
	ctx := context.Background()
	resultJSON, err := encodeResult(exec)
	if err != nil {
		r.finishFailed(task, err)
		return
	}
	if err := r.store.MarkCompleted(ctx, task.ID, resultJSON); err != nil {
		r.logger.Error("completion record failed",
			logging.String(logging.FieldTaskID, task.ID),
			logging.Error(err),
		)
		return
	}
	r.logger.Info("task completed",
		logging.String(logging.FieldTaskID, task.ID),
		logging.String("output_path", exec.OutputPath),
		logging.Duration("elapsed", time.Since(exec.StartedAt)),
		logging.String(logging.FieldEventType, "task_completed"),
	)
	if err := r.notifier.NotifyTaskCompleted(ctx, task.ID, task.Filename, exec.OutputPath); err != nil {
		r.logger.Warn("completion notification failed", logging.Error(err))
	}
}

func (r *Runner) finishFailed(task *tasks.Task, cause error) {
	ctx := context.Background()
	details := services.Details(cause)
	if err := r.store.MarkFailed(ctx, task.ID, details); err != nil {
		r.logger.Error("failure record failed",
			logging.String(logging.FieldTaskID, task.ID),
			logging.Error(err),
		)
	}
	r.logger.Error("task failed",
		logging.String(logging.FieldTaskID, task.ID),
		logging.String("error_kind", details.Kind),
		logging.String(logging.FieldEventType, "task_failed"),
		logging.Error(cause),
	)
	if err := r.notifier.NotifyTaskFailed(ctx, task.ID, task.Filename, details.Kind, details.Message); err != nil {
		r.logger.Warn("failure notification failed", logging.Error(err))
	}
}

// evictionLoop periodically removes expired terminal tasks and enforces the
// retained-task cap.
func (r *Runner) evictionLoop(ctx context.Context) {
	defer r.wg.Done()
	interval := r.cfg.EvictionInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := r.store.Evict(ctx, r.cfg.TaskExpiry(), r.cfg.Workflow.MaxTasks)
			if err != nil {
				r.logger.Warn("eviction sweep failed", logging.Error(err))
				continue
			}
			if removed > 0 {
				r.logger.Info("evicted tasks", logging.Int64("removed", removed))
			}
		}
	}
}

// taskResult is the terminal payload stored on completed tasks.
type taskResult struct {
	OutputPath        string   `json:"output_path,omitempty"`
	StorageLocation   string   `json:"storage_location,omitempty"`
	SourceType        string   `json:"source_type,omitempty"`
	Errors            []string `json:"errors,omitempty"`
	ProcessingSeconds float64  `json:"processing_seconds"`
}

func encodeResult(exec *pipeline.Execution) (string, error) {
	encoded, err := json.Marshal(taskResult{
		OutputPath:        exec.OutputPath,
		StorageLocation:   exec.StorageLocation,
		SourceType:        string(exec.Kind),
		Errors:            exec.Errors,
		ProcessingSeconds: time.Since(exec.StartedAt).Seconds(),
	})
	if err != nil {
		return "", fmt.Errorf("workflow: encode result: %w", err)
	}
	return string(encoded), nil
}

func validateOptions(opts tasks.Options) error {
	switch opts.Intent {
	case "", synth.IntentContent, synth.IntentStyle:
	default:
		return services.Wrap(services.ErrValidation, "", "submit",
			fmt.Sprintf("unknown intent %q", opts.Intent), nil)
	}
	switch opts.DocType {
	case "", synth.DocTypeDoc, synth.DocTypeSkill, synth.DocTypeBoth:
	default:
		return services.Wrap(services.ErrValidation, "", "submit",
			fmt.Sprintf("unknown doc type %q", opts.DocType), nil)
	}
	switch opts.OutputFormat {
	case "", fusion.FormatMarkdownName, fusion.FormatJSONName:
	default:
		return services.Wrap(services.ErrValidation, "", "submit",
			fmt.Sprintf("unknown output format %q", opts.OutputFormat), nil)
	}
	return nil
}
