package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"distill/internal/logging"
	"distill/internal/services"
)

// Report receives absolute progress updates for the task being processed.
type Report func(percent int, label string)

// Sequencer drives the static stage list for one execution. It maps
// stage-internal progress into each stage's window, keeps the reported
// percentage monotonic, and enforces the per-stage deadline. The sequencer
// never retries; resilience lives below it in the call executor.
type Sequencer struct {
	stages       []Stage
	stageTimeout time.Duration
	logger       *slog.Logger
}

// NewSequencer constructs a sequencer over an ordered stage list.
func NewSequencer(stages []Stage, stageTimeout time.Duration, logger *slog.Logger) *Sequencer {
	return &Sequencer{
		stages:       stages,
		stageTimeout: stageTimeout,
		logger:       logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Stages returns the configured stage order.
func (s *Sequencer) Stages() []Stage {
	out := make([]Stage, len(s.stages))
	copy(out, s.stages)
	return out
}

// Run executes every stage in order. Fatal stage failures and stage timeouts
// abort the run; non-fatal failures are recorded on the execution and
// processing continues. On success the final report lands at 100.
func (s *Sequencer) Run(ctx context.Context, exec *Execution, report Report) error {
	if report == nil {
		report = func(int, string) {}
	}
	monotonic := newMonotonicReport(report)

	for _, stage := range s.stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		if stage.Applies != nil && !stage.Applies(exec) {
			s.logger.Debug("stage skipped",
				logging.String(logging.FieldTaskID, exec.TaskID),
				logging.String(logging.FieldStage, stage.Name),
			)
			monotonic(stage.End, stage.Label)
			continue
		}

		s.logger.Info("stage started",
			logging.String(logging.FieldTaskID, exec.TaskID),
			logging.String(logging.FieldStage, stage.Name),
			logging.String(logging.FieldEventType, "stage_start"),
		)
		monotonic(stage.Start, stage.Label)

		err := s.runStage(ctx, stage, exec, func(fraction float64) {
			monotonic(windowPercent(stage, fraction), stage.Label)
		})
		if err != nil {
			if stage.Fatal || isFatal(ctx, err) {
				s.logger.Error("stage failed",
					logging.String(logging.FieldTaskID, exec.TaskID),
					logging.String(logging.FieldStage, stage.Name),
					logging.String(logging.FieldEventType, "stage_failure"),
					logging.Error(err),
				)
				return err
			}
			detail := services.Details(err)
			exec.Errors = append(exec.Errors, fmt.Sprintf("%s: %s", stage.Name, detail.Message))
			s.logger.Warn("stage failed, continuing",
				logging.String(logging.FieldTaskID, exec.TaskID),
				logging.String(logging.FieldStage, stage.Name),
				logging.String("error_kind", detail.Kind),
				logging.Error(err),
			)
			monotonic(stage.End, stage.Label)
			continue
		}

		s.logger.Info("stage completed",
			logging.String(logging.FieldTaskID, exec.TaskID),
			logging.String(logging.FieldStage, stage.Name),
			logging.String(logging.FieldEventType, "stage_complete"),
		)
		monotonic(stage.End, stage.Label)
	}

	monotonic(100, "Processing complete")
	return nil
}

// runStage executes a single stage under the per-stage deadline. A deadline
// hit is always fatal regardless of the stage's own fatality.
func (s *Sequencer) runStage(ctx context.Context, stage Stage, exec *Execution, report SubReport) error {
	stageCtx := ctx
	cancel := func() {}
	if s.stageTimeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, s.stageTimeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- stage.Execute(stageCtx, exec, report)
	}()

	select {
	case err := <-done:
		if err != nil && stageCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return services.Wrap(services.ErrStageTimeout, stage.Name, "",
				fmt.Sprintf("exceeded %s", s.stageTimeout), err)
		}
		return err
	case <-stageCtx.Done():
		if ctx.Err() != nil {
			// The overall run deadline or a shutdown won, not this stage.
			return ctx.Err()
		}
		return services.Wrap(services.ErrStageTimeout, stage.Name, "",
			fmt.Sprintf("exceeded %s", s.stageTimeout), nil)
	}
}

// isFatal reports whether an error must abort the run even on a non-fatal
// stage: stage timeouts and a dead run context cannot be recovered from.
func isFatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return services.Kind(err) == services.KindStageTimeout
}

// windowPercent maps a stage-internal fraction into the stage's window.
func windowPercent(stage Stage, fraction float64) int {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	span := float64(stage.End - stage.Start)
	return stage.Start + int(math.Floor(fraction*span))
}

// newMonotonicReport wraps a report so the emitted percentage never drops.
func newMonotonicReport(report Report) Report {
	last := 0
	return func(percent int, label string) {
		if percent < last {
			percent = last
		}
		if percent > 100 {
			percent = 100
		}
		last = percent
		report(percent, label)
	}
}
