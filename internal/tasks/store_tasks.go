package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"distill/internal/services"
)

const taskColumns = `id, source_path, filename, status, progress, step_label,
    error_kind, error_message, options_json, result_json, created_at, updated_at`

// NewTask inserts a queued task for a source file.
func (s *Store) NewTask(ctx context.Context, sourcePath string, opts Options) (*Task, error) {
	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	id := NewID()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.execWithRetry(ctx,
		`INSERT INTO tasks (
            id, source_path, filename, status, progress, step_label,
            error_kind, error_message, options_json, result_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, 0, '', '', '', ?, '', ?, ?)`,
		id,
		sourcePath,
		filepath.Base(sourcePath),
		StatusQueued,
		string(optionsJSON),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches one task.
func (s *Store) GetByID(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "", "get task", fmt.Sprintf("task %q", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// List returns tasks newest first, capped at limit when positive.
func (s *Store) List(ctx context.Context, limit int) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC, id DESC`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// SetProcessing moves a queued task to processing. Tasks already past queued
// are left untouched.
func (s *Store) SetProcessing(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusProcessing,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusQueued,
	)
	if err != nil {
		return fmt.Errorf("set processing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "", "set processing",
			fmt.Sprintf("task %q not queued", id), nil)
	}
	return nil
}

// UpdateProgress records progress for a processing task. Progress never moves
// backwards; a stale report keeps the stored value.
func (s *Store) UpdateProgress(ctx context.Context, id string, progress int, stepLabel string) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	if err := retryOnBusy(ensureContext(ctx), func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE tasks SET progress = MAX(progress, ?), step_label = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			progress,
			stepLabel,
			time.Now().UTC().Format(time.RFC3339Nano),
			id,
			StatusProcessing,
		)
		return err
	}); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// MarkCompleted finalizes a task with its result payload. Progress jumps to
// 100 and any recorded error fields are cleared.
func (s *Store) MarkCompleted(ctx context.Context, id string, resultJSON string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET status = ?, progress = 100, step_label = ?,
            error_kind = '', error_message = '', result_json = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusCompleted,
		"Processing complete",
		resultJSON,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusQueued,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return requireTransition(res, id, "mark completed")
}

// MarkFailed finalizes a task with an error classification. The result
// payload is cleared so terminal tasks hold exactly one of result or error.
func (s *Store) MarkFailed(ctx context.Context, id string, details services.ErrorDetails) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET status = ?, error_kind = ?, error_message = ?,
            result_json = '', updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusFailed,
		details.Kind,
		details.Message,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusQueued,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireTransition(res, id, "mark failed")
}

// Stats returns a count of tasks grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates task state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusQueued:
			health.Queued += count
		case StatusProcessing:
			health.Processing += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

func requireTransition(res sql.Result, id, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "", op,
			fmt.Sprintf("task %q not active", id), nil)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var task Task
	var createdAt, updatedAt string
	if err := row.Scan(
		&task.ID,
		&task.SourcePath,
		&task.Filename,
		&task.Status,
		&task.Progress,
		&task.StepLabel,
		&task.ErrorKind,
		&task.ErrorMessage,
		&task.OptionsJSON,
		&task.ResultJSON,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if task.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if task.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &task, nil
}
