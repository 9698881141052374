package tasks

import (
	"context"
	"fmt"
	"time"
)

// Evict removes terminal tasks older than maxAge, then force-evicts the
// oldest terminal tasks until the total record count fits under maxCount.
// Queued and processing tasks are never evicted. Returns the number of rows
// removed.
func (s *Store) Evict(ctx context.Context, maxAge time.Duration, maxCount int) (int64, error) {
	var removed int64

	if maxAge > 0 {
		cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339Nano)
		res, err := s.execWithRetry(ctx,
			`DELETE FROM tasks WHERE status IN (?, ?) AND updated_at < ?`,
			StatusCompleted,
			StatusFailed,
			cutoff,
		)
		if err != nil {
			return removed, fmt.Errorf("evict expired tasks: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return removed, fmt.Errorf("rows affected: %w", err)
		}
		removed += n
	}

	if maxCount > 0 {
		var total int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks`).Scan(&total); err != nil {
			return removed, fmt.Errorf("count tasks: %w", err)
		}
		if excess := total - maxCount; excess > 0 {
			res, err := s.execWithRetry(ctx,
				`DELETE FROM tasks WHERE id IN (
                    SELECT id FROM tasks WHERE status IN (?, ?)
                    ORDER BY created_at ASC, id ASC LIMIT ?
                )`,
				StatusCompleted,
				StatusFailed,
				excess,
			)
			if err != nil {
				return removed, fmt.Errorf("evict over cap: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return removed, fmt.Errorf("rows affected: %w", err)
			}
			removed += n
		}
	}

	return removed, nil
}
