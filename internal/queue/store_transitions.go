package queue

import (
	"context"
	"fmt"
	"time"
)

// ClaimPending atomically transitions a job from pending to running.
// It reports whether this caller won the claim; a false result with nil
// error means another worker (or a racing execute-now request) got there
// first, or the job is not in pending.
func (s *Store) ClaimPending(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE publish_jobs SET status = ?, last_error = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusRunning,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CancelPending atomically transitions an owner's job from pending to
// cancelled. A false result means the job is unknown, not owned by the
// caller, or already left pending; that race is expected and not an error.
func (s *Store) CancelPending(ctx context.Context, id, ownerID string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE publish_jobs SET status = ?, updated_at = ?
         WHERE id = ? AND owner_id = ? AND status = ?`,
		StatusCancelled,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		ownerID,
		StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CountRunning returns the number of jobs currently marked running.
// Jobs still running at daemon startup were interrupted by a crash and
// need manual inspection; they are never re-queued automatically.
func (s *Store) CountRunning(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM publish_jobs WHERE status = ?`,
		StatusRunning,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count running jobs: %w", err)
	}
	return count, nil
}
